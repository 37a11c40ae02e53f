package signaling

import (
	"encoding/json"
	"sync"
)

// Event is the payload exchanged over the backplane between server
// instances. Frame holds the fully encoded server message so that a
// receiving instance can write it to its local sockets without re-encoding.
type Event struct {
	MatchID       string          `json:"match_id,omitempty"`
	FromConnID    string          `json:"from_conn_id"`
	IncludeSender bool            `json:"include_sender,omitempty"`
	Frame         json.RawMessage `json:"frame"`
}

// Backplane fans signaling traffic out across server instances. Room
// subjects carry in-call relay frames; user subjects carry direct
// notifications that must reach a user on whichever instance they are
// connected to.
type Backplane interface {
	PublishRoom(matchID string, data []byte) error
	SubscribeRoom(matchID string, handler func(data []byte)) error
	UnsubscribeRoom(matchID string) error
	PublishUser(userID string, data []byte) error
	SubscribeUser(userID string, handler func(data []byte)) error
	UnsubscribeUser(userID string) error
}

// LocalBus is an in-process Backplane for single-instance deployments and
// tests. Publishes are delivered synchronously to the local subscriber.
type LocalBus struct {
	mu    sync.RWMutex
	rooms map[string]func(data []byte)
	users map[string]func(data []byte)
}

// NewLocalBus creates an empty in-process backplane.
func NewLocalBus() *LocalBus {
	return &LocalBus{
		rooms: make(map[string]func(data []byte)),
		users: make(map[string]func(data []byte)),
	}
}

func (b *LocalBus) PublishRoom(matchID string, data []byte) error {
	b.mu.RLock()
	handler := b.rooms[matchID]
	b.mu.RUnlock()
	if handler != nil {
		handler(data)
	}
	return nil
}

func (b *LocalBus) SubscribeRoom(matchID string, handler func(data []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms[matchID] = handler
	return nil
}

func (b *LocalBus) UnsubscribeRoom(matchID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, matchID)
	return nil
}

func (b *LocalBus) PublishUser(userID string, data []byte) error {
	b.mu.RLock()
	handler := b.users[userID]
	b.mu.RUnlock()
	if handler != nil {
		handler(data)
	}
	return nil
}

func (b *LocalBus) SubscribeUser(userID string, handler func(data []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = handler
	return nil
}

func (b *LocalBus) UnsubscribeUser(userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, userID)
	return nil
}
