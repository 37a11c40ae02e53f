// Package signaling implements the WebRTC signaling relay: call rooms keyed
// by match ID, the cross-instance backplane, and the handlers that forward
// offers, answers, and ICE candidates between the two sides of a match.
package signaling

import (
	"sync"

	"github.com/skillswap/swap-app/internal/metrics"
	"github.com/skillswap/swap-app/internal/ws"
)

// Rooms tracks which connections are members of which call room. A room is
// identified by the match ID it belongs to; it exists exactly as long as it
// has at least one member connection.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*ws.Connection // matchID -> connID -> conn
}

// NewRooms creates an empty room registry.
func NewRooms() *Rooms {
	return &Rooms{
		rooms: make(map[string]map[string]*ws.Connection),
	}
}

// Join adds a connection to the room for matchID, creating the room if
// needed. It reports whether this connection is the room's first member.
// Joining a room the connection is already in is a no-op.
func (r *Rooms) Join(matchID string, conn *ws.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[matchID]
	if !ok {
		room = make(map[string]*ws.Connection)
		r.rooms[matchID] = room
		metrics.RoomsActive.Set(float64(len(r.rooms)))
	}
	room[conn.ID] = conn
	return !ok
}

// Leave removes a connection from the room for matchID. It reports whether
// the room became empty (and was deleted) as a result.
func (r *Rooms) Leave(matchID string, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(matchID, connID)
}

func (r *Rooms) leaveLocked(matchID string, connID string) bool {
	room, ok := r.rooms[matchID]
	if !ok {
		return false
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, matchID)
		metrics.RoomsActive.Set(float64(len(r.rooms)))
		return true
	}
	return false
}

// Members returns a snapshot of the connections currently in the room.
func (r *Rooms) Members(matchID string) []*ws.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[matchID]
	if !ok {
		return nil
	}
	members := make([]*ws.Connection, 0, len(room))
	for _, c := range room {
		members = append(members, c)
	}
	return members
}

// Contains reports whether the connection is a member of the room.
func (r *Rooms) Contains(matchID string, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[matchID]
	if !ok {
		return false
	}
	_, member := room[connID]
	return member
}

// DropConn removes the connection from every room it is a member of and
// returns the match IDs of rooms that became empty. Called when a connection
// disconnects without sending leave_room.
func (r *Rooms) DropConn(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var emptied []string
	for matchID, room := range r.rooms {
		if _, ok := room[connID]; !ok {
			continue
		}
		if r.leaveLocked(matchID, connID) {
			emptied = append(emptied, matchID)
		}
	}
	return emptied
}

// Count returns the number of active rooms.
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
