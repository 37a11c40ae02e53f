// Package messaging provides the NATS client wrapper behind the signaling
// backplane. Room traffic fans out over signal.room.<match_id> and direct
// user notifications over signal.user.<user_id>, so a multi-instance
// deployment reaches peers connected to any instance.
package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject prefixes used by the signaling relay.
const (
	SubjectRoomPrefix = "signal.room." // + <match_id>
	SubjectUserPrefix = "signal.user." // + <user_id>
)

// NATSClient wraps the NATS connection with helper methods for the room and
// user channels. It implements signaling.Backplane.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "skillswap",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// PublishRoom publishes a relayed event to every instance serving the room.
func (c *NATSClient) PublishRoom(matchID string, data []byte) error {
	return c.conn.Publish(SubjectRoomPrefix+matchID, data)
}

// SubscribeRoom subscribes this instance to the room's subject. Called when
// the first local connection joins the room.
func (c *NATSClient) SubscribeRoom(matchID string, handler func(data []byte)) error {
	return c.subscribe("room:"+matchID, SubjectRoomPrefix+matchID, handler)
}

// UnsubscribeRoom drops the room subscription once no local connection
// remains in the room.
func (c *NATSClient) UnsubscribeRoom(matchID string) error {
	return c.unsubscribe("room:" + matchID)
}

// PublishUser publishes a direct notification frame to a specific user,
// regardless of which instance their connections live on.
func (c *NATSClient) PublishUser(userID string, data []byte) error {
	return c.conn.Publish(SubjectUserPrefix+userID, data)
}

// SubscribeUser subscribes this instance to a user's direct channel. Called
// when the user's first local connection authenticates.
func (c *NATSClient) SubscribeUser(userID string, handler func(data []byte)) error {
	return c.subscribe("user:"+userID, SubjectUserPrefix+userID, handler)
}

// UnsubscribeUser drops the user subscription once their last local
// connection is gone.
func (c *NATSClient) UnsubscribeUser(userID string) error {
	return c.unsubscribe("user:" + userID)
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", key, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}

// subscribe registers a handler under a bookkeeping key. An existing
// subscription for the key is left in place; the relay's own refcounting
// guarantees it only subscribes once per key.
func (c *NATSClient) subscribe(key, subject string, handler func(data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	if old, ok := c.subs[key]; ok {
		_ = old.Unsubscribe()
	}
	c.subs[key] = sub
	c.mu.Unlock()
	return nil
}

// unsubscribe removes and unsubscribes a bookkeeping key.
func (c *NATSClient) unsubscribe(key string) error {
	c.mu.Lock()
	sub, ok := c.subs[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for %s", key)
	}
	delete(c.subs, key)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", key, err)
	}
	return nil
}
