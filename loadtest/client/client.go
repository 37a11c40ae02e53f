// Package client provides a reusable WebSocket load test client for the
// SkillSwap signaling server. It connects using gobwas/ws (the same library
// the server uses), authenticates with a bearer token passed in the URL, and
// tracks per-connection performance metrics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// ---------------------------------------------------------------------------
// Protocol message types (local equivalents of internal/protocol constants)
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoinRoom     = "join_room"
	TypeLeaveRoom    = "leave_room"
	TypeCallInvite   = "call_invite"
	TypeCallJoined   = "call_joined"
	TypeVideoOffer   = "video_offer"
	TypeVideoAnswer  = "video_answer"
	TypeIceCandidate = "ice_candidate"
	TypeVideoCallEnd = "video_call_end"
	TypePing         = "ping"
)

// Server -> Client message types.
const (
	TypeConnected      = "connected"
	TypeRoomJoined     = "room_joined"
	TypeCallInvited    = "call_invited"
	TypeVideoCallEnded = "video_call_ended"
	TypeNotification   = "notification"
	TypeRateLimited    = "rate_limited"
	TypeError          = "error"
	TypePong           = "pong"
)

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

// Metrics tracks per-connection performance data.
type Metrics struct {
	ConnectLatency   time.Duration
	MessagesReceived int
	MessagesSent     int
	Errors           int
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client represents a single simulated user connection to the SkillSwap
// signaling server. It manages the WebSocket lifecycle and dispatches
// incoming messages to registered handlers. The server's connected greeting
// is handled internally to capture the connection ID.
type Client struct {
	conn      net.Conn
	userID    string
	connID    string
	mu        sync.Mutex
	metrics   Metrics
	handlers  map[string]func(json.RawMessage)
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a load test client connected to the given WebSocket URL. The
// token is appended as the token query parameter, which is how browser
// clients authenticate; it must resolve to a user in the server's auth
// store. A background goroutine begins reading messages immediately.
func New(ctx context.Context, url, token string) (*Client, error) {
	start := time.Now()
	conn, _, _, err := ws.Dial(ctx, url+"?token="+token)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &Client{
		conn:     conn,
		handlers: make(map[string]func(json.RawMessage)),
		done:     make(chan struct{}),
	}
	c.metrics.ConnectLatency = time.Since(start)

	go c.readLoop()

	return c, nil
}

// Send sends a JSON message to the server. It is goroutine-safe.
func (c *Client) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.MessagesSent++
	return wsutil.WriteClientMessage(c.conn, ws.OpText, data)
}

// JoinRoom sends a join_room for the given match.
func (c *Client) JoinRoom(matchID string) error {
	return c.Send(map[string]string{"type": TypeJoinRoom, "match_id": matchID})
}

// On registers a handler for a specific server message type. The handler
// receives the full raw JSON of the message for flexible decoding. Handlers
// run on the read loop goroutine, so they should not block. Only one handler
// per message type is supported; registering a second replaces the first.
func (c *Client) On(msgType string, handler func(json.RawMessage)) {
	c.handlers[msgType] = handler
}

// WaitForConnected blocks until the server's connected greeting arrives or
// the context is cancelled.
func (c *Client) WaitForConnected(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return fmt.Errorf("connection closed before greeting arrived")
		case <-ticker.C:
			if c.connID != "" {
				return nil
			}
		}
	}
}

// Close closes the connection and stops the read loop. It is safe to call
// multiple times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// UserID returns the authenticated user ID from the connected greeting, or
// an empty string before the greeting arrives.
func (c *Client) UserID() string {
	return c.userID
}

// GetMetrics returns a copy of the client's metrics.
func (c *Client) GetMetrics() Metrics {
	return c.metrics
}

// readLoop continuously reads WebSocket frames from the server and
// dispatches them to registered handlers. It runs until the connection is
// closed or an unrecoverable error occurs.
func (c *Client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		data, err := wsutil.ReadServerText(c.conn)
		if err != nil {
			select {
			case <-c.done:
				// Connection was intentionally closed; do not count as error.
				return
			default:
			}
			c.metrics.Errors++
			return
		}

		c.metrics.MessagesReceived++

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		// Capture identity from the greeting.
		if envelope.Type == TypeConnected {
			var msg struct {
				UserID string `json:"user_id"`
				ConnID string `json:"conn_id"`
			}
			if err := json.Unmarshal(data, &msg); err == nil {
				c.userID = msg.UserID
				c.connID = msg.ConnID
			}
		}

		if handler, ok := c.handlers[envelope.Type]; ok {
			handler(json.RawMessage(data))
		}
	}
}
