package ws

import (
	"context"
	"log"
	"time"

	"github.com/skillswap/swap-app/internal/protocol"
	"github.com/skillswap/swap-app/internal/ratelimit"
)

// MessageHandler is the callback signature for handling a parsed client message.
// The msg parameter is the concrete struct returned by protocol.ParseClientMessage
// (e.g., protocol.JoinRoomMsg, protocol.VideoOfferMsg, etc.).
type MessageHandler func(conn *Connection, msg interface{})

// MessageDispatcher routes incoming WebSocket messages to registered handlers
// based on the message type. It enforces the per-user signaling rate limit,
// handles the built-in ping/pong keepalive internally, and sends structured
// error responses for malformed or unsupported messages.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	limiter  *ratelimit.Limiter
}

// NewMessageDispatcher creates a MessageDispatcher. The limiter may be nil,
// in which case no signaling rate limit is applied.
func NewMessageDispatcher(limiter *ratelimit.Limiter) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		limiter:  limiter,
	}
}

// Register associates a MessageHandler with a message type. If a handler was
// already registered for the given type, it is silently replaced.
func (d *MessageDispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// Dispatch is the onMessage callback implementation. It parses the raw bytes
// into a typed message, handles ping internally, applies the signaling rate
// limit, and routes all other types to the registered handler. Parse errors
// and unregistered types result in an error message sent back to the client.
func (d *MessageDispatcher) Dispatch(conn *Connection, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		log.Printf("ws: dispatch parse error conn=%s: %v", conn.ID, err)
		d.sendError(conn, "parse_error", "invalid message format")
		return
	}

	// Built-in ping handler, exempt from the rate limit so a throttled
	// client's keepalive keeps working.
	if msgType == protocol.TypePing {
		d.sendPong(conn)
		return
	}

	if d.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		allowed, _ := d.limiter.Allow(ctx, conn.UserID, ratelimit.RuleSignal)
		if !allowed {
			retryAfter := d.limiter.RetryAfter(ctx, conn.UserID, ratelimit.RuleSignal)
			cancel()
			d.sendRateLimited(conn, retryAfter)
			return
		}
		cancel()
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		log.Printf("ws: unsupported message type=%q conn=%s", msgType, conn.ID)
		d.sendError(conn, "unsupported_type", "unsupported message type")
		return
	}

	handler(conn, msg)
}

// sendError sends a structured error message back to the client. Errors during
// message construction or transmission are logged but not propagated.
func (d *MessageDispatcher) sendError(conn *Connection, code string, message string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.Printf("ws: failed to build error message conn=%s: %v", conn.ID, err)
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		log.Printf("ws: failed to send error message conn=%s: %v", conn.ID, err)
	}
}

// sendRateLimited tells the client it is sending signaling messages too fast
// and when it may retry.
func (d *MessageDispatcher) sendRateLimited(conn *Connection, retryAfter int) {
	data, err := protocol.NewServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
		RetryAfter: retryAfter,
	})
	if err != nil {
		log.Printf("ws: failed to build rate limited message conn=%s: %v", conn.ID, err)
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		log.Printf("ws: failed to send rate limited message conn=%s: %v", conn.ID, err)
	}
}

// sendPong responds to a client ping with a pong message and updates the
// connection's LastPing timestamp to reflect the most recent keepalive.
func (d *MessageDispatcher) sendPong(conn *Connection) {
	conn.LastPing = time.Now()

	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		log.Printf("ws: failed to build pong message conn=%s: %v", conn.ID, err)
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		log.Printf("ws: failed to send pong message conn=%s: %v", conn.ID, err)
	}
}
