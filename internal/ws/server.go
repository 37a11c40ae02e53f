// Package ws handles WebSocket connection management for the signaling
// channel: upgrading and authenticating HTTP connections, maintaining the
// active connection registry (indexed by connection, fd, and user), and
// dispatching incoming frames to the signaling relay.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/skillswap/swap-app/internal/auth"
	"github.com/skillswap/swap-app/internal/metrics"
	"github.com/skillswap/swap-app/internal/presence"
	"github.com/skillswap/swap-app/internal/protocol"
	"github.com/skillswap/swap-app/internal/ratelimit"
)

// ServerConfig holds tunable parameters for the WebSocket server.
type ServerConfig struct {
	WorkerPoolSize int           // max concurrent read-worker goroutines
	MaxConnections int           // hard cap on total connections
	ReadTimeout    time.Duration // timeout for WebSocket read operations
	WriteTimeout   time.Duration // timeout for WebSocket write operations
}

// DefaultServerConfig returns a ServerConfig with sensible production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		WorkerPoolSize: 256,
		MaxConnections: 100000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Server is the WebSocket server built on gobwas/ws and Linux epoll. It does
// not own an HTTP listener; the application mounts HandleUpgrade on its
// router and calls Start to run the epoll event loop. Every connection is
// authenticated during the upgrade — the relay never sees an anonymous one.
type Server struct {
	config       ServerConfig
	epoll        *Epoll
	conns        *ConnectionManager
	verifier     auth.Verifier
	presence     *presence.Store
	limiter      *ratelimit.Limiter
	workerPool   chan struct{} // semaphore limiting concurrent read workers
	onMessage    func(conn *Connection, data []byte)
	onConnect    func(conn *Connection)
	onDisconnect func(conn *Connection)
	done         chan struct{}
	startedAt    time.Time
}

// NewServer creates a Server. The onMessage function is called from a worker
// goroutine whenever a complete WebSocket text frame is received from a
// client.
func NewServer(config ServerConfig, verifier auth.Verifier, pres *presence.Store, limiter *ratelimit.Limiter, onMessage func(conn *Connection, data []byte)) *Server {
	return &Server{
		config:     config,
		conns:      NewConnectionManager(),
		verifier:   verifier,
		presence:   pres,
		limiter:    limiter,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		onMessage:  onMessage,
		done:       make(chan struct{}),
	}
}

// Start initializes the epoll instance and begins the event loop and
// heartbeat monitor in background goroutines. It returns immediately; frame
// traffic starts flowing once HandleUpgrade admits connections.
func (s *Server) Start() error {
	var err error
	s.epoll, err = NewEpoll()
	if err != nil {
		return fmt.Errorf("ws: failed to create epoll: %w", err)
	}

	s.startedAt = time.Now()

	go s.startEventLoop()
	StartHeartbeat(s, DefaultHeartbeatConfig())

	log.Printf("ws: server started (workers=%d, max_conns=%d)",
		s.config.WorkerPoolSize, s.config.MaxConnections)
	return nil
}

// HandleUpgrade authenticates and upgrades an HTTP request to a WebSocket
// connection. The bearer credential comes from the token query parameter
// (browser WebSocket clients cannot set headers) or the Authorization
// header. Failed authentication is the one condition that refuses the
// connection outright.
func (s *Server) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.conns.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	if ip := clientIP(r); ip != "" && s.limiter != nil {
		allowed, _ := s.limiter.Allow(r.Context(), ip, ratelimit.RuleConnect)
		if !allowed {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
	}

	userID, err := s.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			log.Printf("ws: auth backend error: %v", err)
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("ws: upgrade failed for user %s: %v", userID, err)
		return
	}

	fd := socketFD(conn)
	c := &Connection{
		ID:        uuid.New().String(),
		UserID:    userID,
		Conn:      conn,
		Fd:        fd,
		CreatedAt: time.Now(),
		LastPing:  time.Now(),
	}

	s.conns.Add(c)
	if err := s.epoll.Add(conn); err != nil {
		log.Printf("ws: epoll add failed for conn %s: %v", c.ID, err)
		s.conns.Remove(c.ID)
		return
	}

	metrics.ConnectionsTotal.Set(float64(s.conns.Count()))

	if s.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.presence.Connect(ctx, userID, c.ID); err != nil {
			log.Printf("ws: presence connect for user %s: %v", userID, err)
		}
	}

	if s.onConnect != nil {
		s.onConnect(c)
	}

	welcome, err := protocol.NewServerMessage(protocol.TypeConnected, protocol.ConnectedMsg{
		UserID: userID,
		ConnID: c.ID,
	})
	if err != nil {
		log.Printf("ws: failed to build connected message for conn %s: %v", c.ID, err)
	} else if err := c.WriteMessage(welcome); err != nil {
		log.Printf("ws: failed to send connected message for conn %s: %v", c.ID, err)
	}

	log.Printf("ws: new connection conn=%s user=%s fd=%d (total=%d)", c.ID, userID, fd, s.conns.Count())
}

// startEventLoop runs the epoll wait loop. For each batch of ready
// connections, it dispatches each to a worker goroutine (bounded by the
// worker pool semaphore) that reads and processes the WebSocket frame.
func (s *Server) startEventLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conns, err := s.epoll.Wait()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				// EINTR is expected during signal handling.
				if isEINTR(err) {
					continue
				}
				log.Printf("ws: epoll wait error: %v", err)
				continue
			}
		}

		for _, conn := range conns {
			conn := conn // capture for goroutine

			// Acquire a worker slot (blocks if pool is full).
			s.workerPool <- struct{}{}

			go func() {
				defer func() { <-s.workerPool }()
				s.handleConn(conn)
			}()
		}
	}
}

// handleConn reads a single WebSocket frame from a ready connection using
// wsutil.NextReader so that control frames (ping, pong) are handled without
// blocking on a data frame that may never arrive. If the read fails
// (connection closed, protocol error, etc.) the connection is removed from
// epoll and the connection manager.
func (s *Server) handleConn(netConn net.Conn) {
	c := s.conns.GetByConn(netConn)
	if c == nil {
		return
	}

	// Guard against duplicate dispatch from level-triggered epoll.
	if !atomic.CompareAndSwapInt32(&c.processing, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&c.processing, 0)

	if s.config.ReadTimeout > 0 {
		_ = netConn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	header, reader, err := wsutil.NextReader(netConn, ws.StateServerSide)
	if err != nil {
		// A read timeout means no data was available (stale epoll dispatch).
		// Don't kill the connection; the heartbeat handles dead connections.
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return
		}
		s.RemoveConnection(c)
		return
	}

	// Clear read deadline after successful frame read.
	_ = netConn.SetReadDeadline(time.Time{})

	// Any frame proves the connection is alive.
	c.LastPing = time.Now()

	// Handle control frames without removing the connection.
	if header.OpCode.IsControl() {
		if header.OpCode == ws.OpClose {
			s.RemoveConnection(c)
		}
		// Pong/ping: connection is alive, nothing else to do.
		return
	}

	// Read data frame payload.
	data := make([]byte, header.Length)
	if header.Length > 0 {
		_, err = io.ReadFull(reader, data)
		if err != nil {
			s.RemoveConnection(c)
			return
		}
	}

	if len(data) == 0 {
		return
	}

	if s.onMessage != nil {
		s.onMessage(c, data)
	}
}

// SetOnConnect registers a callback invoked after a connection has been
// authenticated and registered, before the first frame is read. The relay
// hooks its per-user backplane subscription here.
func (s *Server) SetOnConnect(fn func(conn *Connection)) {
	s.onConnect = fn
}

// SetOnDisconnect registers a callback invoked when a connection is removed
// (read error, heartbeat timeout, or graceful close). The relay uses it to
// clear room memberships.
func (s *Server) SetOnDisconnect(fn func(conn *Connection)) {
	s.onDisconnect = fn
}

// RemoveConnection removes a connection from both epoll and the connection
// manager, and closes the underlying network connection. It is exported so
// that the heartbeat monitor can evict dead connections.
func (s *Server) RemoveConnection(c *Connection) {
	_ = s.epoll.Remove(c.Conn)

	// Guard: only proceed if the connection was actually in the manager.
	// This prevents double cleanup when multiple goroutines race to remove
	// the same connection (e.g., read error + heartbeat timeout).
	if s.conns.Remove(c.ID) == nil {
		return
	}

	metrics.ConnectionsTotal.Set(float64(s.conns.Count()))

	if s.onDisconnect != nil {
		s.onDisconnect(c)
	}

	if s.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.presence.Disconnect(ctx, c.UserID, c.ID); err != nil {
			log.Printf("ws: presence disconnect for user %s: %v", c.UserID, err)
		}
	}

	log.Printf("ws: connection closed conn=%s user=%s (total=%d)", c.ID, c.UserID, s.conns.Count())
}

// SendMessage writes a WebSocket text frame to the connection identified by
// connID. It is goroutine-safe thanks to the per-connection write mutex.
func (s *Server) SendMessage(connID string, data []byte) error {
	c := s.conns.Get(connID)
	if c == nil {
		return fmt.Errorf("ws: connection %s not found", connID)
	}

	if s.config.WriteTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}

	err := c.WriteMessage(data)

	// Clear write deadline so it doesn't affect future writes (e.g., heartbeat pings).
	_ = c.Conn.SetWriteDeadline(time.Time{})

	return err
}

// SendToUser writes a frame to every local connection of the given user via
// the per-user index and returns how many connections were reached. Write
// errors on individual connections are ignored; dead connections get cleaned
// up by the event loop or heartbeat.
func (s *Server) SendToUser(userID string, data []byte) int {
	conns := s.conns.ForUser(userID)
	for _, c := range conns {
		_ = c.WriteMessage(data)
	}
	return len(conns)
}

// Connections returns the ConnectionManager for external access to
// connection state (e.g., by the heartbeat or the health endpoint).
func (s *Server) Connections() *ConnectionManager {
	return s.conns
}

// Uptime reports how long the server has been running.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Shutdown stops the event loop, closes all active connections, and cleans
// up the epoll instance.
func (s *Server) Shutdown() error {
	log.Println("ws: shutting down server...")

	close(s.done)

	for _, c := range s.conns.All() {
		if s.presence != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = s.presence.Disconnect(ctx, c.UserID, c.ID)
			cancel()
		}
		_ = s.epoll.Remove(c.Conn)
		c.Close()
	}

	if s.epoll != nil {
		_ = s.epoll.Close()
	}

	log.Printf("ws: server stopped, all connections closed")
	return nil
}

// bearerToken extracts the credential from the token query parameter or the
// Authorization header.
func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// clientIP returns the remote address without the port, for per-IP limits.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isEINTR checks if the error is a syscall interrupted error (EINTR),
// which is expected during signal handling and should be retried.
func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	return err.Error() == "interrupted system call" ||
		err.Error() == "errno 4"
}
