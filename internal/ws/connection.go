package ws

import (
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Connection represents a single authenticated WebSocket client connection
// with its associated metadata and a write mutex for serializing outbound
// frames. UserID is set once during the upgrade handshake and never changes.
type Connection struct {
	ID         string     // connection ID (UUID)
	UserID     string     // authenticated user this connection belongs to
	Conn       net.Conn   // underlying TCP connection
	Fd         int        // file descriptor for epoll lookups
	CreatedAt  time.Time  // when the connection was established
	LastPing   time.Time  // last heartbeat received from the client
	writeMu    sync.Mutex // serializes writes to this connection
	processing int32      // atomic flag: 0 = idle, 1 = being read by handleConn
}

// WriteMessage sends a WebSocket text frame to this connection. The write
// mutex ensures that concurrent goroutines do not interleave frame bytes.
func (c *Connection) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerMessage(c.Conn, ws.OpText, data)
}

// WritePing sends a WebSocket protocol-level ping frame (opcode 0x9) on the
// connection. The write mutex ensures this does not interleave with other
// outbound frames.
func (c *Connection) WritePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteFrame(c.Conn, ws.NewPingFrame(nil))
}

// Close closes the underlying network connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ConnectionManager is a thread-safe registry mapping connection IDs, file
// descriptors, and user IDs to their Connection objects. The per-user index
// is what makes out-of-room notification delivery an O(1) lookup instead of
// a scan over every connection.
type ConnectionManager struct {
	mu     sync.RWMutex
	byID   map[string]*Connection            // conn_id -> Connection
	byFd   map[int]*Connection               // fd -> Connection
	byUser map[string]map[string]*Connection // user_id -> conn_id -> Connection
}

// NewConnectionManager creates an empty ConnectionManager ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		byID:   make(map[string]*Connection),
		byFd:   make(map[int]*Connection),
		byUser: make(map[string]map[string]*Connection),
	}
}

// Add registers a new connection in all three lookup maps.
func (cm *ConnectionManager) Add(conn *Connection) {
	cm.mu.Lock()
	cm.byID[conn.ID] = conn
	cm.byFd[conn.Fd] = conn
	if cm.byUser[conn.UserID] == nil {
		cm.byUser[conn.UserID] = make(map[string]*Connection)
	}
	cm.byUser[conn.UserID][conn.ID] = conn
	cm.mu.Unlock()
}

// Remove removes a connection by ID, closes the underlying network
// connection, and removes it from every lookup map. Returns the removed
// connection, or nil if it was already gone.
func (cm *ConnectionManager) Remove(id string) *Connection {
	cm.mu.Lock()
	conn, ok := cm.byID[id]
	if ok {
		delete(cm.byID, id)
		delete(cm.byFd, conn.Fd)
		cm.removeFromUserIndex(conn)
	}
	cm.mu.Unlock()

	if !ok {
		return nil
	}
	conn.Close()
	return conn
}

// removeFromUserIndex must be called with cm.mu held.
func (cm *ConnectionManager) removeFromUserIndex(conn *Connection) {
	userConns := cm.byUser[conn.UserID]
	if userConns == nil {
		return
	}
	delete(userConns, conn.ID)
	if len(userConns) == 0 {
		delete(cm.byUser, conn.UserID)
	}
}

// Get returns the connection for the given connection ID, or nil if not found.
func (cm *ConnectionManager) Get(id string) *Connection {
	cm.mu.RLock()
	conn := cm.byID[id]
	cm.mu.RUnlock()
	return conn
}

// GetByFd returns the connection for the given file descriptor, or nil if
// not found.
func (cm *ConnectionManager) GetByFd(fd int) *Connection {
	cm.mu.RLock()
	conn := cm.byFd[fd]
	cm.mu.RUnlock()
	return conn
}

// GetByConn returns the connection for the given net.Conn by extracting
// its file descriptor. Returns nil if not found.
func (cm *ConnectionManager) GetByConn(c net.Conn) *Connection {
	fd := socketFD(c)
	return cm.GetByFd(fd)
}

// ForUser returns a snapshot of every active connection belonging to the
// given user. A user browsing in two tabs has two entries here.
func (cm *ConnectionManager) ForUser(userID string) []*Connection {
	cm.mu.RLock()
	userConns := cm.byUser[userID]
	conns := make([]*Connection, 0, len(userConns))
	for _, conn := range userConns {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()
	return conns
}

// UserCount returns the number of distinct users with at least one
// connection.
func (cm *ConnectionManager) UserCount() int {
	cm.mu.RLock()
	n := len(cm.byUser)
	cm.mu.RUnlock()
	return n
}

// Count returns the current number of active connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	n := len(cm.byID)
	cm.mu.RUnlock()
	return n
}

// All returns a snapshot of all current connections. The returned slice is
// safe to iterate without holding the lock.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.byID))
	for _, conn := range cm.byID {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()
	return conns
}
