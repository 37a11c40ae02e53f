package ws

import (
	"net"
	"testing"
	"time"
)

func newManagedConn(t *testing.T, id, userID string, fd int) *Connection {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return &Connection{
		ID:        id,
		UserID:    userID,
		Conn:      server,
		Fd:        fd,
		CreatedAt: time.Now(),
		LastPing:  time.Now(),
	}
}

func TestConnectionManager_UserIndex(t *testing.T) {
	cm := NewConnectionManager()

	// alice has two tabs open, bob has one.
	a1 := newManagedConn(t, "a1", "alice", 10)
	a2 := newManagedConn(t, "a2", "alice", 11)
	b1 := newManagedConn(t, "b1", "bob", 12)
	cm.Add(a1)
	cm.Add(a2)
	cm.Add(b1)

	if got := cm.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	if got := cm.UserCount(); got != 2 {
		t.Errorf("UserCount() = %d, want 2", got)
	}
	if got := len(cm.ForUser("alice")); got != 2 {
		t.Errorf("ForUser(alice) returned %d conns, want 2", got)
	}
	if got := len(cm.ForUser("nobody")); got != 0 {
		t.Errorf("ForUser(nobody) returned %d conns, want 0", got)
	}

	// Removing one of alice's tabs keeps her indexed.
	if removed := cm.Remove("a1"); removed == nil || removed.ID != "a1" {
		t.Fatalf("Remove(a1) = %v", removed)
	}
	if got := len(cm.ForUser("alice")); got != 1 {
		t.Errorf("ForUser(alice) after remove = %d, want 1", got)
	}
	if got := cm.UserCount(); got != 2 {
		t.Errorf("UserCount() after partial remove = %d, want 2", got)
	}

	// Removing her last tab drops the user entry entirely.
	cm.Remove("a2")
	if got := cm.UserCount(); got != 1 {
		t.Errorf("UserCount() after full remove = %d, want 1", got)
	}
	if got := len(cm.ForUser("alice")); got != 0 {
		t.Errorf("ForUser(alice) after full remove = %d, want 0", got)
	}
}

func TestConnectionManager_RemoveIsIdempotent(t *testing.T) {
	cm := NewConnectionManager()
	c := newManagedConn(t, "c1", "alice", 20)
	cm.Add(c)

	if removed := cm.Remove("c1"); removed == nil {
		t.Fatal("first Remove returned nil")
	}
	if removed := cm.Remove("c1"); removed != nil {
		t.Errorf("second Remove returned %v, want nil", removed)
	}
	if removed := cm.Remove("never-existed"); removed != nil {
		t.Errorf("Remove(unknown) returned %v, want nil", removed)
	}
}

func TestConnectionManager_FdLookup(t *testing.T) {
	cm := NewConnectionManager()
	c := newManagedConn(t, "c1", "alice", 42)
	cm.Add(c)

	if got := cm.GetByFd(42); got == nil || got.ID != "c1" {
		t.Errorf("GetByFd(42) = %v, want c1", got)
	}
	if got := cm.GetByFd(999); got != nil {
		t.Errorf("GetByFd(999) = %v, want nil", got)
	}

	cm.Remove("c1")
	if got := cm.GetByFd(42); got != nil {
		t.Errorf("GetByFd after remove = %v, want nil", got)
	}
}
