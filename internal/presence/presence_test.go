package presence

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// newTestStore creates a Store connected to a local Redis instance and
// removes leftover test keys. Tests that call this helper require a running
// Redis on localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	cleanup := func() {
		iter := client.Scan(ctx, 0, KeyPrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewStore(client)
}

func TestConnectMarksOnline(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	online, err := store.IsOnline(ctx, "test_u1")
	if err != nil {
		t.Fatalf("IsOnline() error: %v", err)
	}
	if online {
		t.Fatal("expected offline before connect")
	}

	if err := store.Connect(ctx, "test_u1", "conn1"); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	online, err = store.IsOnline(ctx, "test_u1")
	if err != nil {
		t.Fatalf("IsOnline() error: %v", err)
	}
	if !online {
		t.Error("expected online after connect")
	}
}

func TestDisconnectLastConnectionGoesOffline(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Two tabs; closing one keeps the user online.
	store.Connect(ctx, "test_u2", "conn1")
	store.Connect(ctx, "test_u2", "conn2")

	if err := store.Disconnect(ctx, "test_u2", "conn1"); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	online, _ := store.IsOnline(ctx, "test_u2")
	if !online {
		t.Error("expected online while one connection remains")
	}

	if err := store.Disconnect(ctx, "test_u2", "conn2"); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	online, _ = store.IsOnline(ctx, "test_u2")
	if online {
		t.Error("expected offline after last disconnect")
	}
}

func TestOnlineAmong(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Connect(ctx, "test_a", "c1")
	store.Connect(ctx, "test_c", "c2")

	online, err := store.OnlineAmong(ctx, []string{"test_a", "test_b", "test_c"})
	if err != nil {
		t.Fatalf("OnlineAmong() error: %v", err)
	}
	if len(online) != 2 || online[0] != "test_a" || online[1] != "test_c" {
		t.Errorf("expected [test_a test_c], got %v", online)
	}
}
