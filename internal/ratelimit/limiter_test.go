package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	cleanup := func() {
		iter := client.Scan(ctx, 0, "rl:*:test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewLimiter(client)
}

func TestAllow_WithinLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:signal:", Limit: 3, Window: 10 * time.Second}

	for i := 0; i < rule.Limit; i++ {
		allowed, err := limiter.Allow(ctx, "test_within", rule)
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d unexpectedly denied", i+1)
		}
	}
}

func TestAllow_ExceedsLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:signal:", Limit: 2, Window: 10 * time.Second}

	limiter.Allow(ctx, "test_exceed", rule)
	limiter.Allow(ctx, "test_exceed", rule)

	allowed, err := limiter.Allow(ctx, "test_exceed", rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if allowed {
		t.Error("expected denial past the limit")
	}
}

func TestAllow_IndependentIdentifiers(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:matchreq:", Limit: 1, Window: 10 * time.Second}

	limiter.Allow(ctx, "test_id_a", rule)
	allowed, err := limiter.Allow(ctx, "test_id_b", rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if !allowed {
		t.Error("one identifier's usage throttled another")
	}
}

func TestAllow_WindowResets(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:conn:", Limit: 1, Window: 1 * time.Second}

	limiter.Allow(ctx, "test_reset", rule)
	if allowed, _ := limiter.Allow(ctx, "test_reset", rule); allowed {
		t.Fatal("expected denial within the window")
	}

	time.Sleep(1100 * time.Millisecond)

	allowed, err := limiter.Allow(ctx, "test_reset", rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if !allowed {
		t.Error("expected the window to have reset")
	}
}

func TestRetryAfter_BoundedByWindow(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:signal:", Limit: 1, Window: 10 * time.Second}

	id := fmt.Sprintf("test_retry_%d", time.Now().UnixNano())
	limiter.Allow(ctx, id, rule)

	retry := limiter.RetryAfter(ctx, id, rule)
	if retry <= 0 || retry > int(rule.Window.Seconds()) {
		t.Errorf("RetryAfter = %d, want within (0, %d]", retry, int(rule.Window.Seconds()))
	}
}
