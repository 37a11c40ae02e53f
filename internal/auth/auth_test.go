package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestVerifier(t *testing.T) (*RedisVerifier, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	cleanup := func() {
		iter := client.Scan(ctx, 0, TokenPrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewRedisVerifier(client), client
}

func TestVerify_KnownToken(t *testing.T) {
	v, client := newTestVerifier(t)
	ctx := context.Background()

	client.Set(ctx, TokenPrefix+"test_tok", "user42", time.Minute)

	userID, err := v.Verify(ctx, "test_tok")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if userID != "user42" {
		t.Errorf("expected user42, got %q", userID)
	}
}

func TestVerify_UnknownToken(t *testing.T) {
	v, _ := newTestVerifier(t)

	_, err := v.Verify(context.Background(), "test_never_issued")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	v, _ := newTestVerifier(t)

	_, err := v.Verify(context.Background(), "")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
