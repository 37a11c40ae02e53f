// Package presence tracks which users currently hold at least one WebSocket
// connection, backed by Redis so every server instance sees the same view:
//
//	Key:   presence:<user_id>
//	Value: Set of connection IDs
//	TTL:   refreshed by the heartbeat; a crashed instance's entries age out
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for per-user connection sets.
	KeyPrefix = "presence:"

	// TTL is the time-to-live of a presence key. The ws-layer heartbeat
	// refreshes it every 30s, so the key survives exactly as long as some
	// instance keeps vouching for the user.
	TTL = 90 * time.Second
)

// Store manages the online-user registry in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a presence store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Connect records a new connection for the user and refreshes the key TTL.
func (s *Store) Connect(ctx context.Context, userID, connID string) error {
	key := KeyPrefix + userID

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, connID)
	pipe.Expire(ctx, key, TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: connect user=%s: %w", userID, err)
	}
	return nil
}

// Disconnect removes a connection; the key is deleted once the last
// connection for the user is gone.
func (s *Store) Disconnect(ctx context.Context, userID, connID string) error {
	key := KeyPrefix + userID

	if err := s.client.SRem(ctx, key, connID).Err(); err != nil {
		return fmt.Errorf("presence: disconnect user=%s: %w", userID, err)
	}

	n, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("presence: disconnect user=%s: %w", userID, err)
	}
	if n == 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("presence: disconnect user=%s: %w", userID, err)
		}
	}
	return nil
}

// Refresh extends the presence TTL for a user with live connections.
func (s *Store) Refresh(ctx context.Context, userID string) error {
	return s.client.Expire(ctx, KeyPrefix+userID, TTL).Err()
}

// IsOnline reports whether the user has at least one live connection on any
// instance.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, KeyPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("presence: is online user=%s: %w", userID, err)
	}
	return n > 0, nil
}

// OnlineAmong filters the given user IDs down to those currently online,
// preserving input order.
func (s *Store) OnlineAmong(ctx context.Context, userIDs []string) ([]string, error) {
	online := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		ok, err := s.IsOnline(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			online = append(online, id)
		}
	}
	return online, nil
}
