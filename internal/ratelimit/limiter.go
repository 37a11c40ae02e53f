// Package ratelimit provides Redis-backed rate limiting using the INCR + EXPIRE
// fixed-window algorithm. Signaling connections, match requests, and relay
// events each get their own rule so one abusive client cannot flood the room
// broadcast path or the match endpoints.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule defines a rate limiting policy: the Redis key prefix, maximum number of
// requests allowed in the window, and the window duration.
type Rule struct {
	Key    string        // Redis key prefix (e.g., "rl:signal:", "rl:conn:")
	Limit  int           // max count in the window
	Window time.Duration // time window
}

var (
	// RuleConnect allows 5 WebSocket connections per minute per IP.
	RuleConnect = Rule{Key: "rl:conn:", Limit: 5, Window: 1 * time.Minute}

	// RuleMatchRequest allows 10 match requests per minute per user.
	RuleMatchRequest = Rule{Key: "rl:matchreq:", Limit: 10, Window: 1 * time.Minute}

	// RuleSignal allows 60 signaling events per 10 seconds per connection.
	// ICE candidate bursts during connection setup fit comfortably under this.
	RuleSignal = Rule{Key: "rl:signal:", Limit: 60, Window: 10 * time.Second}
)

// Limiter performs rate limiting checks against Redis.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow increments the counter for the identifier under the rule's window and
// reports whether the action is within the limit. Redis failures fail open:
// a broken limiter must not take down signaling.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[ratelimit] redis INCR error key=%s: %v (failing open)", key, err)
		return true, err
	}

	// On the first increment, set the expiry to define the window boundary.
	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Printf("[ratelimit] redis EXPIRE error key=%s: %v (failing open)", key, err)
			// The key exists but has no TTL — it would persist and block the
			// identifier forever. Best effort: delete it.
			l.client.Del(ctx, key)
			return true, err
		}
	}

	return int(count) <= rule.Limit, nil
}

// RetryAfter returns how long the identifier must wait before the window
// resets, for surfacing in rate-limited responses. Falls back to the full
// window when the TTL cannot be read.
func (l *Limiter) RetryAfter(ctx context.Context, identifier string, rule Rule) int {
	ttl, err := l.client.TTL(ctx, rule.Key+identifier).Result()
	if err != nil || ttl <= 0 {
		return int(rule.Window.Seconds())
	}
	return int(ttl.Seconds())
}
