// Package auth resolves bearer credentials to user identities. Token
// issuance belongs to the account service; this package only verifies.
// Tokens live in Redis under authtoken:<token> with the user ID as value,
// written by the issuer with whatever TTL it chooses.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TokenPrefix is the Redis key prefix for issued bearer tokens.
const TokenPrefix = "authtoken:"

// ErrInvalidToken is returned for unknown, expired, or empty credentials.
var ErrInvalidToken = errors.New("auth: invalid token")

// Verifier validates a bearer token and returns the authenticated user ID.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// RedisVerifier looks tokens up in Redis.
type RedisVerifier struct {
	client *redis.Client
}

// NewRedisVerifier creates a verifier using the provided Redis client.
func NewRedisVerifier(client *redis.Client) *RedisVerifier {
	return &RedisVerifier{client: client}
}

// Verify resolves the token to a user ID. A missing key means the token is
// unknown or has expired.
func (v *RedisVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	userID, err := v.client.Get(ctx, TokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("auth: verify token: %w", err)
	}
	return userID, nil
}
