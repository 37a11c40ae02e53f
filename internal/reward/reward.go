// Package reward grants badges and points when match milestones are reached.
// It reacts to the match store's accept hook; failures here are logged and
// never fail the acceptance itself.
package reward

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/skillswap/swap-app/internal/match"
)

const (
	// BadgeFirstSwap is awarded to both users on their first-ever accepted match.
	BadgeFirstSwap = "First Swap"

	firstSwapPoints = 10
)

// Service applies reward updates to user rows.
type Service struct {
	db *sql.DB
}

// NewService creates a reward service over the given database handle.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// GrantFirstSwap awards the First Swap badge and its points to each user that
// does not already hold the badge. The predicate on the badge array makes
// repeat grants a no-op, so the call is idempotent per user.
func (s *Service) GrantFirstSwap(ctx context.Context, userIDs ...string) error {
	const update = `
		UPDATE users
		SET badges = array_append(badges, $1), points = points + $2
		WHERE id = $3 AND NOT ($1 = ANY(badges))`

	for _, id := range userIDs {
		res, err := s.db.ExecContext(ctx, update, BadgeFirstSwap, firstSwapPoints, id)
		if err != nil {
			return fmt.Errorf("reward: grant first swap to %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("reward: granted %q (+%d points) to user=%s", BadgeFirstSwap, firstSwapPoints, id)
		}
	}
	return nil
}

// OnMatchAccepted is the match.AcceptHook adapter.
func (s *Service) OnMatchAccepted(ctx context.Context, m *match.Match) {
	if err := s.GrantFirstSwap(ctx, m.UserA, m.UserB); err != nil {
		log.Printf("reward: accept hook for match=%s: %v", m.ID, err)
	}
}
