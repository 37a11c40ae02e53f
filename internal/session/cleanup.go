package session

import (
	"context"
	"log"
	"time"

	"github.com/skillswap/swap-app/internal/metrics"
)

const cleanupInterval = 1 * time.Minute

// DefaultMaxAge bounds how long a session may stay active. A caller who
// invites, never gets an answer, and walks away would otherwise leave the
// match's active slot occupied forever.
const DefaultMaxAge = 4 * time.Hour

// StartCleanup runs a background loop that cancels active sessions older
// than maxAge. It returns when ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("session: cleanup loop stopped")
			return
		case <-ticker.C:
			s.cancelStale(ctx, maxAge)
		}
	}
}

// cancelStale transitions every over-age active session to cancelled,
// freeing the per-match active slot. DurationMinutes stays 0 for cancelled
// sessions; only completed sessions carry a real duration.
func (s *Store) cancelStale(ctx context.Context, maxAge time.Duration) {
	now := time.Now().UTC()
	const update = `
		UPDATE sessions
		SET status = $1, end_time = $2
		WHERE status = $3 AND start_time < $4`

	res, err := s.db.ExecContext(ctx, update,
		StatusCancelled, now, StatusActive, now.Add(-maxAge))
	if err != nil {
		log.Printf("session: cleanup: %v", err)
		return
	}

	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("session: cleanup cancelled %d stale sessions older than %s", n, maxAge)
		metrics.SessionsActive.Sub(float64(n))
	}
}
