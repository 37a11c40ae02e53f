package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/skillswap/swap-app/internal/match"
	"github.com/skillswap/swap-app/internal/metrics"
)

const pgUniqueViolation = "23505"

// MatchGetter is the slice of the match store the registry needs: resolving a
// match to its participants.
type MatchGetter interface {
	Get(ctx context.Context, matchID string) (*match.Match, error)
}

// Store persists sessions in PostgreSQL.
type Store struct {
	db      *sql.DB
	matches MatchGetter
}

// NewStore creates a session store over the given database handle and match
// lookup.
func NewStore(db *sql.DB, matches MatchGetter) *Store {
	return &Store{db: db, matches: matches}
}

// Start creates a new active session for the match. If an active session
// already exists — including one created by a concurrent Start that won the
// insert race — the caller receives an *ActiveError carrying it.
func (s *Store) Start(ctx context.Context, matchID, requesterID string) (*Session, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(requesterID) {
		return nil, ErrAccessDenied
	}

	sess := &Session{
		ID:        uuid.New().String(),
		MatchID:   matchID,
		UserA:     m.UserA,
		UserB:     m.UserB,
		Status:    StatusActive,
		StartTime: time.Now().UTC(),
		Feedback:  map[string]string{},
	}

	const insert = `
		INSERT INTO sessions (id, match_id, user_a, user_b, status, start_time, feedback)
		VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb)`
	for attempt := 0; attempt < 2; attempt++ {
		_, err = s.db.ExecContext(ctx, insert,
			sess.ID, sess.MatchID, sess.UserA, sess.UserB, sess.Status, sess.StartTime)
		if err == nil {
			metrics.SessionsActive.Inc()
			return sess, nil
		}

		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
			return nil, fmt.Errorf("session: start: %w", err)
		}

		active, activeErr := s.GetActive(ctx, matchID)
		if activeErr == nil {
			return nil, &ActiveError{Session: active}
		}
		if !errors.Is(activeErr, ErrNotFound) {
			return nil, activeErr
		}
		// The winner ended between our insert and the lookup, so the guard
		// slot is free again; retry the insert once.
	}
	return nil, fmt.Errorf("session: start: %w", err)
}

// End transitions an active session to completed, stamps the end time, and
// records the whole-minute floor of the elapsed duration. Optional feedback
// text is merged into the per-user feedback map under the requester's ID.
// Ending a session that is not active fails with ErrSessionEnded.
func (s *Store) End(ctx context.Context, sessionID, requesterID, feedback string) (*Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParticipant(requesterID) {
		return nil, ErrAccessDenied
	}
	if sess.Status != StatusActive {
		return nil, ErrSessionEnded
	}

	now := time.Now().UTC()
	duration := int(now.Sub(sess.StartTime) / time.Minute)

	fb := map[string]string{}
	if feedback != "" {
		fb[requesterID] = feedback
	}
	fbJSON, err := json.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("session: marshal feedback: %w", err)
	}

	// The status predicate makes concurrent End calls race-safe: only one
	// update applies, the loser reports ErrSessionEnded.
	const update = `
		UPDATE sessions
		SET status = $1, end_time = $2, duration_minutes = $3, feedback = feedback || $4::jsonb
		WHERE id = $5 AND status = $6`
	res, err := s.db.ExecContext(ctx, update,
		StatusCompleted, now, duration, fbJSON, sessionID, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("session: end: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSessionEnded
	}

	metrics.SessionsActive.Dec()

	sess.Status = StatusCompleted
	sess.EndTime = &now
	sess.DurationMinutes = duration
	for k, v := range fb {
		sess.Feedback[k] = v
	}
	return sess, nil
}

// Get returns the session with the given ID.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	const query = `
		SELECT id, match_id, user_a, user_b, status, start_time, end_time, duration_minutes, feedback
		FROM sessions
		WHERE id = $1`
	sess, err := scanSession(s.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", sessionID, err)
	}
	return sess, nil
}

// GetActive returns the single active session for the match, or ErrNotFound
// if none exists. Clients reconnecting mid-call use this to discover the
// "join" affordance.
func (s *Store) GetActive(ctx context.Context, matchID string) (*Session, error) {
	const query = `
		SELECT id, match_id, user_a, user_b, status, start_time, end_time, duration_minutes, feedback
		FROM sessions
		WHERE match_id = $1 AND status = $2`
	sess, err := scanSession(s.db.QueryRowContext(ctx, query, matchID, StatusActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get active for match %s: %w", matchID, err)
	}
	return sess, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		sess    Session
		endTime sql.NullTime
		fbRaw   []byte
	)
	err := row.Scan(
		&sess.ID,
		&sess.MatchID,
		&sess.UserA,
		&sess.UserB,
		&sess.Status,
		&sess.StartTime,
		&endTime,
		&sess.DurationMinutes,
		&fbRaw,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		sess.EndTime = &t
	}
	sess.Feedback = map[string]string{}
	if len(fbRaw) > 0 {
		if err := json.Unmarshal(fbRaw, &sess.Feedback); err != nil {
			return nil, fmt.Errorf("unmarshal feedback: %w", err)
		}
	}
	return &sess, nil
}
