package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/skillswap/swap-app/internal/directory"
	"github.com/skillswap/swap-app/internal/metrics"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// AcceptHook is invoked after a match transitions to accepted, so the reward
// collaborator can react. Hook failures must not fail the acceptance.
type AcceptHook func(ctx context.Context, m *Match)

// Store persists matches in PostgreSQL. Pair uniqueness is enforced by a
// unique index over (least(user_a,user_b), greatest(user_a,user_b)), so a
// request race between the two users cannot create two rows.
type Store struct {
	db       *sql.DB
	users    directory.Directory
	onAccept AcceptHook
}

// NewStore creates a match store over the given database handle and user
// directory.
func NewStore(db *sql.DB, users directory.Directory) *Store {
	return &Store{db: db, users: users}
}

// SetOnAccept registers the hook fired after a successful acceptance.
func (s *Store) SetOnAccept(hook AcceptHook) {
	s.onAccept = hook
}

// Request creates or repairs the match between requester and target and
// returns its ID. Repeat requests are a no-op returning the existing record;
// an existing record without a requester (legacy repair path) gets
// requestedBy set.
func (s *Store) Request(ctx context.Context, requesterID, targetID string) (string, error) {
	if requesterID == targetID {
		return "", ErrSelfMatch
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("match: request: %w", err)
	}
	if target == nil {
		return "", ErrTargetNotFound
	}
	existing, err := s.FindByPair(ctx, requesterID, targetID)
	if err != nil {
		return "", err
	}

	if existing == nil {
		// The stored score is informational only; the ranker recomputes
		// live scores for suggestions.
		id := uuid.New().String()
		const insert = `
			INSERT INTO matches (id, user_a, user_b, status, compatibility, requested_by, created_at)
			VALUES ($1, $2, $3, $4, 0, $5, $6)`
		_, err := s.db.ExecContext(ctx, insert,
			id, requesterID, targetID, StatusPending, requesterID, time.Now().UTC())
		if err != nil {
			// Both users requesting at the same instant: the pair index
			// rejects the second insert. Fall through to the existing record.
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
				existing, err = s.FindByPair(ctx, requesterID, targetID)
				if err != nil {
					return "", err
				}
				if existing != nil {
					return existing.ID, nil
				}
			}
			return "", fmt.Errorf("match: insert: %w", err)
		}
		metrics.MatchRequestsTotal.Inc()
		return id, nil
	}

	if existing.RequestedBy == "" {
		const repair = `UPDATE matches SET requested_by = $1, updated_at = $2 WHERE id = $3`
		if _, err := s.db.ExecContext(ctx, repair, requesterID, time.Now().UTC(), existing.ID); err != nil {
			return "", fmt.Errorf("match: repair requested_by: %w", err)
		}
	}
	return existing.ID, nil
}

// Accept transitions a pending match to accepted. Only the non-requesting
// participant may accept; accepting an accepted match is an explicit error
// rather than a silent no-op.
func (s *Store) Accept(ctx context.Context, accepterID, matchID string) (*Match, error) {
	m, err := s.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(accepterID) {
		return nil, ErrAccessDenied
	}
	if m.RequestedBy == accepterID {
		return nil, ErrSelfAccept
	}
	if m.Status == StatusAccepted {
		return nil, ErrAlreadyAccepted
	}

	now := time.Now().UTC()
	const update = `
		UPDATE matches
		SET status = $1, accepted_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`
	res, err := s.db.ExecContext(ctx, update, StatusAccepted, now, matchID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("match: accept: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race with a concurrent accept.
		return nil, ErrAlreadyAccepted
	}

	m.Status = StatusAccepted
	m.AcceptedAt = &now

	if s.onAccept != nil {
		s.onAccept(ctx, m)
	}
	return m, nil
}

// Get returns the match with the given ID.
func (s *Store) Get(ctx context.Context, matchID string) (*Match, error) {
	const query = `
		SELECT id, user_a, user_b, status, compatibility, requested_by, accepted_at, created_at
		FROM matches
		WHERE id = $1`
	m, err := scanMatch(s.db.QueryRowContext(ctx, query, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("match: get %s: %w", matchID, err)
	}
	return m, nil
}

// FindByPair returns the match between the two users regardless of which
// order they were stored in, or nil if none exists.
func (s *Store) FindByPair(ctx context.Context, userA, userB string) (*Match, error) {
	const query = `
		SELECT id, user_a, user_b, status, compatibility, requested_by, accepted_at, created_at
		FROM matches
		WHERE (user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1)`
	m, err := scanMatch(s.db.QueryRowContext(ctx, query, userA, userB))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match: find pair: %w", err)
	}
	return m, nil
}

// Entry is one match as presented to a user: the other participant resolved
// to a full profile.
type Entry struct {
	MatchID       string         `json:"_id"`
	User          directory.User `json:"user"`
	Compatibility int            `json:"compatibility"`
	Status        Status         `json:"status"`
}

// List partitions a user's matches: accepted, incoming pending (requested by
// the other user) and outgoing pending (requested by this user).
type List struct {
	Accepted []Entry `json:"accepted"`
	Incoming []Entry `json:"pending"`
	Outgoing []Entry `json:"outgoing"`
}

// UserIDs returns the set of other-user IDs across all partitions, used to
// filter suggestion lists.
func (l *List) UserIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, part := range [][]Entry{l.Accepted, l.Incoming, l.Outgoing} {
		for _, e := range part {
			ids[e.User.ID] = true
		}
	}
	return ids
}

// ListForUser scans every match the user participates in and classifies it by
// status and requester. Entries whose counterpart no longer resolves in the
// directory are skipped with a log line rather than failing the whole list.
func (s *Store) ListForUser(ctx context.Context, userID string) (*List, error) {
	const query = `
		SELECT id, user_a, user_b, status, compatibility, requested_by, accepted_at, created_at
		FROM matches
		WHERE user_a = $1 OR user_b = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("match: list for %s: %w", userID, err)
	}
	defer rows.Close()

	list := &List{
		Accepted: []Entry{},
		Incoming: []Entry{},
		Outgoing: []Entry{},
	}

	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("match: scan: %w", err)
		}

		other, err := s.users.FindByID(ctx, m.Partner(userID))
		if err != nil {
			return nil, fmt.Errorf("match: resolve partner: %w", err)
		}
		if other == nil {
			log.Printf("match: partner %s of match %s missing from directory, skipping", m.Partner(userID), m.ID)
			continue
		}

		entry := Entry{
			MatchID:       m.ID,
			User:          *other,
			Compatibility: m.Compatibility,
			Status:        m.Status,
		}

		switch {
		case m.Status == StatusAccepted:
			list.Accepted = append(list.Accepted, entry)
		case m.Status == StatusPending && m.RequestedBy == userID:
			list.Outgoing = append(list.Outgoing, entry)
		case m.Status == StatusPending:
			list.Incoming = append(list.Incoming, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("match: list for %s: %w", userID, err)
	}
	return list, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (*Match, error) {
	var (
		m           Match
		requestedBy sql.NullString
		acceptedAt  sql.NullTime
	)
	err := row.Scan(
		&m.ID,
		&m.UserA,
		&m.UserB,
		&m.Status,
		&m.Compatibility,
		&requestedBy,
		&acceptedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.RequestedBy = requestedBy.String
	if acceptedAt.Valid {
		t := acceptedAt.Time
		m.AcceptedAt = &t
	}
	return &m, nil
}
