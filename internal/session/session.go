// Package session implements the video-session registry. A Session is one
// bounded call occurrence tied to a Match; the registry enforces that at most
// one session per match is active at any time. The guard is a partial unique
// index on sessions(match_id) WHERE status = 'active', so two participants
// clicking "start" in the same instant resolve at the storage layer: one
// insert wins, the other sees the conflict and is handed the winner's session.
package session

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a session. Completed and cancelled
// sessions are never mutated again.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Session is a single video-call occurrence. UserA/UserB are denormalized
// from the owning match at creation so historical rows survive match edits.
// JSON tags follow the client-facing API naming.
type Session struct {
	ID              string            `json:"_id"`
	MatchID         string            `json:"matchId"`
	UserA           string            `json:"user1"`
	UserB           string            `json:"user2"`
	Status          Status            `json:"status"`
	StartTime       time.Time         `json:"startTime"`
	EndTime         *time.Time        `json:"endTime,omitempty"`
	DurationMinutes int               `json:"duration"`
	Feedback        map[string]string `json:"feedback,omitempty"`
}

// IsParticipant reports whether userID belongs to this session.
func (s *Session) IsParticipant(userID string) bool {
	return userID == s.UserA || userID == s.UserB
}

var (
	ErrNotFound     = errors.New("session: not found")
	ErrAccessDenied = errors.New("session: access denied")

	// ErrSessionEnded guards the one-way completed transition: ending twice
	// is reported, never double-applied.
	ErrSessionEnded = errors.New("session: already ended")
)

// ActiveError reports that a start attempt lost to an existing active
// session. It carries that session so the caller can offer "join" instead of
// "start" — this is a redirect signal, not a hard failure.
type ActiveError struct {
	Session *Session
}

func (e *ActiveError) Error() string {
	return fmt.Sprintf("session: match %s already has an active session", e.Session.MatchID)
}
