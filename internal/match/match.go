// Package match implements the pairwise match lifecycle and the candidate
// ranking that proposes skill-swap partners. A Match is the persisted
// relationship between two users; there is at most one per unordered pair,
// whichever order it was requested in.
package match

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Match is a persisted relationship between two users. UserA/UserB are an
// ordered storage of a conceptually unordered pair; lookups go through both
// orderings. JSON tags follow the client-facing API naming.
type Match struct {
	ID            string     `json:"_id"`
	UserA         string     `json:"user1"`
	UserB         string     `json:"user2"`
	Status        Status     `json:"status"`
	Compatibility int        `json:"compatibility"`
	RequestedBy   string     `json:"requestedBy,omitempty"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IsParticipant reports whether userID is one of the two matched users.
func (m *Match) IsParticipant(userID string) bool {
	return userID == m.UserA || userID == m.UserB
}

// Partner returns the other user relative to userID, or "" if userID is not
// a participant.
func (m *Match) Partner(userID string) string {
	switch userID {
	case m.UserA:
		return m.UserB
	case m.UserB:
		return m.UserA
	}
	return ""
}

// Errors returned by the store. The HTTP layer maps these to status codes;
// no storage detail leaks past them.
var (
	ErrNotFound        = errors.New("match: not found")
	ErrTargetNotFound  = errors.New("match: target user not found")
	ErrSelfMatch       = errors.New("match: cannot match with yourself")
	ErrAccessDenied    = errors.New("match: access denied")
	ErrSelfAccept      = errors.New("match: requester cannot accept their own request")
	ErrAlreadyAccepted = errors.New("match: already accepted")
)
