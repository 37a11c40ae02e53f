// Package directory exposes read access to the user profiles that matching
// runs against. The profiles themselves are owned by the account service;
// this package only reads the fields matching needs (skill lists) plus the
// reward fields (badges, points) updated on first acceptance.
package directory

import "context"

// User is a member of the platform as the matching core sees them. JSON tags
// follow the client-facing naming of the profile API.
type User struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	SkillsTeach []string `json:"skillsTeach"`
	SkillsLearn []string `json:"skillsLearn"`
	Badges      []string `json:"badges"`
	Points      int      `json:"points"`
}

// Directory is the narrow lookup interface the matching core depends on.
type Directory interface {
	// FindByID returns the user or nil if no such user exists.
	FindByID(ctx context.Context, id string) (*User, error)

	// Find returns every user except the one with excludeID, ordered by ID.
	Find(ctx context.Context, excludeID string) ([]User, error)
}
