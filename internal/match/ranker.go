package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/skillswap/swap-app/internal/compat"
	"github.com/skillswap/swap-app/internal/directory"
	"github.com/skillswap/swap-app/internal/metrics"
)

// MaxSuggestions bounds the ranked list returned by a single Rank call.
const MaxSuggestions = 10

// Suggestion is one ranked candidate with their compatibility relative to
// the requesting user.
type Suggestion struct {
	User          directory.User `json:"user"`
	Compatibility int            `json:"compatibility"`
}

// Ranker scores and orders swap candidates for a user. It is read-only and
// knows nothing about existing Match records; callers filter already-matched
// users out of the result themselves and must re-fetch after mutations.
type Ranker struct {
	users directory.Directory
}

// NewRanker creates a Ranker over the given user directory.
func NewRanker(users directory.Directory) *Ranker {
	return &Ranker{users: users}
}

// Rank recomputes the ranked candidate list for userID on every call. The
// result is sorted by compatibility descending, ties broken by ascending
// candidate ID so re-runs are deterministic, and truncated to MaxSuggestions.
// The requesting user never appears in their own results.
func (r *Ranker) Rank(ctx context.Context, userID string) ([]Suggestion, error) {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("match: rank: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	candidates, err := r.users.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("match: rank: %w", err)
	}

	me := compat.Profile{Teach: user.SkillsTeach, Learn: user.SkillsLearn}

	ranked := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		score := compat.Score(me, compat.Profile{Teach: c.SkillsTeach, Learn: c.SkillsLearn})
		metrics.CompatibilityScore.Observe(float64(score))
		ranked = append(ranked, Suggestion{User: c, Compatibility: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Compatibility != ranked[j].Compatibility {
			return ranked[i].Compatibility > ranked[j].Compatibility
		}
		return ranked[i].User.ID < ranked[j].User.ID
	})

	if len(ranked) > MaxSuggestions {
		ranked = ranked[:MaxSuggestions]
	}
	return ranked, nil
}
