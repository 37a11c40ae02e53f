package match

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/skillswap/swap-app/internal/directory"
)

// fakeDirectory is an in-memory directory.Directory for ranker tests.
type fakeDirectory struct {
	users map[string]directory.User
}

func (f *fakeDirectory) FindByID(_ context.Context, id string) (*directory.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeDirectory) Find(_ context.Context, excludeID string) ([]directory.User, error) {
	var out []directory.User
	for _, u := range f.users {
		if u.ID == excludeID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func newFakeDirectory(users ...directory.User) *fakeDirectory {
	f := &fakeDirectory{users: make(map[string]directory.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func TestRank_ExcludesSelf(t *testing.T) {
	dir := newFakeDirectory(
		directory.User{ID: "me", SkillsTeach: []string{"go"}, SkillsLearn: []string{"rust"}},
		directory.User{ID: "other", SkillsTeach: []string{"rust"}, SkillsLearn: []string{"go"}},
	)

	suggestions, err := NewRanker(dir).Rank(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range suggestions {
		if s.User.ID == "me" {
			t.Error("ranked list contains the requesting user")
		}
	}
}

func TestRank_OrderedByCompatibilityDesc(t *testing.T) {
	dir := newFakeDirectory(
		directory.User{ID: "me", SkillsTeach: []string{"go"}, SkillsLearn: []string{"rust"}},
		// Perfect reciprocal pair.
		directory.User{ID: "best", SkillsTeach: []string{"rust"}, SkillsLearn: []string{"go"}},
		// One-way only: can teach me, wants nothing I teach.
		directory.User{ID: "partial", SkillsTeach: []string{"rust"}, SkillsLearn: []string{"java"}},
		// Nothing in common.
		directory.User{ID: "none", SkillsTeach: []string{"piano"}, SkillsLearn: []string{"chess"}},
	)

	suggestions, err := NewRanker(dir).Rank(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].User.ID != "best" {
		t.Errorf("expected best first, got %q", suggestions[0].User.ID)
	}
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i].Compatibility > suggestions[i-1].Compatibility {
			t.Errorf("suggestions not sorted descending at index %d", i)
		}
	}
	if last := suggestions[len(suggestions)-1]; last.User.ID != "none" || last.Compatibility != 0 {
		t.Errorf("expected zero-score user last, got %q score=%d", last.User.ID, last.Compatibility)
	}
}

func TestRank_TieBrokenByUserID(t *testing.T) {
	// Two identical candidates score the same; order must be by ID.
	dir := newFakeDirectory(
		directory.User{ID: "me", SkillsTeach: []string{"go"}, SkillsLearn: []string{"rust"}},
		directory.User{ID: "bbb", SkillsTeach: []string{"rust"}, SkillsLearn: []string{"go"}},
		directory.User{ID: "aaa", SkillsTeach: []string{"rust"}, SkillsLearn: []string{"go"}},
	)

	for i := 0; i < 5; i++ {
		suggestions, err := NewRanker(dir).Rank(context.Background(), "me")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if suggestions[0].User.ID != "aaa" || suggestions[1].User.ID != "bbb" {
			t.Fatalf("run %d: tie not broken by ID: %q, %q",
				i, suggestions[0].User.ID, suggestions[1].User.ID)
		}
	}
}

func TestRank_TruncatedToMax(t *testing.T) {
	users := []directory.User{
		{ID: "me", SkillsTeach: []string{"go"}, SkillsLearn: []string{"rust"}},
	}
	for i := 0; i < MaxSuggestions+5; i++ {
		users = append(users, directory.User{
			ID:          fmt.Sprintf("u%02d", i),
			SkillsTeach: []string{"rust"},
			SkillsLearn: []string{"go"},
		})
	}

	suggestions, err := NewRanker(newFakeDirectory(users...)).Rank(context.Background(), "me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != MaxSuggestions {
		t.Errorf("expected %d suggestions, got %d", MaxSuggestions, len(suggestions))
	}
}

func TestRank_UnknownUser(t *testing.T) {
	dir := newFakeDirectory()
	_, err := NewRanker(dir).Rank(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
