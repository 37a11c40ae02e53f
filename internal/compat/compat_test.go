package compat

import "testing"

func TestScore_DisjointSkillsScoreZero(t *testing.T) {
	a := Profile{Teach: []string{"python"}, Learn: []string{"go"}}
	b := Profile{Teach: []string{"cooking"}, Learn: []string{"guitar"}}

	if got := Score(a, b); got != 0 {
		t.Errorf("expected 0 for disjoint skills, got %d", got)
	}
}

func TestScore_AnyOverlapScoresPositive(t *testing.T) {
	cases := []struct {
		name string
		a, b Profile
	}{
		{
			name: "candidate teaches what requester wants",
			a:    Profile{Learn: []string{"go"}},
			b:    Profile{Teach: []string{"go"}},
		},
		{
			name: "requester teaches what candidate wants",
			a:    Profile{Teach: []string{"java"}},
			b:    Profile{Learn: []string{"java"}},
		},
		{
			name: "overlap in both directions",
			a:    Profile{Teach: []string{"java"}, Learn: []string{"go"}},
			b:    Profile{Teach: []string{"go"}, Learn: []string{"java"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.a, tc.b); got <= 0 {
				t.Errorf("expected positive score, got %d", got)
			}
		})
	}
}

// The weighting is directional: the requester's learning goals count for 0.6,
// their teaching offer only 0.4, so swapping the arguments changes the score.
func TestScore_IsAsymmetric(t *testing.T) {
	a := Profile{Teach: []string{"python"}, Learn: []string{"go"}}
	b := Profile{Teach: []string{"go"}, Learn: []string{"java"}}

	ab := Score(a, b)
	ba := Score(b, a)

	// A's learn {go} fully intersects B's teach {go}: 0.6*1 = 60.
	// B's learn {java} misses A's teach {python}: 0.4*0 = 0.
	if ab != 60 {
		t.Errorf("Score(a,b): expected 60, got %d", ab)
	}
	// Reversed, the full {go} overlap is only worth the 0.4 weight.
	if ba != 40 {
		t.Errorf("Score(b,a): expected 40, got %d", ba)
	}
	if ab == ba {
		t.Error("expected asymmetric scores for directional weighting")
	}
}

func TestScore_NormalizesCaseAndDuplicates(t *testing.T) {
	a := Profile{Learn: []string{"Go", "go", "GO "}}
	b := Profile{Teach: []string{"gO"}}

	// Both sides collapse to the singleton set {go}: jaccard 1, weighted 0.6.
	if got := Score(a, b); got != 60 {
		t.Errorf("expected 60 after normalization, got %d", got)
	}
}

func TestScore_EmptyProfiles(t *testing.T) {
	if got := Score(Profile{}, Profile{}); got != 0 {
		t.Errorf("expected 0 for empty profiles, got %d", got)
	}
	if got := Score(Profile{Learn: []string{"go"}}, Profile{}); got != 0 {
		t.Errorf("expected 0 against empty candidate, got %d", got)
	}
}

func TestScore_Deterministic(t *testing.T) {
	a := Profile{Teach: []string{"java", "rust"}, Learn: []string{"go", "python"}}
	b := Profile{Teach: []string{"python", "go"}, Learn: []string{"rust"}}

	first := Score(a, b)
	for i := 0; i < 100; i++ {
		if got := Score(a, b); got != first {
			t.Fatalf("score changed between calls: %d vs %d", first, got)
		}
	}
}

func TestScore_PartialJaccard(t *testing.T) {
	// a.Learn = {go, python}, b.Teach = {go}: jaccard 1/2.
	// b.Learn = {}, a.Teach = {}: 0.
	// raw = 0.6*0.5 = 0.3 -> 30.
	a := Profile{Learn: []string{"go", "python"}}
	b := Profile{Teach: []string{"go"}}

	if got := Score(a, b); got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
}
