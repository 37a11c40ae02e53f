// Package compat computes skill compatibility scores between two users of the
// skill-exchange platform. The score blends how much each side can teach the
// other, weighted toward the requesting user's learning goals. It is a pure
// function of the two skill profiles: no I/O, no clock, no randomness.
package compat

import (
	"math"
	"strings"
)

// Directional weights. The requester's "want to learn" overlap with the
// candidate's "can teach" counts more than the reverse direction.
const (
	weightTeachesMe = 0.6
	weightILTeach   = 0.4
)

// Profile is one user's skill lists as entered in their profile. Entries may
// repeat and may differ only in letter case; Score normalizes both.
type Profile struct {
	Teach []string
	Learn []string
}

// Score returns an integer compatibility in [0,100] for the pair (a, b),
// where a is the requesting user. The score is
//
//	round(100 * (0.6*J(a.Learn, b.Teach) + 0.4*J(b.Learn, a.Teach)))
//
// with J the Jaccard index over lowercased skill sets. Empty lists on either
// side simply contribute 0; Score never fails.
//
// The weighting is directional, so Score(a, b) and Score(b, a) generally
// differ.
func Score(a, b Profile) int {
	teachesMe := jaccard(toSet(a.Learn), toSet(b.Teach))
	iTeach := jaccard(toSet(b.Learn), toSet(a.Teach))

	raw := weightTeachesMe*teachesMe + weightILTeach*iTeach
	return int(math.Round(100 * raw))
}

// toSet lowercases and deduplicates a skill list. Blank entries are dropped.
func toSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// jaccard returns |x ∩ y| / |x ∪ y| with a union-size floor of 1, so two
// empty sets yield 0 rather than dividing by zero.
func jaccard(x, y map[string]struct{}) float64 {
	inter := 0
	for s := range x {
		if _, ok := y[s]; ok {
			inter++
		}
	}

	union := len(x) + len(y) - inter
	if union < 1 {
		union = 1
	}
	return float64(inter) / float64(union)
}
