package mining

import (
	"cmp"
	"slices"

	"github.com/Benny93/sgindex/internal/pattern"
)

// ScoredPattern is a mined pattern with its corpus support and score.
type ScoredPattern struct {
	Pattern pattern.Pattern `json:"pattern"`
	Support int             `json:"support"`
	Score   float64         `json:"score"`
}

// Score returns frac*(1-frac) for frac = support/total. It peaks at 0.25
// when the pattern is in exactly half the corpus.
func Score(support, total int) float64 {
	if total <= 0 {
		return 0
	}
	frac := float64(support) / float64(total)
	return frac * (1 - frac)
}

// Rank returns every pattern with support >= minSupport, best first.
//
// Order is score descending, then support ascending. Remaining ties keep
// EDGE before PATH2 before TRI and, within a kind, first-seen order.
// Scores are compared as support*(total-support), which orders exactly
// like the float score.
func Rank(counter *SupportCounter, minSupport int) []ScoredPattern {
	total := counter.Graphs()
	ranked := make([]ScoredPattern, 0, counter.Len())
	for _, kind := range []pattern.Kind{pattern.KindEdge, pattern.KindPath2, pattern.KindTriangle} {
		for _, p := range counter.Patterns() {
			if p.Kind() != kind {
				continue
			}
			s := counter.Support(p)
			if s < minSupport {
				continue
			}
			ranked = append(ranked, ScoredPattern{Pattern: p, Support: s, Score: Score(s, total)})
		}
	}

	slices.SortStableFunc(ranked, func(a, b ScoredPattern) int {
		return cmp.Or(
			cmp.Compare(b.Support*(total-b.Support), a.Support*(total-a.Support)),
			cmp.Compare(a.Support, b.Support),
		)
	})
	return ranked
}

// Top returns the feature set made of the first k ranked patterns.
func Top(ranked []ScoredPattern, k int) pattern.FeatureSet {
	k = min(k, len(ranked))
	set := make(pattern.FeatureSet, k)
	for i := range k {
		set[i] = ranked[i].Pattern
	}
	return set
}
