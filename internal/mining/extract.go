// Package mining discovers discriminative patterns in a graph corpus.
//
// Mining is split into a pure per-graph step (ExtractPatterns) and an
// explicit accumulator (SupportCounter) so that extraction can run in
// parallel while support stays a single deterministic pass.
package mining

import (
	"github.com/Benny93/sgindex/internal/graph"
	"github.com/Benny93/sgindex/internal/pattern"
)

// GraphPatterns is the set of distinct patterns found in one graph, in
// discovery order. A graph contributes each pattern at most once.
type GraphPatterns struct {
	order []pattern.Pattern
	seen  map[pattern.Pattern]struct{}
}

// NewGraphPatterns creates an empty per-graph pattern set.
func NewGraphPatterns() *GraphPatterns {
	return &GraphPatterns{seen: make(map[pattern.Pattern]struct{})}
}

// Add inserts p and reports whether it was new.
func (s *GraphPatterns) Add(p pattern.Pattern) bool {
	if _, ok := s.seen[p]; ok {
		return false
	}
	s.seen[p] = struct{}{}
	s.order = append(s.order, p)
	return true
}

// Contains reports whether p was found.
func (s *GraphPatterns) Contains(p pattern.Pattern) bool {
	_, ok := s.seen[p]
	return ok
}

// Len returns the number of distinct patterns.
func (s *GraphPatterns) Len() int {
	return len(s.order)
}

// Patterns returns the patterns in discovery order. The slice must not be modified.
func (s *GraphPatterns) Patterns() []pattern.Pattern {
	return s.order
}

// ExtractPatterns returns every distinct EDGE, PATH2 and TRI pattern of g.
func ExtractPatterns(g *graph.Graph) *GraphPatterns {
	set := NewGraphPatterns()
	extractEdges(g, set)
	extractPaths(g, set)
	extractTriangles(g, set)
	return set
}

func extractEdges(g *graph.Graph, set *GraphPatterns) {
	for _, e := range g.Edges() {
		lu, ok := g.Label(e.U)
		if !ok {
			continue
		}
		lv, ok := g.Label(e.V)
		if !ok {
			continue
		}
		set.Add(pattern.CanonicalEdge(lu, e.Label, lv))
	}
}

// extractPaths pairs every two incident edge slots of a labeled center whose
// far ends are distinct labeled nodes.
func extractPaths(g *graph.Graph, set *GraphPatterns) {
	for _, b := range g.NodeIDs() {
		lb, _ := g.Label(b)
		slots := g.Incident(b)
		for i := range slots {
			la, ok := g.Label(slots[i].Neighbor)
			if !ok {
				continue
			}
			for j := i + 1; j < len(slots); j++ {
				if slots[j].Neighbor == slots[i].Neighbor {
					continue
				}
				lc, ok := g.Label(slots[j].Neighbor)
				if !ok {
					continue
				}
				set.Add(pattern.CanonicalPath2(la, slots[i].Label, lb, slots[j].Label, lc))
			}
		}
	}
}

// extractTriangles enumerates u < v < w with v and w drawn from sorted
// neighbor lists, so every triangle is seen once.
func extractTriangles(g *graph.Graph, set *GraphPatterns) {
	for _, u := range g.NodeIDs() {
		lu, _ := g.Label(u)
		for _, v := range g.Neighbors(u) {
			if v <= u {
				continue
			}
			lv, ok := g.Label(v)
			if !ok {
				continue
			}
			for _, w := range g.Neighbors(v) {
				if w <= v || !g.Adjacent(u, w) {
					continue
				}
				lw, ok := g.Label(w)
				if !ok {
					continue
				}
				p, ok := pattern.CanonicalTriangle([3]pattern.LabeledNode{
					{ID: u, Label: lu},
					{ID: v, Label: lv},
					{ID: w, Label: lw},
				}, g.EdgeLabel)
				if ok {
					set.Add(p)
				}
			}
		}
	}
}
