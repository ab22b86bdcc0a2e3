package pattern

import "github.com/Benny93/sgindex/internal/graph"

// Matches reports whether g contains an occurrence of p. Edges are treated as
// undirected and nodes without a label never match. Matches does not modify
// g and is safe for concurrent use.
func Matches(g *graph.Graph, p Pattern) bool {
	switch p.kind {
	case KindEdge:
		return matchEdge(g, p.fields[0], p.fields[1], p.fields[2])
	case KindPath2:
		return matchPath2(g, p.fields[0], p.fields[1], p.fields[2], p.fields[3], p.fields[4])
	case KindTriangle:
		return matchTriangle(g, p.fields[0], p.fields[1], p.fields[2], p.fields[3], p.fields[4], p.fields[5])
	default:
		return false
	}
}

func matchEdge(g *graph.Graph, la, el, lb int) bool {
	for _, e := range g.Edges() {
		if e.Label != el {
			continue
		}
		lu, ok := g.Label(e.U)
		if !ok {
			continue
		}
		lv, ok := g.Label(e.V)
		if !ok {
			continue
		}
		if (lu == la && lv == lb) || (lu == lb && lv == la) {
			return true
		}
	}
	return false
}

// matchPath2 looks for a center labeled lb with a (la, e1) neighbor and a
// different (lc, e2) neighbor.
func matchPath2(g *graph.Graph, la, e1, lb, e2, lc int) bool {
	for _, center := range g.NodesByLabel(lb) {
		var left, right int
		hasLeft, hasRight := false, false
		leftMulti, rightMulti := false, false

		for _, inc := range g.Incident(center) {
			label, ok := g.Label(inc.Neighbor)
			if !ok {
				continue
			}
			if label == la && inc.Label == e1 {
				switch {
				case !hasLeft:
					left, hasLeft = inc.Neighbor, true
				case left != inc.Neighbor:
					leftMulti = true
				}
			}
			if label == lc && inc.Label == e2 {
				switch {
				case !hasRight:
					right, hasRight = inc.Neighbor, true
				case right != inc.Neighbor:
					rightMulti = true
				}
			}
		}

		if !hasLeft || !hasRight {
			continue
		}
		if leftMulti || rightMulti || left != right {
			return true
		}
	}
	return false
}

func matchTriangle(g *graph.Graph, l1, e12, l2, e13, l3, e23 int) bool {
	for _, n1 := range g.NodesByLabel(l1) {
		for _, n2 := range g.Neighbors(n1) {
			if n2 == n1 || !hasLabel(g, n2, l2) || !hasEdgeLabel(g, n1, n2, e12) {
				continue
			}
			for _, n3 := range g.Neighbors(n1) {
				if n3 == n1 || n3 == n2 || !hasLabel(g, n3, l3) {
					continue
				}
				if hasEdgeLabel(g, n1, n3, e13) && hasEdgeLabel(g, n2, n3, e23) {
					return true
				}
			}
		}
	}
	return false
}

func hasLabel(g *graph.Graph, id, want int) bool {
	label, ok := g.Label(id)
	return ok && label == want
}

func hasEdgeLabel(g *graph.Graph, u, v, want int) bool {
	label, ok := g.EdgeLabel(u, v)
	return ok && label == want
}
