package graph

import (
	"slices"
)

// Graph is an immutable labeled graph.
//
// Nodes keep their first-seen order so that every walk over a graph is
// deterministic. Secondary indexes (label -> nodes, node -> neighbor set,
// unordered pair -> edge label) are built by New and never change, so
// queries scale with the result rather than with the graph.
type Graph struct {
	labels map[int]int
	order  []int
	edges  []Edge

	// Secondary indexes, built once by New.
	byLabel   map[int][]int
	neighbors map[int]map[int]struct{}
	sorted    map[int][]int
	incident  map[int][]Incidence
	pairLabel map[Pair]int
}

// New builds a graph from the nodes and edges of one record.
//
// A node id repeated in nodes keeps its first position and takes the last
// label given. Edges may reference ids that have no node line; such edges
// take part in adjacency but every labeled pattern test skips them. When
// several edges join the same unordered pair, the first label seen is the
// pair label.
func New(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		labels:    make(map[int]int, len(nodes)),
		order:     make([]int, 0, len(nodes)),
		edges:     slices.Clone(edges),
		byLabel:   make(map[int][]int),
		neighbors: make(map[int]map[int]struct{}),
		sorted:    make(map[int][]int),
		incident:  make(map[int][]Incidence),
		pairLabel: make(map[Pair]int, len(edges)),
	}

	for _, n := range nodes {
		if _, ok := g.labels[n.ID]; !ok {
			g.order = append(g.order, n.ID)
		}
		g.labels[n.ID] = n.Label
	}
	for _, id := range g.order {
		label := g.labels[id]
		g.byLabel[label] = append(g.byLabel[label], id)
	}

	for _, e := range g.edges {
		g.link(e.U, e.V)
		g.link(e.V, e.U)

		g.incident[e.U] = append(g.incident[e.U], Incidence{Neighbor: e.V, Label: e.Label})
		if e.U != e.V {
			g.incident[e.V] = append(g.incident[e.V], Incidence{Neighbor: e.U, Label: e.Label})
		}

		p := NewPair(e.U, e.V)
		if _, ok := g.pairLabel[p]; !ok {
			g.pairLabel[p] = e.Label
		}
	}

	for id, set := range g.neighbors {
		ids := make([]int, 0, len(set))
		for n := range set {
			ids = append(ids, n)
		}
		slices.Sort(ids)
		g.sorted[id] = ids
	}

	return g
}

func (g *Graph) link(u, v int) {
	set, ok := g.neighbors[u]
	if !ok {
		set = make(map[int]struct{})
		g.neighbors[u] = set
	}
	set[v] = struct{}{}
}

// NodeCount returns the number of distinct labeled nodes.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// EdgeCount returns the number of edges, parallel edges included.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// NodeIDs returns node ids in first-seen order. The slice must not be modified.
func (g *Graph) NodeIDs() []int {
	return g.order
}

// Nodes returns the labeled nodes in first-seen order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, len(g.order))
	for i, id := range g.order {
		nodes[i] = Node{ID: id, Label: g.labels[id]}
	}
	return nodes
}

// Edges returns the edges in input order. The slice must not be modified.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Label returns the label of a node and whether the node has one.
func (g *Graph) Label(id int) (int, bool) {
	label, ok := g.labels[id]
	return label, ok
}

// NodesByLabel returns the ids of nodes carrying label, in first-seen order.
func (g *Graph) NodesByLabel(label int) []int {
	return g.byLabel[label]
}

// Neighbors returns the distinct neighbors of a node in ascending id order.
func (g *Graph) Neighbors(id int) []int {
	return g.sorted[id]
}

// Adjacent reports whether u and v share at least one edge.
func (g *Graph) Adjacent(u, v int) bool {
	_, ok := g.neighbors[u][v]
	return ok
}

// Incident returns every edge slot at a node in input order.
func (g *Graph) Incident(id int) []Incidence {
	return g.incident[id]
}

// EdgeLabel returns the label of the unordered pair {u, v}. For parallel
// edges this is the label of the first one in the input.
func (g *Graph) EdgeLabel(u, v int) (int, bool) {
	label, ok := g.pairLabel[NewPair(u, v)]
	return label, ok
}
