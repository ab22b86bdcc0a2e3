// Package graph provides the labeled graph model for sgindex.
//
// A Graph is a set of integer-labeled nodes and a list of integer-labeled,
// undirected edges, parsed from one `v/e/#` record. Everything the miner and
// the matcher need (neighbor sets, label index, pair labels) is built once
// when the graph is constructed.
package graph

// Node is a vertex of a record: an id and its integer label.
type Node struct {
	ID    int
	Label int
}

// Edge is an edge of a record as it appeared in the input.
// Endpoint order carries no meaning; every pattern test treats
// (U, V, Label) and (V, U, Label) as the same edge.
type Edge struct {
	U     int
	V     int
	Label int
}

// Normalized returns the edge with U <= V.
func (e Edge) Normalized() Edge {
	if e.U > e.V {
		return Edge{U: e.V, V: e.U, Label: e.Label}
	}
	return e
}

// Pair is an unordered node pair, stored with A <= B.
type Pair struct {
	A int
	B int
}

// NewPair returns the unordered pair {u, v}.
func NewPair(u, v int) Pair {
	if u > v {
		return Pair{A: v, B: u}
	}
	return Pair{A: u, B: v}
}

// Incidence is one edge slot at a node: the node on the other end and the
// edge label. A node with parallel edges to the same neighbor has one
// Incidence per edge.
type Incidence struct {
	Neighbor int
	Label    int
}
