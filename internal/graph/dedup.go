package graph

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Signature is a structural digest of a graph: its (id, label) pairs and its
// normalized edge multiset, both sorted. Two graphs share a signature only if
// they are the same record up to line order; isomorphic graphs with
// different id assignments do not.
type Signature string

// ComputeSignature returns the signature of g.
func ComputeSignature(g *Graph) Signature {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b Node) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Label, b.Label))
	})

	edges := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		edges[i] = e.Normalized()
	}
	slices.SortFunc(edges, compareEdges)

	var sb strings.Builder
	sb.Grow(8*len(nodes) + 12*len(edges) + 2)
	for _, n := range nodes {
		sb.WriteString(strconv.Itoa(n.ID))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(n.Label))
		sb.WriteByte(';')
	}
	sb.WriteByte('|')
	for _, e := range edges {
		sb.WriteString(strconv.Itoa(e.U))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(e.V))
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(e.Label))
		sb.WriteByte(';')
	}
	return Signature(sb.String())
}

func compareEdges(a, b Edge) int {
	return cmp.Or(
		cmp.Compare(a.U, b.U),
		cmp.Compare(a.V, b.V),
		cmp.Compare(a.Label, b.Label),
	)
}

// Dedup drops every graph whose signature was already seen, keeping first
// occurrences in their original relative order.
func Dedup(graphs []*Graph) []*Graph {
	seen := make(map[Signature]struct{}, len(graphs))
	kept := make([]*Graph, 0, len(graphs))
	for _, g := range graphs {
		sig := ComputeSignature(g)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		kept = append(kept, g)
	}
	return kept
}
