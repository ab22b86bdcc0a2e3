package pattern

import (
	"cmp"
	"slices"
)

// CanonicalEdge returns EDGE(labelA, edge, labelB) with labelA <= labelB.
func CanonicalEdge(labelA, edge, labelB int) Pattern {
	if labelA > labelB {
		labelA, labelB = labelB, labelA
	}
	return Pattern{kind: KindEdge, fields: [6]int{labelA, edge, labelB}}
}

// CanonicalPath2 returns the PATH2 pattern of a center labeled labelCenter
// with two sides (labelLeft, edgeLeft) and (labelRight, edgeRight). The side
// that is smaller as a (label, edge) tuple comes first.
func CanonicalPath2(labelLeft, edgeLeft, labelCenter, edgeRight, labelRight int) Pattern {
	if cmp.Or(cmp.Compare(labelLeft, labelRight), cmp.Compare(edgeLeft, edgeRight)) > 0 {
		labelLeft, edgeLeft, labelRight, edgeRight = labelRight, edgeRight, labelLeft, edgeLeft
	}
	return Pattern{kind: KindPath2, fields: [6]int{labelLeft, edgeLeft, labelCenter, edgeRight, labelRight}}
}

// LabeledNode is a node id with its label.
type LabeledNode struct {
	ID    int
	Label int
}

// EdgeLabelFunc looks up the label of the edge between two nodes.
type EdgeLabelFunc func(u, v int) (int, bool)

// CanonicalTriangle returns the TRI pattern of three mutually adjacent nodes.
//
// The nodes are sorted by (label, id) and the edge labels are read in that
// order as edge12, edge13 and edge23. The second result is false when any
// of the three edges has no label.
func CanonicalTriangle(nodes [3]LabeledNode, edgeLabel EdgeLabelFunc) (Pattern, bool) {
	sorted := nodes
	slices.SortFunc(sorted[:], func(a, b LabeledNode) int {
		return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.ID, b.ID))
	})
	n1, n2, n3 := sorted[0], sorted[1], sorted[2]

	e12, ok := edgeLabel(n1.ID, n2.ID)
	if !ok {
		return Pattern{}, false
	}
	e13, ok := edgeLabel(n1.ID, n3.ID)
	if !ok {
		return Pattern{}, false
	}
	e23, ok := edgeLabel(n2.ID, n3.ID)
	if !ok {
		return Pattern{}, false
	}

	return Pattern{
		kind:   KindTriangle,
		fields: [6]int{n1.Label, e12, n2.Label, e13, n3.Label, e23},
	}, true
}
