package labels

import (
	"fmt"
	"slices"
)

// Edge is an unordered pair of nonzero labels observed touching.  Normalized edges
// hold the smaller label first.
type Edge [2]uint64

// NewEdge returns the normalized edge between a and b.
func NewEdge(a, b uint64) Edge {
	if a > b {
		return Edge{b, a}
	}
	return Edge{a, b}
}

func (e Edge) String() string {
	return fmt.Sprintf("%d-%d", e[0], e[1])
}

// EdgeSet deduplicates edges.
type EdgeSet map[Edge]struct{}

// AddPairs adds the element-wise pairs of two equal-length label slices, skipping any
// pair with background on either side.
func (es EdgeSet) AddPairs(a, b []uint64) error {
	if len(a) != len(b) {
		return fmt.Errorf("cannot pair %d labels with %d labels", len(a), len(b))
	}
	for i, la := range a {
		lb := b[i]
		if la == 0 || lb == 0 {
			continue
		}
		es[NewEdge(la, lb)] = struct{}{}
	}
	return nil
}

// Edges returns the edges sorted by (low, high) label.
func (es EdgeSet) Edges() []Edge {
	edges := make([]Edge, 0, len(es))
	for e := range es {
		edges = append(edges, e)
	}
	SortEdges(edges)
	return edges
}

// SortEdges sorts edges by (low, high) label.
func SortEdges(edges []Edge) {
	slices.SortFunc(edges, func(x, y Edge) int {
		switch {
		case x[0] < y[0]:
			return -1
		case x[0] > y[0]:
			return 1
		case x[1] < y[1]:
			return -1
		case x[1] > y[1]:
			return 1
		}
		return 0
	})
}

// Nodes returns the sorted distinct labels appearing in the edges.
func Nodes(edges []Edge) []uint64 {
	set := make(map[uint64]struct{}, 2*len(edges))
	for _, e := range edges {
		set[e[0]] = struct{}{}
		set[e[1]] = struct{}{}
	}
	nodes := make([]uint64, 0, len(set))
	for label := range set {
		nodes = append(nodes, label)
	}
	slices.Sort(nodes)
	return nodes
}
