package labels

// UnionFind is a disjoint-set forest over labels where the root of every set is its
// minimum label.  The zero value is ready to use.
type UnionFind struct {
	parent map[uint64]uint64
}

// Add makes label a member of the forest as a singleton if it is not one already.
func (uf *UnionFind) Add(label uint64) {
	if uf.parent == nil {
		uf.parent = make(map[uint64]uint64)
	}
	if _, found := uf.parent[label]; !found {
		uf.parent[label] = label
	}
}

// Find returns the minimum label of the set holding label, adding label if needed.
// Paths are halved along the way.
func (uf *UnionFind) Find(label uint64) uint64 {
	uf.Add(label)
	for {
		p := uf.parent[label]
		if p == label {
			return label
		}
		gp := uf.parent[p]
		uf.parent[label] = gp
		label = gp
	}
}

// Union joins the sets of a and b, keeping the smaller root.
func (uf *UnionFind) Union(a, b uint64) {
	ra, rb := uf.Find(a), uf.Find(b)
	switch {
	case ra == rb:
	case ra < rb:
		uf.parent[rb] = ra
	default:
		uf.parent[ra] = rb
	}
}

// Len returns the number of labels in the forest.
func (uf *UnionFind) Len() int {
	return len(uf.parent)
}

// NumSets returns the number of disjoint sets.
func (uf *UnionFind) NumSets() int {
	var n int
	for label, p := range uf.parent {
		if label == p {
			n++
		}
	}
	return n
}

// Resolve computes the connected components of the graph given by nodes and edges and
// maps every node to the minimum label of its component.  Nodes without edges map to
// themselves.  The result depends only on the set of nodes and edges, not their order
// or multiplicity.  Label 0 is ignored.
func Resolve(nodes []uint64, edges []Edge) Mapping {
	var uf UnionFind
	for _, label := range nodes {
		if label != 0 {
			uf.Add(label)
		}
	}
	for _, e := range edges {
		if e[0] == 0 || e[1] == 0 {
			continue
		}
		uf.Union(e[0], e[1])
	}
	m := make(Mapping, uf.Len())
	for label := range uf.parent {
		m[label] = uf.Find(label)
	}
	return m
}
