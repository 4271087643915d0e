package labels

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

func TestUnionFindMinimumRoot(t *testing.T) {
	var uf UnionFind
	uf.Union(40, 12)
	uf.Union(12, 99)
	uf.Union(7, 500)
	uf.Union(500, 99)
	for _, label := range []uint64{40, 12, 99, 7, 500} {
		if root := uf.Find(label); root != 7 {
			t.Errorf("expected root 7 for %d, got %d", label, root)
		}
	}
	uf.Add(3)
	if uf.Find(3) != 3 {
		t.Errorf("singleton should be its own root")
	}
	if uf.NumSets() != 2 || uf.Len() != 6 {
		t.Errorf("expected 2 sets over 6 labels, got %d over %d", uf.NumSets(), uf.Len())
	}
}

func TestResolveSingletonsAndZero(t *testing.T) {
	m := Resolve([]uint64{0, 5, 8, 9}, []Edge{{8, 9}, {0, 5}})
	if len(m) != 3 {
		t.Fatalf("expected 3 mapped nodes, got %v", m)
	}
	if m[5] != 5 || m[8] != 8 || m[9] != 8 {
		t.Errorf("bad mapping %v", m)
	}
	if _, found := m[0]; found {
		t.Errorf("background should never be mapped")
	}
}

func randomGraph(rng *rand.Rand, numNodes, numEdges int) ([]uint64, []Edge) {
	nodes := make([]uint64, numNodes)
	for i := range nodes {
		nodes[i] = uint64(rng.Intn(1000000) + 1)
	}
	edges := make([]Edge, numEdges)
	for i := range edges {
		a := nodes[rng.Intn(numNodes)]
		b := nodes[rng.Intn(numNodes)]
		edges[i] = NewEdge(a, b)
	}
	return nodes, edges
}

func TestResolveMatchesGraphComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		nodes, edges := randomGraph(rng, 200, 150)
		m := Resolve(nodes, edges)

		g := simple.NewUndirectedGraph()
		for _, label := range nodes {
			if g.Node(int64(label)) == nil {
				g.AddNode(simple.Node(int64(label)))
			}
		}
		for _, e := range edges {
			if e[0] != e[1] {
				g.SetEdge(simple.Edge{F: simple.Node(int64(e[0])), T: simple.Node(int64(e[1]))})
			}
		}
		comps := topo.ConnectedComponents(g)
		if m.NumComponents() != len(comps) {
			t.Fatalf("trial %d: %d components from Resolve, %d from graph", trial, m.NumComponents(), len(comps))
		}
		for _, comp := range comps {
			minLabel := uint64(comp[0].ID())
			for _, n := range comp {
				minLabel = min(minLabel, uint64(n.ID()))
			}
			for _, n := range comp {
				if got := m[uint64(n.ID())]; got != minLabel {
					t.Fatalf("trial %d: label %d mapped to %d, expected component minimum %d",
						trial, n.ID(), got, minLabel)
				}
			}
		}
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nodes, edges := randomGraph(rng, 100, 80)
	expected := Resolve(nodes, edges)
	for trial := 0; trial < 10; trial++ {
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
		// duplicates and reversed pairs must not matter either
		dup := append(append([]Edge{}, edges...), Edge{edges[0][1], edges[0][0]})
		got := Resolve(nodes, dup)
		if len(got) != len(expected) {
			t.Fatalf("mapping size changed with order: %d vs %d", len(got), len(expected))
		}
		for from, to := range expected {
			if got[from] != to {
				t.Fatalf("label %d mapped to %d, expected %d", from, got[from], to)
			}
		}
	}
}
