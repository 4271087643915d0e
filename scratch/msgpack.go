package scratch

//go:generate msgp -io=false

import "github.com/janelia-flyem/cclabels/labels"

// Entry is the boundary information recorded for one block: the labels that touch
// another block's labels across the block boundary and the touching pairs.
type Entry struct {
	Nodes []uint64      `msg:"nodes"`
	Edges []labels.Edge `msg:"edges"`
}
