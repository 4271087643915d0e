package stitch

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/cclabels/array"
	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/labels"
	"github.com/janelia-flyem/cclabels/scratch"
)

// BlockStats describes the result of labeling one block.
type BlockStats struct {
	LocalLabels uint64
	Edges       int
}

// LabelBlock labels the connected components of one block and records where they
// touch labels already committed by neighboring blocks.
//
// The block's read region is labeled with face connectivity, its local labels are
// moved into the block's range of the namespace, and the write region is committed
// to dst.  The read region of dst is then read back.  Along every face that has a
// halo, the block's own labels in the outermost (halo) slice are paired with the
// labels dst holds there.  Own labels that were never committed, i.e. components
// seen only in the halo, are left out so every edge joins two committed labels.
// Neighbors that have not run yet hold 0 and contribute no pairs; they observe this
// block's labels when they run.  The resulting edges and their nodes are stored
// under the block id.
//
// dst must be all background before the first block is labeled.
func LabelBlock(ctx context.Context, src, dst array.Array, store scratch.Store, ns labels.Namespace, block dvid.Block) (BlockStats, error) {
	var stats BlockStats
	vol, err := src.Read(ctx, block.ReadRegion)
	if err != nil {
		return stats, fmt.Errorf("reading source for %s: %v", block, err)
	}
	comps, numLabels, err := labels.ConnectedComponents(vol)
	if err != nil {
		return stats, err
	}
	if err := ns.Offset(block.ID, comps, numLabels); err != nil {
		return stats, err
	}
	stats.LocalLabels = numLabels

	rel, err := block.ReadRegion.Crop(block.WriteRegion)
	if err != nil {
		return stats, err
	}
	write, err := comps.SubVolume(rel)
	if err != nil {
		return stats, err
	}
	if err := dst.Write(ctx, block.WriteRegion, write); err != nil {
		return stats, fmt.Errorf("committing labels for %s: %v", block, err)
	}

	committed, err := dst.Read(ctx, block.ReadRegion)
	if err != nil {
		return stats, fmt.Errorf("re-reading labels for %s: %v", block, err)
	}
	edges, err := boundaryEdges(block, comps, committed, presentLabels(write))
	if err != nil {
		return stats, err
	}
	stats.Edges = len(edges)

	entry := scratch.Entry{Nodes: labels.Nodes(edges), Edges: edges}
	if err := store.Put(ctx, block.ID, entry); err != nil {
		return stats, fmt.Errorf("storing boundary of %s: %v", block, err)
	}
	dvid.Debugf("%s: %d labels, %d edges\n", block, numLabels, len(edges))
	if dvid.Verbose {
		dvid.Debugf("%s edges: %v\n", block, edges)
	}
	return stats, nil
}

// presentLabels returns the set of nonzero labels in the volume.
func presentLabels(v *dvid.Volume) map[uint64]struct{} {
	present := make(map[uint64]struct{})
	var last uint64
	for _, label := range v.Data() {
		if label == 0 || label == last {
			continue
		}
		present[label] = struct{}{}
		last = label
	}
	return present
}

// boundaryEdges pairs the outermost slices of own and committed on every face where
// the read region extends past the write region.  Own labels not in written are
// skipped.
//
// A component crossing a face is committed on both sides of it, so whichever block
// runs second pairs two written labels.
func boundaryEdges(block dvid.Block, own, committed *dvid.Volume, written map[uint64]struct{}) ([]labels.Edge, error) {
	edgeSet := make(labels.EdgeSet)
	read, write := block.ReadRegion, block.WriteRegion
	readEnd, writeEnd := read.End(), write.End()
	for axis := 0; axis < read.NumDims(); axis++ {
		for _, upper := range []bool{false, true} {
			if !upper && read.Offset[axis] == write.Offset[axis] {
				continue
			}
			if upper && readEnd[axis] == writeEnd[axis] {
				continue
			}
			a, err := own.FaceSlice(axis, upper)
			if err != nil {
				return nil, err
			}
			b, err := committed.FaceSlice(axis, upper)
			if err != nil {
				return nil, err
			}
			for i, label := range a {
				if _, found := written[label]; !found {
					a[i] = 0
				}
			}
			if err := edgeSet.AddPairs(a, b); err != nil {
				return nil, err
			}
		}
	}
	return edgeSet.Edges(), nil
}
