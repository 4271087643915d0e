package stitch

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/cclabels/array"
	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/labels"
)

// Relabeler rewrites provisional labels with their canonical labels.  It is
// read-only after construction and safe for concurrent use.
type Relabeler struct {
	oldLabels []uint64
	newLabels []uint64
}

// NewRelabeler prepares the substitution lists for a mapping.
func NewRelabeler(m labels.Mapping) *Relabeler {
	oldLabels, newLabels := m.Changes()
	return &Relabeler{oldLabels: oldLabels, newLabels: newLabels}
}

// NumChanges returns the number of labels that are rewritten.
func (r *Relabeler) NumChanges() int {
	return len(r.oldLabels)
}

// RelabelBlock rewrites the block's write region of dst in place.
func (r *Relabeler) RelabelBlock(ctx context.Context, dst array.Array, block dvid.Block) error {
	if len(r.oldLabels) == 0 {
		return nil
	}
	vol, err := dst.Read(ctx, block.WriteRegion)
	if err != nil {
		return fmt.Errorf("reading labels for %s: %v", block, err)
	}
	if err := labels.ReplaceValues(vol.Data(), r.oldLabels, r.newLabels); err != nil {
		return err
	}
	if err := dst.Write(ctx, block.WriteRegion, vol); err != nil {
		return fmt.Errorf("writing labels for %s: %v", block, err)
	}
	return nil
}

// RelabelBlock applies the mapping to one block's write region of dst.  Labels
// absent from the mapping and background are left unchanged.
func RelabelBlock(ctx context.Context, dst array.Array, m labels.Mapping, block dvid.Block) error {
	return NewRelabeler(m).RelabelBlock(ctx, dst, block)
}
