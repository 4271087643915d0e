package labels

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/janelia-flyem/cclabels/dvid"
)

// Namespace maps (block id, block-local label) pairs to global labels by packing
// global = blockID * Capacity + local.  Each block owns the label range
// [blockID*Capacity + 1, blockID*Capacity + Capacity - 1], so equal nonzero global
// labels always come from the same block.
type Namespace struct {
	// Capacity is an upper bound on the number of local labels of a block, plus one.
	Capacity uint64

	// NumBlocks is the number of blocks in the partition.
	NumBlocks uint64
}

// NewNamespace returns a Namespace after verifying that every global label fits
// in a uint64.
func NewNamespace(capacity, numBlocks uint64) (Namespace, error) {
	if capacity < 2 {
		return Namespace{}, fmt.Errorf("label capacity per block must be at least 2, got %d", capacity)
	}
	if numBlocks == 0 {
		return Namespace{}, fmt.Errorf("namespace needs at least one block")
	}
	hi, _ := bits.Mul64(numBlocks, capacity)
	if hi != 0 {
		return Namespace{}, fmt.Errorf("%d blocks with %d labels each overflow 64-bit labels", numBlocks, capacity)
	}
	return Namespace{Capacity: capacity, NumBlocks: numBlocks}, nil
}

// MaxLabel returns the largest global label of the namespace.
func (ns Namespace) MaxLabel() uint64 {
	return ns.NumBlocks*ns.Capacity - 1
}

// CapacityFor returns the per-block label capacity for blocks whose read region
// has the given shape.  A block can hold at most one local label per voxel.
func CapacityFor(readShape dvid.Point) (uint64, error) {
	n := readShape.Prod()
	if n <= 0 || n == math.MaxInt64 {
		return 0, fmt.Errorf("bad read region shape %s", readShape)
	}
	return uint64(n) + 1, nil
}

// Global returns the global label for a local label of a block.  Local label 0 is
// background and maps to 0.
func (ns Namespace) Global(blockID, local uint64) (uint64, error) {
	if local == 0 {
		return 0, nil
	}
	if blockID >= ns.NumBlocks {
		return 0, fmt.Errorf("block %d outside namespace of %d blocks", blockID, ns.NumBlocks)
	}
	if local >= ns.Capacity {
		return 0, fmt.Errorf("local label %d of block %d exceeds capacity %d", local, blockID, ns.Capacity)
	}
	return blockID*ns.Capacity + local, nil
}

// BlockOf returns the block whose range holds the nonzero global label.
func (ns Namespace) BlockOf(global uint64) (uint64, error) {
	if global == 0 {
		return 0, fmt.Errorf("background label has no block")
	}
	if global%ns.Capacity == 0 {
		return 0, fmt.Errorf("label %d is not in any block's range", global)
	}
	return global / ns.Capacity, nil
}

// Offset converts a volume of local labels for the block into global labels in place.
// numLabels is the largest local label present.
func (ns Namespace) Offset(blockID uint64, v *dvid.Volume, numLabels uint64) error {
	if numLabels == 0 {
		return nil
	}
	if _, err := ns.Global(blockID, numLabels); err != nil {
		return err
	}
	base := blockID * ns.Capacity
	data := v.Data()
	for i, label := range data {
		if label != 0 {
			data[i] = base + label
		}
	}
	return nil
}
