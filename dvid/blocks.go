package dvid

import (
	"fmt"
	"math"
)

// Block is a unit of work over a partition of a volume.  Its ID is the position of the
// block in the deterministic partition order, so it is identical across runs regardless
// of execution order or worker count.
type Block struct {
	ID uint64

	// ReadRegion is WriteRegion grown by the halo.  It may extend past the volume.
	ReadRegion Region

	// WriteRegion is the block's exclusive, non-overlapping partition cell.
	WriteRegion Region
}

func (b Block) String() string {
	return fmt.Sprintf("block %d (write %s, read %s)", b.ID, b.WriteRegion, b.ReadRegion)
}

// GridShape returns the number of cells along each axis needed to cover the total
// region with cells of the given shape.  Residual cells are counted.
func GridShape(total Region, cell Point) (Point, error) {
	if total.Empty() {
		return nil, fmt.Errorf("cannot partition empty region %s", total)
	}
	if len(cell) != total.NumDims() {
		return nil, fmt.Errorf("cell shape %s does not match %d-d region %s", cell, total.NumDims(), total)
	}
	if !cell.AllPositive() {
		return nil, fmt.Errorf("cell shape %s must be positive along every axis", cell)
	}
	grid := make(Point, len(cell))
	for dim := range cell {
		grid[dim] = (total.Size[dim] + cell[dim] - 1) / cell[dim]
	}
	return grid, nil
}

// NumBlocks returns the number of blocks in the partition of the total region.
func NumBlocks(total Region, cell Point) (uint64, error) {
	grid, err := GridShape(total, cell)
	if err != nil {
		return 0, err
	}
	return uint64(grid.Prod()), nil
}

// Partition tiles the total region with write regions of the given cell shape and
// returns the blocks in C order (last axis fastest).  Cells at the upper boundary
// are shrunk to fit within the total region rather than padded with voxels outside
// the volume.  Each block's read region is its write region grown by halo, which may
// be all zeros for a halo-less partition.
func Partition(total Region, cell, halo Point) ([]Block, error) {
	grid, err := GridShape(total, cell)
	if err != nil {
		return nil, err
	}
	if halo == nil {
		halo = make(Point, len(cell))
	}
	if len(halo) != len(cell) {
		return nil, fmt.Errorf("halo %s does not match cell shape %s", halo, cell)
	}
	for _, h := range halo {
		if h < 0 {
			return nil, fmt.Errorf("halo %s must not be negative", halo)
		}
	}
	numBlocks := grid.Prod()
	if numBlocks > math.MaxInt32 {
		return nil, fmt.Errorf("partition of %s into cells %s would need %d blocks", total, cell, numBlocks)
	}
	blocks := make([]Block, 0, numBlocks)
	end := total.End()
	idx := make(Point, len(grid))
	for id := uint64(0); id < uint64(numBlocks); id++ {
		offset := make(Point, len(grid))
		size := make(Point, len(grid))
		for dim := range grid {
			offset[dim] = total.Offset[dim] + idx[dim]*cell[dim]
			size[dim] = min(cell[dim], end[dim]-offset[dim])
		}
		write := Region{Offset: offset, Size: size}
		blocks = append(blocks, Block{
			ID:          id,
			ReadRegion:  write.Grow(halo),
			WriteRegion: write,
		})
		// advance the grid index, last axis fastest
		for dim := len(grid) - 1; dim >= 0; dim-- {
			idx[dim]++
			if idx[dim] < grid[dim] {
				break
			}
			idx[dim] = 0
		}
	}
	return blocks, nil
}

// BlockIDs returns the ids of the given blocks in order.
func BlockIDs(blocks []Block) []uint64 {
	ids := make([]uint64, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}
