package dvid

import "fmt"

// Region is an axis-aligned box of voxels given by its first voxel (Offset) and its
// extent (Size) along each axis.  The voxel at Offset+Size is not included.
type Region struct {
	Offset Point
	Size   Point
}

// NewRegion returns a Region after checking that the offset and size agree in
// dimensionality and that every extent is positive.
func NewRegion(offset, size Point) (Region, error) {
	if len(size) == 0 {
		return Region{}, fmt.Errorf("region must have at least one dimension")
	}
	if len(offset) != len(size) {
		return Region{}, fmt.Errorf("region offset %s and size %s differ in dimensionality", offset, size)
	}
	if !size.AllPositive() {
		return Region{}, fmt.Errorf("region size %s must be positive along every axis", size)
	}
	return Region{Offset: offset.Duplicate(), Size: size.Duplicate()}, nil
}

// RegionFromBounds returns the region spanning [beg, end).
func RegionFromBounds(beg, end Point) (Region, error) {
	if len(beg) != len(end) {
		return Region{}, fmt.Errorf("bounds %s and %s differ in dimensionality", beg, end)
	}
	return NewRegion(beg, end.Sub(beg))
}

// NumDims returns the dimensionality of the region.
func (r Region) NumDims() int {
	return len(r.Size)
}

// End returns the exclusive upper corner of the region.
func (r Region) End() Point {
	return r.Offset.Add(r.Size)
}

// NumVoxels returns the number of voxels within the region.
func (r Region) NumVoxels() int64 {
	if len(r.Size) == 0 {
		return 0
	}
	return r.Size.Prod()
}

// Empty returns true if the region holds no voxels.
func (r Region) Empty() bool {
	if len(r.Size) == 0 {
		return true
	}
	for _, s := range r.Size {
		if s <= 0 {
			return true
		}
	}
	return false
}

// Equals returns true if both regions have identical offset and size.
func (r Region) Equals(r2 Region) bool {
	return r.Offset.Equals(r2.Offset) && r.Size.Equals(r2.Size)
}

// Grow returns the region padded outward by margin on both sides of every axis.
// This is how a write region is inflated into a read region with a halo.
func (r Region) Grow(margin Point) Region {
	return Region{
		Offset: r.Offset.Sub(margin),
		Size:   r.Size.Add(margin).Add(margin),
	}
}

// Intersect returns the overlap of two regions, which may be Empty().
func (r Region) Intersect(r2 Region) Region {
	beg := r.Offset.Max(r2.Offset)
	end := r.End().Min(r2.End())
	size := end.Sub(beg)
	for i := range size {
		if size[i] < 0 {
			size[i] = 0
		}
	}
	return Region{Offset: beg, Size: size}
}

// Contains returns true if r2 lies completely within the receiver.
func (r Region) Contains(r2 Region) bool {
	if len(r.Size) != len(r2.Size) {
		return false
	}
	end, end2 := r.End(), r2.End()
	for i := range r.Offset {
		if r2.Offset[i] < r.Offset[i] || end2[i] > end[i] {
			return false
		}
	}
	return true
}

// ContainsPoint returns true if the voxel p is inside the region.
func (r Region) ContainsPoint(p Point) bool {
	if len(p) != len(r.Offset) {
		return false
	}
	for i := range p {
		if p[i] < r.Offset[i] || p[i] >= r.Offset[i]+r.Size[i] {
			return false
		}
	}
	return true
}

// Crop returns the position of an inner region relative to the receiver's offset,
// i.e., the box to cut out of a dense array covering the receiver in order to
// recover the inner region.
func (r Region) Crop(inner Region) (Region, error) {
	if !r.Contains(inner) {
		return Region{}, fmt.Errorf("cannot crop %s out of %s", inner, r)
	}
	return Region{Offset: inner.Offset.Sub(r.Offset), Size: inner.Size.Duplicate()}, nil
}

func (r Region) String() string {
	return fmt.Sprintf("[%s + %s]", r.Offset, r.Size)
}
