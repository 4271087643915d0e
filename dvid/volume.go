package dvid

import (
	"encoding/binary"
	"fmt"
)

// Volume is a dense N-d array of uint64 labels stored in C order (last axis fastest).
// Coordinates used with a Volume are relative to its first voxel.
type Volume struct {
	shape   Point
	strides []int
	data    []uint64
}

// NewVolume returns a zero-filled volume of the given shape.
func NewVolume(shape Point) (*Volume, error) {
	if len(shape) == 0 || !shape.AllPositive() {
		return nil, fmt.Errorf("bad volume shape %s", shape)
	}
	return &Volume{
		shape:   shape.Duplicate(),
		strides: stridesFor(shape),
		data:    make([]uint64, shape.Prod()),
	}, nil
}

// NewVolumeFromData wraps existing data, which must hold exactly shape.Prod() labels.
func NewVolumeFromData(shape Point, data []uint64) (*Volume, error) {
	if len(shape) == 0 || !shape.AllPositive() {
		return nil, fmt.Errorf("bad volume shape %s", shape)
	}
	if int64(len(data)) != shape.Prod() {
		return nil, fmt.Errorf("volume of shape %s needs %d labels, got %d", shape, shape.Prod(), len(data))
	}
	return &Volume{
		shape:   shape.Duplicate(),
		strides: stridesFor(shape),
		data:    data,
	}, nil
}

func stridesFor(shape Point) []int {
	strides := make([]int, len(shape))
	stride := 1
	for dim := len(shape) - 1; dim >= 0; dim-- {
		strides[dim] = stride
		stride *= int(shape[dim])
	}
	return strides
}

// Shape returns the extent along each axis.
func (v *Volume) Shape() Point {
	return v.shape
}

// Strides returns the distance within Data() between neighbors along each axis.
func (v *Volume) Strides() []int {
	return v.strides
}

// Data returns the backing slice in C order.
func (v *Volume) Data() []uint64 {
	return v.data
}

// NumVoxels returns the number of voxels in the volume.
func (v *Volume) NumVoxels() int {
	return len(v.data)
}

// Index returns the position of the relative point p within Data().
func (v *Volume) Index(p Point) int {
	var i int
	for dim, c := range p {
		i += int(c) * v.strides[dim]
	}
	return i
}

// Value returns the label at the relative point p.
func (v *Volume) Value(p Point) uint64 {
	return v.data[v.Index(p)]
}

// SetValue sets the label at the relative point p.
func (v *Volume) SetValue(p Point, label uint64) {
	v.data[v.Index(p)] = label
}

// Duplicate returns a deep copy of the volume.
func (v *Volume) Duplicate() *Volume {
	data := make([]uint64, len(v.data))
	copy(data, v.data)
	return &Volume{shape: v.shape.Duplicate(), strides: append([]int{}, v.strides...), data: data}
}

// Equals returns true if both volumes have the same shape and labels.
func (v *Volume) Equals(v2 *Volume) bool {
	if !v.shape.Equals(v2.shape) {
		return false
	}
	for i, label := range v.data {
		if v2.data[i] != label {
			return false
		}
	}
	return true
}

// IsZero returns true if every voxel is background.
func (v *Volume) IsZero() bool {
	for _, label := range v.data {
		if label != 0 {
			return false
		}
	}
	return true
}

// SubVolume copies out the box r, given in coordinates relative to the volume.
func (v *Volume) SubVolume(r Region) (*Volume, error) {
	bounds := Region{Offset: make(Point, len(v.shape)), Size: v.shape}
	if !bounds.Contains(r) {
		return nil, fmt.Errorf("subvolume %s outside volume of shape %s", r, v.shape)
	}
	sub, err := NewVolume(r.Size)
	if err != nil {
		return nil, err
	}
	copyBox(sub, make(Point, len(r.Size)), v, r.Offset, r.Size)
	return sub, nil
}

// Paste copies src into the volume with src's first voxel placed at the relative
// point offset.  Any part of src falling outside the volume is an error.
func (v *Volume) Paste(offset Point, src *Volume) error {
	bounds := Region{Offset: make(Point, len(v.shape)), Size: v.shape}
	if !bounds.Contains(Region{Offset: offset, Size: src.shape}) {
		return fmt.Errorf("cannot paste %s volume at %s into volume of shape %s", src.shape, offset, v.shape)
	}
	copyBox(v, offset, src, make(Point, len(src.shape)), src.shape)
	return nil
}

// CopyBox copies the box of the given size from src (at srcOffset) into v (at
// dstOffset).  Both boxes must be within their volumes.
func (v *Volume) CopyBox(dstOffset Point, src *Volume, srcOffset, size Point) error {
	dstBounds := Region{Offset: make(Point, len(v.shape)), Size: v.shape}
	srcBounds := Region{Offset: make(Point, len(src.shape)), Size: src.shape}
	if !dstBounds.Contains(Region{Offset: dstOffset, Size: size}) ||
		!srcBounds.Contains(Region{Offset: srcOffset, Size: size}) {
		return fmt.Errorf("box of size %s does not fit (dst %s @ %s, src %s @ %s)",
			size, v.shape, dstOffset, src.shape, srcOffset)
	}
	copyBox(v, dstOffset, src, srcOffset, size)
	return nil
}

// copyBox copies rows along the last axis.  Bounds are already checked.
func copyBox(dst *Volume, dstOffset Point, src *Volume, srcOffset, size Point) {
	if len(size) == 0 || !size.AllPositive() {
		return
	}
	ndims := len(size)
	rowLen := int(size[ndims-1])
	idx := make(Point, ndims)
	for {
		var di, si int
		for dim := 0; dim < ndims; dim++ {
			di += int(dstOffset[dim]+idx[dim]) * dst.strides[dim]
			si += int(srcOffset[dim]+idx[dim]) * src.strides[dim]
		}
		copy(dst.data[di:di+rowLen], src.data[si:si+rowLen])

		dim := ndims - 2
		for ; dim >= 0; dim-- {
			idx[dim]++
			if idx[dim] < size[dim] {
				break
			}
			idx[dim] = 0
		}
		if dim < 0 {
			return
		}
	}
}

// FaceSlice returns the labels of the outermost slice perpendicular to axis, either
// at index 0 (upper == false) or at the last index (upper == true), in C order.
func (v *Volume) FaceSlice(axis int, upper bool) ([]uint64, error) {
	if axis < 0 || axis >= len(v.shape) {
		return nil, fmt.Errorf("no axis %d in %d-d volume", axis, len(v.shape))
	}
	offset := make(Point, len(v.shape))
	size := v.shape.Duplicate()
	if upper {
		offset[axis] = v.shape[axis] - 1
	}
	size[axis] = 1
	face, err := v.SubVolume(Region{Offset: offset, Size: size})
	if err != nil {
		return nil, err
	}
	return face.data, nil
}

// Bytes returns the labels as packed little-endian uint64.
func (v *Volume) Bytes() []byte {
	buf := make([]byte, 8*len(v.data))
	for i, label := range v.data {
		binary.LittleEndian.PutUint64(buf[i*8:], label)
	}
	return buf
}

// SetBytes replaces the labels with packed little-endian uint64 data.
func (v *Volume) SetBytes(b []byte) error {
	if len(b) != 8*len(v.data) {
		return fmt.Errorf("expected %d bytes for volume of shape %s, got %d", 8*len(v.data), v.shape, len(b))
	}
	for i := range v.data {
		v.data[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return nil
}

func (v *Volume) String() string {
	return fmt.Sprintf("label volume %s", v.shape)
}
