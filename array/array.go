/*
Package array provides addressable N-d label arrays: a dense in-memory array and a
chunked array persisted through any storage.KeyValueDB.

Reads may extend past an array's bounds; voxels outside read as background (0).
Writes must lie within bounds.
*/
package array

import (
	"context"
	"fmt"
	"sync"

	"github.com/janelia-flyem/cclabels/dvid"
)

// Array is a label array addressable by region.
type Array interface {
	// Bounds returns the region of voxels held by the array.
	Bounds() dvid.Region

	// Read returns the labels within r.  Voxels outside Bounds() are 0.
	Read(ctx context.Context, r dvid.Region) (*dvid.Volume, error)

	// Write stores v at r, which must lie within Bounds() and match v's shape.
	// When Write returns, a subsequent Read observes the new labels.
	Write(ctx context.Context, r dvid.Region, v *dvid.Volume) error
}

func checkRead(bounds, r dvid.Region) error {
	if r.NumDims() != bounds.NumDims() {
		return fmt.Errorf("read of %d-d region %s from %d-d array", r.NumDims(), r, bounds.NumDims())
	}
	if r.Empty() {
		return fmt.Errorf("cannot read empty region %s", r)
	}
	return nil
}

func checkWrite(bounds, r dvid.Region, v *dvid.Volume) error {
	if v == nil {
		return fmt.Errorf("cannot write nil volume")
	}
	if !bounds.Contains(r) {
		return fmt.Errorf("write region %s outside array bounds %s", r, bounds)
	}
	if !v.Shape().Equals(r.Size) {
		return fmt.Errorf("volume of shape %s does not match write region %s", v.Shape(), r)
	}
	return nil
}

// Memory is a dense in-memory Array.
type Memory struct {
	mu     sync.RWMutex
	bounds dvid.Region
	vol    *dvid.Volume
}

// NewMemory returns an all-background array with the given bounds.
func NewMemory(bounds dvid.Region) (*Memory, error) {
	vol, err := dvid.NewVolume(bounds.Size)
	if err != nil {
		return nil, err
	}
	return &Memory{bounds: bounds, vol: vol}, nil
}

// NewMemoryFromVolume returns an array holding a copy of v with its first voxel at
// offset.
func NewMemoryFromVolume(offset dvid.Point, v *dvid.Volume) (*Memory, error) {
	bounds, err := dvid.NewRegion(offset, v.Shape())
	if err != nil {
		return nil, err
	}
	return &Memory{bounds: bounds, vol: v.Duplicate()}, nil
}

func (m *Memory) Bounds() dvid.Region {
	return m.bounds
}

// Volume returns a copy of the whole array.
func (m *Memory) Volume() *dvid.Volume {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vol.Duplicate()
}

func (m *Memory) Read(ctx context.Context, r dvid.Region) (*dvid.Volume, error) {
	if err := checkRead(m.bounds, r); err != nil {
		return nil, err
	}
	out, err := dvid.NewVolume(r.Size)
	if err != nil {
		return nil, err
	}
	inter := r.Intersect(m.bounds)
	if inter.Empty() {
		return out, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := out.CopyBox(inter.Offset.Sub(r.Offset), m.vol, inter.Offset.Sub(m.bounds.Offset), inter.Size); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Memory) Write(ctx context.Context, r dvid.Region, v *dvid.Volume) error {
	if err := checkWrite(m.bounds, r, v); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vol.Paste(r.Offset.Sub(m.bounds.Offset), v)
}

func (m *Memory) String() string {
	return fmt.Sprintf("memory array %s", m.bounds)
}
