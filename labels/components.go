package labels

import (
	"fmt"

	"github.com/janelia-flyem/cclabels/dvid"
)

// ConnectedComponents labels the connected components of the volume using face
// adjacency: two voxels are connected if they differ by one along exactly one axis
// and hold the same nonzero value.  Components get labels 1..L in the order their
// first voxel appears in C order, so the result is a pure function of the input.
// Background (0) stays 0.  Returns the component volume and L.
func ConnectedComponents(v *dvid.Volume) (*dvid.Volume, uint64, error) {
	if v == nil {
		return nil, 0, fmt.Errorf("cannot label nil volume")
	}
	data := v.Data()
	shape := v.Shape()
	strides := v.Strides()
	ndims := len(shape)

	// parent holds voxel index + 1, with 0 meaning background.
	parent := make([]int, len(data))
	find := func(i int) int {
		for parent[i]-1 != i {
			gp := parent[parent[i]-1] - 1
			parent[i] = gp + 1
			i = gp
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		switch {
		case ra == rb:
		case ra < rb:
			parent[rb] = ra + 1
		default:
			parent[ra] = rb + 1
		}
	}

	idx := make([]int32, ndims)
	for i, value := range data {
		if value != 0 {
			parent[i] = i + 1
			for dim := 0; dim < ndims; dim++ {
				if idx[dim] == 0 {
					continue
				}
				j := i - strides[dim]
				if data[j] == value {
					union(i, j)
				}
			}
		}
		for dim := ndims - 1; dim >= 0; dim-- {
			idx[dim]++
			if idx[dim] < shape[dim] {
				break
			}
			idx[dim] = 0
		}
	}

	out, err := dvid.NewVolume(shape)
	if err != nil {
		return nil, 0, err
	}
	comps := out.Data()
	var numLabels uint64
	for i := range data {
		if parent[i] == 0 {
			continue
		}
		root := find(i)
		if root == i {
			numLabels++
			comps[i] = numLabels
		} else {
			// roots always precede their members in scan order
			comps[i] = comps[root]
		}
	}
	return out, numLabels, nil
}
