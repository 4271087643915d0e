package dvid

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is an N-dimensional voxel coordinate or extent.  Axis 0 is the slowest varying
// axis in every dense array of this module (C order), e.g., Z for a ZYX volume.
type Point []int32

// NumDims returns the dimensionality of this point.
func (p Point) NumDims() int {
	return len(p)
}

// Value returns the point's value for the specified dimension without checking dim bounds.
func (p Point) Value(dim int) int32 {
	return p[dim]
}

// Duplicate returns a copy of the point.
func (p Point) Duplicate() Point {
	dup := make(Point, len(p))
	copy(dup, p)
	return dup
}

// Equals returns true if the points have the same dimensionality and values.
func (p Point) Equals(p2 Point) bool {
	if len(p) != len(p2) {
		return false
	}
	for i := range p {
		if p[i] != p2[i] {
			return false
		}
	}
	return true
}

// AddScalar adds a scalar value to every element.
func (p Point) AddScalar(value int32) Point {
	result := make(Point, len(p))
	for i := range p {
		result[i] = p[i] + value
	}
	return result
}

// Add returns the addition of two points.
func (p Point) Add(p2 Point) Point {
	result := make(Point, len(p))
	for i := range p {
		result[i] = p[i] + p2[i]
	}
	return result
}

// Sub returns the subtraction of the passed point from the receiver.
func (p Point) Sub(p2 Point) Point {
	result := make(Point, len(p))
	for i := range p {
		result[i] = p[i] - p2[i]
	}
	return result
}

// Max returns a Point where each of its elements are the maximum of two points' elements.
func (p Point) Max(p2 Point) Point {
	result := make(Point, len(p))
	for i := range p {
		result[i] = max(p[i], p2[i])
	}
	return result
}

// Min returns a Point where each of its elements are the minimum of two points' elements.
func (p Point) Min(p2 Point) Point {
	result := make(Point, len(p))
	for i := range p {
		result[i] = min(p[i], p2[i])
	}
	return result
}

// Prod returns the product of the point elements.
func (p Point) Prod() int64 {
	prod := int64(1)
	for _, val := range p {
		prod *= int64(val)
	}
	return prod
}

// AllPositive returns true if every element is > 0.
func (p Point) AllPositive() bool {
	for _, val := range p {
		if val <= 0 {
			return false
		}
	}
	return true
}

func (p Point) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, val := range p {
		if i != 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(val)))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Uniform returns an n-d point with every element set to value.
func Uniform(n int, value int32) Point {
	p := make(Point, n)
	for i := range p {
		p[i] = value
	}
	return p
}

// StringToPoint parses a string of format "%d<sep>%d<sep>%d,..." into a Point.
func StringToPoint(str, separator string) (Point, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, fmt.Errorf("cannot convert empty string into a Point")
	}
	elems := strings.Split(str, separator)
	p := make(Point, len(elems))
	for i, elem := range elems {
		val, err := strconv.ParseInt(strings.TrimSpace(elem), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q into a Point: %v", str, err)
		}
		p[i] = int32(val)
	}
	return p, nil
}

// SliceToPoint converts integers, e.g., from decoded JSON or TOML, into a Point.
func SliceToPoint(coord []int64) (Point, error) {
	if len(coord) == 0 {
		return nil, fmt.Errorf("cannot convert 0 integers into a Point")
	}
	p := make(Point, len(coord))
	for i, c := range coord {
		if c != int64(int32(c)) {
			return nil, fmt.Errorf("coordinate %d of %v overflows 32 bits", i, coord)
		}
		p[i] = int32(c)
	}
	return p, nil
}
