package ndarray

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Shaper is anything that describes a rectangular region of N-dimensional
// integer coordinate space. Implementations must return copies
type Shaper interface {
	Origin() []int64
	Dims() []int64
}

// Shape is an immutable N-dimensional hypercuboid of pixels. A pixel at
// position pos is inside the shape when origin[i] <= pos[i] < origin[i]+dims[i]
// on every axis
type Shape struct {
	origin []int64
	dims   []int64

	// derived state, computed once
	limits []int64
	ubnds  []int64
	npix   int64
}

var (
	_ Shaper       = (*Shape)(nil)
	_ fmt.Stringer = (*Shape)(nil)
)

// NewShape creates a shape from an origin and per-axis extents. Both slices
// are copied
func NewShape(origin, dims []int64) (*Shape, error) {
	if len(origin) != len(dims) {
		return nil, fmt.Errorf("%w: origin has %d elements, dims has %d", ErrInvalidShape, len(origin), len(dims))
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: zero dimensions", ErrInvalidShape)
	}

	s := &Shape{
		origin: copyInt64s(origin),
		dims:   copyInt64s(dims),
		limits: make([]int64, len(dims)),
		ubnds:  make([]int64, len(dims)),
	}

	np := int64(1)
	for i, d := range s.dims {
		if d < 1 {
			return nil, fmt.Errorf("%w: extent %d on axis %d is less than 1", ErrInvalidShape, d, i)
		}
		if s.origin[i] > math.MaxInt64-d {
			return nil, fmt.Errorf("%w: limit on axis %d overflows", ErrInvalidShape, i)
		}
		if np > math.MaxInt64/d {
			return nil, fmt.Errorf("%w: pixel count overflows", ErrInvalidShape)
		}
		s.limits[i] = s.origin[i] + d
		s.ubnds[i] = s.limits[i] - 1
		np *= d
	}
	s.npix = np

	return s, nil
}

// MustShape is NewShape for literal shapes, it panics on error
func MustShape(origin, dims []int64) *Shape {
	s, err := NewShape(origin, dims)
	if err != nil {
		panic(err)
	}
	return s
}

// ShapeOf copies the origin and extents of any Shaper into a plain Shape
func ShapeOf(sh Shaper) (*Shape, error) {
	return NewShape(sh.Origin(), sh.Dims())
}

// Origin returns the coordinates of the first pixel
func (s *Shape) Origin() []int64 { return copyInt64s(s.origin) }

// Dims returns the extent of each axis
func (s *Shape) Dims() []int64 { return copyInt64s(s.dims) }

// Limits returns the exclusive upper bound of each axis, origin+dims
func (s *Shape) Limits() []int64 { return copyInt64s(s.limits) }

// UpperBounds returns the inclusive upper bound of each axis, origin+dims-1
func (s *Shape) UpperBounds() []int64 { return copyInt64s(s.ubnds) }

// NumDims returns the dimensionality
func (s *Shape) NumDims() int { return len(s.dims) }

// NumPixels returns the number of pixels in the shape
func (s *Shape) NumPixels() int64 { return s.npix }

// Intersection returns the region common to s and other. A nil shape with a
// nil error means the two regions share no pixels
func (s *Shape) Intersection(other Shaper) (*Shape, error) {
	oOrigin, oDims := other.Origin(), other.Dims()
	if len(oDims) != len(s.dims) {
		return nil, fmt.Errorf("%w: %s and %s", ErrDimMismatch, s, formatShape(oOrigin, oDims))
	}

	origin := make([]int64, len(s.dims))
	dims := make([]int64, len(s.dims))
	for i := range s.dims {
		origin[i] = max64(s.origin[i], oOrigin[i])
		limit := min64(s.limits[i], oOrigin[i]+oDims[i])
		dims[i] = limit - origin[i]
		if dims[i] <= 0 {
			return nil, nil
		}
	}
	return NewShape(origin, dims)
}

// Union returns the smallest shape containing every pixel of s and other
func (s *Shape) Union(other Shaper) (*Shape, error) {
	oOrigin, oDims := other.Origin(), other.Dims()
	if len(oDims) != len(s.dims) {
		return nil, fmt.Errorf("%w: %s and %s", ErrDimMismatch, s, formatShape(oOrigin, oDims))
	}

	origin := make([]int64, len(s.dims))
	dims := make([]int64, len(s.dims))
	for i := range s.dims {
		origin[i] = min64(s.origin[i], oOrigin[i])
		limit := max64(s.limits[i], oOrigin[i]+oDims[i])
		dims[i] = limit - origin[i]
		if dims[i] < 1 {
			return nil, fmt.Errorf("%w: union extent on axis %d overflows", ErrInvalidShape, i)
		}
	}
	return NewShape(origin, dims)
}

// Contains reports whether pos lies within the shape. Positions of the wrong
// dimensionality are never contained
func (s *Shape) Contains(pos []int64) bool {
	if len(pos) != len(s.dims) {
		return false
	}
	for i, p := range pos {
		if p < s.origin[i] || p >= s.limits[i] {
			return false
		}
	}
	return true
}

// SameShape compares origin and extents only, ignoring the concrete type of
// other. Use it to compare a Shape with an OrderedShape
func (s *Shape) SameShape(other Shaper) bool {
	if other == nil {
		return false
	}
	return equalInt64s(s.origin, other.Origin()) && equalInt64s(s.dims, other.Dims())
}

// Equal is strict: other must be a *Shape (not an OrderedShape or any other
// Shaper) with the same origin and extents
func (s *Shape) Equal(other Shaper) bool {
	o, ok := other.(*Shape)
	if !ok || o == nil {
		return false
	}
	return equalInt64s(s.origin, o.origin) && equalInt64s(s.dims, o.dims)
}

// String renders a shape like "(10+5,20+8)" for origin (10,20) and dims (5,8)
func (s *Shape) String() string {
	return formatShape(s.origin, s.dims)
}

func formatShape(origin, dims []int64) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := range dims {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(origin[i], 10))
		sb.WriteByte('+')
		sb.WriteString(strconv.FormatInt(dims[i], 10))
	}
	sb.WriteByte(')')
	return sb.String()
}

// FormatPosition renders a position vector like "(10,20,23)"
func FormatPosition(pos []int64) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range pos {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(p, 10))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Int32sToInt64s widens a slice of 32-bit coordinates
func Int32sToInt64s(in []int32) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

// IntsToInt64s widens a slice of platform ints, as used by zarr metadata
func IntsToInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

// Int64sToInt32s narrows a slice of coordinates, failing with ErrOutOfRange
// rather than truncating
func Int64sToInt32s(in []int64) ([]int32, error) {
	out := make([]int32, len(in))
	for i, v := range in {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: value %d at index %d exceeds 32-bit range", ErrOutOfRange, v, i)
		}
		out[i] = int32(v)
	}
	return out, nil
}

func copyInt64s(in []int64) []int64 {
	out := make([]int64, len(in))
	copy(out, in)
	return out
}

func equalInt64s(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
