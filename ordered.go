package ndarray

import "fmt"

// Order defines how the pixels of a shape are linearized
type Order int

const (
	// RowMajor means the last axis varies fastest, zarr order "C"
	RowMajor Order = iota
	// ColumnMajor means the first axis varies fastest, zarr order "F"
	ColumnMajor
)

// ParseOrder accepts the zarr order codes "C" and "F"
func ParseOrder(s string) (Order, error) {
	switch s {
	case "C", "":
		return RowMajor, nil
	case "F":
		return ColumnMajor, nil
	default:
		return RowMajor, fmt.Errorf("%w: unknown order %q", ErrInvalidArgument, s)
	}
}

func (o Order) String() string {
	if o == ColumnMajor {
		return "F"
	}
	return "C"
}

// axes returns axis indices from fastest varying to slowest
func (o Order) axes(ndim int) []int {
	ax := make([]int, ndim)
	for i := range ax {
		if o == ColumnMajor {
			ax[i] = i
		} else {
			ax[i] = ndim - 1 - i
		}
	}
	return ax
}

// OrderedShape is a Shape paired with a pixel ordering, giving the fixed
// bijection between positions and offsets in [0, NumPixels())
type OrderedShape struct {
	*Shape
	order   Order
	strides []int64
}

// NewOrderedShape copies sh and attaches a pixel order
func NewOrderedShape(sh Shaper, order Order) (*OrderedShape, error) {
	if order != RowMajor && order != ColumnMajor {
		return nil, fmt.Errorf("%w: unknown order %d", ErrInvalidArgument, order)
	}
	s, err := ShapeOf(sh)
	if err != nil {
		return nil, err
	}

	strides := make([]int64, s.NumDims())
	stride := int64(1)
	for _, ax := range order.axes(s.NumDims()) {
		strides[ax] = stride
		stride *= s.dims[ax]
	}

	return &OrderedShape{Shape: s, order: order, strides: strides}, nil
}

// Order returns the pixel order
func (o *OrderedShape) Order() Order { return o.order }

// Strides returns the offset step for a unit move along each axis
func (o *OrderedShape) Strides() []int64 { return copyInt64s(o.strides) }

// PositionToOffset linearizes a position
func (o *OrderedShape) PositionToOffset(pos []int64) (int64, error) {
	if len(pos) != o.NumDims() {
		return 0, fmt.Errorf("%w: position %s in shape %s", ErrDimMismatch, FormatPosition(pos), o)
	}
	if !o.Contains(pos) {
		return 0, fmt.Errorf("%w: position %s not in shape %s", ErrOutOfRange, FormatPosition(pos), o)
	}
	var off int64
	for i, p := range pos {
		off += (p - o.origin[i]) * o.strides[i]
	}
	return off, nil
}

// OffsetToPosition is the inverse of PositionToOffset
func (o *OrderedShape) OffsetToPosition(off int64) ([]int64, error) {
	if off < 0 || off >= o.npix {
		return nil, fmt.Errorf("%w: offset %d not in [0,%d)", ErrOutOfRange, off, o.npix)
	}
	pos := make([]int64, o.NumDims())
	ax := o.order.axes(o.NumDims())
	for i := len(ax) - 1; i >= 0; i-- {
		a := ax[i]
		pos[a] = o.origin[a] + off/o.strides[a]
		off %= o.strides[a]
	}
	return pos, nil
}

// Equal is strict: other must be an *OrderedShape with the same order, origin
// and extents
func (o *OrderedShape) Equal(other Shaper) bool {
	x, ok := other.(*OrderedShape)
	if !ok || x == nil {
		return false
	}
	return o.order == x.order && o.SameShape(x)
}

func (o *OrderedShape) String() string {
	return o.Shape.String() + o.order.String()
}

// forEachRun visits region as a sequence of runs that are contiguous along the
// fastest axis of order, in linearization order. fn receives the position of
// the first pixel in the run and the run length. pos must not be retained
func forEachRun(region *Shape, order Order, fn func(pos []int64, n int64) error) error {
	ax := order.axes(region.NumDims())
	fast := ax[0]
	n := region.dims[fast]
	pos := region.Origin()

	for {
		if err := fn(pos, n); err != nil {
			return err
		}
		// odometer step over the remaining axes
		i := 1
		for ; i < len(ax); i++ {
			a := ax[i]
			pos[a]++
			if pos[a] < region.limits[a] {
				break
			}
			pos[a] = region.origin[a]
		}
		if i == len(ax) {
			return nil
		}
	}
}
