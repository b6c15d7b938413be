package ndarray

import (
	"fmt"
	"reflect"
)

// WindowArray is a virtual array presenting the pixels of a base array through
// a different shape of the same dimensionality. Pixels of the window outside
// the base read as the base's fill value; writes to them are discarded
type WindowArray struct {
	base *Array
	desc Description
}

var _ ArrayImpl = (*WindowArray)(nil)

// NewWindowArray creates a window onto base. The window uses base's pixel
// order. base must support random access
func NewWindowArray(base *Array, window Shaper) (*WindowArray, error) {
	bdesc := base.Description()
	if !bdesc.Random {
		return nil, fmt.Errorf("%w: window needs a random access base array", ErrNotRandom)
	}
	shape, err := NewOrderedShape(window, bdesc.Shape.Order())
	if err != nil {
		return nil, err
	}
	if shape.NumDims() != bdesc.Shape.NumDims() {
		return nil, fmt.Errorf("%w: window %s over base %s", ErrDimMismatch, shape, bdesc.Shape)
	}
	if _, err := fillValue(bdesc.Dtype, bdesc.Fill); err != nil {
		return nil, err
	}

	desc := bdesc
	desc.Shape = shape
	return &WindowArray{base: base, desc: desc}, nil
}

func (w *WindowArray) Description() Description { return w.desc }

// MultipleAccess is true: every window session opens its own base session
func (w *WindowArray) MultipleAccess() bool { return true }

// Close doesn't close the base array, which may have other users
func (w *WindowArray) Close() error { return nil }

func (w *WindowArray) NewAccess() (AccessImpl, error) {
	acc, err := w.base.Access()
	if err != nil {
		return nil, err
	}
	fill, _ := fillValue(w.desc.Dtype, w.desc.Fill)
	return &windowAccess{
		win:  w.desc.Shape,
		base: acc,
		fill: fill,
	}, nil
}

type windowAccess struct {
	win    *OrderedShape
	base   ArrayAccess
	fill   reflect.Value
	offset int64
}

func (a *windowAccess) SetOffset(off int64) error {
	if off < 0 || off > a.win.NumPixels() {
		return fmt.Errorf("%w: offset %d", ErrOutOfRange, off)
	}
	a.offset = off
	return nil
}

func (a *windowAccess) Read(buf interface{}, start, size int) error {
	return a.runs(size, func(bufStart, n int, inside bool, basePos []int64) error {
		if !inside {
			fillPixels(buf, start+bufStart, n, a.fill)
			return nil
		}
		if err := a.base.SetPosition(basePos); err != nil {
			return err
		}
		return a.base.Read(buf, start+bufStart, n)
	})
}

func (a *windowAccess) Write(buf interface{}, start, size int) error {
	return a.runs(size, func(bufStart, n int, inside bool, basePos []int64) error {
		if !inside {
			return nil
		}
		if err := a.base.SetPosition(basePos); err != nil {
			return err
		}
		return a.base.Write(buf, start+bufStart, n)
	})
}

// runs splits size pixels from the cursor into pieces that are either wholly
// inside or wholly outside the base array, and advances the cursor. Window
// positions are in the base's coordinate space
func (a *windowAccess) runs(size int, fn func(bufStart, n int, inside bool, basePos []int64) error) error {
	bshape := a.base.Shape()
	fast := a.win.Order().axes(a.win.NumDims())[0]
	done := 0

	for done < size {
		pos, err := a.win.OffsetToPosition(a.offset)
		if err != nil {
			return err
		}
		runStart := pos[fast]
		runEnd := min64(a.win.limits[fast], runStart+int64(size-done))

		// [lo,hi) is the part of the run inside the base
		lo, hi := runEnd, runEnd
		pos[fast] = bshape.origin[fast]
		if bshape.Contains(pos) {
			lo = min64(max64(runStart, bshape.origin[fast]), runEnd)
			hi = max64(min64(runEnd, bshape.limits[fast]), lo)
		}

		if lo > runStart {
			if err := fn(done, int(lo-runStart), false, nil); err != nil {
				return err
			}
		}
		if hi > lo {
			pos[fast] = lo
			if err := fn(done+int(lo-runStart), int(hi-lo), true, pos); err != nil {
				return err
			}
		}
		if runEnd > hi {
			if err := fn(done+int(hi-runStart), int(runEnd-hi), false, nil); err != nil {
				return err
			}
		}

		n := runEnd - runStart
		done += int(n)
		a.offset += n
	}
	return nil
}

func (a *windowAccess) Close() error {
	return a.base.Close()
}
