package ndarray

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Array hands out access sessions onto a storage back-end, picking the session
// kind the back-end can support:
//   - back-ends with MultipleAccess get an independent capability per session
//   - random-access back-ends with a single capability share it between
//     multiplexed sessions
//   - sequential back-ends with a single capability allow one session, ever
type Array struct {
	impl ArrayImpl
	desc Description

	mu     sync.Mutex
	shared *SharedImpl
	used   bool
	closed bool
}

// NewArray wraps a back-end
func NewArray(impl ArrayImpl) *Array {
	return &Array{impl: impl, desc: impl.Description()}
}

// Description returns the array's characteristics
func (a *Array) Description() Description { return a.desc }

// Shape returns the array's shape and pixel order
func (a *Array) Shape() *OrderedShape { return a.desc.Shape }

// Dtype returns the pixel type
func (a *Array) Dtype() Dtype { return a.desc.Dtype }

// Impl returns the back-end
func (a *Array) Impl() ArrayImpl { return a.impl }

func (a *Array) String() string {
	return fmt.Sprintf("<ndarray.Array %s %s>", a.desc.Shape, a.desc.Dtype)
}

// Access opens a new session onto the array. Callers must Close it
func (a *Array) Access() (ArrayAccess, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}

	switch {
	case a.impl.MultipleAccess():
		impl, err := a.impl.NewAccess()
		if err != nil {
			return nil, err
		}
		return NewAccess(a.desc, impl)

	case a.desc.Random:
		// the shared capability may be torn down by its last session closing
		// between our check and acquire, so retry once with a fresh one
		for i := 0; i < 2; i++ {
			if a.shared == nil || a.shared.Closed() {
				impl, err := a.impl.NewAccess()
				if err != nil {
					return nil, err
				}
				a.shared = NewSharedImpl(impl)
			}
			acc, err := NewMultiplexAccess(a.desc, a.shared)
			if errors.Is(err, ErrClosed) {
				a.shared = nil
				continue
			}
			return acc, err
		}
		return nil, fmt.Errorf("%w: shared capability torn down during access", ErrClosed)

	default:
		if a.used {
			return nil, fmt.Errorf("%w: sequential array allows a single access", ErrUnsupported)
		}
		impl, err := a.impl.NewAccess()
		if err != nil {
			return nil, err
		}
		a.used = true
		return NewAccess(a.desc, impl)
	}
}

// Close releases the back-end. Sessions should be closed first
func (a *Array) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	if a.shared != nil && a.shared.Sessions() > 0 {
		log.WithFields(logrus.Fields{"array": a, "sessions": a.shared.Sessions()}).Warn("closing array with open sessions")
	}
	return a.impl.Close()
}

// ReadAll reads every pixel into a new buffer, streaming in chunks of the
// default chunk size
func (a *Array) ReadAll() (interface{}, error) {
	npix := a.desc.Shape.NumPixels()
	if npix > int64(maxInt) {
		return nil, fmt.Errorf("%w: %d pixels is too many to read into one buffer", ErrOutOfRange, npix)
	}
	buf, err := a.desc.Dtype.NewBuffer(int(npix))
	if err != nil {
		return nil, err
	}

	acc, err := a.Access()
	if err != nil {
		return nil, err
	}
	defer acc.Close()

	it, err := NewChunkIterator(npix)
	if err != nil {
		return nil, err
	}
	for ; it.HasNext(); it.Next() {
		if err := acc.Read(buf, int(it.Base()), it.Size()); err != nil {
			return nil, fmt.Errorf("reading chunk at %d: %w", it.Base(), err)
		}
	}
	return buf, nil
}

// Copy streams every pixel of src into dst. The arrays must have the same
// shape and order; pixel types are converted when they differ
func Copy(dst, src *Array) error {
	if !dst.Shape().SameShape(src.Shape()) || dst.Shape().Order() != src.Shape().Order() {
		return fmt.Errorf("%w: copying %s into %s", ErrInvalidArgument, src.Shape(), dst.Shape())
	}

	in, err := src.Access()
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := dst.Access()
	if err != nil {
		return err
	}
	defer out.Close()

	it, err := NewChunkIterator(src.Shape().NumPixels())
	if err != nil {
		return err
	}
	inBuf, err := src.Dtype().NewBuffer(it.Size())
	if err != nil {
		return err
	}
	outBuf := inBuf
	if src.Dtype() != dst.Dtype() {
		if outBuf, err = dst.Dtype().NewBuffer(it.Size()); err != nil {
			return err
		}
	}

	for ; it.HasNext(); it.Next() {
		n := it.Size()
		if err := in.Read(inBuf, 0, n); err != nil {
			return fmt.Errorf("reading chunk at %d: %w", it.Base(), err)
		}
		if err := ConvertPixels(outBuf, inBuf, n); err != nil {
			return err
		}
		if err := out.Write(outBuf, 0, n); err != nil {
			return fmt.Errorf("writing chunk at %d: %w", it.Base(), err)
		}
	}
	// closing may flush buffered pixels, so its error matters. the deferred
	// Close then reports ErrClosed, which is dropped
	return out.Close()
}
