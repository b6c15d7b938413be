package ndarray

import (
	"fmt"
	"io"
)

// StreamArray reads or writes pixels strictly in order through an io.Reader
// or io.Writer. It supports a single session and forward-only seeks
type StreamArray struct {
	r    io.Reader
	w    io.Writer
	desc Description
}

var _ ArrayImpl = (*StreamArray)(nil)

// NewStreamReader creates a read-only sequential array
func NewStreamReader(r io.Reader, shape *OrderedShape, dt Dtype) (*StreamArray, error) {
	if _, err := dt.GoType(); err != nil {
		return nil, err
	}
	return &StreamArray{
		r:    r,
		desc: Description{Shape: shape, Dtype: dt, Readable: true},
	}, nil
}

// NewStreamWriter creates a write-only sequential array
func NewStreamWriter(w io.Writer, shape *OrderedShape, dt Dtype) (*StreamArray, error) {
	if _, err := dt.GoType(); err != nil {
		return nil, err
	}
	return &StreamArray{
		w:    w,
		desc: Description{Shape: shape, Dtype: dt, Writable: true},
	}, nil
}

func (s *StreamArray) Description() Description { return s.desc }
func (s *StreamArray) MultipleAccess() bool     { return false }
func (s *StreamArray) Close() error             { return nil }

func (s *StreamArray) NewAccess() (AccessImpl, error) {
	return &streamAccess{arr: s}, nil
}

type streamAccess struct {
	arr *StreamArray
	pos int64
}

// SetOffset allows staying put or, for readers, skipping forward
func (a *streamAccess) SetOffset(off int64) error {
	switch {
	case off == a.pos:
		return nil
	case off > a.pos && a.arr.r != nil:
		skip := (off - a.pos) * int64(a.arr.desc.Dtype.ByteSize)
		if _, err := io.CopyN(io.Discard, a.arr.r, skip); err != nil {
			return fmt.Errorf("skipping to offset %d: %w", off, err)
		}
		a.pos = off
		return nil
	default:
		return fmt.Errorf("%w: can't move stream from offset %d to %d", ErrNotRandom, a.pos, off)
	}
}

func (a *streamAccess) Read(buf interface{}, start, size int) error {
	if a.arr.r == nil {
		return fmt.Errorf("%w: stream is write-only", ErrUnsupported)
	}
	dt := a.arr.desc.Dtype
	raw := make([]byte, size*dt.ByteSize)
	if _, err := io.ReadFull(a.arr.r, raw); err != nil {
		return err
	}
	if err := decodePixels(dt, raw, buf, start, size); err != nil {
		return err
	}
	a.pos += int64(size)
	return nil
}

func (a *streamAccess) Write(buf interface{}, start, size int) error {
	if a.arr.w == nil {
		return fmt.Errorf("%w: stream is read-only", ErrUnsupported)
	}
	raw, err := encodePixels(a.arr.desc.Dtype, buf, start, size)
	if err != nil {
		return err
	}
	if _, err := a.arr.w.Write(raw); err != nil {
		return err
	}
	a.pos += int64(size)
	return nil
}

type flusher interface {
	Flush() error
}

// Close flushes buffered writers, eg. a *bufio.Writer
func (a *streamAccess) Close() error {
	if f, ok := a.arr.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
