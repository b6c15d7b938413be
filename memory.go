package ndarray

import "fmt"

// MemoryArray keeps all pixels in a single typed slice. Every session gets its
// own cursor over the same slice
type MemoryArray struct {
	desc Description
	data interface{}
}

var _ ArrayImpl = (*MemoryArray)(nil)

// NewMemoryArray creates an in-memory array. data may be nil, in which case a
// zeroed slice is allocated, otherwise it must be a slice of dt's Go type
// holding exactly shape.NumPixels() pixels. data is not copied
func NewMemoryArray(shape *OrderedShape, dt Dtype, data interface{}) (*MemoryArray, error) {
	if shape == nil {
		return nil, fmt.Errorf("%w: nil shape", ErrInvalidArgument)
	}
	npix := shape.NumPixels()
	if npix > int64(maxInt) {
		return nil, fmt.Errorf("%w: %d pixels don't fit in memory", ErrOutOfRange, npix)
	}

	if data == nil {
		var err error
		if data, err = dt.NewBuffer(int(npix)); err != nil {
			return nil, err
		}
	} else {
		v, err := checkBuffer(dt, data)
		if err != nil {
			return nil, err
		}
		if int64(v.Len()) != npix {
			return nil, fmt.Errorf("%w: %d pixels of data for shape %s", ErrInvalidArgument, v.Len(), shape)
		}
	}

	return &MemoryArray{
		desc: Description{
			Shape:    shape,
			Dtype:    dt,
			Random:   true,
			Readable: true,
			Writable: true,
		},
		data: data,
	}, nil
}

// NewMemoryArrayOf infers the pixel type from data
func NewMemoryArrayOf(shape *OrderedShape, data interface{}) (*MemoryArray, error) {
	dt, err := DtypeOf(data)
	if err != nil {
		return nil, err
	}
	return NewMemoryArray(shape, dt, data)
}

func (m *MemoryArray) Description() Description { return m.desc }
func (m *MemoryArray) MultipleAccess() bool     { return true }
func (m *MemoryArray) Close() error             { return nil }

// Data returns the backing slice
func (m *MemoryArray) Data() interface{} { return m.data }

func (m *MemoryArray) NewAccess() (AccessImpl, error) {
	return &memoryAccess{arr: m, npix: m.desc.Shape.NumPixels()}, nil
}

type memoryAccess struct {
	arr    *MemoryArray
	npix   int64
	offset int64
}

var _ TileAccessImpl = (*memoryAccess)(nil)

func (m *memoryAccess) SetOffset(off int64) error {
	if off < 0 || off > m.npix {
		return fmt.Errorf("%w: offset %d", ErrOutOfRange, off)
	}
	m.offset = off
	return nil
}

func (m *memoryAccess) Read(buf interface{}, start, size int) error {
	if int64(size) > m.npix-m.offset {
		return fmt.Errorf("%w: read past end", ErrOutOfRange)
	}
	copyPixels(buf, start, m.arr.data, int(m.offset), size)
	m.offset += int64(size)
	return nil
}

func (m *memoryAccess) Write(buf interface{}, start, size int) error {
	if int64(size) > m.npix-m.offset {
		return fmt.Errorf("%w: write past end", ErrOutOfRange)
	}
	copyPixels(m.arr.data, int(m.offset), buf, start, size)
	m.offset += int64(size)
	return nil
}

func (m *memoryAccess) ReadTile(buf interface{}, tile *Shape) error {
	return m.tile(tile, func(arrOff, tileOff, n int) {
		copyPixels(buf, tileOff, m.arr.data, arrOff, n)
	})
}

func (m *memoryAccess) WriteTile(buf interface{}, tile *Shape) error {
	return m.tile(tile, func(arrOff, tileOff, n int) {
		copyPixels(m.arr.data, arrOff, buf, tileOff, n)
	})
}

func (m *memoryAccess) tile(tile *Shape, move func(arrOff, tileOff, n int)) error {
	shape := m.arr.desc.Shape
	t, err := NewOrderedShape(tile, shape.Order())
	if err != nil {
		return err
	}
	return forEachRun(tile, shape.Order(), func(pos []int64, n int64) error {
		arrOff, err := shape.PositionToOffset(pos)
		if err != nil {
			return err
		}
		tileOff, err := t.PositionToOffset(pos)
		if err != nil {
			return err
		}
		move(int(arrOff), int(tileOff), int(n))
		return nil
	})
}

func (m *memoryAccess) Close() error { return nil }

const maxInt = int(^uint(0) >> 1)
