package ndarray

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampArray is an in-memory int32 array whose pixel at offset i holds i
func rampArray(t *testing.T, origin, dims []int64, order Order) *MemoryArray {
	t.Helper()
	shape, err := NewOrderedShape(MustShape(origin, dims), order)
	require.NoError(t, err)
	data := make([]int32, shape.NumPixels())
	for i := range data {
		data[i] = int32(i)
	}
	m, err := NewMemoryArrayOf(shape, data)
	require.NoError(t, err)
	return m
}

func TestAccessSequential(t *testing.T) {
	arr := NewArray(rampArray(t, []int64{0, 0}, []int64{4, 5}, RowMajor))
	acc, err := arr.Access()
	require.NoError(t, err)
	defer acc.Close()

	assert.Equal(t, int64(0), acc.Offset())
	assert.True(t, acc.IsRandom())
	assert.True(t, acc.IsReadable())
	assert.True(t, acc.IsWritable())

	buf := make([]int32, 8)
	require.NoError(t, acc.Read(buf, 2, 6))
	assert.Equal(t, []int32{0, 0, 0, 1, 2, 3, 4, 5}, buf)
	assert.Equal(t, int64(6), acc.Offset())
	assert.Equal(t, []int64{1, 1}, acc.Position())

	require.NoError(t, acc.SetPosition([]int64{3, 4}))
	assert.Equal(t, int64(19), acc.Offset())
	require.NoError(t, acc.Read(buf, 0, 1))
	assert.Equal(t, int32(19), buf[0])

	// a transfer ending on the last pixel leaves the cursor at the end
	assert.Equal(t, int64(20), acc.Offset())
	assert.Nil(t, acc.Position())
	assert.ErrorIs(t, acc.Read(buf, 0, 1), ErrOutOfRange)

	// zero length transfers succeed anywhere
	assert.NoError(t, acc.Read(buf, 0, 0))
}

func TestAccessBounds(t *testing.T) {
	arr := NewArray(rampArray(t, []int64{0}, []int64{10}, RowMajor))
	acc, err := arr.Access()
	require.NoError(t, err)
	defer acc.Close()

	assert.ErrorIs(t, acc.SetOffset(-1), ErrOutOfRange)
	assert.ErrorIs(t, acc.SetOffset(10), ErrOutOfRange)
	require.NoError(t, acc.SetOffset(9))

	buf := make([]int32, 4)
	assert.ErrorIs(t, acc.Read(buf, 0, 2), ErrOutOfRange)
	assert.Equal(t, int64(9), acc.Offset(), "failed transfer must not move the cursor")

	require.NoError(t, acc.SetOffset(0))
	assert.ErrorIs(t, acc.Read(buf, 3, 2), ErrOutOfRange)
	assert.ErrorIs(t, acc.Read(buf, -1, 1), ErrOutOfRange)
	assert.ErrorIs(t, acc.Read(make([]float64, 4), 0, 1), ErrBufferType)
	assert.ErrorIs(t, acc.SetPosition([]int64{0, 0}), ErrDimMismatch)
	assert.ErrorIs(t, acc.SetPosition([]int64{10}), ErrOutOfRange)
}

func TestAccessWrite(t *testing.T) {
	m := rampArray(t, []int64{0, 0}, []int64{2, 3}, ColumnMajor)
	arr := NewArray(m)
	acc, err := arr.Access()
	require.NoError(t, err)

	require.NoError(t, acc.SetPosition([]int64{1, 1}))
	assert.Equal(t, int64(3), acc.Offset())
	require.NoError(t, acc.Write([]int32{-1, -2}, 0, 2))
	require.NoError(t, acc.Close())

	assert.Equal(t, []int32{0, 1, 2, -1, -2, 5}, m.Data())
}

func TestAccessClosed(t *testing.T) {
	arr := NewArray(rampArray(t, []int64{0}, []int64{10}, RowMajor))
	acc, err := arr.Access()
	require.NoError(t, err)
	require.NoError(t, acc.Close())

	buf := make([]int32, 10)
	tile := MustShape([]int64{0}, []int64{2})
	// every call keeps failing, not just the first
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, acc.Close(), ErrClosed)
		assert.ErrorIs(t, acc.SetOffset(0), ErrClosed)
		assert.ErrorIs(t, acc.SetPosition([]int64{0}), ErrClosed)
		assert.ErrorIs(t, acc.Read(buf, 0, 1), ErrClosed)
		assert.ErrorIs(t, acc.Write(buf, 0, 1), ErrClosed)
		assert.ErrorIs(t, acc.ReadTile(buf, tile), ErrClosed)
		assert.ErrorIs(t, acc.WriteTile(buf, tile), ErrClosed)
		assert.Equal(t, int64(-1), acc.Offset())
		assert.Nil(t, acc.Position())
	}
}

func TestAccessTiles(t *testing.T) {
	// 4x5 row major ramp at origin (10,20)
	m := rampArray(t, []int64{10, 20}, []int64{4, 5}, RowMajor)
	arr := NewArray(m)
	acc, err := arr.Access()
	require.NoError(t, err)
	defer acc.Close()

	require.NoError(t, acc.SetOffset(7))

	t.Run("inside", func(t *testing.T) {
		buf := make([]int32, 6)
		require.NoError(t, acc.ReadTile(buf, MustShape([]int64{11, 21}, []int64{2, 3})))
		assert.Equal(t, []int32{6, 7, 8, 11, 12, 13}, buf)
		assert.Equal(t, int64(7), acc.Offset(), "tiles must not move the cursor")
	})

	t.Run("partial", func(t *testing.T) {
		buf := make([]int32, 4)
		for i := range buf {
			buf[i] = 99
		}
		// covers (9..10, 23..24), only row 10 is inside
		require.NoError(t, acc.ReadTile(buf, MustShape([]int64{9, 23}, []int64{2, 2})))
		assert.Equal(t, []int32{0, 0, 3, 4}, buf)
	})

	t.Run("partial write", func(t *testing.T) {
		require.NoError(t, acc.WriteTile([]int32{-1, -2, -3, -4}, MustShape([]int64{13, 24}, []int64{2, 2})))
		data := m.Data().([]int32)
		assert.Equal(t, int32(-1), data[19])
		assert.Equal(t, int32(18), data[18])
	})

	t.Run("no overlap", func(t *testing.T) {
		buf := make([]int32, 4)
		assert.ErrorIs(t, acc.ReadTile(buf, MustShape([]int64{0, 0}, []int64{2, 2})), ErrOutOfRange)
	})

	t.Run("dim mismatch", func(t *testing.T) {
		buf := make([]int32, 4)
		assert.ErrorIs(t, acc.ReadTile(buf, MustShape([]int64{10}, []int64{2})), ErrDimMismatch)
	})

	t.Run("small buffer", func(t *testing.T) {
		buf := make([]int32, 3)
		assert.ErrorIs(t, acc.ReadTile(buf, MustShape([]int64{10, 20}, []int64{2, 2})), ErrOutOfRange)
	})

	// the cursor still reads where it was left
	buf := make([]int32, 1)
	require.NoError(t, acc.Read(buf, 0, 1))
	assert.Equal(t, int32(7), buf[0])
}

// seqImpl is a capability without tile support, exercising the run-by-run
// tile path
type seqImpl struct {
	AccessImpl
}

func TestAccessTileFallback(t *testing.T) {
	m := rampArray(t, []int64{0, 0}, []int64{3, 3}, ColumnMajor)
	impl, err := m.NewAccess()
	require.NoError(t, err)
	desc := m.Description()
	desc.Fill = 7

	acc, err := NewAccess(desc, seqImpl{impl})
	require.NoError(t, err)
	defer acc.Close()
	require.NoError(t, acc.SetOffset(4))

	buf := make([]int32, 4)
	require.NoError(t, acc.ReadTile(buf, MustShape([]int64{2, 2}, []int64{2, 2})))
	// tile pixels in column major order: (2,2) (3,2) (2,3) (3,3)
	assert.Equal(t, []int32{8, 7, 7, 7}, buf)

	require.NoError(t, acc.Read(buf, 0, 1))
	assert.Equal(t, int32(4), buf[0])
}

func TestAccessReadOnly(t *testing.T) {
	m := rampArray(t, []int64{0}, []int64{4}, RowMajor)
	impl, err := m.NewAccess()
	require.NoError(t, err)
	desc := m.Description()
	desc.Writable = false

	acc, err := NewAccess(desc, impl)
	require.NoError(t, err)
	defer acc.Close()

	assert.False(t, acc.IsWritable())
	assert.True(t, errors.Is(acc.Write([]int32{1}, 0, 1), ErrUnsupported))
	assert.ErrorIs(t, acc.WriteTile([]int32{1}, MustShape([]int64{0}, []int64{1})), ErrUnsupported)
	assert.NoError(t, acc.Read(make([]int32, 1), 0, 1))
}

// flakyImpl fails the first read after moving the wrapped cursor part way
type flakyImpl struct {
	AccessImpl
	failed bool
}

func (f *flakyImpl) Read(buf interface{}, start, size int) error {
	if !f.failed && size > 1 {
		f.failed = true
		if err := f.AccessImpl.Read(buf, start, 1); err != nil {
			return err
		}
		return errors.New("device gone")
	}
	return f.AccessImpl.Read(buf, start, size)
}

func TestAccessFailedTransferResyncs(t *testing.T) {
	m := rampArray(t, []int64{0}, []int64{10}, RowMajor)
	impl, err := m.NewAccess()
	require.NoError(t, err)

	acc, err := NewAccess(m.Description(), &flakyImpl{AccessImpl: impl})
	require.NoError(t, err)
	defer acc.Close()
	require.NoError(t, acc.SetOffset(3))

	buf := make([]int32, 4)
	assert.Error(t, acc.Read(buf, 0, 4))
	assert.Equal(t, int64(3), acc.Offset())

	require.NoError(t, acc.Read(buf, 0, 4))
	assert.Equal(t, []int32{3, 4, 5, 6}, buf)
	assert.Equal(t, int64(7), acc.Offset())
}
