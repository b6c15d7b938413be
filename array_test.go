package ndarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayAccessKinds(t *testing.T) {
	m := rampArray(t, []int64{0}, []int64{8}, RowMajor)
	arr := NewArray(m)
	assert.Equal(t, "<ndarray.Array (0+8)C <i4>", arr.String())

	// back-ends with multiple access get independent sessions
	a, err := arr.Access()
	require.NoError(t, err)
	b, err := arr.Access()
	require.NoError(t, err)
	_, isDefault := a.(*defaultAccess)
	assert.True(t, isDefault)
	_, isDefault = b.(*defaultAccess)
	assert.True(t, isDefault)
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())

	require.NoError(t, arr.Close())
	assert.ErrorIs(t, arr.Close(), ErrClosed)
	_, err = arr.Access()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestArrayReadAll(t *testing.T) {
	prev := DefaultChunkSize()
	defer SetDefaultChunkSize(prev)
	require.NoError(t, SetDefaultChunkSize(5))

	arr := NewArray(rampArray(t, []int64{2, 2}, []int64{3, 4}, ColumnMajor))
	got, err := arr.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, got)
}

func TestCopy(t *testing.T) {
	prev := DefaultChunkSize()
	defer SetDefaultChunkSize(prev)
	require.NoError(t, SetDefaultChunkSize(4))

	src := NewArray(rampArray(t, []int64{0, 0}, []int64{3, 3}, RowMajor))
	shape := src.Shape()
	m, err := NewMemoryArray(shape, Float64, nil)
	require.NoError(t, err)

	require.NoError(t, Copy(NewArray(m), src))
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, m.Data())
}

func TestCopyMismatch(t *testing.T) {
	src := NewArray(rampArray(t, []int64{0, 0}, []int64{3, 3}, RowMajor))

	other := NewArray(rampArray(t, []int64{0, 0}, []int64{3, 4}, RowMajor))
	assert.ErrorIs(t, Copy(other, src), ErrInvalidArgument)

	fortran := NewArray(rampArray(t, []int64{0, 0}, []int64{3, 3}, ColumnMajor))
	assert.ErrorIs(t, Copy(fortran, src), ErrInvalidArgument)

	shape, err := NewOrderedShape(MustShape([]int64{0, 0}, []int64{3, 3}), RowMajor)
	require.NoError(t, err)
	bools, err := NewMemoryArray(shape, Bool, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, Copy(NewArray(bools), src), ErrBufferType)
}

func TestNewMemoryArray(t *testing.T) {
	shape, err := NewOrderedShape(MustShape([]int64{0}, []int64{3}), RowMajor)
	require.NoError(t, err)

	_, err = NewMemoryArray(shape, Int8, []int8{1, 2})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewMemoryArray(shape, Int8, []uint8{1, 2, 3})
	assert.ErrorIs(t, err, ErrBufferType)
	_, err = NewMemoryArrayOf(shape, []string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrBufferType)

	m, err := NewMemoryArray(shape, Complex64, nil)
	require.NoError(t, err)
	assert.Equal(t, make([]complex64, 3), m.Data())
}
