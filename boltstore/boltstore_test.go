package boltstore

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	ndarray "github.com/qri-io/ndarray-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "arrays.db"))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, StoreType, s.Type())

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ndarray.ErrNotfound)

	require.NoError(t, s.Put("x/0.0", bytes.NewReader([]byte{1, 2, 3})))
	require.NoError(t, s.Put("x/0.1", bytes.NewReader([]byte{4})))
	require.NoError(t, s.Put("xy/0.0", bytes.NewReader([]byte{5})))

	rc, err := s.Get("x/0.0")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	keys, err := s.Keys("x/")
	require.NoError(t, err)
	assert.Equal(t, []string{"x/0.0", "x/0.1"}, keys)

	require.NoError(t, s.Delete("x/0.0"))
	require.NoError(t, s.Delete("x/0.0"))
	_, err = s.Get("x/0.0")
	assert.ErrorIs(t, err, ndarray.ErrNotfound)
}

func TestChunkedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arrays.db")
	s, err := Open(path)
	require.NoError(t, err)

	ca, err := ndarray.Create(s, "img", []int64{5, 5}, ndarray.Uint16, ndarray.ModeWrite,
		ndarray.WithChunks(2, 2), ndarray.WithCompressor(ndarray.CodecLZMA, 0), ndarray.WithFillValue(7))
	require.NoError(t, err)
	arr := ndarray.NewArray(ca)
	acc, err := arr.Access()
	require.NoError(t, err)
	// a 2x2 tile hanging off the bottom right corner
	require.NoError(t, acc.WriteTile([]uint16{1, 2, 3, 4}, ndarray.MustShape([]int64{4, 4}, []int64{2, 2})))
	require.NoError(t, acc.Close())
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	keys, err := s.Keys("img/")
	require.NoError(t, err)
	assert.Equal(t, []string{"img/.zarray", "img/.zattrs", "img/2.2"}, keys)

	re, err := ndarray.OpenArray(s, "img", ndarray.ModeRead)
	require.NoError(t, err)
	got, err := re.ReadAll()
	require.NoError(t, err)
	vals := got.([]uint16)
	assert.Equal(t, uint16(1), vals[24])
	assert.Equal(t, uint16(7), vals[0])
}
