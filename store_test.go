package ndarray

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s interface {
	Store
	Lister
	Deleter
}) {
	t.Helper()
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotfound)

	require.NoError(t, s.Put("a/.zarray", bytes.NewReader([]byte("{}"))))
	require.NoError(t, s.Put("a/0.0", bytes.NewReader([]byte{1, 2})))
	require.NoError(t, s.Put("b/0.0", bytes.NewReader([]byte{3})))
	require.NoError(t, s.Put("a/0.0", bytes.NewReader([]byte{4, 5, 6})))

	rc, err := s.Get("a/0.0")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, []byte{4, 5, 6}, data)

	keys, err := s.Keys("a/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/.zarray", "a/0.0"}, keys)

	require.NoError(t, s.Delete("a/0.0"))
	require.NoError(t, s.Delete("a/0.0"))
	_, err = s.Get("a/0.0")
	assert.ErrorIs(t, err, ErrNotfound)

	// the caller keeps ownership of the value reader
	val := &closeRecorder{Reader: bytes.NewReader([]byte{7})}
	require.NoError(t, s.Put("c", val))
	assert.False(t, val.closed)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	testStore(t, s)
}
