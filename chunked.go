package ndarray

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

type PersistenceMode string

const (
	// Persistence mode:
	// ‘r’ means read only (must exist);
	ModeRead PersistenceMode = "r"
	//‘r+’ means read/write (must exist)
	ModeReadWrite PersistenceMode = "r+"
	// ‘a’ means read/write (create if doesn’t exist)
	ModeReadWriteCreate PersistenceMode = "a"
	// ‘w’ means create (overwrite if exists)
	ModeWrite PersistenceMode = "w"
	// ‘w-’ means create (fail if exists).
	ModeWriteFail PersistenceMode = "w-"
)

// Path is a normalized logical path within a store
type Path []string

// NewPath normalizes a logical path so keys agree across stores:
//   - backward slashes become forward slashes
//   - leading and trailing slashes are stripped
//   - runs of slashes collapse to one
func NewPath(posix string) (Path, error) {
	posix = strings.ReplaceAll(posix, `\`, "/")
	var p Path
	for _, el := range strings.Split(posix, "/") {
		switch el {
		case "":
			continue
		case ".", "..":
			return nil, fmt.Errorf("%w: path element %q in %q", ErrInvalidArgument, el, posix)
		}
		p = append(p, el)
	}
	return p, nil
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

func (p Path) Join(elems ...string) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, elems...)
}

// chunkOptions configure chunked array creation
type chunkOptions struct {
	chunks     []int
	compressor *CompressionMeta
	order      Order
	fill       interface{}
	origin     []int64
	sep        string
}

// ChunkOption configures Create
type ChunkOption func(*chunkOptions)

// WithChunks sets the chunk extents. The default is a single chunk holding
// the whole array
func WithChunks(dims ...int) ChunkOption {
	return func(o *chunkOptions) {
		o.chunks = dims
	}
}

// WithCompressor sets the chunk codec by numcodecs id: "gzip", "zstd" or
// "lzma". An empty id stores chunks uncompressed
func WithCompressor(id string, level int) ChunkOption {
	return func(o *chunkOptions) {
		if id == "" {
			o.compressor = nil
			return
		}
		o.compressor = &CompressionMeta{ID: id, Clevel: level}
	}
}

// WithOrder sets the pixel order within chunks and of the array
func WithOrder(order Order) ChunkOption {
	return func(o *chunkOptions) {
		o.order = order
	}
}

// WithFillValue sets the value of pixels never written
func WithFillValue(v interface{}) ChunkOption {
	return func(o *chunkOptions) {
		o.fill = v
	}
}

// WithOrigin sets the coordinates of the array's first pixel
func WithOrigin(origin ...int64) ChunkOption {
	return func(o *chunkOptions) {
		o.origin = origin
	}
}

// WithDimensionSeparator sets the chunk key separator, "." or "/"
func WithDimensionSeparator(sep string) ChunkOption {
	return func(o *chunkOptions) {
		o.sep = sep
	}
}

// ChunkedArray stores an array as a grid of compressed chunks in a Store,
// using the zarr v2 layout. All sessions share one capability, which caches
// the chunk under its cursor
type ChunkedArray struct {
	store Store
	path  Path
	mode  PersistenceMode
	meta  *ArrayMeta
	attrs Attributes
	desc  Description
	index *chunkIndexer
	// one chunk's worth of encoded fill value
	fillChunk []byte
}

var _ ArrayImpl = (*ChunkedArray)(nil)

// Create writes metadata for a new chunked array. mode must be ModeWrite,
// ModeWriteFail or ModeReadWriteCreate
func Create(store Store, path string, dims []int64, dt Dtype, mode PersistenceMode, opts ...ChunkOption) (*ChunkedArray, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeWrite:
		if err := clearArray(store, p); err != nil {
			return nil, err
		}
	case ModeWriteFail, ModeReadWriteCreate:
		rc, err := store.Get(p.Join(string(MTArray)).String())
		if err == nil {
			rc.Close()
			if mode == ModeReadWriteCreate {
				return Open(store, path, ModeReadWrite)
			}
			return nil, fmt.Errorf("%w: array already exists at %q", ErrInvalidArgument, path)
		}
		if !errors.Is(err, ErrNotfound) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: can't create an array in mode %q", ErrInvalidArgument, mode)
	}

	o := &chunkOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.origin == nil {
		o.origin = make([]int64, len(dims))
	}
	shape, err := NewShape(o.origin, dims)
	if err != nil {
		return nil, err
	}

	meta := &ArrayMeta{
		ZarrFormat:         ZarrFormat,
		Shape:              make([]int, len(dims)),
		Chunks:             o.chunks,
		Dtype:              dt,
		Compressor:         o.compressor,
		FillValue:          o.fill,
		Order:              o.order.String(),
		DimensionSeparator: o.sep,
	}
	for i, d := range dims {
		if d > int64(maxInt) {
			return nil, fmt.Errorf("%w: dimension %d extent %d exceeds int", ErrOutOfRange, i, d)
		}
		meta.Shape[i] = int(d)
	}
	if meta.Chunks == nil {
		meta.Chunks = meta.Shape
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	data, err := meta.marshal()
	if err != nil {
		return nil, err
	}
	if err := store.Put(p.Join(string(MTArray)).String(), bytes.NewReader(data)); err != nil {
		return nil, err
	}
	attrs := Attributes{originAttr: shape.Origin()}
	if data, err = marshalJSON(attrs, false); err != nil {
		return nil, err
	}
	if err := store.Put(p.Join(string(MTAttributes)).String(), bytes.NewReader(data)); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"path": p.String(), "shape": shape, "dtype": dt, "chunks": meta.Chunks}).Debug("created chunked array")
	if mode == ModeWrite || mode == ModeWriteFail || mode == ModeReadWriteCreate {
		mode = ModeReadWrite
	}
	return newChunkedArray(store, p, mode, meta, attrs)
}

// Open reads the metadata of an existing chunked array
func Open(store Store, path string, mode PersistenceMode) (*ChunkedArray, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeRead, ModeReadWrite:
	case ModeReadWriteCreate:
		mode = ModeReadWrite
	default:
		return nil, fmt.Errorf("%w: can't open an array in mode %q, use Create", ErrInvalidArgument, mode)
	}

	meta := &ArrayMeta{}
	if err := getJSON(store, p.Join(string(MTArray)).String(), meta); err != nil {
		return nil, err
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("array %q: %w", p, err)
	}

	attrs := Attributes{}
	if err := getJSON(store, p.Join(string(MTAttributes)).String(), &attrs); err != nil && !errors.Is(err, ErrNotfound) {
		return nil, err
	}

	return newChunkedArray(store, p, mode, meta, attrs)
}

// OpenArray opens a chunked array and wraps it for access
func OpenArray(store Store, path string, mode PersistenceMode) (*Array, error) {
	ca, err := Open(store, path, mode)
	if err != nil {
		return nil, err
	}
	return NewArray(ca), nil
}

// clearArray removes every key below p
func clearArray(store Store, p Path) error {
	prefix := ""
	if len(p) > 0 {
		prefix = p.String() + "/"
	}
	l, canList := store.(Lister)
	d, canDelete := store.(Deleter)
	if !canList || !canDelete {
		rc, err := store.Get(p.Join(string(MTArray)).String())
		if errors.Is(err, ErrNotfound) {
			return nil
		}
		if err != nil {
			return err
		}
		rc.Close()
		return fmt.Errorf("%w: %s store can't overwrite the array at %q", ErrUnsupported, store.Type(), p)
	}

	keys, err := l.Keys(prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := d.Delete(k); err != nil {
			return fmt.Errorf("clearing %q: %w", p, err)
		}
	}
	if len(keys) > 0 {
		log.WithFields(logrus.Fields{"path": p.String(), "keys": len(keys)}).Debug("cleared chunked array")
	}
	return nil
}

func getJSON(store Store, key string, v interface{}) error {
	rc, err := store.Get(key)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func newChunkedArray(store Store, p Path, mode PersistenceMode, meta *ArrayMeta, attrs Attributes) (*ChunkedArray, error) {
	origin, err := attrs.Origin(len(meta.Shape))
	if err != nil {
		return nil, err
	}
	order, err := ParseOrder(meta.Order)
	if err != nil {
		return nil, err
	}
	s, err := NewShape(origin, IntsToInt64s(meta.Shape))
	if err != nil {
		return nil, err
	}
	shape, err := NewOrderedShape(s, order)
	if err != nil {
		return nil, err
	}

	a := &ChunkedArray{
		store: store,
		path:  p,
		mode:  mode,
		meta:  meta,
		attrs: attrs,
		desc: Description{
			Shape:    shape,
			Dtype:    meta.Dtype,
			Fill:     meta.FillValue,
			Random:   true,
			Readable: true,
			Writable: mode != ModeRead,
		},
		index: newChunkIndexer(shape, IntsToInt64s(meta.Chunks), meta.separator()),
	}

	fill, err := fillValue(meta.Dtype, meta.FillValue)
	if err != nil {
		return nil, err
	}
	one, err := meta.Dtype.NewBuffer(1)
	if err != nil {
		return nil, err
	}
	fillPixels(one, 0, 1, fill)
	px, err := encodePixels(meta.Dtype, one, 0, 1)
	if err != nil {
		return nil, err
	}
	a.fillChunk = bytes.Repeat(px, int(a.index.npix))

	return a, nil
}

func (a *ChunkedArray) Description() Description { return a.desc }
func (a *ChunkedArray) MultipleAccess() bool     { return false }
func (a *ChunkedArray) Close() error             { return nil }

// Path returns the array's logical path in its store
func (a *ChunkedArray) Path() string { return a.path.String() }

// Meta returns a copy of the array metadata
func (a *ChunkedArray) Meta() ArrayMeta { return *a.meta }

// Attributes returns the array attributes
func (a *ChunkedArray) Attributes() Attributes { return a.attrs }

// Store returns the backing store
func (a *ChunkedArray) Store() Store { return a.store }

// NumChunks returns the size of the chunk grid
func (a *ChunkedArray) NumChunks() int64 { return a.index.numChunks() }

func (a *ChunkedArray) Info() string {
	comp := "none"
	if a.meta.Compressor != nil {
		comp = a.meta.Compressor.ID
	}
	return fmt.Sprintf("<ndarray.ChunkedArray %s %s %s chunks=%v compressor=%s>", a.path, a.desc.Shape, a.desc.Dtype, a.meta.Chunks, comp)
}

func (a *ChunkedArray) NewAccess() (AccessImpl, error) {
	return &chunkedAccess{arr: a}, nil
}

func (a *ChunkedArray) readChunk(key string) ([]byte, error) {
	rc, err := a.store.Get(a.path.Join(key).String())
	if errors.Is(err, ErrNotfound) {
		data := make([]byte, len(a.fillChunk))
		copy(data, a.fillChunk)
		return data, nil
	} else if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := a.meta.Compressor.decodeChunk(rc)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk %s: %w", key, err)
	}
	if len(data) != len(a.fillChunk) {
		return nil, fmt.Errorf("chunk %s holds %d bytes, want %d", key, len(data), len(a.fillChunk))
	}
	log.WithFields(logrus.Fields{"path": a.path.String(), "chunk": key}).Debug("loaded chunk")
	return data, nil
}

func (a *ChunkedArray) writeChunk(key string, data []byte) error {
	enc, err := a.meta.Compressor.encodeChunk(data)
	if err != nil {
		return fmt.Errorf("encoding chunk %s: %w", key, err)
	}
	log.WithFields(logrus.Fields{"path": a.path.String(), "chunk": key, "bytes": len(enc)}).Debug("flushing chunk")
	return a.store.Put(a.path.Join(key).String(), bytes.NewReader(enc))
}

// chunkedAccess holds one decoded chunk at a time. Dirty chunks are written
// back when the cursor leaves them and on Close
type chunkedAccess struct {
	arr    *ChunkedArray
	offset int64
	key    string
	data   []byte
	dirty  bool
}

func (c *chunkedAccess) SetOffset(off int64) error {
	if off < 0 || off > c.arr.desc.Shape.NumPixels() {
		return fmt.Errorf("%w: offset %d", ErrOutOfRange, off)
	}
	c.offset = off
	return nil
}

func (c *chunkedAccess) Read(buf interface{}, start, size int) error {
	es := c.arr.meta.Dtype.ByteSize
	return c.walk(size, func(chunkOff int64, bufOff, n int) error {
		raw := c.data[int(chunkOff)*es : (int(chunkOff)+n)*es]
		return decodePixels(c.arr.meta.Dtype, raw, buf, start+bufOff, n)
	})
}

func (c *chunkedAccess) Write(buf interface{}, start, size int) error {
	es := c.arr.meta.Dtype.ByteSize
	return c.walk(size, func(chunkOff int64, bufOff, n int) error {
		raw, err := encodePixels(c.arr.meta.Dtype, buf, start+bufOff, n)
		if err != nil {
			return err
		}
		copy(c.data[int(chunkOff)*es:], raw)
		c.dirty = true
		return nil
	})
}

// walk visits size pixels from the cursor in runs that stay inside one chunk,
// loading each chunk before fn sees it
func (c *chunkedAccess) walk(size int, fn func(chunkOff int64, bufOff, n int) error) error {
	shape := c.arr.desc.Shape
	done := 0
	for done < size {
		pos, err := shape.OffsetToPosition(c.offset)
		if err != nil {
			return err
		}
		proj := c.arr.index.project(pos)
		if err := c.load(c.arr.index.key(proj.ChunkCoords)); err != nil {
			return err
		}
		n := int(min64(proj.Run, int64(size-done)))
		if err := fn(proj.ChunkOffset, done, n); err != nil {
			return err
		}
		done += n
		c.offset += int64(n)
	}
	return nil
}

func (c *chunkedAccess) load(key string) error {
	if c.data != nil && key == c.key {
		return nil
	}
	if err := c.flush(); err != nil {
		return err
	}
	data, err := c.arr.readChunk(key)
	if err != nil {
		return err
	}
	c.key, c.data = key, data
	return nil
}

func (c *chunkedAccess) flush() error {
	if !c.dirty {
		return nil
	}
	if err := c.arr.writeChunk(c.key, c.data); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

func (c *chunkedAccess) Close() error {
	err := c.flush()
	c.data = nil
	return err
}
