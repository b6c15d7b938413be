package ndarray

// AccessImpl is the raw pixel I/O capability a storage back-end provides for
// one array. It has a single physical cursor, an offset into the array's
// linearization. Read and Write transfer pixels starting at the cursor and
// advance it by the number transferred.
//
// An AccessImpl may be shared by several sessions, see SharedImpl. It does no
// locking of its own
type AccessImpl interface {
	// SetOffset moves the physical cursor. Back-ends without random access may
	// reject backwards moves with ErrNotRandom
	SetOffset(off int64) error
	// Read fills buf[start:start+size] from the cursor onwards
	Read(buf interface{}, start, size int) error
	// Write stores buf[start:start+size] from the cursor onwards
	Write(buf interface{}, start, size int) error
	// Close tears down the capability
	Close() error
}

// TileAccessImpl is implemented by back-ends that can move a rectangular tile
// directly. tile always lies entirely inside the array, and the buffer holds
// NumPixels() pixels in the tile's linearization using the array's order.
// Back-ends that don't implement it get the generic run-by-run transfer
type TileAccessImpl interface {
	AccessImpl
	ReadTile(buf interface{}, tile *Shape) error
	WriteTile(buf interface{}, tile *Shape) error
}

// ArrayImpl is a storage back-end for a single array
type ArrayImpl interface {
	// Description returns the array's fixed characteristics
	Description() Description
	// MultipleAccess reports whether NewAccess may be called more than once,
	// each call returning an independent capability
	MultipleAccess() bool
	// NewAccess returns a capability positioned at offset zero
	NewAccess() (AccessImpl, error)
	// Close releases the back-end
	Close() error
}

// Description holds the characteristics of an array
type Description struct {
	Shape *OrderedShape
	Dtype Dtype
	// Fill is the value read for pixels outside the array in tile reads. nil
	// means the zero value
	Fill interface{}

	Random   bool
	Readable bool
	Writable bool
}
