package ndarray

import "errors"

var (
	// ErrInvalidShape is returned when constructing a Shape from bad origin or
	// extent arrays
	ErrInvalidShape = errors.New("invalid shape")
	// ErrInvalidArgument covers bad construction parameters that aren't shapes
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDimMismatch means two shapes (or a shape and a position) disagree on
	// dimensionality
	ErrDimMismatch = errors.New("dimensionality mismatch")
	// ErrOutOfRange is returned for offsets, positions and tiles that fall
	// outside the addressable region, and for narrowing conversion overflow
	ErrOutOfRange = errors.New("out of range")
	// ErrClosed is returned by any operation on a closed access session
	ErrClosed = errors.New("access closed")
	// ErrExhausted is returned when advancing a finished ChunkIterator
	ErrExhausted = errors.New("iteration exhausted")
	// ErrNotRandom is returned when random access is required from an array
	// that only supports sequential access
	ErrNotRandom = errors.New("random access not supported")
	// ErrUnsupported flags operations a back-end doesn't provide, eg. writing
	// to a read-only array
	ErrUnsupported = errors.New("unsupported operation")
	// ErrBufferType means a transfer buffer doesn't match the array's Dtype
	ErrBufferType = errors.New("buffer type mismatch")
	// ErrNotfound is returned by stores for missing keys
	ErrNotfound = errors.New("not found")
)
