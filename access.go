package ndarray

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// closedOffset marks the cursor of a closed session
const closedOffset = int64(-1)

// ArrayAccess is a session onto an array: one logical cursor bound to one
// shape and one storage capability. Sessions are not safe for concurrent use
// by multiple goroutines; open one session per goroutine instead
type ArrayAccess interface {
	Shape() *OrderedShape
	Dtype() Dtype

	// Offset returns the cursor, or -1 once the session is closed. After a
	// transfer that ends on the last pixel the cursor rests at NumPixels()
	Offset() int64
	// SetOffset moves the cursor, off must lie in [0, NumPixels())
	SetOffset(off int64) error
	// Position returns the cursor as coordinates, nil when the cursor isn't on
	// a pixel
	Position() []int64
	SetPosition(pos []int64) error

	// Read fills buf[start:start+size] from the cursor and advances it
	Read(buf interface{}, start, size int) error
	// Write stores buf[start:start+size] at the cursor and advances it
	Write(buf interface{}, start, size int) error
	// ReadTile fills buf with the pixels of tile in the tile's own
	// linearization. Pixels outside the array read as the fill value. The
	// cursor is unaffected
	ReadTile(buf interface{}, tile Shaper) error
	// WriteTile stores the pixels of tile that lie inside the array
	WriteTile(buf interface{}, tile Shaper) error

	IsReadable() bool
	IsWritable() bool
	IsRandom() bool

	// Close releases the session. Every later call fails with ErrClosed
	Close() error
}

// defaultAccess is the single-owner session: the capability belongs to this
// session alone, so its physical cursor always tracks the logical one
type defaultAccess struct {
	desc   Description
	shape  *OrderedShape
	npix   int64
	impl   AccessImpl
	offset int64
}

var _ ArrayAccess = (*defaultAccess)(nil)

// NewAccess creates a session that owns impl. Closing the session closes impl
func NewAccess(desc Description, impl AccessImpl) (ArrayAccess, error) {
	a, err := newDefaultAccess(desc, impl)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"shape": desc.Shape, "dtype": desc.Dtype}).Debug("opened access")
	return a, nil
}

func newDefaultAccess(desc Description, impl AccessImpl) (*defaultAccess, error) {
	if desc.Shape == nil {
		return nil, fmt.Errorf("%w: description has no shape", ErrInvalidArgument)
	}
	if impl == nil {
		return nil, fmt.Errorf("%w: nil access impl", ErrInvalidArgument)
	}
	if _, err := desc.Dtype.GoType(); err != nil {
		return nil, err
	}
	return &defaultAccess{
		desc:  desc,
		shape: desc.Shape,
		npix:  desc.Shape.NumPixels(),
		impl:  impl,
	}, nil
}

func (a *defaultAccess) Shape() *OrderedShape { return a.shape }
func (a *defaultAccess) Dtype() Dtype         { return a.desc.Dtype }
func (a *defaultAccess) IsReadable() bool     { return a.desc.Readable }
func (a *defaultAccess) IsWritable() bool     { return a.desc.Writable }
func (a *defaultAccess) IsRandom() bool       { return a.desc.Random }
func (a *defaultAccess) Offset() int64        { return a.offset }

func (a *defaultAccess) closed() bool { return a.offset == closedOffset }

func (a *defaultAccess) SetOffset(off int64) error {
	if err := a.checkOffset(off); err != nil {
		return err
	}
	if err := a.impl.SetOffset(off); err != nil {
		return err
	}
	a.offset = off
	return nil
}

func (a *defaultAccess) checkOffset(off int64) error {
	if a.closed() {
		return ErrClosed
	}
	if off < 0 || off >= a.npix {
		return fmt.Errorf("%w: offset %d not in [0,%d)", ErrOutOfRange, off, a.npix)
	}
	return nil
}

func (a *defaultAccess) Position() []int64 {
	if a.closed() {
		return nil
	}
	pos, err := a.shape.OffsetToPosition(a.offset)
	if err != nil {
		return nil
	}
	return pos
}

func (a *defaultAccess) SetPosition(pos []int64) error {
	if a.closed() {
		return ErrClosed
	}
	off, err := a.shape.PositionToOffset(pos)
	if err != nil {
		return err
	}
	return a.SetOffset(off)
}

func (a *defaultAccess) Read(buf interface{}, start, size int) error {
	if err := a.checkTransfer(dirRead, buf, start, size); err != nil {
		return err
	}
	return a.transfer(dirRead, buf, start, size)
}

func (a *defaultAccess) Write(buf interface{}, start, size int) error {
	if err := a.checkTransfer(dirWrite, buf, start, size); err != nil {
		return err
	}
	return a.transfer(dirWrite, buf, start, size)
}

// transfer assumes the physical cursor is at a.offset. A failed transfer
// leaves the logical cursor in place and, on random back-ends, seeks the
// physical one back to it. On sequential back-ends the session can't recover
// from a failed transfer and later transfers fail or misplace pixels
func (a *defaultAccess) transfer(dir direction, buf interface{}, start, size int) error {
	var err error
	if dir == dirRead {
		err = a.impl.Read(buf, start, size)
	} else {
		err = a.impl.Write(buf, start, size)
	}
	if err != nil {
		if a.desc.Random {
			if serr := a.impl.SetOffset(a.offset); serr != nil {
				log.WithError(serr).WithField("offset", a.offset).Warn("resyncing cursor after failed transfer")
			}
		}
		return err
	}
	a.offset += int64(size)
	return nil
}

func (a *defaultAccess) checkTransfer(dir direction, buf interface{}, start, size int) error {
	if a.closed() {
		return ErrClosed
	}
	if err := a.checkDirection(dir); err != nil {
		return err
	}
	v, err := checkBuffer(a.desc.Dtype, buf)
	if err != nil {
		return err
	}
	if err := checkSpan(v, start, size); err != nil {
		return err
	}
	if int64(size) > a.npix-a.offset {
		return fmt.Errorf("%w: %s of %d pixels at offset %d runs past end of %d-pixel array", ErrOutOfRange, dir, size, a.offset, a.npix)
	}
	return nil
}

func (a *defaultAccess) checkDirection(dir direction) error {
	if dir == dirRead && !a.desc.Readable {
		return fmt.Errorf("%w: array is not readable", ErrUnsupported)
	}
	if dir == dirWrite && !a.desc.Writable {
		return fmt.Errorf("%w: array is not writable", ErrUnsupported)
	}
	return nil
}

func (a *defaultAccess) ReadTile(buf interface{}, tile Shaper) error {
	t, isect, err := a.checkTile(dirRead, buf, tile)
	if err != nil {
		return err
	}
	return a.transferTile(dirRead, buf, t, isect)
}

func (a *defaultAccess) WriteTile(buf interface{}, tile Shaper) error {
	t, isect, err := a.checkTile(dirWrite, buf, tile)
	if err != nil {
		return err
	}
	return a.transferTile(dirWrite, buf, t, isect)
}

// transferTile moves a tile then puts the physical cursor back where the
// logical one expects it
func (a *defaultAccess) transferTile(dir direction, buf interface{}, tile *OrderedShape, isect *Shape) error {
	if err := a.tile(dir, buf, tile, isect); err != nil {
		return err
	}
	if a.offset < a.npix {
		return a.impl.SetOffset(a.offset)
	}
	return nil
}

func (a *defaultAccess) checkTile(dir direction, buf interface{}, tile Shaper) (*OrderedShape, *Shape, error) {
	if a.closed() {
		return nil, nil, ErrClosed
	}
	if err := a.checkDirection(dir); err != nil {
		return nil, nil, err
	}
	if tile == nil {
		return nil, nil, fmt.Errorf("%w: nil tile", ErrInvalidArgument)
	}
	t, err := NewOrderedShape(tile, a.shape.Order())
	if err != nil {
		return nil, nil, err
	}
	isect, err := a.shape.Intersection(t)
	if err != nil {
		return nil, nil, err
	}
	if isect == nil {
		return nil, nil, fmt.Errorf("%w: tile %s doesn't overlap array %s", ErrOutOfRange, t.Shape, a.shape.Shape)
	}
	v, err := checkBuffer(a.desc.Dtype, buf)
	if err != nil {
		return nil, nil, err
	}
	if int64(v.Len()) < t.NumPixels() {
		return nil, nil, fmt.Errorf("%w: buffer of %d pixels for %d-pixel tile", ErrOutOfRange, v.Len(), t.NumPixels())
	}
	return t, isect, nil
}

func (a *defaultAccess) Close() error {
	if a.closed() {
		return ErrClosed
	}
	a.offset = closedOffset
	log.WithField("shape", a.shape).Debug("closing access")
	return a.impl.Close()
}

type direction int

const (
	dirRead direction = iota
	dirWrite
)

func (d direction) String() string {
	if d == dirWrite {
		return "write"
	}
	return "read"
}
