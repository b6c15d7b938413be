package ndarray

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// SharedImpl lets several sessions multiplex onto one AccessImpl. Its mutex
// makes "move the physical cursor, then transfer" a single step with respect
// to every other session on the same capability. The capability is torn down
// when the last session releases it
type SharedImpl struct {
	mu     sync.Mutex
	impl   AccessImpl
	refs   int
	closed bool
}

// NewSharedImpl wraps impl for shared use. impl must not be used directly
// once wrapped
func NewSharedImpl(impl AccessImpl) *SharedImpl {
	return &SharedImpl{impl: impl}
}

// Sessions returns the number of open sessions holding a reference
func (s *SharedImpl) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Closed reports whether the underlying capability has been torn down
func (s *SharedImpl) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SharedImpl) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: shared capability already torn down", ErrClosed)
	}
	s.refs++
	return nil
}

// release drops one reference. Caller must hold s.mu
func (s *SharedImpl) release() error {
	s.refs--
	if s.refs > 0 {
		return nil
	}
	s.closed = true
	log.Debug("last session released, tearing down shared capability")
	return s.impl.Close()
}

// exclusive runs fn while holding the capability
func (s *SharedImpl) exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// multiplexAccess is a session whose capability may be in use by other
// sessions concurrently. Its logical cursor is private and unlocked; every
// touch of the physical cursor happens under the shared lock
type multiplexAccess struct {
	*defaultAccess
	shared *SharedImpl
}

var _ ArrayAccess = (*multiplexAccess)(nil)

// NewMultiplexAccess creates a session over a shared capability. The array
// must support random access, since other sessions move the physical cursor
// between this session's transfers
func NewMultiplexAccess(desc Description, shared *SharedImpl) (ArrayAccess, error) {
	if !desc.Random {
		return nil, fmt.Errorf("%w: cannot multiplex a sequential-only capability", ErrNotRandom)
	}
	if shared == nil {
		return nil, fmt.Errorf("%w: nil shared capability", ErrInvalidArgument)
	}
	base, err := newDefaultAccess(desc, shared.impl)
	if err != nil {
		return nil, err
	}
	if err := shared.acquire(); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"shape": desc.Shape, "dtype": desc.Dtype}).Debug("opened multiplexed access")
	return &multiplexAccess{defaultAccess: base, shared: shared}, nil
}

// SetOffset only moves the logical cursor; the physical one is synchronized
// at transfer time
func (m *multiplexAccess) SetOffset(off int64) error {
	if m.closed() {
		return ErrClosed
	}
	if off >= 0 && off < m.npix {
		m.offset = off
		return nil
	}
	// out of range: produce the error through the same path the single-owner
	// session uses, which never reaches the capability for a bad offset
	return m.shared.exclusive(func() error {
		return m.defaultAccess.checkOffset(off)
	})
}

func (m *multiplexAccess) SetPosition(pos []int64) error {
	if m.closed() {
		return ErrClosed
	}
	off, err := m.shape.PositionToOffset(pos)
	if err != nil {
		return err
	}
	return m.SetOffset(off)
}

func (m *multiplexAccess) Read(buf interface{}, start, size int) error {
	return m.seekTransfer(dirRead, buf, start, size)
}

func (m *multiplexAccess) Write(buf interface{}, start, size int) error {
	return m.seekTransfer(dirWrite, buf, start, size)
}

func (m *multiplexAccess) seekTransfer(dir direction, buf interface{}, start, size int) error {
	if err := m.checkTransfer(dir, buf, start, size); err != nil {
		return err
	}
	return m.shared.exclusive(func() error {
		if size > 0 {
			if err := m.impl.SetOffset(m.offset); err != nil {
				return err
			}
		}
		return m.transfer(dir, buf, start, size)
	})
}

// tile transfers seek the shared cursor run by run, so they take the lock for
// the whole tile. The logical cursor is untouched and the physical one is
// resynchronized by the next sequential transfer
func (m *multiplexAccess) ReadTile(buf interface{}, tile Shaper) error {
	t, isect, err := m.checkTile(dirRead, buf, tile)
	if err != nil {
		return err
	}
	return m.shared.exclusive(func() error {
		return m.tile(dirRead, buf, t, isect)
	})
}

func (m *multiplexAccess) WriteTile(buf interface{}, tile Shaper) error {
	t, isect, err := m.checkTile(dirWrite, buf, tile)
	if err != nil {
		return err
	}
	return m.shared.exclusive(func() error {
		return m.tile(dirWrite, buf, t, isect)
	})
}

// Close takes the lock so that a teardown triggered by the last release can't
// overlap another session's transfer
func (m *multiplexAccess) Close() error {
	if m.closed() {
		return ErrClosed
	}
	m.offset = closedOffset
	return m.shared.exclusive(func() error {
		log.WithField("shape", m.shape).Debug("closing multiplexed access")
		return m.shared.release()
	})
}
