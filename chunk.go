package ndarray

import (
	"fmt"
	"sync/atomic"
)

// chunk size used by iterators that don't specify one
var defaultChunkSize atomic.Int64

func init() {
	defaultChunkSize.Store(16384)
}

// DefaultChunkSize returns the process-wide default chunk size
func DefaultChunkSize() int {
	return int(defaultChunkSize.Load())
}

// SetDefaultChunkSize changes the process-wide default chunk size. Iterators
// already constructed keep the size they were built with
func SetDefaultChunkSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: chunk size %d <= 0", ErrInvalidArgument, n)
	}
	defaultChunkSize.Store(int64(n))
	return nil
}

// ChunkIterator steps through [0, length) in contiguous blocks of a fixed
// size, the last block mopping up whatever remains. A typical loop:
//
//	it, _ := NewChunkIterator(acc.Shape().NumPixels())
//	buf, _ := acc.Dtype().NewBuffer(it.Size())
//	for ; it.HasNext(); it.Next() {
//		acc.Read(buf, 0, it.Size())
//	}
//
// Iterators are forward only and not restartable
type ChunkIterator struct {
	base      int64
	length    int64
	chunkSize int
}

// NewChunkIterator iterates over length elements using the default chunk size
func NewChunkIterator(length int64) (*ChunkIterator, error) {
	return NewChunkIteratorSize(length, DefaultChunkSize())
}

// NewChunkIteratorSize iterates over length elements in chunks of chunkSize
func NewChunkIteratorSize(length int64, chunkSize int) (*ChunkIterator, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunkSize %d <= 0", ErrInvalidArgument, chunkSize)
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: length %d < 0", ErrInvalidArgument, length)
	}
	return &ChunkIterator{length: length, chunkSize: chunkSize}, nil
}

// HasNext reports whether a chunk remains
func (it *ChunkIterator) HasNext() bool {
	return it.base < it.length
}

// Size returns the size of the current chunk. It is the configured chunk size
// for every chunk except possibly the last
func (it *ChunkIterator) Size() int {
	return int(min64(it.length-it.base, int64(it.chunkSize)))
}

// Base returns the offset of the current chunk
func (it *ChunkIterator) Base() int64 {
	return it.base
}

// Length returns the total number of elements iterated over
func (it *ChunkIterator) Length() int64 {
	return it.length
}

// Next advances to the following chunk. It fails with ErrExhausted once
// HasNext is false
func (it *ChunkIterator) Next() error {
	if it.base >= it.length {
		return ErrExhausted
	}
	it.base += int64(it.Size())
	return nil
}
