package ndarray

import (
	"strconv"
	"strings"
)

// chunkIndexer maps array positions onto a regular chunk grid. Chunk
// coordinates count from the array origin; every chunk, including ones hanging
// over the array edge, is stored full size in the array's order
type chunkIndexer struct {
	shape   *OrderedShape
	chunks  []int64
	grid    []int64
	strides []int64 // pixel strides within a chunk
	fast    int
	sep     string
	npix    int64 // pixels per chunk
}

// A mapping of items from chunk to output array. Can be used to extract items
// from the chunk array for loading into an output array. Can also be used to
// extract items from a value array for setting/updating in a chunk array.
type chunkProjection struct {
	// Indices of chunk
	ChunkCoords []int64
	// Offset of the first selected item within the chunk
	ChunkOffset int64
	// Number of items contiguous in both the chunk and the array
	Run int64
}

func newChunkIndexer(shape *OrderedShape, chunks []int64, sep string) *chunkIndexer {
	n := shape.NumDims()
	ix := &chunkIndexer{
		shape:   shape,
		chunks:  copyInt64s(chunks),
		grid:    make([]int64, n),
		strides: make([]int64, n),
		sep:     sep,
		npix:    1,
	}
	for i := range chunks {
		ix.grid[i] = (shape.dims[i] + chunks[i] - 1) / chunks[i]
	}
	axes := shape.Order().axes(n)
	ix.fast = axes[0]
	for _, ax := range axes {
		ix.strides[ax] = ix.npix
		ix.npix *= chunks[ax]
	}
	return ix
}

// project locates pos, which must lie in the array
func (ix *chunkIndexer) project(pos []int64) chunkProjection {
	p := chunkProjection{ChunkCoords: make([]int64, len(pos))}
	for i := range pos {
		idx := pos[i] - ix.shape.origin[i]
		p.ChunkCoords[i] = idx / ix.chunks[i]
		p.ChunkOffset += (idx % ix.chunks[i]) * ix.strides[i]
	}
	f := ix.fast
	idx := pos[f] - ix.shape.origin[f]
	p.Run = min64(ix.chunks[f]-idx%ix.chunks[f], ix.shape.dims[f]-idx)
	return p
}

// key generates the store key for a chunk, eg. "1.4" or "1/4"
func (ix *chunkIndexer) key(coords []int64) string {
	var sb strings.Builder
	for i, c := range coords {
		if i > 0 {
			sb.WriteString(ix.sep)
		}
		sb.WriteString(strconv.FormatInt(c, 10))
	}
	return sb.String()
}

// numChunks is the number of chunks in the grid
func (ix *chunkIndexer) numChunks() int64 {
	n := int64(1)
	for _, g := range ix.grid {
		n *= g
	}
	return n
}
