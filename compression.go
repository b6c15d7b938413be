package ndarray

import (
	"bytes"
	"fmt"
	"io"

	"github.com/qri-io/dataset/compression"
	"github.com/ulikunitz/xz"
)

// Compressor IDs understood for chunk encoding, named as numcodecs names them
const (
	CodecGzip = "gzip"
	CodecZstd = "zstd"
	CodecLZMA = "lzma"
)

// CompressionMeta defines compression settings ndarray-go understands
type CompressionMeta struct {
	ID      string `json:"id"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

type codec struct {
	compress   func(w io.Writer) (io.WriteCloser, error)
	decompress func(r io.Reader) (io.ReadCloser, error)
}

// gzip and zstd go through the dataset compression package, which names zstd
// by its file extension
var codecs = map[string]codec{
	CodecGzip: {
		compress:   func(w io.Writer) (io.WriteCloser, error) { return compression.Compressor("gzip", w) },
		decompress: func(r io.Reader) (io.ReadCloser, error) { return compression.Decompressor("gzip", r) },
	},
	CodecZstd: {
		compress:   func(w io.Writer) (io.WriteCloser, error) { return compression.Compressor("zst", w) },
		decompress: func(r io.Reader) (io.ReadCloser, error) { return compression.Decompressor("zst", r) },
	},
	CodecLZMA: {
		compress: func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) },
		decompress: func(r io.Reader) (io.ReadCloser, error) {
			xr, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		},
	},
}

func (m *CompressionMeta) codec() (codec, error) {
	c, ok := codecs[m.ID]
	if !ok {
		return codec{}, fmt.Errorf("%w: compressor %q", ErrUnsupported, m.ID)
	}
	return c, nil
}

func (m *CompressionMeta) Decompressor(r io.Reader) (io.ReadCloser, error) {
	if m == nil {
		return io.NopCloser(r), nil
	}
	c, err := m.codec()
	if err != nil {
		return nil, err
	}
	return c.decompress(r)
}

func (m *CompressionMeta) Compressor(w io.Writer) (io.WriteCloser, error) {
	if m == nil {
		return nopWriteCloser{w}, nil
	}
	c, err := m.codec()
	if err != nil {
		return nil, err
	}
	return c.compress(w)
}

// encodeChunk compresses a raw chunk. A nil receiver stores chunks raw
func (m *CompressionMeta) encodeChunk(raw []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w, err := m.Compressor(buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeChunk decompresses a stored chunk
func (m *CompressionMeta) decodeChunk(r io.Reader) ([]byte, error) {
	dr, err := m.Decompressor(r)
	if err != nil {
		return nil, err
	}
	defer dr.Close()
	return io.ReadAll(dr)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
