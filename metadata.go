package ndarray

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ZarrFormat is the version of the zarr storage specification chunked arrays
// are written with
const ZarrFormat = 2

type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on an array store
	MTArray MetaType = ".zarray"
)

// Attributes are free-form array metadata stored under ".zattrs"
type Attributes map[string]interface{}

// originAttr holds the Shape origin, which zarr itself has no notion of
const originAttr = "ndarray_origin"

// Origin reads the stored origin, if any
func (a Attributes) Origin(ndim int) ([]int64, error) {
	raw, ok := a[originAttr]
	if !ok {
		return make([]int64, ndim), nil
	}
	if o, ok := raw.([]int64); ok && len(o) == ndim {
		return copyInt64s(o), nil
	}
	vals, ok := raw.([]interface{})
	if !ok || len(vals) != ndim {
		return nil, fmt.Errorf("%w: attribute %s must be a list of %d integers", ErrInvalidArgument, originAttr, ndim)
	}
	origin := make([]int64, ndim)
	for i, v := range vals {
		f, ok := v.(float64)
		if !ok || f != float64(int64(f)) {
			return nil, fmt.Errorf("%w: attribute %s element %d is %v", ErrInvalidArgument, originAttr, i, v)
		}
		origin[i] = int64(f)
	}
	return origin, nil
}

// Each array requires essential configuration metadata to be stored,
// enabling correct interpretation of the stored data.
// This metadata is encoded using JSON and stored as the value of the
// “.zarray” key within an array store.
type ArrayMeta struct {
	// An integer defining the version of the storage specification to which
	// the array store adheres.
	ZarrFormat int `json:"zarr_format"`
	// A list of integers defining the length of each dimension of the array.
	Shape []int `json:"shape"`
	// A list of integers defining the length of each dimension of a chunk of the
	// array. Note that all chunks within a Zarr array have the same shape.
	Chunks []int `json:"chunks"`
	// The pixel type. Structured dtypes can't back pixel buffers and are
	// rejected when decoding
	Dtype Dtype `json:"dtype"`
	// A JSON object identifying the primary compression codec and providing
	// configuration parameters, or null if no compressor is to be used. The
	// object MUST contain an "id" key identifying the codec to be used.
	Compressor *CompressionMeta `json:"compressor"`

	// A scalar value providing the default value to use for uninitialized
	// portions of the array, or null if no fill_value is to be used.
	FillValue interface{} `json:"fill_value"`
	// Either “C” or “F”, defining the layout of bytes within each chunk of the
	// array. “C” means row-major order, i.e., the last dimension varies fastest;
	// “F” means column-major order, i.e., the first dimension varies fastest.
	Order string `json:"order"`
	// A list of JSON objects providing codec configurations, or null if no
	// filters are to be applied.
	Filters []Filter `json:"filters"`

	// If present, either the string "." or "/"" definining the separator placed
	// between the dimensions of a chunk. If the value is not set, then the
	// default MUST be assumed to be ".", leading to chunk keys of the form “0.0”.
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

func (a ArrayMeta) MetaType() MetaType { return MTArray }

// Validate checks the metadata describes an array this package can address
func (a *ArrayMeta) Validate() error {
	if len(a.Shape) == 0 {
		return fmt.Errorf("%w: zero-dimensional arrays aren't supported", ErrInvalidShape)
	}
	if len(a.Chunks) != len(a.Shape) {
		return fmt.Errorf("%w: %d chunk extents for %d dimensions", ErrDimMismatch, len(a.Chunks), len(a.Shape))
	}
	for i, c := range a.Chunks {
		if c < 1 {
			return fmt.Errorf("%w: chunk extent %d on axis %d", ErrInvalidShape, c, i)
		}
	}
	if _, err := a.Dtype.GoType(); err != nil {
		return err
	}
	if _, err := ParseOrder(a.Order); err != nil {
		return err
	}
	if len(a.Filters) > 0 {
		return fmt.Errorf("%w: filter %q", ErrUnsupported, a.Filters[0].ID)
	}
	switch a.DimensionSeparator {
	case "", ".", "/":
	default:
		return fmt.Errorf("%w: dimension separator %q", ErrInvalidArgument, a.DimensionSeparator)
	}
	if a.Compressor != nil {
		if _, ok := codecs[a.Compressor.ID]; !ok {
			return fmt.Errorf("%w: compressor %q", ErrUnsupported, a.Compressor.ID)
		}
	}
	if _, err := fillValue(a.Dtype, a.FillValue); err != nil {
		return err
	}
	return nil
}

func (a *ArrayMeta) separator() string {
	if a.DimensionSeparator == "" {
		return "."
	}
	return a.DimensionSeparator
}

func (a *ArrayMeta) marshal() ([]byte, error) {
	return marshalJSON(a, true)
}

// marshalJSON encodes v without HTML escaping, keeping typestrs like "<f8"
// readable by other zarr implementations
func marshalJSON(v interface{}, indent bool) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type Filter struct {
	ID     string `json:"id"`
	Delta  string `json:"delta,omitempty"`
	Dtype  string `json:"dtype,omitempty"`
	AsType string `json:"astype,omitempty"`
}

const (
	// Not a Number
	FillValueNaN = "NaN"
	// Infinity
	FillValueInfinity = "Infinity"
	// -Infinity
	FillValueNegativeInfinity = "-Infinity"
)
