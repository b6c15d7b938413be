package ndarray

import (
	"encoding/json"
	"errors"
	"testing"
)

// https://zarr.readthedocs.io/en/stable/spec/v2.html#metadata
const specExample = `{
  "chunks": [
    1000,
    1000
  ],
	"compressor": {
			"id": "blosc",
			"cname": "lz4",
			"clevel": 5,
			"shuffle": 1
	},
	"dtype": "<f8",
	"fill_value": "NaN",
	"filters": [
			{"id": "delta", "dtype": "<f8", "astype": "<f4"}
	],
	"order": "C",
	"shape": [
			10000,
			10000
	],
	"zarr_format": 2
}`

func TestMetadataSerialization(t *testing.T) {
	m := &ArrayMeta{}
	err := json.Unmarshal([]byte(specExample), m)
	if err != nil {
		t.Fatal(err)
	}
	if m.Dtype != Float64 {
		t.Errorf("dtype mismatch. want: %s got: %s", Float64, m.Dtype)
	}
	if m.Compressor == nil || m.Compressor.Cname != "lz4" {
		t.Errorf("expected lz4 blosc compressor, got: %v", m.Compressor)
	}
	if len(m.Filters) != 1 || m.Filters[0].AsType != "<f4" {
		t.Errorf("filter mismatch: %v", m.Filters)
	}

	// blosc and filters can be described but not decoded
	if err := m.Validate(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got: %v", err)
	}
}

func TestMetadataValidate(t *testing.T) {
	valid := func() *ArrayMeta {
		return &ArrayMeta{
			ZarrFormat: ZarrFormat,
			Shape:      []int{10, 20},
			Chunks:     []int{5, 5},
			Dtype:      Int16,
			Compressor: &CompressionMeta{ID: CodecGzip},
			Order:      "F",
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	cases := []struct {
		description string
		edit        func(m *ArrayMeta)
		err         error
	}{
		{"no dimensions", func(m *ArrayMeta) { m.Shape, m.Chunks = nil, nil }, ErrInvalidShape},
		{"chunk rank", func(m *ArrayMeta) { m.Chunks = []int{5} }, ErrDimMismatch},
		{"zero chunk", func(m *ArrayMeta) { m.Chunks = []int{0, 5} }, ErrInvalidShape},
		{"order", func(m *ArrayMeta) { m.Order = "Z" }, ErrInvalidArgument},
		{"separator", func(m *ArrayMeta) { m.DimensionSeparator = "-" }, ErrInvalidArgument},
		{"compressor", func(m *ArrayMeta) { m.Compressor = &CompressionMeta{ID: "blosc"} }, ErrUnsupported},
		{"fill", func(m *ArrayMeta) { m.FillValue = "NaN" }, ErrInvalidArgument},
	}
	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			m := valid()
			c.edit(m)
			if err := m.Validate(); !errors.Is(err, c.err) {
				t.Errorf("error mismatch. want: %v got: %v", c.err, err)
			}
		})
	}
}

func TestAttributesOrigin(t *testing.T) {
	attrs := Attributes{}
	if err := json.Unmarshal([]byte(`{"ndarray_origin":[-3,7]}`), &attrs); err != nil {
		t.Fatal(err)
	}
	origin, err := attrs.Origin(2)
	if err != nil {
		t.Fatal(err)
	}
	if !equalInt64s(origin, []int64{-3, 7}) {
		t.Errorf("origin mismatch: %v", origin)
	}

	if _, err := attrs.Origin(3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for rank mismatch, got: %v", err)
	}

	origin, err = Attributes{}.Origin(2)
	if err != nil || !equalInt64s(origin, []int64{0, 0}) {
		t.Errorf("expected zero origin, got: %v %v", origin, err)
	}
}
