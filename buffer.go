package ndarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// pixel buffers are typed slices passed around as interface{}. These helpers
// do the reflection so back-ends don't have to

func checkBuffer(dt Dtype, buf interface{}) (reflect.Value, error) {
	t, err := dt.GoType()
	if err != nil {
		return reflect.Value{}, err
	}
	v := reflect.ValueOf(buf)
	if v.Kind() != reflect.Slice || v.Type().Elem() != t {
		return reflect.Value{}, fmt.Errorf("%w: want []%s for dtype %s, got %T", ErrBufferType, t, dt, buf)
	}
	return v, nil
}

func checkSpan(v reflect.Value, start, size int) error {
	if start < 0 || size < 0 || start > v.Len()-size {
		return fmt.Errorf("%w: span [%d,%d) of buffer with length %d", ErrOutOfRange, start, start+size, v.Len())
	}
	return nil
}

func subBuffer(buf interface{}, start, size int) interface{} {
	return reflect.ValueOf(buf).Slice(start, start+size).Interface()
}

func copyPixels(dst interface{}, dstStart int, src interface{}, srcStart, n int) {
	reflect.Copy(
		reflect.ValueOf(dst).Slice(dstStart, dstStart+n),
		reflect.ValueOf(src).Slice(srcStart, srcStart+n),
	)
}

func fillPixels(buf interface{}, start, n int, fill reflect.Value) {
	v := reflect.ValueOf(buf)
	for i := start; i < start+n; i++ {
		v.Index(i).Set(fill)
	}
}

// fillValue converts a loosely typed fill (nil, a JSON number, or one of the
// zarr strings "NaN", "Infinity", "-Infinity") to a pixel value
func fillValue(dt Dtype, fill interface{}) (reflect.Value, error) {
	t, err := dt.GoType()
	if err != nil {
		return reflect.Value{}, err
	}
	if fill == nil {
		return reflect.Zero(t), nil
	}

	if s, ok := fill.(string); ok {
		var f float64
		switch s {
		case FillValueNaN:
			f = math.NaN()
		case FillValueInfinity:
			f = math.Inf(1)
		case FillValueNegativeInfinity:
			f = math.Inf(-1)
		default:
			return reflect.Value{}, fmt.Errorf("%w: fill value %q", ErrInvalidArgument, s)
		}
		if dt.BasicType != BTFloatingPoint {
			return reflect.Value{}, fmt.Errorf("%w: fill value %q needs a floating point dtype, have %s", ErrInvalidArgument, s, dt)
		}
		fill = f
	}

	v := reflect.ValueOf(fill)
	if !v.Type().ConvertibleTo(t) {
		return reflect.Value{}, fmt.Errorf("%w: fill value %v (%T) doesn't convert to %s", ErrInvalidArgument, fill, fill, t)
	}
	return v.Convert(t), nil
}

func decodePixels(dt Dtype, src []byte, buf interface{}, start, size int) error {
	return binary.Read(bytes.NewReader(src), dt.Order(), subBuffer(buf, start, size))
}

func encodePixels(dt Dtype, buf interface{}, start, size int) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0, size*dt.ByteSize))
	if err := binary.Write(b, dt.Order(), subBuffer(buf, start, size)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// convertPixels copies n pixels from src to dst, converting numeric types
func ConvertPixels(dst, src interface{}, n int) error {
	dv, sv := reflect.ValueOf(dst), reflect.ValueOf(src)
	if dv.Type() == sv.Type() {
		reflect.Copy(dv.Slice(0, n), sv.Slice(0, n))
		return nil
	}
	et := dv.Type().Elem()
	if !sv.Type().Elem().ConvertibleTo(et) {
		return fmt.Errorf("%w: can't convert %s pixels to %s", ErrBufferType, sv.Type().Elem(), et)
	}
	for i := 0; i < n; i++ {
		dv.Index(i).Set(sv.Index(i).Convert(et))
	}
	return nil
}
