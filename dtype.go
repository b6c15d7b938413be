package ndarray

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Dtype is the pixel type of an array, written as a NumPy array protocol
// type string (typestr). The format consists of 3 parts:
//   - One character describing the byteorder of the data:
//     "<": little-endian; ">": big-endian; "|": not-relevant
//   - One character code giving the basic type of the array:
//     "b": Boolean, "i": integer, "u": unsigned integer, "f": floating point,
//     "c": complex floating point, "m": timedelta, "M": datetime,
//     "S": string, "U": unicode, "V": other
//   - An integer specifying the number of bytes the type uses.
//
// Only fixed size numeric and boolean types can back pixel buffers, see GoType
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
	Units     string
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

// Common pixel types, little-endian
var (
	Bool       = Dtype{ByteOrder: BONotRelevant, BasicType: BTBoolean, ByteSize: 1}
	Int8       = Dtype{ByteOrder: BONotRelevant, BasicType: BTInteger, ByteSize: 1}
	Uint8      = Dtype{ByteOrder: BONotRelevant, BasicType: BTUnsigned, ByteSize: 1}
	Int16      = Dtype{ByteOrder: BOLittleEndian, BasicType: BTInteger, ByteSize: 2}
	Uint16     = Dtype{ByteOrder: BOLittleEndian, BasicType: BTUnsigned, ByteSize: 2}
	Int32      = Dtype{ByteOrder: BOLittleEndian, BasicType: BTInteger, ByteSize: 4}
	Uint32     = Dtype{ByteOrder: BOLittleEndian, BasicType: BTUnsigned, ByteSize: 4}
	Int64      = Dtype{ByteOrder: BOLittleEndian, BasicType: BTInteger, ByteSize: 8}
	Uint64     = Dtype{ByteOrder: BOLittleEndian, BasicType: BTUnsigned, ByteSize: 8}
	Float32    = Dtype{ByteOrder: BOLittleEndian, BasicType: BTFloatingPoint, ByteSize: 4}
	Float64    = Dtype{ByteOrder: BOLittleEndian, BasicType: BTFloatingPoint, ByteSize: 8}
	Complex64  = Dtype{ByteOrder: BOLittleEndian, BasicType: BTComplex, ByteSize: 8}
	Complex128 = Dtype{ByteOrder: BOLittleEndian, BasicType: BTComplex, ByteSize: 16}
)

// ParseDtype reads a typestr like "<f8"
func ParseDtype(s string) (dt Dtype, err error) {
	// bug in python implementation uses HTML escape sequences when serializaing JSON
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	if dt.ByteOrder, err = ParseByteOrder(rune(s[0])); err != nil {
		return dt, err
	}
	if dt.BasicType, err = ParseBasicType(rune(s[1])); err != nil {
		return dt, err
	}

	sizeStr := s[2:]
	if i := strings.IndexByte(sizeStr, '['); i >= 0 {
		sizeStr, dt.Units = sizeStr[:i], sizeStr[i:]
	}
	size, err := strconv.ParseInt(sizeStr, 10, 0)
	if err != nil {
		return dt, fmt.Errorf("invalid Dtype size %q: %w", sizeStr, err)
	}
	dt.ByteSize = int(size)

	return dt, nil
}

func (dt Dtype) String() string {
	return fmt.Sprintf("%s%s%d%s", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize, dt.Units)
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return marshalJSON(dt.String(), false)
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return fmt.Errorf("dtype must be a typestr: %w", err)
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

// Order returns the encoding/binary byte order for the type
func (dt Dtype) Order() binary.ByteOrder {
	if dt.ByteOrder == BOLittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// GoType returns the Go element type for pixels of this dtype
func (dt Dtype) GoType() (reflect.Type, error) {
	var v interface{}
	switch dt.BasicType {
	case BTBoolean:
		if dt.ByteSize == 1 {
			v = false
		}
	case BTInteger:
		switch dt.ByteSize {
		case 1:
			v = int8(0)
		case 2:
			v = int16(0)
		case 4:
			v = int32(0)
		case 8:
			v = int64(0)
		}
	case BTUnsigned:
		switch dt.ByteSize {
		case 1:
			v = uint8(0)
		case 2:
			v = uint16(0)
		case 4:
			v = uint32(0)
		case 8:
			v = uint64(0)
		}
	case BTFloatingPoint:
		switch dt.ByteSize {
		case 4:
			v = float32(0)
		case 8:
			v = float64(0)
		}
	case BTComplex:
		switch dt.ByteSize {
		case 8:
			v = complex64(0)
		case 16:
			v = complex128(0)
		}
	}
	if v == nil {
		return nil, fmt.Errorf("%w: no pixel type for dtype %s", ErrUnsupported, dt)
	}
	return reflect.TypeOf(v), nil
}

// NewBuffer allocates a typed slice able to hold n pixels, eg. []float64 for
// "<f8"
func (dt Dtype) NewBuffer(n int) (interface{}, error) {
	t, err := dt.GoType()
	if err != nil {
		return nil, err
	}
	return reflect.MakeSlice(reflect.SliceOf(t), n, n).Interface(), nil
}

// DtypeOf infers a little-endian Dtype from a typed slice
func DtypeOf(buf interface{}) (Dtype, error) {
	switch buf.(type) {
	case []bool:
		return Bool, nil
	case []int8:
		return Int8, nil
	case []uint8:
		return Uint8, nil
	case []int16:
		return Int16, nil
	case []uint16:
		return Uint16, nil
	case []int32:
		return Int32, nil
	case []uint32:
		return Uint32, nil
	case []int64:
		return Int64, nil
	case []uint64:
		return Uint64, nil
	case []float32:
		return Float32, nil
	case []float64:
		return Float64, nil
	case []complex64:
		return Complex64, nil
	case []complex128:
		return Complex128, nil
	default:
		return Dtype{}, fmt.Errorf("%w: %T is not a pixel slice", ErrBufferType, buf)
	}
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := basicTypeNames[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

// Human returns a readable name for the basic type
func (bt BasicType) Human() string {
	return basicTypeNames[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTComplex       BasicType = 'c'
	BTTimedelta     BasicType = 'm'
	BTDatetime      BasicType = 'M'
	BTString        BasicType = 'S'
	BTUnicode       BasicType = 'U'
	BTOther         BasicType = 'V'
)

var basicTypeNames = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
	BTComplex:       "complex",
	BTTimedelta:     "timeDelta",
	BTDatetime:      "dateTime",
	BTString:        "string",
	BTUnicode:       "unicode",
	BTOther:         "other",
}
