package shm

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ScalarType is the closed set of element types a record set can hold.
type ScalarType uint8

const (
	invalidType ScalarType = iota
	Float64
	Float32
	Int64
	Int32
	Int16
	Int8
	Uint64
	Uint32
	Uint16
	Uint8
	Bool
	scalarTypeEnd
)

// scalarTypes is indexed by ScalarType. Tags are part of the schema digest and
// must never change.
var scalarTypes = [...]struct {
	tag   string
	width int
}{
	invalidType: {"invalid", 0},
	Float64:     {"float64", 8},
	Float32:     {"float32", 4},
	Int64:       {"int64", 8},
	Int32:       {"int32", 4},
	Int16:       {"int16", 2},
	Int8:        {"int8", 1},
	Uint64:      {"uint64", 8},
	Uint32:      {"uint32", 4},
	Uint16:      {"uint16", 2},
	Uint8:       {"uint8", 1},
	Bool:        {"bool", 1},
}

// ParseScalarType resolves a type tag such as "float64" or "uint8".
func ParseScalarType(tag string) (ScalarType, error) {
	for t := Float64; t < scalarTypeEnd; t++ {
		if scalarTypes[t].tag == tag {
			return t, nil
		}
	}
	return invalidType, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidScalarType, tag, strings.Join(ScalarTags(), ", "))
}

// ScalarTags lists every valid type tag in registry order.
func ScalarTags() []string {
	tags := make([]string, 0, scalarTypeEnd-1)
	for t := Float64; t < scalarTypeEnd; t++ {
		tags = append(tags, scalarTypes[t].tag)
	}
	return tags
}

func (t ScalarType) Valid() bool {
	return t > invalidType && t < scalarTypeEnd
}

// String returns the type tag.
func (t ScalarType) String() string {
	if !t.Valid() {
		return scalarTypes[invalidType].tag
	}
	return scalarTypes[t].tag
}

// Width is the encoded size of one element in bytes.
func (t ScalarType) Width() int {
	if !t.Valid() {
		return 0
	}
	return scalarTypes[t].width
}

func (t ScalarType) isFloat() bool { return t == Float64 || t == Float32 }

func (t ScalarType) isSigned() bool { return t >= Int64 && t <= Int8 }

func (t ScalarType) isUnsigned() bool { return t >= Uint64 && t <= Uint8 }

// Encoding is little-endian for every multi-byte type; bool is one byte, 0 or 1.

func (t ScalarType) load(src []byte) uint64 {
	switch t.Width() {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(src))
	case 4:
		return uint64(binary.LittleEndian.Uint32(src))
	default:
		return binary.LittleEndian.Uint64(src)
	}
}

func (t ScalarType) store(dst []byte, raw uint64) {
	switch t.Width() {
	case 1:
		dst[0] = byte(raw)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(raw))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(raw))
	default:
		binary.LittleEndian.PutUint64(dst, raw)
	}
}

// decode turns the raw bits of one element into a Value of the matching kind.
func (t ScalarType) decode(raw uint64) Value {
	switch t {
	case Float64:
		return Float(math.Float64frombits(raw))
	case Float32:
		return Float(float64(math.Float32frombits(uint32(raw))))
	case Int64:
		return Int(int64(raw))
	case Int32:
		return Int(int64(int32(raw)))
	case Int16:
		return Int(int64(int16(raw)))
	case Int8:
		return Int(int64(int8(raw)))
	case Bool:
		return BoolValue(raw != 0)
	default:
		return Uint(raw)
	}
}

// encode converts v to the raw bits of one element. Values that the type
// cannot represent are rejected with ErrValueOutOfRange; nothing is truncated.
func (t ScalarType) encode(v Value) (uint64, error) {
	switch {
	case t == Bool:
		return encodeBool(v)
	case v.kind == KindBool:
		return 0, t.outOfRange(v)
	case t.isFloat():
		return t.encodeFloat(v)
	case t.isSigned():
		i, ok := v.exactInt64()
		if !ok || i < signedMin[t] || i > signedMax[t] {
			return 0, t.outOfRange(v)
		}
		return uint64(i), nil
	case t.isUnsigned():
		u, ok := v.exactUint64()
		if !ok || u > unsignedMax[t] {
			return 0, t.outOfRange(v)
		}
		return u, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidScalarType, t)
}

var (
	signedMin = map[ScalarType]int64{
		Int64: math.MinInt64, Int32: math.MinInt32, Int16: math.MinInt16, Int8: math.MinInt8,
	}
	signedMax = map[ScalarType]int64{
		Int64: math.MaxInt64, Int32: math.MaxInt32, Int16: math.MaxInt16, Int8: math.MaxInt8,
	}
	unsignedMax = map[ScalarType]uint64{
		Uint64: math.MaxUint64, Uint32: math.MaxUint32, Uint16: math.MaxUint16, Uint8: math.MaxUint8,
	}
)

func encodeBool(v Value) (uint64, error) {
	switch v.kind {
	case KindBool:
		return v.bits, nil
	case KindInt, KindUint:
		if v.bits == 0 || v.bits == 1 {
			return v.bits, nil
		}
	}
	return 0, Bool.outOfRange(v)
}

func (t ScalarType) encodeFloat(v Value) (uint64, error) {
	f, ok := v.exactFloat64()
	if !ok {
		return 0, t.outOfRange(v)
	}
	if t == Float64 {
		return math.Float64bits(f), nil
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, t.outOfRange(v)
	}
	f32 := float32(f)
	if v.kind != KindFloat && float64(f32) != f {
		// integers must survive the narrowing exactly
		return 0, t.outOfRange(v)
	}
	return uint64(math.Float32bits(f32)), nil
}

func (t ScalarType) outOfRange(v Value) error {
	return fmt.Errorf("%w: %s %s does not fit %s", ErrValueOutOfRange, v.kind, v, t)
}
