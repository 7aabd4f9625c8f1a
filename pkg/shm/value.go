package shm

import (
	"math"
	"strconv"
)

// Kind tells which Go type a Value carries.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFloat
	KindInt
	KindUint
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindBool:
		return "bool"
	}
	return "invalid"
}

// Value is one scalar read from or written to a slot. It is a plain value
// type so that Get and Set never allocate.
type Value struct {
	kind Kind
	bits uint64
}

func Float(f float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(f)} }

func Int(i int64) Value { return Value{kind: KindInt, bits: uint64(i)} }

func Uint(u uint64) Value { return Value{kind: KindUint, bits: u} }

func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool}
}

func (v Value) Kind() Kind { return v.kind }

// Float64 converts the value to float64. Integers beyond 2^53 lose precision.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindFloat:
		return math.Float64frombits(v.bits)
	case KindInt:
		return float64(int64(v.bits))
	default:
		return float64(v.bits)
	}
}

// Int64 converts the value to int64, truncating floats toward zero.
func (v Value) Int64() int64 {
	if v.kind == KindFloat {
		return int64(math.Float64frombits(v.bits))
	}
	return int64(v.bits)
}

// Uint64 converts the value to uint64, truncating floats toward zero.
func (v Value) Uint64() uint64 {
	if v.kind == KindFloat {
		return uint64(math.Float64frombits(v.bits))
	}
	return v.bits
}

// Bool reports whether the value is non-zero.
func (v Value) Bool() bool {
	if v.kind == KindFloat {
		return math.Float64frombits(v.bits) != 0
	}
	return v.bits != 0
}

func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindUint:
		return strconv.FormatUint(v.bits, 10)
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	}
	return "<invalid>"
}

// ParseValue parses s as a value for a slot of type t, e.g. a command line
// argument. The result still goes through the range checks of Set.
func ParseValue(t ScalarType, s string) (Value, error) {
	switch {
	case t == Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case t.isFloat():
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case t.isSigned():
		i, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case t.isUnsigned():
		u, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return Value{}, err
		}
		return Uint(u), nil
	}
	return Value{}, ErrInvalidScalarType
}

// 2^63 and 2^64 as float64; both are exact.
const (
	twoTo63 = 9223372036854775808.0
	twoTo64 = 18446744073709551616.0
)

func (v Value) exactInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return int64(v.bits), true
	case KindUint:
		return int64(v.bits), v.bits <= math.MaxInt64
	case KindFloat:
		f := math.Float64frombits(v.bits)
		if f != math.Trunc(f) || f < -twoTo63 || f >= twoTo63 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func (v Value) exactUint64() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.bits, true
	case KindInt:
		return v.bits, int64(v.bits) >= 0
	case KindFloat:
		f := math.Float64frombits(v.bits)
		if f != math.Trunc(f) || f < 0 || f >= twoTo64 {
			return 0, false
		}
		return uint64(f), true
	}
	return 0, false
}

func (v Value) exactFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return math.Float64frombits(v.bits), true
	case KindInt:
		i := int64(v.bits)
		f := float64(i)
		if f >= twoTo63 {
			return 0, false
		}
		return f, int64(f) == i
	case KindUint:
		f := float64(v.bits)
		if f >= twoTo64 {
			return 0, false
		}
		return f, uint64(f) == v.bits
	}
	return 0, false
}

// Nearest returns the value of type t closest to f: rounded to an integer
// and clamped to the range of integer types, true for any non-zero f on
// bool slots. NaN maps to zero on non-float types. Producers that generate
// floats use it to fill slots of any type without tripping the range checks.
func Nearest(t ScalarType, f float64) Value {
	switch {
	case t.isFloat():
		if t == Float32 && !math.IsNaN(f) {
			f = math.Max(-math.MaxFloat32, math.Min(math.MaxFloat32, f))
		}
		return Float(f)
	case t == Bool:
		return BoolValue(f != 0 && !math.IsNaN(f))
	case math.IsNaN(f):
		if t.isSigned() {
			return Int(0)
		}
		return Uint(0)
	case t.isSigned():
		r := math.Round(f)
		if r <= float64(signedMin[t]) {
			return Int(signedMin[t])
		}
		if r >= float64(signedMax[t]) {
			return Int(signedMax[t])
		}
		return Int(int64(r))
	case t.isUnsigned():
		r := math.Round(f)
		if r <= 0 {
			return Uint(0)
		}
		if r >= float64(unsignedMax[t]) {
			return Uint(unsignedMax[t])
		}
		return Uint(uint64(r))
	}
	return Value{}
}
