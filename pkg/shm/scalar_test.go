package shm

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ScalarTestSuite struct {
	suite.Suite
}

func (s *ScalarTestSuite) TestParseScalarType() {
	for _, tag := range ScalarTags() {
		t, err := ParseScalarType(tag)
		s.Require().Nil(err)
		s.Require().Equal(tag, t.String())
		s.Require().True(t.Valid())
	}

	_, err := ParseScalarType("complex128")
	s.Require().ErrorIs(err, ErrInvalidScalarType)
	s.Require().Contains(err.Error(), "float64")

	_, err = ParseScalarType("")
	s.Require().ErrorIs(err, ErrInvalidScalarType)
}

func (s *ScalarTestSuite) TestWidths() {
	widths := map[ScalarType]int{
		Float64: 8, Float32: 4,
		Int64: 8, Int32: 4, Int16: 2, Int8: 1,
		Uint64: 8, Uint32: 4, Uint16: 2, Uint8: 1,
		Bool: 1,
	}
	s.Require().Len(ScalarTags(), len(widths))
	for t, w := range widths {
		s.Require().Equal(w, t.Width(), t.String())
	}
}

func (s *ScalarTestSuite) TestLittleEndianLayout() {
	buf := make([]byte, 8)
	view, err := NewSlotView(buf, Uint32, 2)
	s.Require().Nil(err)
	s.Require().Nil(view.Set(1, Uint(0x01020304)))
	s.Require().Equal([]byte{0, 0, 0, 0, 0x04, 0x03, 0x02, 0x01}, buf)
}

func (s *ScalarTestSuite) TestRoundTrip() {
	cases := []struct {
		typ  ScalarType
		vals []Value
	}{
		{Float64, []Value{Float(0), Float(-1.5), Float(math.MaxFloat64), Float(math.Inf(-1)), Float(1e-300)}},
		{Float32, []Value{Float(0), Float(2.5), Float(-1024), Float(math.MaxFloat32)}},
		{Int64, []Value{Int(math.MinInt64), Int(math.MaxInt64), Int(-1), Int(0)}},
		{Int32, []Value{Int(math.MinInt32), Int(math.MaxInt32)}},
		{Int16, []Value{Int(math.MinInt16), Int(math.MaxInt16)}},
		{Int8, []Value{Int(math.MinInt8), Int(math.MaxInt8)}},
		{Uint64, []Value{Uint(0), Uint(math.MaxUint64)}},
		{Uint32, []Value{Uint(math.MaxUint32)}},
		{Uint16, []Value{Uint(math.MaxUint16)}},
		{Uint8, []Value{Uint(math.MaxUint8)}},
		{Bool, []Value{BoolValue(true), BoolValue(false)}},
	}
	for _, c := range cases {
		buf := make([]byte, c.typ.Width()*len(c.vals))
		view, err := NewSlotView(buf, c.typ, len(c.vals))
		s.Require().Nil(err)
		for i, v := range c.vals {
			s.Require().Nil(view.Set(i, v), "%s %s", c.typ, v)
		}
		for i, v := range c.vals {
			got, err := view.Get(i)
			s.Require().Nil(err)
			s.Require().Equal(v, got, "%s slot %d", c.typ, i)
		}
	}
}

func (s *ScalarTestSuite) TestNaNSurvivesFloatSlots() {
	for _, t := range []ScalarType{Float64, Float32} {
		view, err := NewSlotView(make([]byte, t.Width()), t, 1)
		s.Require().Nil(err)
		s.Require().Nil(view.Set(0, Float(math.NaN())))
		got, err := view.Get(0)
		s.Require().Nil(err)
		s.Require().True(math.IsNaN(got.Float64()))
	}
}

func (s *ScalarTestSuite) TestOutOfRangeIsRejected() {
	rejected := []struct {
		typ ScalarType
		val Value
	}{
		{Int8, Int(128)},
		{Int8, Int(-129)},
		{Int16, Int(math.MaxInt16 + 1)},
		{Int32, Uint(math.MaxInt32 + 1)},
		{Int64, Uint(math.MaxUint64)},
		{Int64, Float(1.5)},
		{Int64, Float(math.NaN())},
		{Int64, Float(math.Inf(1))},
		{Int64, Float(twoTo63)},
		{Uint8, Int(-1)},
		{Uint8, Uint(256)},
		{Uint64, Float(-1)},
		{Uint64, Float(twoTo64)},
		{Float32, Float(math.MaxFloat64)},
		{Float32, Int(1<<24 + 1)},
		{Float64, Int(1<<53 + 1)},
		{Float64, BoolValue(true)},
		{Int32, BoolValue(false)},
		{Bool, Int(2)},
		{Bool, Float(1)},
		{Float64, Value{}},
	}
	for _, c := range rejected {
		buf := []byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
		view, err := NewSlotView(buf, c.typ, 1)
		s.Require().Nil(err)
		err = view.Set(0, c.val)
		s.Require().ErrorIs(err, ErrValueOutOfRange, "%s <- %s %s", c.typ, c.val.Kind(), c.val)
		// rejected writes leave the slot alone
		s.Require().Equal(byte(0xAA), buf[0])
	}
}

func (s *ScalarTestSuite) TestExactConversionsAccepted() {
	view, err := NewSlotView(make([]byte, 8), Int16, 1)
	s.Require().Nil(err)
	s.Require().Nil(view.Set(0, Float(-300)))
	got, _ := view.Get(0)
	s.Require().Equal(Int(-300), got)

	view, err = NewSlotView(make([]byte, 8), Float64, 1)
	s.Require().Nil(err)
	s.Require().Nil(view.Set(0, Uint(1<<53)))
	got, _ = view.Get(0)
	s.Require().Equal(Float(1<<53), got)

	view, err = NewSlotView(make([]byte, 1), Bool, 1)
	s.Require().Nil(err)
	s.Require().Nil(view.Set(0, Int(1)))
	got, _ = view.Get(0)
	s.Require().Equal(BoolValue(true), got)

	view, err = NewSlotView(make([]byte, 4), Float32, 1)
	s.Require().Nil(err)
	s.Require().Nil(view.Set(0, Float(0.1)))
	got, _ = view.Get(0)
	s.Require().Equal(float64(float32(0.1)), got.Float64())
}

func (s *ScalarTestSuite) TestSlotIndexBounds() {
	view, err := NewSlotView(make([]byte, 16), Float64, 2)
	s.Require().Nil(err)
	for _, i := range []int{-1, 2, math.MaxInt} {
		_, err := view.Get(i)
		s.Require().ErrorIs(err, ErrSlotIndexOutOfRange)
		s.Require().ErrorIs(view.Set(i, Float(1)), ErrSlotIndexOutOfRange)
	}

	_, err = NewSlotView(make([]byte, 15), Float64, 2)
	s.Require().NotNil(err)
}

func (s *ScalarTestSuite) TestParseValue() {
	v, err := ParseValue(Int8, "-12")
	s.Require().Nil(err)
	s.Require().Equal(Int(-12), v)

	v, err = ParseValue(Uint16, "0x10")
	s.Require().Nil(err)
	s.Require().Equal(Uint(16), v)

	v, err = ParseValue(Float32, "2.5")
	s.Require().Nil(err)
	s.Require().Equal(Float(2.5), v)

	v, err = ParseValue(Bool, "true")
	s.Require().Nil(err)
	s.Require().Equal(BoolValue(true), v)

	_, err = ParseValue(Uint8, "-1")
	s.Require().NotNil(err)
}

func TestValueConversions(t *testing.T) {
	assert.Equal(t, int64(-2), Float(-2.9).Int64())
	assert.Equal(t, 3.0, Int(3).Float64())
	assert.Equal(t, uint64(7), Uint(7).Uint64())
	assert.True(t, Float(0.5).Bool())
	assert.False(t, Int(0).Bool())
	assert.Equal(t, "1.25", Float(1.25).String())
	assert.Equal(t, "-4", Int(-4).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "<invalid>", Value{}.String())
	assert.Equal(t, KindUint, Uint(1).Kind())
	assert.True(t, errors.Is(Int8.outOfRange(Int(999)), ErrValueOutOfRange))
}

func TestScalarTestSuite(t *testing.T) {
	suite.Run(t, new(ScalarTestSuite))
}

func TestNearest(t *testing.T) {
	assert.Equal(t, Int(127), Nearest(Int8, 1e9))
	assert.Equal(t, Int(-128), Nearest(Int8, -1e9))
	assert.Equal(t, Int(3), Nearest(Int16, 2.6))
	assert.Equal(t, Int(math.MaxInt64), Nearest(Int64, math.Inf(1)))
	assert.Equal(t, Uint(0), Nearest(Uint8, -4))
	assert.Equal(t, Uint(255), Nearest(Uint8, 300))
	assert.Equal(t, Uint(math.MaxUint64), Nearest(Uint64, 1e30))
	assert.Equal(t, Uint(0), Nearest(Uint32, math.NaN()))
	assert.Equal(t, BoolValue(true), Nearest(Bool, -0.5))
	assert.Equal(t, BoolValue(false), Nearest(Bool, 0))
	assert.Equal(t, Float(1.5), Nearest(Float64, 1.5))
	assert.Equal(t, Float(math.MaxFloat32), Nearest(Float32, 1e300))

	for _, typ := range []ScalarType{Float64, Float32, Int64, Int32, Int16, Int8, Uint64, Uint32, Uint16, Uint8, Bool} {
		view, err := NewSlotView(make([]byte, 8), typ, 1)
		assert.Nil(t, err)
		for _, f := range []float64{-1e40, -3.3, 0, 0.4, 7.5, 1e40, math.Inf(-1), math.NaN()} {
			assert.Nil(t, view.Set(0, Nearest(typ, f)), "%s %v", typ, f)
		}
	}
}
