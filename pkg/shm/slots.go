package shm

import (
	"fmt"
)

// SlotView is a typed view over the data region of a segment. Reads and
// writes go straight to shared memory; nothing is cached.
//
// Multi-byte slots are not updated atomically. A reader racing a writer on
// the same slot can observe a torn value.
type SlotView struct {
	buf   []byte
	typ   ScalarType
	width int
	n     int
}

// NewSlotView binds n slots of type t to buf, which must hold at least
// n*t.Width() bytes.
func NewSlotView(buf []byte, t ScalarType, n int) (*SlotView, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScalarType, t)
	}
	if n < 0 || len(buf) < n*t.Width() {
		return nil, fmt.Errorf("shm: %d byte region cannot hold %d %s slots", len(buf), n, t)
	}
	return &SlotView{
		buf:   buf[:n*t.Width()],
		typ:   t,
		width: t.Width(),
		n:     n,
	}, nil
}

func (v *SlotView) Len() int { return v.n }

func (v *SlotView) Type() ScalarType { return v.typ }

func (v *SlotView) Get(i int) (Value, error) {
	if uint(i) >= uint(v.n) {
		return Value{}, v.outOfRange(i)
	}
	off := i * v.width
	return v.typ.decode(v.typ.load(v.buf[off : off+v.width])), nil
}

// Set writes value into slot i. A value the slot type cannot represent
// leaves the slot untouched and returns ErrValueOutOfRange.
func (v *SlotView) Set(i int, value Value) error {
	if uint(i) >= uint(v.n) {
		return v.outOfRange(i)
	}
	raw, err := v.typ.encode(value)
	if err != nil {
		return err
	}
	off := i * v.width
	v.typ.store(v.buf[off:off+v.width], raw)
	return nil
}

// Values returns a snapshot of every slot.
func (v *SlotView) Values() []Value {
	out := make([]Value, v.n)
	for i := range out {
		off := i * v.width
		out[i] = v.typ.decode(v.typ.load(v.buf[off : off+v.width]))
	}
	return out
}

func (v *SlotView) outOfRange(i int) error {
	return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotIndexOutOfRange, i, v.n)
}
