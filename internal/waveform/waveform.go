// Package waveform generates time-varying demo signals and paces producers
// at a fixed rate.
package waveform

import (
	"fmt"
	"math"
	"time"

	"github.com/srediag/shmrecord/api"
	"github.com/srediag/shmrecord/pkg/shm"
)

// Shape selects the signal waveform.
type Shape string

const (
	Sine     Shape = "sin"
	Triangle Shape = "triangle"
)

// Signal is a periodic value of time. The zero Signal is a unit sine with a
// one second period.
type Signal struct {
	Shape  Shape
	Period time.Duration
	Amp    float64
	// Phase is added to the sine argument, in radians. Triangles ignore it.
	Phase float64
	// T0 shifts the signal in time.
	T0   time.Duration
	Bias float64
	// MinMax, when set, overrides Amp and Bias so the signal spans [min, max].
	MinMax *[2]float64
}

// DefaultSignal is a unit sine with a one second period.
func DefaultSignal() Signal {
	return Signal{Shape: Sine, Period: time.Second, Amp: 1}
}

func (s Signal) normalized() (Signal, error) {
	if s.Shape == "" {
		s.Shape = Sine
	}
	if s.Period == 0 {
		s.Period = time.Second
	}
	if s.Period < 0 {
		return s, fmt.Errorf("waveform: period must be positive, got %s", s.Period)
	}
	if s.MinMax != nil {
		lo, hi := s.MinMax[0], s.MinMax[1]
		s.Amp, s.Bias = 0.5*(hi-lo), 0.5*(hi+lo)
	}
	switch s.Shape {
	case Sine, Triangle:
	default:
		return s, fmt.Errorf("waveform: unknown shape %q", s.Shape)
	}
	return s, nil
}

// At evaluates the signal at t, measured from the dataset epoch.
func (s Signal) At(t time.Duration) float64 {
	dt := s.Period.Seconds()
	x := (t - s.T0).Seconds()
	if s.Shape == Triangle {
		return 4*s.Amp/dt*math.Abs(floorMod(x-dt/4, dt)-dt/2) - s.Amp + s.Bias
	}
	return s.Amp*math.Sin(2*math.Pi*x/dt+s.Phase) + s.Bias
}

// floorMod is a modulo whose result has the sign of m.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// Dataset is a set of named signals sharing one epoch.
type Dataset struct {
	names   []string
	signals []Signal
	epoch   time.Time
}

// NewDataset builds a dataset. A name without an entry in signals gets
// DefaultSignal.
func NewDataset(names []string, signals map[string]Signal, epoch time.Time) (*Dataset, error) {
	d := &Dataset{
		names:   append([]string(nil), names...),
		signals: make([]Signal, len(names)),
		epoch:   epoch,
	}
	for i, n := range names {
		sig, ok := signals[n]
		if !ok {
			sig = DefaultSignal()
		}
		sig, err := sig.normalized()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n, err)
		}
		d.signals[i] = sig
	}
	return d, nil
}

func (d *Dataset) Names() []string { return append([]string(nil), d.names...) }

// Values evaluates every signal at the same instant.
func (d *Dataset) Values(now time.Time) []float64 {
	t := now.Sub(d.epoch)
	out := make([]float64, len(d.signals))
	for i, s := range d.signals {
		out[i] = s.At(t)
	}
	return out
}

// WriteTo evaluates the dataset at now and stores slot i of w from signal i,
// converted to the slot type with shm.Nearest.
func (d *Dataset) WriteTo(w api.Writer, typ shm.ScalarType, now time.Time) error {
	for i, v := range d.Values(now) {
		if err := w.Set(i, shm.Nearest(typ, v)); err != nil {
			return fmt.Errorf("%s: %w", d.names[i], err)
		}
	}
	return nil
}
