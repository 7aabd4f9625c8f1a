package waveform

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/srediag/shmrecord/pkg/shm"
)

type WaveformTestSuite struct {
	suite.Suite
}

func (s *WaveformTestSuite) TestSine() {
	sig, err := Signal{Period: 2 * time.Second, Amp: 5, Bias: 5}.normalized()
	s.Require().Nil(err)
	s.Require().InDelta(5.0, sig.At(0), 1e-9)
	s.Require().InDelta(10.0, sig.At(500*time.Millisecond), 1e-9)
	s.Require().InDelta(0.0, sig.At(1500*time.Millisecond), 1e-9)
	s.Require().InDelta(sig.At(300*time.Millisecond), sig.At(2300*time.Millisecond), 1e-9)

	shifted, err := Signal{Period: 2 * time.Second, Amp: 5, Bias: 5, Phase: math.Pi / 2}.normalized()
	s.Require().Nil(err)
	s.Require().InDelta(10.0, shifted.At(0), 1e-9)
}

func (s *WaveformTestSuite) TestTriangle() {
	sig, err := Signal{Shape: Triangle, Period: time.Second, Amp: 2}.normalized()
	s.Require().Nil(err)
	s.Require().InDelta(0.0, sig.At(0), 1e-9)
	s.Require().InDelta(2.0, sig.At(250*time.Millisecond), 1e-9)
	s.Require().InDelta(0.0, sig.At(500*time.Millisecond), 1e-9)
	s.Require().InDelta(-2.0, sig.At(750*time.Millisecond), 1e-9)
	s.Require().InDelta(1.0, sig.At(-875*time.Millisecond), 1e-9)
}

func (s *WaveformTestSuite) TestMinMaxOverridesAmpAndBias() {
	sig, err := Signal{Amp: 100, Bias: 100, MinMax: &[2]float64{-1, 3}}.normalized()
	s.Require().Nil(err)
	s.Require().Equal(2.0, sig.Amp)
	s.Require().Equal(1.0, sig.Bias)
	s.Require().Equal(Sine, sig.Shape)
	s.Require().Equal(time.Second, sig.Period)
}

func (s *WaveformTestSuite) TestInvalid() {
	_, err := Signal{Shape: "square"}.normalized()
	s.Require().NotNil(err)
	_, err = Signal{Period: -time.Second}.normalized()
	s.Require().NotNil(err)
	_, err = NewDataset([]string{"a"}, map[string]Signal{"a": {Shape: "saw"}}, time.Now())
	s.Require().ErrorContains(err, "a:")
}

func (s *WaveformTestSuite) TestDataset() {
	epoch := time.Unix(1000, 0)
	d, err := NewDataset([]string{"a", "b", "c"}, map[string]Signal{
		"a": {Period: 2 * time.Second, Amp: 5, Bias: 5},
		"c": {Period: 100 * time.Millisecond, Shape: Triangle, Amp: 1},
	}, epoch)
	s.Require().Nil(err)
	s.Require().Equal([]string{"a", "b", "c"}, d.Names())

	vals := d.Values(epoch.Add(500 * time.Millisecond))
	s.Require().Len(vals, 3)
	s.Require().InDelta(10.0, vals[0], 1e-9)
	s.Require().InDelta(0.0, vals[1], 1e-9)
	s.Require().InDelta(0.0, vals[2], 1e-9)
}

type sliceWriter struct {
	vals []shm.Value
}

func (w *sliceWriter) Set(i int, v shm.Value) error {
	w.vals[i] = v
	return nil
}

func (w *sliceWriter) SetVar(string, shm.Value) error { return nil }

func (s *WaveformTestSuite) TestWriteTo() {
	epoch := time.Unix(0, 0)
	d, err := NewDataset([]string{"x", "y"}, map[string]Signal{
		"x": {MinMax: &[2]float64{0, 1000}},
	}, epoch)
	s.Require().Nil(err)
	w := &sliceWriter{vals: make([]shm.Value, 2)}
	s.Require().Nil(d.WriteTo(w, shm.Uint8, epoch.Add(250*time.Millisecond)))
	s.Require().Equal(shm.Uint(255), w.vals[0])
	s.Require().Equal(shm.Uint(1), w.vals[1])
}

type fakeTime struct {
	now time.Time
}

func (f *fakeTime) Now() time.Time { return f.now }

// After advances the fake clock instead of sleeping.
func (f *fakeTime) After(d time.Duration) <-chan time.Time {
	f.now = f.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- f.now
	return ch
}

func (s *WaveformTestSuite) TestClockLockedToStart() {
	ft := &fakeTime{now: time.Unix(50, 0)}
	c := NewClock(10)
	c.now, c.after = ft.Now, ft.After
	c.start = ft.now
	s.Require().Equal(100*time.Millisecond, c.Period())

	ctx := context.Background()
	tick, err := c.Wait(ctx)
	s.Require().Nil(err)
	s.Require().Equal(int64(1), tick)
	s.Require().Equal(time.Unix(50, 0).Add(100*time.Millisecond), ft.now)

	// a slow iteration does not shift the grid
	ft.now = ft.now.Add(30 * time.Millisecond)
	tick, err = c.Wait(ctx)
	s.Require().Nil(err)
	s.Require().Equal(int64(2), tick)
	s.Require().Equal(time.Unix(50, 0).Add(200*time.Millisecond), ft.now)

	// missing ticks entirely drops them
	ft.now = ft.now.Add(350 * time.Millisecond)
	tick, err = c.Wait(ctx)
	s.Require().Nil(err)
	s.Require().Equal(int64(5), tick)
	s.Require().Equal(int64(2), c.Dropped())
	s.Require().Equal(int64(5), c.Tick())
}

func (s *WaveformTestSuite) TestClockCanceled() {
	c := NewClock(0.001)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Wait(ctx)
	s.Require().ErrorIs(err, context.Canceled)
}

func TestWaveformTestSuite(t *testing.T) {
	suite.Run(t, new(WaveformTestSuite))
}

func TestFloorMod(t *testing.T) {
	assert.InDelta(t, 0.25, floorMod(-0.75, 1), 1e-12)
	assert.InDelta(t, 0.5, floorMod(2.5, 1), 1e-12)
}
