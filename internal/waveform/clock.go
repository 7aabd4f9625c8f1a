package waveform

import (
	"context"
	"time"
)

// Clock paces a loop at a fixed rate. Ticks are locked to the start time, so
// a slow iteration does not shift later ticks; ticks that are missed
// entirely are counted as dropped instead of being replayed.
type Clock struct {
	start   time.Time
	period  time.Duration
	last    int64
	dropped int64
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time
}

// NewClock returns a clock ticking rate times per second from now.
func NewClock(rate float64) *Clock {
	if rate <= 0 {
		rate = 1
	}
	c := &Clock{
		period: time.Duration(float64(time.Second) / rate),
		now:    time.Now,
		after:  time.After,
	}
	c.start = c.now()
	return c
}

func (c *Clock) Period() time.Duration { return c.period }

// Tick is the number of whole periods elapsed since the start.
func (c *Clock) Tick() int64 {
	return int64(c.now().Sub(c.start) / c.period)
}

// Dropped is the number of ticks Wait skipped over so far.
func (c *Clock) Dropped() int64 { return c.dropped }

// Wait blocks until the tick after the last one returned and returns its
// number. A caller already past that tick gets the current tick at once and
// the ticks in between count as dropped. Wait returns early with the context
// error on cancellation.
func (c *Clock) Wait(ctx context.Context) (int64, error) {
	now := c.Tick()
	next := c.last + 1
	if now > next {
		c.dropped += now - next
		next = now
	}
	if now < next {
		deadline := c.start.Add(time.Duration(next) * c.period)
		select {
		case <-ctx.Done():
			return c.last, ctx.Err()
		case <-c.after(deadline.Sub(c.now())):
		}
	} else if err := ctx.Err(); err != nil {
		return c.last, err
	}
	c.last = next
	return next, nil
}
