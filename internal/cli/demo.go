package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/srediag/shmrecord/internal/logger"
	"github.com/srediag/shmrecord/internal/waveform"
)

// demoSignals gives every field its own period so the fields are easy to
// tell apart in a viewer: field i repeats every i+1 seconds, odd fields are
// triangles.
func demoSignals(names []string) map[string]waveform.Signal {
	out := make(map[string]waveform.Signal, len(names))
	for i, n := range names {
		sig := waveform.DefaultSignal()
		sig.Period = time.Duration(i+1) * time.Second
		sig.Amp = float64(10 * (i + 1))
		if i%2 == 1 {
			sig.Shape = waveform.Triangle
		}
		out[n] = sig
	}
	return out
}

func newDemoCommand(c *cmdIO) *cobra.Command {
	var (
		rate  float64
		ticks int64
		open  openOptions
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write waveform test data into every configured record set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), c, rate, ticks, open)
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 20, "Updates per second.")
	cmd.Flags().Int64Var(&ticks, "ticks", 0, "Stop after this many updates; 0 runs until interrupted.")
	cmd.Flags().BoolVar(&open.reset, "reset", false, "Unlink and recreate every segment first.")
	return cmd
}

func runDemo(ctx context.Context, c *cmdIO, rate float64, ticks int64, open openOptions) error {
	file, err := c.loadFile()
	if err != nil {
		return err
	}
	reg := newRegistry()
	reg.attach(ctx, file, open)
	defer reg.close()

	type target struct {
		a    *attachment
		data *waveform.Dataset
	}
	start := time.Now()
	var targets []target
	for _, a := range reg.list() {
		if err := a.Ready(); err != nil {
			logger.Internal.Errorf("demo skips %s: %v", a.entry.Label, err)
			continue
		}
		keys := a.rs.Keys()
		d, err := waveform.NewDataset(keys, demoSignals(keys), start)
		if err != nil {
			return errors.Wrap(err, a.entry.Label)
		}
		targets = append(targets, target{a: a, data: d})
	}
	if len(targets) == 0 {
		return errors.New("no record set could be attached")
	}

	clock := waveform.NewClock(rate)
	for {
		tick, err := clock.Wait(ctx)
		if err != nil {
			break
		}
		now := time.Now()
		for _, t := range targets {
			if err := t.data.WriteTo(t.a.rs, t.a.rs.Type(), now); err != nil {
				return errors.Wrapf(err, "writing %s", t.a.entry.Label)
			}
		}
		if ticks > 0 && tick >= ticks {
			break
		}
	}
	if d := clock.Dropped(); d > 0 {
		logger.Internal.Warnf("demo dropped %d ticks", d)
	}
	return nil
}
