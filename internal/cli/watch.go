package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/spf13/cobra"

	"github.com/srediag/shmrecord/pkg/shm"
)

// change is one field whose value differs from the previous poll.
type change struct {
	at    time.Time
	label string
	field string
	old   shm.Value
	new   shm.Value
	err   error
}

func (c change) String() string {
	ts := c.at.Format(time.TimeOnly + ".000")
	switch {
	case c.err != nil:
		return fmt.Sprintf("%s %s: INVALID Configuration: %v", ts, c.label, c.err)
	case c.old.Kind() == shm.KindInvalid:
		return fmt.Sprintf("%s %s.%s = %s", ts, c.label, c.field, c.new)
	}
	return fmt.Sprintf("%s %s.%s %s -> %s", ts, c.label, c.field, c.old, c.new)
}

// diff compares two polls of the same record sets and returns the changes.
// Sets that are invalid are reported once, when they first show up.
func diff(prev, cur []snapshot, at time.Time) []change {
	var out []change
	for i, s := range cur {
		var p snapshot
		if i < len(prev) {
			p = prev[i]
		}
		if s.err != nil {
			if p.err == nil || p.err.Error() != s.err.Error() {
				out = append(out, change{at: at, label: s.label, err: s.err})
			}
			continue
		}
		for j, v := range s.values {
			var old shm.Value
			if j < len(p.values) {
				old = p.values[j]
			}
			if old != v {
				out = append(out, change{at: at, label: s.label, field: s.keys[j], old: old, new: v})
			}
		}
	}
	return out
}

// printChanges drains q until it is disposed.
func printChanges(w io.Writer, q *queue.Queue, done chan<- struct{}) {
	defer close(done)
	for {
		items, err := q.Get(64)
		if err != nil {
			return
		}
		for _, it := range items {
			fmt.Fprintln(w, it.(change))
		}
	}
}

func newWatchCommand(c *cmdIO) *cobra.Command {
	f := &viewFlags{}
	var rounds int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print record set fields as they change.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), c, f, rounds)
		},
	}
	addViewFlags(cmd, f)
	cmd.Flags().IntVar(&rounds, "rounds", 0, "Stop after this many polls; 0 runs until interrupted.")
	return cmd
}

func runWatch(ctx context.Context, c *cmdIO, f *viewFlags, rounds int) error {
	file, err := c.loadFile()
	if err != nil {
		return err
	}
	reg := newRegistry()
	reg.attach(ctx, file, f.open)
	defer reg.close()

	p, err := newPoller(reg, f.workers)
	if err != nil {
		return err
	}
	defer p.release()

	if f.metricsAddr != "" {
		defer shutdown(serveMetrics(f.metricsAddr, reg))
	}

	q := queue.New(64)
	done := make(chan struct{})
	go printChanges(c.stdout, q, done)
	defer func() {
		// let the printer drain what was queued before stopping it
		for !q.Empty() {
			time.Sleep(time.Millisecond)
		}
		q.Dispose()
		<-done
	}()

	var prev []snapshot
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		cur := p.poll()
		for _, ch := range diff(prev, cur, time.Now()) {
			if err := q.Put(ch); err != nil {
				return err
			}
		}
		prev = cur
		if rounds > 0 && n >= rounds {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
