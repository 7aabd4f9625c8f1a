package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/srediag/shmrecord/internal/logger"
	"github.com/srediag/shmrecord/pkg/health"
	"github.com/srediag/shmrecord/pkg/shm"
)

// snapshot is the state of one record set at one poll.
type snapshot struct {
	label   string
	segment string
	keys    []string
	values  []shm.Value
	err     error
}

func (a *attachment) snapshot() snapshot {
	s := snapshot{label: a.entry.Label, segment: a.entry.Set.Name}
	if s.err = a.Ready(); s.err != nil {
		return s
	}
	s.keys = a.rs.Keys()
	s.values = a.rs.Values()
	if s.values == nil {
		s.err = shm.ErrClosed
	}
	return s
}

// poller reads every attached record set on a bounded goroutine pool.
type poller struct {
	reg  *registry
	pool *ants.Pool
}

func newPoller(reg *registry, workers int) (*poller, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "creating poller pool")
	}
	return &poller{reg: reg, pool: pool}, nil
}

// poll snapshots every set once, in configuration order.
func (p *poller) poll() []snapshot {
	sets := p.reg.list()
	out := make([]snapshot, len(sets))
	var wg sync.WaitGroup
	for i, a := range sets {
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			out[i] = a.snapshot()
		}); err != nil {
			wg.Done()
			out[i] = snapshot{label: a.entry.Label, segment: a.entry.Set.Name, err: err}
		}
	}
	wg.Wait()
	return out
}

func (p *poller) release() { p.pool.Release() }

// writeSnapshots renders one table per record set.
func writeSnapshots(w io.Writer, snaps []snapshot) {
	for _, s := range snaps {
		fmt.Fprintf(w, "%s (%s)\n", s.label, s.segment)
		if s.err != nil {
			fmt.Fprintf(w, "INVALID Configuration: %v\n\n", s.err)
			continue
		}
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.Style().Format.Header = text.FormatDefault
		t.AppendHeader(table.Row{"field", "value"})
		for i, k := range s.keys {
			t.AppendRow(table.Row{k, s.values[i].String()})
		}
		t.Render()
		fmt.Fprintln(w)
	}
}

// serveMetrics exposes /metrics, /live and /ready for the attached sets.
func serveMetrics(addr string, reg *registry) *http.Server {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(newCollector(reg))
	probes := health.NewProbes(promReg)
	for _, a := range reg.list() {
		probes.AddRecordSet(a.entry.Label, a)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	mux.Handle("/live", probes)
	mux.Handle("/ready", probes)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Internal.Errorf("metrics server on %s: %v", addr, err)
		}
	}()
	logger.Internal.Infof("serving metrics on %s", addr)
	return srv
}

func shutdown(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Internal.Warnf("metrics server shutdown: %v", err)
	}
}

type viewFlags struct {
	interval    time.Duration
	once        bool
	metricsAddr string
	workers     int
	open        openOptions
}

func addViewFlags(cmd *cobra.Command, f *viewFlags) {
	flags := cmd.Flags()
	flags.DurationVar(&f.interval, "interval", 500*time.Millisecond, "Refresh interval.")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /metrics, /live and /ready on this address.")
	flags.IntVar(&f.workers, "workers", 4, "Record sets polled concurrently.")
	flags.BoolVar(&f.open.reset, "reset", false, "Unlink and recreate every segment first. Other processes keep a stale copy.")
	flags.BoolVar(&f.open.noVerify, "no-verify", false, "Skip the schema guard check. Debugging only.")
}

func newViewCommand(c *cmdIO) *cobra.Command {
	f := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print every configured record set as a table, refreshed periodically.",
		Long: `Attach to every record set of the configuration file and print its
fields. A set whose configuration does not match the segment is reported as
INVALID Configuration while the others keep updating.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), c, f)
		},
	}
	addViewFlags(cmd, f)
	cmd.Flags().BoolVar(&f.once, "once", false, "Print once and exit.")
	return cmd
}

func runView(ctx context.Context, c *cmdIO, f *viewFlags) error {
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

	writeSnapshots(c.stdout, p.poll())
	if f.once {
		return nil
	}
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			fmt.Fprintf(c.stdout, "-- %s\n", now.Format(time.TimeOnly+".000"))
			writeSnapshots(c.stdout, p.poll())
		}
	}
}
