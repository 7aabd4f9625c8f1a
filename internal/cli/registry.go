package cli

import (
	"context"
	"sort"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/srediag/shmrecord/internal/config"
	"github.com/srediag/shmrecord/internal/logger"
	"github.com/srediag/shmrecord/pkg/shm"
)

const instrumentationName = "github.com/srediag/shmrecord/cmd/shmrecord"

// attachment is one configured record set and the outcome of opening it.
type attachment struct {
	entry config.Entry
	order int
	rs    *shm.RecordSet
	err   error
}

// Ready reports why the set is unusable, if it is.
func (a *attachment) Ready() error {
	if a.err != nil {
		return a.err
	}
	if a.rs == nil {
		return errors.Errorf("%s: not attached", a.entry.Label)
	}
	return nil
}

// registry holds every record set of a configuration file keyed by label.
// A set that failed to open stays in the registry with its error so viewers
// can show it.
type registry struct {
	sets         cmap.ConcurrentMap[string, *attachment]
	attachErrors atomic.Int64
}

func newRegistry() *registry {
	return &registry{sets: cmap.New[*attachment]()}
}

// attach opens every entry of f. Configuration errors of one set do not
// prevent the others from opening.
func (r *registry) attach(ctx context.Context, f *config.File, opts openOptions) {
	for i, e := range f.Entries {
		a := &attachment{entry: e, order: i}
		cfg := e.Config()
		opts.apply(&cfg)
		if err := e.Validate(); err != nil {
			a.err = err
		} else {
			a.rs, a.err = shm.Open(ctx, cfg)
		}
		if a.err != nil {
			r.attachErrors.Add(1)
			logger.Internal.Warnf("attach %s: %v", e.Label, a.err)
		}
		if old, ok := r.sets.Get(e.Label); ok && old.rs != nil {
			_ = old.rs.Close()
		}
		r.sets.Set(e.Label, a)
	}
}

func (r *registry) get(label string) (*attachment, bool) {
	return r.sets.Get(label)
}

// list returns the attachments in configuration file order.
func (r *registry) list() []*attachment {
	out := make([]*attachment, 0, r.sets.Count())
	for item := range r.sets.IterBuffered() {
		out = append(out, item.Val)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

func (r *registry) close() {
	for _, a := range r.list() {
		if a.rs == nil {
			continue
		}
		if err := a.rs.Close(); err != nil {
			logger.Internal.Warnf("close %s: %v", a.entry.Label, err)
		}
	}
}

// openOptions are command line overrides applied to every configured set.
type openOptions struct {
	reset    bool
	noVerify bool
}

func (o openOptions) apply(cfg *shm.Config) {
	if o.reset {
		cfg.Reset = true
	}
	if o.noVerify {
		cfg.DisableSchemaCheck = true
	}
	cfg.Meter = otel.Meter(instrumentationName)
	cfg.Tracer = otel.Tracer(instrumentationName)
}
