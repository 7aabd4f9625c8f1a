package shm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/srediag/shmrecord/internal/logger"
	internalshm "github.com/srediag/shmrecord/internal/shm"
)

// RecordSet is a fixed-size, typed, named array of scalars living in a named
// shared memory segment. Every process opening the same name with the same
// schema sees the same slots.
//
// A RecordSet is safe for concurrent readers. Concurrent writers to the same
// slot may leave a torn value behind.
type RecordSet struct {
	mu      sync.RWMutex
	closed  bool
	schema  *Schema
	seg     *segment
	slots   *SlotView
	index   map[string]int
	guard   GuardState
	created bool
}

// Open creates the segment described by cfg, or attaches to it if another
// process already created it, then checks the segment guard against the
// local schema.
//
// On ErrSchemaConfigurationMismatch and ErrSegmentSizeMismatch nothing is
// left mapped.
func Open(ctx context.Context, cfg Config) (*RecordSet, error) {
	cfg = cfg.withDefaults()
	ins := newInstruments(cfg.Meter, cfg.Tracer)
	ctx, span := ins.start(ctx, cfg)

	rs, err := open(ctx, cfg)
	switch {
	case err == nil && rs.created:
		ins.finish(ctx, span, cfg.Name, outcomeCreated, rs.guard, nil)
	case err == nil:
		ins.finish(ctx, span, cfg.Name, outcomeAttached, rs.guard, nil)
	case errors.Is(err, ErrSchemaConfigurationMismatch), errors.Is(err, ErrSegmentSizeMismatch):
		ins.finish(ctx, span, cfg.Name, outcomeMismatch, GuardSkipped, err)
	default:
		ins.finish(ctx, span, cfg.Name, outcomeError, GuardSkipped, err)
	}
	return rs, err
}

func open(ctx context.Context, cfg Config) (*RecordSet, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty segment name", ErrInvalidSegmentName)
	}
	schema, err := cfg.Schema()
	if err != nil {
		return nil, err
	}

	seg, err := openSegment(ctx, schema.SegmentName(), schema.DataBytes(), cfg.Reset)
	if err != nil {
		var sizeErr *internalshm.SizeError
		if errors.As(err, &sizeErr) {
			return nil, &SegmentSizeMismatchError{
				Segment:     schema.SegmentName(),
				Want:        sizeErr.Want,
				Got:         sizeErr.Got,
				Description: schema.Describe(),
			}
		}
		return nil, err
	}

	state := GuardSkipped
	if !cfg.DisableSchemaCheck {
		state, err = ClaimOrVerify(seg.guard(), schema)
		if err != nil {
			logger.Internal.Errorf("shm schema mismatch: %s", schema.SegmentName())
			if cerr := seg.close(ctx); cerr != nil {
				logger.Internal.Warnf("shm: unmap %s after mismatch: %v", schema.SegmentName(), cerr)
			}
			return nil, err
		}
		logger.Internal.Debugf("shm guard %s: %s %s", state, schema.SegmentName(), schema.Digest())
	} else {
		logger.Internal.Warnf("shm schema check disabled: %s", schema.SegmentName())
	}

	slots, err := NewSlotView(seg.data(), schema.Type(), schema.Count())
	if err != nil {
		_ = seg.close(ctx)
		return nil, err
	}

	rs := &RecordSet{
		schema:  schema,
		seg:     seg,
		slots:   slots,
		index:   make(map[string]int, schema.Count()),
		guard:   state,
		created: seg.created(),
	}
	for i, n := range schema.names {
		rs.index[n] = i
	}
	return rs, nil
}

func (r *RecordSet) Name() string { return r.schema.SegmentName() }

func (r *RecordSet) Schema() *Schema { return r.schema }

func (r *RecordSet) Len() int { return r.schema.Count() }

func (r *RecordSet) Type() ScalarType { return r.schema.Type() }

// Created reports whether this handle created the segment.
func (r *RecordSet) Created() bool { return r.created }

func (r *RecordSet) GuardState() GuardState { return r.guard }

// Get reads slot i.
func (r *RecordSet) Get(i int) (Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Value{}, ErrClosed
	}
	return r.slots.Get(i)
}

// Set writes slot i.
func (r *RecordSet) Set(i int, v Value) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	return r.slots.Set(i, v)
}

// Slot resolves a field name to its slot index.
func (r *RecordSet) Slot(name string) (int, error) {
	i, ok := r.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q in segment %q", ErrUnknownFieldName, name, r.Name())
	}
	return i, nil
}

func (r *RecordSet) GetVar(name string) (Value, error) {
	i, err := r.Slot(name)
	if err != nil {
		return Value{}, err
	}
	return r.Get(i)
}

func (r *RecordSet) SetVar(name string, v Value) error {
	i, err := r.Slot(name)
	if err != nil {
		return err
	}
	return r.Set(i, v)
}

// Keys returns the field names in slot order. The slice is the caller's.
func (r *RecordSet) Keys() []string { return r.schema.Names() }

// Items yields every (name, value) pair in slot order, reading each slot
// from shared memory as it goes. Iteration stops early once the set is closed.
func (r *RecordSet) Items() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for i, n := range r.schema.names {
			v, err := r.Get(i)
			if err != nil {
				return
			}
			if !yield(n, v) {
				return
			}
		}
	}
}

// Values returns a snapshot of every slot. It is nil once the set is closed.
func (r *RecordSet) Values() []Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	return r.slots.Values()
}

// Snapshot returns the current values keyed by field name.
func (r *RecordSet) Snapshot() (map[string]Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	vals := r.slots.Values()
	out := make(map[string]Value, len(vals))
	for i, n := range r.schema.names {
		out[n] = vals[i]
	}
	return out, nil
}

// Close unmaps the segment. The segment itself stays available to other
// processes. Calling Close more than once is a no-op.
func (r *RecordSet) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.slots = nil
	return r.seg.close(context.Background())
}

// Unlink closes the handle and removes the segment name from the system.
// Processes still attached keep their mapping until they close it.
func (r *RecordSet) Unlink() error {
	if err := r.Close(); err != nil {
		return err
	}
	return r.seg.unlink()
}

// SegmentInfo describes an existing segment without interpreting its slots.
type SegmentInfo struct {
	Name     string
	Path     string
	Size     int64
	Guard    Digest
	Claimed  bool
	DataSize int64
}

// Inspect attaches read-only to an existing segment and reports its size and
// guard. The segment must be at least DigestSize bytes.
func Inspect(ctx context.Context, name string) (*SegmentInfo, error) {
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{Name: name, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("shm: inspect %q: %w", name, err)
	}
	defer func() {
		if err := internalshm.UnmapRegion(ctx, region); err != nil {
			logger.Internal.Warnf("shm: unmap %s: %v", name, err)
		}
	}()
	size := int64(len(region.Addr))
	if size < DigestSize {
		return nil, fmt.Errorf("shm: inspect %q: %d bytes cannot hold a guard", name, size)
	}
	guard := ReadGuard(slices.Clone(region.Addr[size-DigestSize:]))
	return &SegmentInfo{
		Name:     name,
		Path:     region.Path,
		Size:     size,
		Guard:    guard,
		Claimed:  !guard.IsZero(),
		DataSize: size - DigestSize,
	}, nil
}

// Unlink removes a segment by name without attaching to it.
func Unlink(name string) error {
	if err := internalshm.RemoveRegion(name); err != nil {
		return fmt.Errorf("shm: unlink segment %q: %w", name, err)
	}
	logger.Internal.Infof("shm unlinked: %s", name)
	return nil
}
