package shm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/shmrecord/internal/logger"
)

const instrumentationName = "github.com/srediag/shmrecord/pkg/shm"

// Outcomes recorded on the shmrecord.open counter.
const (
	outcomeCreated  = "created"
	outcomeAttached = "attached"
	outcomeMismatch = "mismatch"
	outcomeError    = "error"
)

type instruments struct {
	tracer trace.Tracer
	opens  metric.Int64Counter
}

func newInstruments(m metric.Meter, t trace.Tracer) *instruments {
	if m == nil {
		m = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	opens, err := m.Int64Counter("shmrecord.open",
		metric.WithDescription("Record set open attempts by outcome."),
		metric.WithUnit("{open}"))
	if err != nil {
		logger.Internal.Warnf("shm: create open counter: %v", err)
		opens, _ = metricnoop.Meter{}.Int64Counter("shmrecord.open")
	}
	return &instruments{tracer: t, opens: opens}
}

func (i *instruments) start(ctx context.Context, c Config) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "shm.Open", trace.WithAttributes(
		attribute.String("shm.segment", c.Name),
		attribute.Int("shm.count", c.Count),
		attribute.String("shm.type", c.Type),
		attribute.Bool("shm.reset", c.Reset),
	))
}

// finish records the outcome of one Open call on both span and counter.
func (i *instruments) finish(ctx context.Context, span trace.Span, segment, outcome string, state GuardState, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("segment", segment),
		attribute.String("outcome", outcome),
		attribute.String("guard", state.String()),
	}
	i.opens.Add(ctx, 1, metric.WithAttributes(attrs...))
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
