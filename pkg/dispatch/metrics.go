package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.yametee.shop/jobs/pkg/jobs"
)

// UnknownKind is the metric label of job types without a registered handler.
const UnknownKind jobs.Kind = "unknown"

// Metrics counts dispatched jobs. A nil *Metrics records nothing.
type Metrics struct {
	dispatched metric.Int64Counter
	duration   metric.Float64ValueRecorder
}

func NewMetrics(m metric.Meter) (*Metrics, error) {
	metrics := new(Metrics)
	var err error
	metrics.dispatched, err = m.NewInt64Counter("jobs_dispatched",
		metric.WithDescription("Jobs taken off the queue by outcome"))
	if err != nil {
		return nil, err
	}
	metrics.duration, err = m.NewFloat64ValueRecorder("job_duration_seconds",
		metric.WithDescription("Handler run time"))
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func (m *Metrics) observe(ctx context.Context, kind jobs.Kind, outcome Outcome, duration time.Duration) {
	if m == nil {
		return
	}
	typeLabel := attribute.String("type", string(kind))
	m.dispatched.Add(ctx, 1, typeLabel, attribute.String("outcome", outcome.String()))
	if outcome == Succeeded || outcome == Failed {
		m.duration.Record(ctx, duration.Seconds(), typeLabel)
	}
}
