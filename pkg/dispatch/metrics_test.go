package dispatch

import (
	"context"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelprom "go.opentelemetry.io/otel/exporters/metric/prometheus"
	"go.uber.org/zap/zaptest"
	"go.yametee.shop/jobs/pkg/jobs"
)

func TestDispatcher_MetricKind(t *testing.T) {
	d := &Dispatcher{}
	d.Register(jobs.KindOrderProcess, HandlerFunc(func(context.Context, *jobs.Envelope) error { return nil }))
	assert.Equal(t, jobs.KindOrderProcess, d.metricKind(jobs.KindOrderProcess))
	assert.Equal(t, UnknownKind, d.metricKind("report:generate"))
	assert.Equal(t, UnknownKind, d.metricKind(""))
}

func TestMetrics_TypeLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.NewExportPipeline(otelprom.Config{
		Registerer: registry,
		Gatherer:   registry,
	})
	require.NoError(t, err)
	metrics, err := NewMetrics(exporter.MeterProvider().Meter("dispatch"))
	require.NoError(t, err)

	d := &Dispatcher{Log: zaptest.NewLogger(t), Metrics: metrics}
	d.Register(jobs.KindOrderProcess, HandlerFunc(func(context.Context, *jobs.Envelope) error { return nil }))
	ctx := context.Background()
	d.Dispatch(ctx, envelope(t, jobs.KindOrderProcess, nil))
	for _, kind := range []jobs.Kind{"x:1", "x:2", "x:3"} {
		assert.Equal(t, Unknown, d.Dispatch(ctx, envelope(t, kind, nil)))
	}
	rejected := envelope(t, "x:4", nil)
	rejected.Version = 2
	assert.Equal(t, Rejected, d.Dispatch(ctx, rejected))

	families, err := registry.Gather()
	require.NoError(t, err)
	types := make(map[string]bool)
	for _, family := range families {
		if family.GetName() != "jobs_dispatched" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "type" {
					types[label.GetValue()] = true
				}
			}
		}
	}
	var got []string
	for typ := range types {
		got = append(got, typ)
	}
	sort.Strings(got)
	assert.Equal(t, []string{string(jobs.KindOrderProcess), string(UnknownKind)}, got)
}
