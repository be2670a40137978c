package providers

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otel "go.opentelemetry.io/otel/metric/global"
	"go.uber.org/zap/zaptest"
	"go.yametee.shop/jobs/pkg/dispatch"
	"go.yametee.shop/jobs/pkg/jobs"
	"go.yametee.shop/jobs/pkg/producer"
)

func TestSetupPrometheus(t *testing.T) {
	GOMPrometheusSync = 100 * time.Millisecond
	handler, err := SetupPrometheus()
	require.NoError(t, err)
	require.NotNil(t, handler)

	counters := producer.NewCounters(metrics.DefaultRegistry)
	counters.OK.Inc(2)

	dispatchMetrics, err := dispatch.NewMetrics(otel.Meter("worker"))
	require.NoError(t, err)
	d := &dispatch.Dispatcher{Log: zaptest.NewLogger(t), Metrics: dispatchMetrics}
	d.Register("noop", dispatch.HandlerFunc(func(context.Context, *jobs.Envelope) error {
		return nil
	}))
	env, err := jobs.New("noop", nil)
	require.NoError(t, err)
	d.Dispatch(context.Background(), env)

	time.Sleep(time.Second)

	dtos, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var metricNames []string
	for _, dto := range dtos {
		metricNames = append(metricNames, dto.GetName())
	}
	assert.Subset(t, metricNames, []string{
		"job_duration_seconds",
		"jobs_dispatched",
		"yametee_jobs_enqueue_failed",
		"yametee_jobs_enqueue_ok",
	})
}
