package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	prometheusmetrics "github.com/deathowl/go-metrics-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/viper"
	otelprom "go.opentelemetry.io/otel/exporters/metric/prometheus"
	otel "go.opentelemetry.io/otel/metric/global"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/monitor"
)

// Metrics config keys.
const (
	ConfMetricsListenNet  = "metrics.listen.net"
	ConfMetricsListenAddr = "metrics.listen.addr"
	ConfMetricsTimeout    = "metrics.timeout"
)

func init() {
	viper.SetDefault(ConfMetricsListenNet, "tcp")
	viper.SetDefault(ConfMetricsListenAddr, ":9090")
	viper.SetDefault(ConfMetricsTimeout, 2*time.Second)
}

// GOMPrometheusSync specifies the time interval to sync go-metrics to Prometheus.
var GOMPrometheusSync = 5 * time.Second

// SetupPrometheus configures the OpenTelemetry and go-metrics Prometheus exporters.
// Returns the Prometheus exporter HTTP handler.
func SetupPrometheus() (http.Handler, error) {
	// Setup go-metrics Prometheus exporter.
	gomProvder := prometheusmetrics.NewPrometheusProvider(
		metrics.DefaultRegistry,
		"yametee", "",
		prometheus.DefaultRegisterer,
		GOMPrometheusSync)
	go gomProvder.UpdatePrometheusMetrics()
	// Set up OpenTelemetry Prometheus exporter.
	exporter, err := otelprom.NewExportPipeline(otelprom.Config{
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenTelemetry Prometheus exporter: %w", err)
	}
	otel.SetMeterProvider(exporter.MeterProvider())
	return exporter, nil
}

// MetricsServerIn are the inputs of RunMetricsServer.
type MetricsServerIn struct {
	fx.In

	Lifecycle fx.Lifecycle
	Shutdown  fx.Shutdowner
	Log       *zap.Logger
	Collector *monitor.Collector
	Probes    Probes
	Status    *ExitStatus `optional:"true"`
}

// RunMetricsServer serves /metrics and /healthz on the configured listener.
// An empty listen address disables the server.
func RunMetricsServer(inputs MetricsServerIn) error {
	addr := viper.GetString(ConfMetricsListenAddr)
	if addr == "" {
		inputs.Log.Info("Metrics server disabled")
		return nil
	}
	handler, err := SetupPrometheus()
	if err != nil {
		return err
	}
	if err := prometheus.Register(inputs.Collector); err != nil {
		return fmt.Errorf("failed to register queue collector: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.Handle("/healthz", monitor.HealthHandler(viper.GetDuration(ConfMetricsTimeout), inputs.Probes.List()...))
	listener, err := Listen(inputs.Log, viper.GetString(ConfMetricsListenNet), addr)
	if err != nil {
		return err
	}
	LifecycleServe(inputs.Log, inputs.Lifecycle, inputs.Shutdown, inputs.Status,
		listener, &HTTPServer{Server: &http.Server{Handler: mux}})
	return nil
}

// HTTPServer adapts http.Server to Server.
type HTTPServer struct {
	*http.Server
}

// Serve serves until Stop is called.
func (s *HTTPServer) Serve(sock net.Listener) error {
	if err := s.Server.Serve(sock); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts down the server, waiting a few seconds for open requests.
func (s *HTTPServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Server.Shutdown(ctx)
}
