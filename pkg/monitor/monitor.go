// Package monitor exposes queue depth and dependency status.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Probe checks the connectivity of a dependency.
type Probe struct {
	Name     string // metric and health check name, e.g. "redis"
	Required bool   // unhealthy if the probe fails
	Ping     func(ctx context.Context) error
}

// LengthReader reports the number of pending jobs.
type LengthReader interface {
	Length(ctx context.Context) (int64, error)
}

var queueLengthDesc = prometheus.NewDesc(
	"redis_queue_length",
	"Number of jobs waiting in the queue.",
	nil, nil)

// Collector is a prometheus.Collector querying queue depth and probes on every scrape.
type Collector struct {
	Queue   LengthReader
	Probes  []Probe
	Timeout time.Duration
	Log     *zap.Logger

	probeDescs []*prometheus.Desc
}

// NewCollector creates a Collector.
func NewCollector(log *zap.Logger, queue LengthReader, timeout time.Duration, probes ...Probe) *Collector {
	c := &Collector{
		Queue:   queue,
		Probes:  probes,
		Timeout: timeout,
		Log:     log,
	}
	for _, probe := range probes {
		c.probeDescs = append(c.probeDescs, prometheus.NewDesc(
			probe.Name+"_connected",
			"Whether "+probe.Name+" answered a ping (0 or 1).",
			nil, nil))
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- queueLengthDesc
	for _, desc := range c.probeDescs {
		ch <- desc
	}
}

// Collect implements prometheus.Collector.
// The queue length is omitted if it cannot be read.
// The length query and each probe get their own timeout.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if n, err := c.queueLength(); err != nil {
		c.Log.Warn("Failed to read queue length", zap.Error(err))
	} else {
		ch <- prometheus.MustNewConstMetric(queueLengthDesc, prometheus.GaugeValue, float64(n))
	}
	for i, probe := range c.Probes {
		var up float64
		if c.ping(probe) == nil {
			up = 1
		}
		ch <- prometheus.MustNewConstMetric(c.probeDescs[i], prometheus.GaugeValue, up)
	}
}

func (c *Collector) queueLength() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	return c.Queue.Length(ctx)
}

func (c *Collector) ping(probe Probe) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	return probe.Ping(ctx)
}

// Health is the body of the health endpoint.
type Health struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler answers with 200 if all required probes pass, 503 otherwise.
func HealthHandler(timeout time.Duration, probes ...Probe) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := Health{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]string, len(probes)),
		}
		for _, probe := range probes {
			if err := pingWithin(r.Context(), timeout, probe); err != nil {
				health.Checks[probe.Name] = "disconnected"
				if probe.Required {
					health.Status = "unhealthy"
				}
				continue
			}
			health.Checks[probe.Name] = "connected"
		}
		status := http.StatusOK
		if health.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(&health)
	})
}

func pingWithin(parent context.Context, timeout time.Duration, probe Probe) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return probe.Ping(ctx)
}
