package providers

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/monitor"
	"go.yametee.shop/jobs/pkg/orders"
	"go.yametee.shop/jobs/pkg/redisqueue"
)

// Probes are the dependency checks of the job system.
type Probes struct {
	Database monitor.Probe // required
	Redis    monitor.Probe // optional
}

// List returns all probes.
func (p Probes) List() []monitor.Probe {
	return []monitor.Probe{p.Database, p.Redis}
}

func NewProbes(conn *redisqueue.Conn, store *orders.Store) Probes {
	return Probes{
		Database: monitor.Probe{Name: "database", Required: true, Ping: store.Ping},
		Redis:    monitor.Probe{Name: "redis", Ping: conn.Ping},
	}
}

// NewCollector exports queue depth and dependency status to Prometheus.
func NewCollector(log *zap.Logger, q *redisqueue.Queue, probes Probes) *monitor.Collector {
	return monitor.NewCollector(log.Named("monitor"), q,
		viper.GetDuration(ConfMetricsTimeout),
		probes.List()...)
}
