package providers

import (
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/cachegc"
	"go.yametee.shop/jobs/pkg/dispatch"
	"go.yametee.shop/jobs/pkg/handlers"
	"go.yametee.shop/jobs/pkg/orders"
	"go.yametee.shop/jobs/pkg/redisqueue"
	"go.yametee.shop/jobs/pkg/relay"
)

// Handler config keys.
const (
	ConfCacheWarmSize = "cachewarm.size"
	ConfCacheWarmTTL  = "cachewarm.ttl"
)

func init() {
	viper.SetDefault(ConfCacheWarmSize, 1024)
	viper.SetDefault(ConfCacheWarmTTL, time.Minute)
}

func NewDispatchMetrics(meter metric.Meter) (*dispatch.Metrics, error) {
	return dispatch.NewMetrics(meter)
}

// NewRecentSet tracks recently warmed cache keys.
func NewRecentSet() (*cachegc.Set, error) {
	return cachegc.NewSet(viper.GetInt(ConfCacheWarmSize), viper.GetDuration(ConfCacheWarmTTL))
}

// NewHandlerSet picks the handler collaborators.
// Emails and webhook events go to Kafka if it is configured and are only logged otherwise.
func NewHandlerSet(
	log *zap.Logger,
	store *orders.Store,
	publisher *relay.Publisher,
	recent *cachegc.Set,
) handlers.Set {
	set := handlers.Set{
		Orders: store,
		Warmer: &handlers.LogWarmer{Log: log.Named("cache_warm")},
		Recent: recent,
		Log:    log,
	}
	if publisher != nil {
		set.Mailer = publisher
		set.Forwarder = publisher
	} else {
		log.Info("Kafka relay disabled, logging emails and webhook events")
		set.Mailer = &handlers.LogMailer{Log: log.Named("email")}
		set.Forwarder = &handlers.LogForwarder{Log: log.Named("webhook")}
	}
	return set
}

// NewDispatcher routes jobs to the storefront handlers.
func NewDispatcher(
	log *zap.Logger,
	metrics *dispatch.Metrics,
	producer *redisqueue.Producer,
	set handlers.Set,
) *dispatch.Dispatcher {
	d := &dispatch.Dispatcher{
		Log:     log.Named("dispatch"),
		Metrics: metrics,
	}
	if producer.Keys.DeadLetter != "" {
		log.Info("Dead-lettering failed jobs",
			zap.String("queue.dead_letter_key", producer.Keys.DeadLetter))
		d.DeadLetter = producer
	}
	handlers.Register(d, set)
	return d
}
