package providers

import (
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/producer"
	"go.yametee.shop/jobs/pkg/redisqueue"
)

// Queue config keys.
const (
	ConfQueuePrefix     = "queue.prefix"
	ConfQueueDeadLetter = "queue.dead_letter"
	ConfProducerTimeout = "producer.timeout"
)

func init() {
	viper.SetDefault(ConfQueuePrefix, "yametee")
	viper.SetDefault(ConfQueueDeadLetter, false)
	viper.SetDefault(ConfProducerTimeout, 3*time.Second)
}

// NewQueueKeys returns the Redis keys of the job queue.
func NewQueueKeys() redisqueue.Keys {
	keys := redisqueue.KeysForPrefix(viper.GetString(ConfQueuePrefix))
	if !viper.GetBool(ConfQueueDeadLetter) {
		keys.DeadLetter = ""
	}
	return keys
}

func NewQueue(conn *redisqueue.Conn, keys redisqueue.Keys) *redisqueue.Queue {
	return &redisqueue.Queue{Conn: conn, Keys: keys}
}

func NewProducer(q *redisqueue.Queue) *redisqueue.Producer {
	return &redisqueue.Producer{Queue: *q}
}

func NewConsumer(log *zap.Logger, q *redisqueue.Queue) *redisqueue.Consumer {
	return &redisqueue.Consumer{Queue: *q, Log: log.Named("consumer")}
}

// NewProducerClient returns the best-effort enqueueing API.
func NewProducerClient(log *zap.Logger, p *redisqueue.Producer) *producer.Client {
	return &producer.Client{
		Queue:    p,
		Log:      log.Named("producer"),
		Counters: producer.NewCounters(metrics.DefaultRegistry),
		Timeout:  viper.GetDuration(ConfProducerTimeout),
	}
}
