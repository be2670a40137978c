package providers

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/redisqueue"
)

// Redis config keys.
const (
	ConfRedisURL                 = "redis.url"
	ConfRedisDialTimeout         = "redis.dial_timeout"
	ConfRedisReconnectInitial    = "redis.reconnect.initial"
	ConfRedisReconnectMax        = "redis.reconnect.max"
	ConfRedisReconnectMaxRetries = "redis.reconnect.max_retries"
)

func init() {
	viper.SetDefault(ConfRedisURL, "redis://localhost:6379/0")
	viper.SetDefault(ConfRedisDialTimeout, 5*time.Second)
	viper.SetDefault(ConfRedisReconnectInitial, redisqueue.DefaultReconnectPolicy.Initial)
	viper.SetDefault(ConfRedisReconnectMax, redisqueue.DefaultReconnectPolicy.Max)
	viper.SetDefault(ConfRedisReconnectMaxRetries, redisqueue.DefaultReconnectPolicy.MaxRetries)
}

// NewRedis creates a Redis client from the configured URL.
// The connection is established lazily.
func NewRedis(log *zap.Logger, lc fx.Lifecycle) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(viper.GetString(ConfRedisURL))
	if err != nil {
		return nil, err
	}
	redisOpts.DialTimeout = viper.GetDuration(ConfRedisDialTimeout)
	// Reconnects are driven by redisqueue.Conn.
	redisOpts.MaxRetries = -1
	log.Info("Using Redis",
		zap.String("redis.network", redisOpts.Network),
		zap.String("redis.addr", redisOpts.Addr),
		zap.Int("redis.db", redisOpts.DB))
	rd := redis.NewClient(redisOpts)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing Redis client")
			if err := rd.Close(); err != nil {
				log.Error("Failed to close Redis client", zap.Error(err))
			}
			return nil
		},
	})
	return rd, nil
}

// NewQueueConn wraps the Redis client with the configured reconnect policy.
func NewQueueConn(log *zap.Logger, rd *redis.Client) *redisqueue.Conn {
	return &redisqueue.Conn{
		Redis: rd,
		Log:   log.Named("redis"),
		Policy: redisqueue.ReconnectPolicy{
			Initial:    viper.GetDuration(ConfRedisReconnectInitial),
			Max:        viper.GetDuration(ConfRedisReconnectMax),
			MaxRetries: viper.GetUint64(ConfRedisReconnectMaxRetries),
		},
	}
}
