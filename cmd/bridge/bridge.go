package bridge

import (
	"context"
	"time"

	"github.com/Shopify/sarama"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/cmd/providers"
	"go.yametee.shop/jobs/pkg/redisqueue"
	"go.yametee.shop/jobs/pkg/redisqueue/fromkafka"
)

var Cmd = cobra.Command{
	Use:   "bridge",
	Short: "Move jobs published on Kafka onto the Redis queue",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		app := providers.NewApp(cmd,
			fx.Provide(
				providers.NewSaramaClient,
				providers.NewSaramaConsumerGroup,
			),
			fx.Invoke(Run))
		app.Run()
	},
}

// Bridge config keys.
const (
	ConfInterval = "bridge.interval"
	ConfBatch    = "bridge.batch"
)

func init() {
	viper.SetDefault(ConfInterval, 250*time.Millisecond)
	viper.SetDefault(ConfBatch, uint(64))
}

type bridgeIn struct {
	fx.In

	Lifecycle     fx.Lifecycle
	Shutdown      fx.Shutdowner
	Producer      *redisqueue.Producer
	ConsumerGroup sarama.ConsumerGroup
}

func Run(log *zap.Logger, inputs bridgeIn) {
	topic := viper.GetString(providers.ConfBridgeTopic)
	worker := &fromkafka.Worker{
		Producer:  inputs.Producer,
		Log:       log.Named("bridge"),
		MaxDelay:  viper.GetDuration(ConfInterval),
		BatchSize: viper.GetUint(ConfBatch),
	}
	innerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	inputs.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				defer inputs.Shutdown.Shutdown()
				for innerCtx.Err() == nil {
					if err := inputs.ConsumerGroup.Consume(innerCtx, []string{topic}, worker); err != nil {
						log.Error("Consumer group exited", zap.Error(err))
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			log.Info("Waiting for consumer group to exit")
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
