package providers

import (
	"context"

	"github.com/spf13/cobra"
	otel "go.opentelemetry.io/otel/metric/global"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/appctx"
)

// Log is the global logger.
var Log *zap.Logger

// Providers holds constructors for shared components.
var Providers = []interface{}{
	// dispatch.go
	NewDispatchMetrics,
	NewDispatcher,
	NewHandlerSet,
	NewRecentSet,
	// monitor.go
	NewCollector,
	NewProbes,
	// postgres.go
	NewOrderStore,
	NewPostgres,
	// providers.go
	NewContext,
	// queue.go
	NewConsumer,
	NewProducer,
	NewProducerClient,
	NewQueue,
	NewQueueKeys,
	// redis.go
	NewQueueConn,
	NewRedis,
	// sarama.go
	NewRelayPublisher,
	NewSaramaConfig,
}

// NewApp builds an fx application with the shared providers.
func NewApp(cmd *cobra.Command, opts ...fx.Option) *fx.App {
	baseOpts := []fx.Option{
		fx.Provide(Providers...),
		fx.Supply(cmd),
		fx.Supply(Log),
		fx.Logger(zap.NewStdLog(Log)),
		fx.Supply(otel.GetMeterProvider().Meter(cmd.Name())),
	}
	baseOpts = append(baseOpts, opts...)
	return fx.New(baseOpts...)
}

// NewCmd returns a cobra run function invoking a one-shot command with the shared providers.
// The app is started and stopped right after invoke returns, running the cleanup hooks.
func NewCmd(invoke interface{}) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		app := fx.New(
			fx.Provide(Providers...),
			fx.Supply(cmd),
			fx.Supply(args),
			fx.Supply(Log),
			fx.Logger(zap.NewStdLog(Log)),
			fx.Supply(otel.GetMeterProvider().Meter(cmd.Name())),
			fx.Invoke(invoke),
		)
		if err := app.Err(); err != nil {
			Log.Fatal("Failed to build app", zap.Error(err))
		}
		startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
		defer cancel()
		if err := app.Start(startCtx); err != nil {
			Log.Fatal("Failed to start app", zap.Error(err))
		}
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			Log.Error("Failed to stop app", zap.Error(err))
		}
	}
}

// NewContext returns a context cancelled on interrupt or when the app stops.
func NewContext(lc fx.Lifecycle) context.Context {
	ctx, cancel := appctx.WithInterrupt(context.Background())
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
	return ctx
}
