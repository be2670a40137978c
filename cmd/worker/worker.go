package worker

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/cmd/providers"
	"go.yametee.shop/jobs/pkg/dispatch"
	"go.yametee.shop/jobs/pkg/monitor"
	"go.yametee.shop/jobs/pkg/redisqueue"
	"go.yametee.shop/jobs/pkg/worker"
)

var Cmd = cobra.Command{
	Use:   "worker",
	Short: "Run background job worker",
	Long: "Pops jobs off the Redis queue and runs their handlers one at a time.\n" +
		"Run exactly one worker per queue, multiple workers break FIFO order.\n" +
		"Configuration is read from the environment, DATABASE_URL is required.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		status := new(providers.ExitStatus)
		app := providers.NewApp(
			cmd,
			fx.Supply(status),
			fx.Invoke(
				providers.RunMetricsServer,
				Run,
			),
		)
		app.Run()
		os.Exit(status.Get())
	},
}

// Worker config keys.
const (
	ConfPollTimeout  = "worker.poll_timeout"
	ConfIdleDelay    = "worker.idle_delay"
	ConfErrorBackoff = "worker.error_backoff"
)

func init() {
	viper.SetDefault(ConfPollTimeout, time.Second)
	viper.SetDefault(ConfIdleDelay, 100*time.Millisecond)
	viper.SetDefault(ConfErrorBackoff, 5*time.Second)
}

type workerIn struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdown   fx.Shutdowner
	Consumer   *redisqueue.Consumer
	Dispatcher *dispatch.Dispatcher
	Probes     providers.Probes
	Status     *providers.ExitStatus
}

func Run(log *zap.Logger, inputs workerIn) {
	w := &worker.Worker{
		Log:          log.Named("worker"),
		Queue:        inputs.Consumer,
		Dispatcher:   inputs.Dispatcher,
		Required:     []monitor.Probe{inputs.Probes.Database},
		Optional:     []monitor.Probe{inputs.Probes.Redis},
		PollTimeout:  viper.GetDuration(ConfPollTimeout),
		IdleDelay:    viper.GetDuration(ConfIdleDelay),
		ErrorBackoff: viper.GetDuration(ConfErrorBackoff),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	inputs.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				if err := w.Run(ctx); err != nil {
					log.Error("Worker exited", zap.Error(err))
					inputs.Status.Set(1)
				}
				if ctx.Err() == nil {
					_ = inputs.Shutdown.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			log.Info("Waiting for worker to exit")
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
