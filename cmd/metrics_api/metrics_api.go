package metrics_api

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.yametee.shop/jobs/cmd/providers"
)

var Cmd = cobra.Command{
	Use:   "metrics-api",
	Short: "Serve queue metrics and health checks",
	Long: "Serves /metrics and /healthz without consuming jobs.\n" +
		"Used by web tier deployments that only produce jobs.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		status := new(providers.ExitStatus)
		app := providers.NewApp(cmd, fx.Supply(status), fx.Invoke(Run))
		app.Run()
		os.Exit(status.Get())
	},
}

// ErrNoListenAddr is returned when the metrics listener is disabled.
var ErrNoListenAddr = errors.New("metrics-api requires a listen address (" + providers.ConfMetricsListenAddr + ")")

func Run(inputs providers.MetricsServerIn) error {
	if viper.GetString(providers.ConfMetricsListenAddr) == "" {
		return ErrNoListenAddr
	}
	return providers.RunMetricsServer(inputs)
}
