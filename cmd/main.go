package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/cmd/admin_tool"
	"go.yametee.shop/jobs/cmd/bridge"
	"go.yametee.shop/jobs/cmd/metrics_api"
	"go.yametee.shop/jobs/cmd/providers"
	"go.yametee.shop/jobs/cmd/worker"
)

var rootCmd = cobra.Command{
	Use:   "yametee-jobs",
	Short: "yametee background jobs",
	Long: "Background job system of the yametee storefront.\n" +
		"Configuration is read from environment variables, e.g. REDIS_URL for redis.url.",

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var logConfig zap.Config
		if devMode {
			logConfig = zap.NewDevelopmentConfig()
		} else {
			logConfig = zap.NewProductionConfig()
		}
		var err error
		providers.Log, err = logConfig.Build()
		if err != nil {
			panic("failed to build logger: " + err.Error())
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = providers.Log.Sync()
	},
}

var devMode bool

func init() {
	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.BoolVar(&devMode, "dev", false, "Dev mode")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AllowEmptyEnv(true)
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		&admin_tool.Cmd,
		&bridge.Cmd,
		&metrics_api.Cmd,
		&worker.Cmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
