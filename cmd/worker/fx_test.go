package worker

import (
	"testing"

	"go.uber.org/fx"
	"go.yametee.shop/jobs/cmd/providers"
	"go.yametee.shop/jobs/cmd/providers/providerstest"
)

func TestApp(t *testing.T) {
	providerstest.Validate(t,
		fx.Supply(new(providers.ExitStatus)),
		fx.Invoke(
			providers.RunMetricsServer,
			Run,
		))
}
