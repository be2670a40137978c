package providers

import (
	"context"
	"fmt"
	"net"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ListenUnix is a wrapper over unix socket listeners that replaces stale sockets.
func ListenUnix(path string) (net.Listener, error) {
	stat, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		return net.Listen("unix", path)
	} else if statErr != nil {
		return nil, statErr
	}
	if stat.Mode()&os.ModeSocket == 0 {
		return nil, fmt.Errorf("existing file is not a socket: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove socket: %w", err)
	}
	return net.Listen("unix", path)
}

// Listen is a wrapper over net.Listen with better unix socket support.
func Listen(log *zap.Logger, network, address string) (net.Listener, error) {
	log.Info("Starting server",
		zap.String("listen.net", network),
		zap.String("listen.addr", address))
	var sock net.Listener
	var err error
	if network == "unix" {
		sock, err = ListenUnix(address)
	} else {
		sock, err = net.Listen(network, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s %s: %w", network, address, err)
	}
	return sock, nil
}

// LifecycleServe registers a server on a listener on the provided fx.Lifecycle.
// A failing server sets exit status 1 and shuts down the app.
func LifecycleServe(
	log *zap.Logger,
	lc fx.Lifecycle,
	shutdown fx.Shutdowner,
	status *ExitStatus,
	sock net.Listener,
	server Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := server.Serve(sock); err != nil {
					log.Error("Server failed", zap.Error(err))
					status.Set(1)
					_ = shutdown.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Stop()
			return nil
		},
	})
}

// Server abstracts long-running servers.
type Server interface {
	Serve(sock net.Listener) error
	Stop()
}
