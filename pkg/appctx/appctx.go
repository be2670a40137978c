// Package appctx provides contexts that are cancelled on process interrupts.
package appctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Signals cancel contexts returned by WithInterrupt.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// WithInterrupt returns a context that is cancelled when the process receives SIGINT or SIGTERM,
// or when stop is called.
func WithInterrupt(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, Signals...)
}
