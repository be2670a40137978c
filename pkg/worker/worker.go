// Package worker runs the job consumer loop.
//
// The loop is strictly sequential: one job is popped and dispatched at a time.
// Run exactly one worker per queue, FIFO order only holds for a single consumer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/dispatch"
	"go.yametee.shop/jobs/pkg/jobs"
	"go.yametee.shop/jobs/pkg/monitor"
	"go.yametee.shop/jobs/pkg/redisqueue"
)

// State is a worker lifecycle state.
type State int32

const (
	Starting State = iota
	Ready
	Looping
	Processing
	ShuttingDown
	Stopped
	FailedStartup
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Looping:
		return "looping"
	case Processing:
		return "processing"
	case ShuttingDown:
		return "shutting_down"
	case Stopped:
		return "stopped"
	case FailedStartup:
		return "failed_startup"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Source hands out queued jobs.
// Pop returns redisqueue.ErrEmpty if no job arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*jobs.Envelope, error)
}

// Dispatcher processes a single job.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *jobs.Envelope) dispatch.Outcome
}

// ErrStartup is returned by Run if a required dependency is unreachable.
var ErrStartup = errors.New("startup checks failed")

// Worker pops jobs and dispatches them until its context is canceled.
type Worker struct {
	// Required components
	Log        *zap.Logger
	Queue      Source
	Dispatcher Dispatcher
	// Dependencies checked at startup.
	Required []monitor.Probe // fail startup if unreachable
	Optional []monitor.Probe // only warn if unreachable
	// Required config
	PollTimeout  time.Duration // max blocking time of a single pop
	IdleDelay    time.Duration // sleep between iterations
	ErrorBackoff time.Duration // sleep after a failed iteration
	// Optional hooks
	OnState func(State)

	state int32
}

// State returns the current state.
func (w *Worker) State() State {
	return State(atomic.LoadInt32(&w.state))
}

// Run checks dependencies and runs the loop until ctx is canceled.
// It returns nil after a graceful shutdown and an error wrapping ErrStartup
// if a required dependency could not be reached.
// The job in flight at cancellation runs to completion.
func (w *Worker) Run(ctx context.Context) error {
	w.setState(Starting)
	if err := w.checkStartup(ctx); err != nil {
		w.setState(FailedStartup)
		return err
	}
	w.setState(Ready)
	w.setState(Looping)
	for ctx.Err() == nil {
		if err := w.step(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			w.Log.Error("Worker iteration failed",
				zap.Error(err),
				zap.Duration("backoff", w.ErrorBackoff))
			sleep(ctx, w.ErrorBackoff)
			continue
		}
		sleep(ctx, w.IdleDelay)
	}
	w.setState(ShuttingDown)
	w.setState(Stopped)
	return nil
}

func (w *Worker) checkStartup(ctx context.Context) error {
	for _, probe := range w.Required {
		if err := probe.Ping(ctx); err != nil {
			w.Log.Error("Required dependency unreachable",
				zap.String("dependency", probe.Name),
				zap.Error(err))
			return fmt.Errorf("%w: %s: %v", ErrStartup, probe.Name, err)
		}
	}
	for _, probe := range w.Optional {
		if err := probe.Ping(ctx); err != nil {
			w.Log.Warn("Optional dependency unreachable, continuing",
				zap.String("dependency", probe.Name),
				zap.Error(err))
		}
	}
	return nil
}

// step pops and dispatches at most one job.
func (w *Worker) step(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in worker loop: %v", r)
			w.setState(Looping)
		}
	}()
	env, err := w.Queue.Pop(ctx, w.PollTimeout)
	if errors.Is(err, redisqueue.ErrEmpty) {
		return nil
	} else if err != nil {
		return err
	}
	w.setState(Processing)
	w.Dispatcher.Dispatch(context.Background(), env)
	w.setState(Looping)
	return nil
}

func (w *Worker) setState(s State) {
	prev := State(atomic.SwapInt32(&w.state, int32(s)))
	if prev == s && s != Starting {
		return
	}
	switch s {
	case Looping, Processing:
		w.Log.Debug("Worker state", zap.Stringer("state", s))
	case FailedStartup:
		w.Log.Error("Worker failed to start")
	default:
		w.Log.Info("Worker state", zap.Stringer("state", s))
	}
	if w.OnState != nil {
		w.OnState(s)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
