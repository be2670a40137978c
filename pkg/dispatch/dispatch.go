// Package dispatch routes dequeued jobs to their handlers.
//
// A job is processed at most once here.
// Handler errors and panics end at the dispatch boundary:
// they are logged together with the job ID and type, and the job is discarded.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/jobs"
)

// Handler processes a single job.
type Handler interface {
	Handle(ctx context.Context, env *jobs.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env *jobs.Envelope) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, env *jobs.Envelope) error {
	return f(ctx, env)
}

// Func returns a Handler that decodes the job data into the payload type P
// before calling fn. Malformed data fails with a *jobs.ValidationError.
func Func[P jobs.Payload](fn func(ctx context.Context, payload P) error) Handler {
	return HandlerFunc(func(ctx context.Context, env *jobs.Envelope) error {
		payload, err := jobs.Decode(env)
		if err != nil {
			return err
		}
		typed, ok := payload.(P)
		if !ok {
			return &jobs.ValidationError{
				Kind:   env.Type,
				Field:  "type",
				Reason: fmt.Sprintf("handler expects %T payload", typed),
			}
		}
		return fn(ctx, typed)
	})
}

// DeadLetterer records failed jobs.
type DeadLetterer interface {
	PushDeadLetter(ctx context.Context, env *jobs.Envelope, cause error) error
}

// Outcome is the result of dispatching one job.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Unknown  // no handler registered
	Rejected // unsupported envelope version
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Unknown:
		return "unknown"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Dispatcher maps job types to handlers.
type Dispatcher struct {
	// Required components
	Log *zap.Logger
	// Optional components
	Metrics    *Metrics
	DeadLetter DeadLetterer

	handlers map[jobs.Kind]Handler
}

// Register sets the handler of a job type, replacing any previous one.
func (d *Dispatcher) Register(kind jobs.Kind, h Handler) {
	if d.handlers == nil {
		d.handlers = make(map[jobs.Kind]Handler)
	}
	d.handlers[kind] = h
}

// Kinds returns the number of registered job types.
func (d *Dispatcher) Kinds() int {
	return len(d.handlers)
}

// Dispatch runs the handler of a job and reports the outcome.
// It never panics and never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, env *jobs.Envelope) Outcome {
	log := d.Log.With(
		zap.String("job.id", env.ID),
		zap.String("job.type", string(env.Type)))
	if env.Version != jobs.CurrentVersion {
		log.Warn("Discarding job with unsupported version",
			zap.Int("job.version", env.Version))
		d.Metrics.observe(ctx, d.metricKind(env.Type), Rejected, 0)
		return Rejected
	}
	h, ok := d.handlers[env.Type]
	if !ok {
		log.Warn("Discarding job of unknown type")
		d.Metrics.observe(ctx, UnknownKind, Unknown, 0)
		return Unknown
	}
	log.Debug("Processing job")
	start := time.Now()
	err := invoke(ctx, h, env)
	duration := time.Since(start)
	if err != nil {
		log.Error("Job failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		d.Metrics.observe(ctx, env.Type, Failed, duration)
		d.deadLetter(ctx, log, env, err)
		return Failed
	}
	log.Info("Job succeeded", zap.Duration("duration", duration))
	d.Metrics.observe(ctx, env.Type, Succeeded, duration)
	return Succeeded
}

// metricKind maps job types without a handler to UnknownKind.
func (d *Dispatcher) metricKind(kind jobs.Kind) jobs.Kind {
	if _, ok := d.handlers[kind]; !ok {
		return UnknownKind
	}
	return kind
}

func invoke(ctx context.Context, h Handler, env *jobs.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, env)
}

func (d *Dispatcher) deadLetter(ctx context.Context, log *zap.Logger, env *jobs.Envelope, cause error) {
	if d.DeadLetter == nil {
		return
	}
	if err := d.DeadLetter.PushDeadLetter(ctx, env, cause); err != nil {
		log.Error("Failed to dead-letter job", zap.Error(err))
	}
}
