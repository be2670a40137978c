// Package producer is the job enqueueing API used by request handlers.
//
// Enqueueing is best-effort: calls never fail the caller.
// A job that could not be queued is logged with its type and dropped.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/jobs"
)

// Pusher appends jobs to the queue.
type Pusher interface {
	Push(ctx context.Context, env *jobs.Envelope) error
}

// Counters track enqueue results.
type Counters struct {
	OK     metrics.Counter
	Failed metrics.Counter
}

// NewCounters registers the enqueue counters on r, or the default registry if r is nil.
func NewCounters(r metrics.Registry) *Counters {
	return &Counters{
		OK:     metrics.GetOrRegisterCounter("jobs.enqueue.ok", r),
		Failed: metrics.GetOrRegisterCounter("jobs.enqueue.failed", r),
	}
}

// Client enqueues typed jobs.
type Client struct {
	// Required components
	Queue Pusher
	Log   *zap.Logger
	// Optional components
	Counters *Counters
	// Optional config
	Timeout time.Duration // bound on a single enqueue, zero for none
}

// Enqueue queues a job of any type.
// Returns the job ID and whether the job was queued.
func (c *Client) Enqueue(ctx context.Context, kind jobs.Kind, data interface{}) (id string, ok bool) {
	log := c.Log.With(zap.String("job.type", string(kind)))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while enqueueing job", zap.String("panic", fmt.Sprint(r)))
			c.count(false)
			id, ok = "", false
		}
	}()
	env, err := jobs.New(kind, data)
	if err != nil {
		log.Error("Failed to build job", zap.Error(err))
		c.count(false)
		return "", false
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	if err := c.Queue.Push(ctx, env); err != nil {
		log.Error("Failed to enqueue job",
			zap.String("job.id", env.ID),
			zap.Error(err))
		c.count(false)
		return "", false
	}
	log.Info("Enqueued job", zap.String("job.id", env.ID))
	c.count(true)
	return env.ID, true
}

// EnqueueOrder queues post-processing of an order.
func (c *Client) EnqueueOrder(ctx context.Context, orderID string) (string, bool) {
	return c.Enqueue(ctx, jobs.KindOrderProcess, jobs.OrderProcess{OrderID: orderID})
}

// EnqueueEmail queues an email. Only empty fields are rejected here,
// the address format is checked by the worker.
func (c *Client) EnqueueEmail(ctx context.Context, to, subject, body string) (string, bool) {
	msg := jobs.EmailSend{To: to, Subject: subject, Body: body}
	if err := msg.Validate(); err != nil {
		c.Log.Warn("Rejected email job",
			zap.String("job.type", string(jobs.KindEmailSend)),
			zap.Error(err))
		c.count(false)
		return "", false
	}
	return c.Enqueue(ctx, jobs.KindEmailSend, msg)
}

// EnqueueWebhook queues relaying a webhook event with an opaque payload.
func (c *Client) EnqueueWebhook(ctx context.Context, event string, payload interface{}) (string, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.Log.Error("Failed to encode webhook payload",
			zap.String("job.type", string(jobs.KindWebhookProcess)),
			zap.Error(err))
		c.count(false)
		return "", false
	}
	return c.Enqueue(ctx, jobs.KindWebhookProcess, jobs.WebhookProcess{Event: event, Payload: raw})
}

// EnqueueCacheWarm queues warming the given cache keys.
func (c *Client) EnqueueCacheWarm(ctx context.Context, keys []string) (string, bool) {
	return c.Enqueue(ctx, jobs.KindCacheWarm, jobs.CacheWarm{Keys: keys})
}

func (c *Client) count(ok bool) {
	if c.Counters == nil {
		return
	}
	if ok {
		c.Counters.OK.Inc(1)
	} else {
		c.Counters.Failed.Inc(1)
	}
}
