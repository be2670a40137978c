package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrUnavailable is returned once reconnecting to Redis gave up.
var ErrUnavailable = errors.New("redis unavailable")

// ReconnectPolicy controls retries while Redis is unreachable.
type ReconnectPolicy struct {
	Initial    time.Duration // delay after the first failure
	Max        time.Duration // cap for a single delay
	MaxRetries uint64        // consecutive failures before giving up
}

// DefaultReconnectPolicy doubles the delay from 50ms up to 1s and gives up after 10 retries.
var DefaultReconnectPolicy = ReconnectPolicy{
	Initial:    50 * time.Millisecond,
	Max:        time.Second,
	MaxRetries: 10,
}

// NewBackOff returns the delay sequence of the policy.
// Delays never decrease, and backoff.Stop is returned after MaxRetries delays.
func (p ReconnectPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.Max
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, p.MaxRetries)
}

// Conn owns a Redis client and tracks whether it is known to be up.
type Conn struct {
	// Required components
	Redis *redis.Client
	Log   *zap.Logger
	// Required config
	Policy ReconnectPolicy

	up int32
}

// Ensure connects to Redis if the connection is not known to be up.
// Failed attempts are retried according to the policy.
func (c *Conn) Ensure(ctx context.Context) error {
	if atomic.LoadInt32(&c.up) == 1 {
		return nil
	}
	ping := func() error {
		return c.Redis.Ping(ctx).Err()
	}
	notify := func(err error, delay time.Duration) {
		c.Log.Warn("Redis unreachable, retrying",
			zap.Error(err),
			zap.Duration("backoff", delay))
	}
	b := backoff.WithContext(c.Policy.NewBackOff(), ctx)
	if err := backoff.RetryNotify(ping, b, notify); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if atomic.CompareAndSwapInt32(&c.up, 0, 1) {
		c.Log.Info("Connected to Redis")
	}
	return nil
}

// Ping checks connectivity once without retrying.
func (c *Conn) Ping(ctx context.Context) error {
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		c.fail(ctx)
		return err
	}
	atomic.StoreInt32(&c.up, 1)
	return nil
}

// MarkDown forces the next operation to reconnect.
func (c *Conn) MarkDown() {
	if atomic.CompareAndSwapInt32(&c.up, 1, 0) {
		c.Log.Warn("Lost connection to Redis")
	}
}

// fail marks the connection down unless the failure came from the caller's context.
func (c *Conn) fail(ctx context.Context) {
	if ctx.Err() == nil {
		c.MarkDown()
	}
}

// Close closes the underlying client.
func (c *Conn) Close() error {
	atomic.StoreInt32(&c.up, 0)
	return c.Redis.Close()
}
