package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/jobs"
)

// ErrEmpty is returned by Pop if no job could be taken.
var ErrEmpty = errors.New("no job")

// Consumer takes jobs off the head of the queue.
// Run exactly one consumer per queue to keep FIFO order.
type Consumer struct {
	Queue
	Log *zap.Logger
}

// Pop blocks up to timeout waiting for the next job.
// Returns ErrEmpty when the timeout passes or the entry was malformed.
// The entry is removed from Redis before it is returned.
func (c *Consumer) Pop(ctx context.Context, timeout time.Duration) (*jobs.Envelope, error) {
	if err := c.Conn.Ensure(ctx); err != nil {
		return nil, err
	}
	res, err := c.Conn.Redis.BLPop(ctx, timeout, c.Keys.Jobs).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	} else if err != nil {
		c.Conn.fail(ctx)
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("failed to pop job: invalid reply %#v", res)
	}
	env, err := jobs.Unmarshal([]byte(res[1]))
	if err != nil {
		c.Log.Warn("Dropping malformed job",
			zap.Error(err),
			zap.Int("job.size", len(res[1])))
		return nil, ErrEmpty
	}
	return env, nil
}
