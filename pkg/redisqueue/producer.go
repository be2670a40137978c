package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.yametee.shop/jobs/pkg/jobs"
)

// Producer adds jobs to the queue.
// It is safe to run multiple instances on the queue.
type Producer struct {
	Queue
}

// Push appends a job to the tail of the queue.
func (p *Producer) Push(ctx context.Context, env *jobs.Envelope) error {
	buf, err := jobs.Marshal(env)
	if err != nil {
		return err
	}
	if err := p.Conn.Ensure(ctx); err != nil {
		return err
	}
	if err := p.Conn.Redis.RPush(ctx, p.Keys.Jobs, buf).Err(); err != nil {
		p.Conn.fail(ctx)
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// PushDeadLetter records a failed job on the dead-letter list.
// It is a no-op if no dead-letter key is configured.
func (p *Producer) PushDeadLetter(ctx context.Context, env *jobs.Envelope, cause error) error {
	if p.Keys.DeadLetter == "" {
		return nil
	}
	envBuf, err := jobs.Marshal(env)
	if err != nil {
		return err
	}
	letter := DeadLetter{
		Envelope: envBuf,
		FailedAt: time.Now().UTC(),
	}
	if cause != nil {
		letter.Error = cause.Error()
	}
	buf, err := json.Marshal(&letter)
	if err != nil {
		return err
	}
	if err := p.Conn.Ensure(ctx); err != nil {
		return err
	}
	if err := p.Conn.Redis.RPush(ctx, p.Keys.DeadLetter, buf).Err(); err != nil {
		p.Conn.fail(ctx)
		return fmt.Errorf("failed to push dead letter: %w", err)
	}
	return nil
}

// PushBatch appends jobs to the tail of the queue in order, using a single command.
func (p *Producer) PushBatch(ctx context.Context, envs []*jobs.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	values := make([]interface{}, len(envs))
	for i, env := range envs {
		buf, err := jobs.Marshal(env)
		if err != nil {
			return err
		}
		values[i] = buf
	}
	if err := p.Conn.Ensure(ctx); err != nil {
		return err
	}
	if err := p.Conn.Redis.RPush(ctx, p.Keys.Jobs, values...).Err(); err != nil {
		p.Conn.fail(ctx)
		return fmt.Errorf("failed to push jobs: %w", err)
	}
	return nil
}
