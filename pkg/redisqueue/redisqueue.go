// Package redisqueue runs the storefront job queue on top of a Redis list.
//
// Properties
//
// Producers append serialized job envelopes to the tail of a single list.
// The worker pops from the head with a blocking timeout.
// Insertion order is processing order as long as exactly one consumer runs.
// A popped job is gone from Redis, there is no redelivery.
//
// Data structures
//
// The pending jobs are stored in a list at Keys.Jobs.
// If enabled, jobs that failed processing are appended to the list at Keys.DeadLetter
// for out-of-band inspection. Nothing consumes the dead-letter list.
//
// Connections
//
// Conn establishes the connection lazily and retries with a bounded exponential backoff.
// Once the retries are exhausted, operations fail with ErrUnavailable.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Keys holds the Redis keys used.
type Keys struct {
	Jobs       string // list of pending job envelopes
	DeadLetter string // list of failed jobs, empty to disable
}

// KeysForPrefix creates Keys with a common prefix.
func KeysForPrefix(prefix string) Keys {
	return Keys{
		Jobs:       prefix + ":jobs",
		DeadLetter: prefix + ":jobs:dead",
	}
}

// Queue holds the parts shared by producers and consumers.
type Queue struct {
	// Required components
	Conn *Conn
	// Required config
	Keys Keys
}

// Length returns the number of pending jobs.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	if err := q.Conn.Ensure(ctx); err != nil {
		return 0, err
	}
	n, err := q.Conn.Redis.LLen(ctx, q.Keys.Jobs).Result()
	if err != nil {
		q.Conn.fail(ctx)
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return n, nil
}

// DeadLetter is a job that failed processing.
type DeadLetter struct {
	Envelope json.RawMessage `json:"envelope"`
	Error    string          `json:"error"`
	FailedAt time.Time       `json:"failedAt"`
}

// DeadLetters returns up to n of the oldest dead-lettered jobs.
func (q *Queue) DeadLetters(ctx context.Context, n int64) ([]DeadLetter, error) {
	if q.Keys.DeadLetter == "" || n <= 0 {
		return nil, nil
	}
	if err := q.Conn.Ensure(ctx); err != nil {
		return nil, err
	}
	entries, err := q.Conn.Redis.LRange(ctx, q.Keys.DeadLetter, 0, n-1).Result()
	if err != nil {
		q.Conn.fail(ctx)
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}
	letters := make([]DeadLetter, 0, len(entries))
	for _, entry := range entries {
		var letter DeadLetter
		if err := json.Unmarshal([]byte(entry), &letter); err != nil {
			return nil, fmt.Errorf("invalid dead letter entry: %w", err)
		}
		letters = append(letters, letter)
	}
	return letters, nil
}
