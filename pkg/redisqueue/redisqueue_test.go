package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"go.yametee.shop/jobs/pkg/jobs"
	"go.yametee.shop/jobs/pkg/redistest"
)

func newQueue(t *testing.T, client *redis.Client) (*Producer, *Consumer) {
	log := zaptest.NewLogger(t)
	q := Queue{
		Conn: &Conn{
			Redis:  client,
			Log:    log,
			Policy: DefaultReconnectPolicy,
		},
		Keys: KeysForPrefix("Q"),
	}
	return &Producer{Queue: q}, &Consumer{Queue: q, Log: log}
}

func TestKeysForPrefix(t *testing.T) {
	assert.Equal(t, Keys{
		Jobs:       "yametee:jobs",
		DeadLetter: "yametee:jobs:dead",
	}, KeysForPrefix("yametee"))
}

func TestQueue_FIFO(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := redistest.NewRedis(ctx, t)
	defer instance.Close(t)
	producer, consumer := newQueue(t, instance.Client)

	var pushed []*jobs.Envelope
	for i := 0; i < 20; i++ {
		env, err := jobs.From(jobs.OrderProcess{OrderID: fmt.Sprintf("ord_%d", i)})
		require.NoError(t, err)
		require.NoError(t, producer.Push(ctx, env))
		pushed = append(pushed, env)
	}
	for _, want := range pushed {
		got, err := consumer.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, string(want.Data), string(got.Data))
	}
}

func TestQueue_PoppedIsGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := redistest.NewRedis(ctx, t)
	defer instance.Close(t)
	producer, consumer := newQueue(t, instance.Client)

	env, err := jobs.From(jobs.CacheWarm{Keys: []string{"home"}})
	require.NoError(t, err)
	require.NoError(t, producer.Push(ctx, env))
	// Pop without processing, as if the worker crashed.
	_, err = consumer.Pop(ctx, time.Second)
	require.NoError(t, err)
	n, err := consumer.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	_, err = consumer.Pop(ctx, time.Second)
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestQueue_Malformed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := redistest.NewRedis(ctx, t)
	defer instance.Close(t)
	producer, consumer := newQueue(t, instance.Client)

	require.NoError(t, instance.Client.RPush(ctx, producer.Keys.Jobs, "{not json").Err())
	env, err := jobs.From(jobs.OrderProcess{OrderID: "ord_1"})
	require.NoError(t, err)
	require.NoError(t, producer.Push(ctx, env))

	_, err = consumer.Pop(ctx, time.Second)
	assert.True(t, errors.Is(err, ErrEmpty))
	got, err := consumer.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, env.ID, got.ID)
}

func TestQueue_Length(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := redistest.NewRedis(ctx, t)
	defer instance.Close(t)
	producer, consumer := newQueue(t, instance.Client)

	for i := 0; i < 50; i++ {
		env, err := jobs.From(jobs.EmailSend{To: "a@example.com", Subject: "s", Body: "b"})
		require.NoError(t, err)
		require.NoError(t, producer.Push(ctx, env))
	}
	n, err := producer.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), n)
	for i := 0; i < 50; i++ {
		_, err := consumer.Pop(ctx, time.Second)
		require.NoError(t, err)
	}
	n, err = producer.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestQueue_DeadLetter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := redistest.NewRedis(ctx, t)
	defer instance.Close(t)
	producer, _ := newQueue(t, instance.Client)

	env, err := jobs.From(jobs.OrderProcess{OrderID: "ord_404"})
	require.NoError(t, err)
	require.NoError(t, producer.PushDeadLetter(ctx, env, errors.New("order ord_404 not found")))

	letters, err := producer.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "order ord_404 not found", letters[0].Error)
	got, err := jobs.Unmarshal(letters[0].Envelope)
	require.NoError(t, err)
	assert.Equal(t, env.ID, got.ID)

	// Disabled dead-lettering writes nothing.
	producer.Keys.DeadLetter = ""
	require.NoError(t, producer.PushDeadLetter(ctx, env, errors.New("x")))
	n, err := instance.Client.LLen(ctx, "Q:jobs:dead").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReconnectPolicy(t *testing.T) {
	b := DefaultReconnectPolicy.NewBackOff()
	var delays []time.Duration
	for i := 0; i < 100; i++ {
		d := b.NextBackOff()
		if d == backoff.Stop {
			break
		}
		delays = append(delays, d)
	}
	require.Len(t, delays, 10)
	assert.Equal(t, 50*time.Millisecond, delays[0])
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, int64(delays[i]), int64(delays[i-1]))
		assert.LessOrEqual(t, int64(delays[i]), int64(time.Second))
	}
	assert.Equal(t, time.Second, delays[len(delays)-1])
}

func TestConn_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Network:    "unix",
		Addr:       filepath.Join(t.TempDir(), "missing.sock"),
		MaxRetries: -1,
	})
	defer client.Close()
	producer, consumer := newQueue(t, client)
	producer.Conn.Policy = ReconnectPolicy{
		Initial:    time.Millisecond,
		Max:        4 * time.Millisecond,
		MaxRetries: 3,
	}
	ctx := context.Background()

	env, err := jobs.From(jobs.OrderProcess{OrderID: "ord_1"})
	require.NoError(t, err)
	assert.True(t, errors.Is(producer.Push(ctx, env), ErrUnavailable))
	_, err = consumer.Pop(ctx, time.Second)
	assert.True(t, errors.Is(err, ErrUnavailable))
	_, err = consumer.Length(ctx)
	assert.True(t, errors.Is(err, ErrUnavailable))
}
