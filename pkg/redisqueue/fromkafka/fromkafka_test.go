package fromkafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"go.yametee.shop/jobs/pkg/jobs"
	"go.yametee.shop/jobs/pkg/redisqueue"
	"go.yametee.shop/jobs/pkg/redistest"
	"go.yametee.shop/jobs/pkg/saramamock"
)

func TestWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := redistest.NewRedis(ctx, t)
	defer instance.Close(t)
	log := zaptest.NewLogger(t)

	queue := redisqueue.Queue{
		Conn: &redisqueue.Conn{
			Redis:  instance.Client,
			Log:    log,
			Policy: redisqueue.DefaultReconnectPolicy,
		},
		Keys: redisqueue.KeysForPrefix("Q"),
	}
	worker := &Worker{
		Producer:  &redisqueue.Producer{Queue: queue},
		Log:       log,
		MaxDelay:  100 * time.Millisecond,
		BatchSize: 2,
	}

	var values [][]byte
	var ids []string
	for _, orderID := range []string{"ord_1", "ord_2", "ord_3"} {
		env, err := jobs.From(jobs.OrderProcess{OrderID: orderID})
		require.NoError(t, err)
		buf, err := jobs.Marshal(env)
		require.NoError(t, err)
		values = append(values, buf)
		ids = append(ids, env.ID)
	}
	values = append(values, []byte("garbage"))

	session := &saramamock.ConsumerGroupSession{MContext: ctx}
	claim := saramamock.NewConsumerGroupClaim("jobs", 0, values...)
	require.NoError(t, worker.ConsumeClaim(session, claim))

	assert.Equal(t, int64(4), session.Offset("jobs", 0))
	assert.Equal(t, 2, session.Commits())

	consumer := redisqueue.Consumer{Queue: queue, Log: log}
	for _, id := range ids {
		env, err := consumer.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, id, env.ID)
	}
	n, err := consumer.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestWorker_ZeroBatchSize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := redistest.NewRedis(ctx, t)
	defer instance.Close(t)
	log := zaptest.NewLogger(t)

	queue := redisqueue.Queue{
		Conn: &redisqueue.Conn{
			Redis:  instance.Client,
			Log:    log,
			Policy: redisqueue.DefaultReconnectPolicy,
		},
		Keys: redisqueue.KeysForPrefix("Q"),
	}
	worker := &Worker{
		Producer: &redisqueue.Producer{Queue: queue},
		Log:      log,
		MaxDelay: 100 * time.Millisecond,
	}

	var values [][]byte
	for _, orderID := range []string{"ord_1", "ord_2"} {
		env, err := jobs.From(jobs.OrderProcess{OrderID: orderID})
		require.NoError(t, err)
		buf, err := jobs.Marshal(env)
		require.NoError(t, err)
		values = append(values, buf)
	}

	session := &saramamock.ConsumerGroupSession{MContext: ctx}
	claim := saramamock.NewConsumerGroupClaim("jobs", 0, values...)
	done := make(chan error, 1)
	go func() { done <- worker.ConsumeClaim(session, claim) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ConsumeClaim did not return after the claim closed")
	}

	assert.Equal(t, int64(2), session.Offset("jobs", 0))
	assert.Equal(t, 2, session.Commits())
	n, err := queue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
