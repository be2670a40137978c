// Package fromkafka moves jobs published on Kafka onto the Redis job queue.
//
// Services that cannot reach Redis directly publish serialized job envelopes
// to a Kafka topic. The bridge appends them to the queue in partition order.
package fromkafka

import (
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/jobs"
	"go.yametee.shop/jobs/pkg/redisqueue"
)

// Worker moves jobs from Kafka to Redis.
type Worker struct {
	Producer  *redisqueue.Producer
	Log       *zap.Logger
	MaxDelay  time.Duration
	BatchSize uint // zero means one job per batch
}

// Setup is no-op.
func (w *Worker) Setup(_ sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is no-op.
func (w *Worker) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim runs the worker.
func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		ok, err := w.nextBatch(session, claim)
		if err != nil {
			return err
		}
		if !ok {
			return nil // session closed
		}
	}
}

func (w *Worker) nextBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) (bool, error) {
	timer := time.NewTimer(w.MaxDelay)
	defer timer.Stop()
	// Read message batch from Kafka.
	var batch []*jobs.Envelope
	var offset int64 = -1
	open := true
readLoop:
	for i := uint(0); i < w.batchSize(); i++ {
		select {
		case <-timer.C:
			break readLoop
		case msg, ok := <-claim.Messages():
			if !ok {
				open = false
				break readLoop
			}
			offset = msg.Offset
			env, err := jobs.Unmarshal(msg.Value)
			if err != nil {
				w.Log.Warn("Skipping malformed job from Kafka",
					zap.Error(err),
					zap.String("kafka.topic", msg.Topic),
					zap.Int32("kafka.partition", msg.Partition),
					zap.Int64("kafka.offset", msg.Offset))
				continue
			}
			batch = append(batch, env)
		}
	}
	if offset < 0 {
		return open, nil
	}
	// Write job batch to Redis.
	if err := w.Producer.PushBatch(session.Context(), batch); err != nil {
		return false, fmt.Errorf("failed to push jobs to Redis: %w", err)
	}
	// Tell Kafka about consumer progress.
	session.MarkOffset(claim.Topic(), claim.Partition(), offset+1, "")
	session.Commit()
	w.Log.Debug("Moved jobs from Kafka",
		zap.Int("jobs", len(batch)),
		zap.Int64("kafka.offset", offset+1))
	return open, nil
}

func (w *Worker) batchSize() uint {
	if w.BatchSize == 0 {
		return 1
	}
	return w.BatchSize
}
