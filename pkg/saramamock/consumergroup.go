// Package saramamock provides fakes for sarama consumer group handlers.
package saramamock

import (
	"context"
	"sync"

	"github.com/Shopify/sarama"
)

// ConsumerGroupSession is a fake sarama.ConsumerGroupSession that records committed offsets.
type ConsumerGroupSession struct {
	MClaims       map[string][]int32
	MMemberID     string
	MContext      context.Context
	MGenerationID int32

	mu      sync.Mutex
	marked  map[string]map[int32]int64
	commits int
}

// Claims returns what's saved.
func (m *ConsumerGroupSession) Claims() map[string][]int32 {
	return m.MClaims
}

// MemberID returns what's saved.
func (m *ConsumerGroupSession) MemberID() string {
	return m.MMemberID
}

// GenerationID returns what's saved.
func (m *ConsumerGroupSession) GenerationID() int32 {
	return m.MGenerationID
}

// MarkOffset records the offset.
func (m *ConsumerGroupSession) MarkOffset(topic string, partition int32, offset int64, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marked == nil {
		m.marked = make(map[string]map[int32]int64)
	}
	if m.marked[topic] == nil {
		m.marked[topic] = make(map[int32]int64)
	}
	m.marked[topic][partition] = offset
}

// Offset returns the last marked offset, or -1.
func (m *ConsumerGroupSession) Offset(topic string, partition int32) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	offset, ok := m.marked[topic][partition]
	if !ok {
		return -1
	}
	return offset
}

// Commit counts commits.
func (m *ConsumerGroupSession) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
}

// Commits returns the number of Commit calls.
func (m *ConsumerGroupSession) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// ResetOffset does nothing.
func (*ConsumerGroupSession) ResetOffset(_ string, _ int32, _ int64, _ string) {}

// MarkMessage marks the offset after the message.
func (m *ConsumerGroupSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	m.MarkOffset(msg.Topic, msg.Partition, msg.Offset+1, metadata)
}

// Context returns what's saved.
func (m *ConsumerGroupSession) Context() context.Context {
	return m.MContext
}

var _ sarama.ConsumerGroupSession = (*ConsumerGroupSession)(nil)

// ConsumerGroupClaim is a fake sarama.ConsumerGroupClaim fed from a fixed message list.
type ConsumerGroupClaim struct {
	msgChan chan *sarama.ConsumerMessage

	// Saved values.
	MTopic               string
	MPartition           int32
	MInitialOffset       int64
	MHighWaterMarkOffset int64
}

// NewConsumerGroupClaim returns a claim delivering the given values at consecutive offsets.
// The message channel is closed after the last value.
func NewConsumerGroupClaim(topic string, partition int32, values ...[]byte) *ConsumerGroupClaim {
	c := &ConsumerGroupClaim{
		msgChan:              make(chan *sarama.ConsumerMessage, len(values)),
		MTopic:               topic,
		MPartition:           partition,
		MHighWaterMarkOffset: int64(len(values)),
	}
	for i, value := range values {
		c.msgChan <- &sarama.ConsumerMessage{
			Topic:     topic,
			Partition: partition,
			Offset:    int64(i),
			Value:     value,
		}
	}
	close(c.msgChan)
	return c
}

// Topic returns the saved value.
func (c *ConsumerGroupClaim) Topic() string {
	return c.MTopic
}

// Partition returns the saved value.
func (c *ConsumerGroupClaim) Partition() int32 {
	return c.MPartition
}

// InitialOffset returns the saved value.
func (c *ConsumerGroupClaim) InitialOffset() int64 {
	return c.MInitialOffset
}

// HighWaterMarkOffset returns the saved offset.
func (c *ConsumerGroupClaim) HighWaterMarkOffset() int64 {
	return c.MHighWaterMarkOffset
}

// Messages returns the messages channel.
func (c *ConsumerGroupClaim) Messages() <-chan *sarama.ConsumerMessage {
	return c.msgChan
}

var _ sarama.ConsumerGroupClaim = (*ConsumerGroupClaim)(nil)
