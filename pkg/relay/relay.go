// Package relay publishes job side effects to Kafka for external services.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"
	"go.yametee.shop/jobs/pkg/jobs"
)

// Publisher writes emails and webhook events to Kafka topics.
// It implements handlers.Mailer and handlers.Forwarder.
type Publisher struct {
	Producer     sarama.SyncProducer
	EmailTopic   string
	WebhookTopic string
}

// Send publishes an email for the mail service, keyed by recipient.
func (p *Publisher) Send(_ context.Context, msg jobs.EmailSend) error {
	return p.publish(p.EmailTopic, msg.To, msg)
}

// Forward publishes a webhook event, keyed by event name.
func (p *Publisher) Forward(_ context.Context, event jobs.WebhookProcess) error {
	return p.publish(p.WebhookTopic, event.Event, event)
}

func (p *Publisher) publish(topic, key string, value interface{}) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, _, err = p.Producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(buf),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
