package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yametee.shop/jobs/pkg/jobs"
)

func TestPublisher(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer func() {
		require.NoError(t, producer.Close())
	}()
	pub := &Publisher{
		Producer:     producer,
		EmailTopic:   "emails",
		WebhookTopic: "webhooks",
	}
	ctx := context.Background()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg jobs.EmailSend
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.To != "a@example.com" {
			return errors.New("wrong recipient: " + msg.To)
		}
		return nil
	})
	require.NoError(t, pub.Send(ctx, jobs.EmailSend{To: "a@example.com", Subject: "s", Body: "b"}))

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	err := pub.Forward(ctx, jobs.WebhookProcess{Event: "payment.paid", Payload: json.RawMessage(`{}`)})
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
}
