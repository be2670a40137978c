package handlers

import (
	"context"

	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/jobs"
)

// Forwarder passes webhook events on to their consumers.
type Forwarder interface {
	Forward(ctx context.Context, event jobs.WebhookProcess) error
}

// Webhook relays payment provider events.
type Webhook struct {
	Forwarder Forwarder
	Log       *zap.Logger
}

// Handle forwards the event.
func (h *Webhook) Handle(ctx context.Context, p jobs.WebhookProcess) error {
	h.Log.Info("Relaying webhook event", zap.String("webhook.event", p.Event))
	return h.Forwarder.Forward(ctx, p)
}

// LogForwarder drops events after logging them.
type LogForwarder struct {
	Log *zap.Logger
}

// Forward logs the event name and payload size.
func (f *LogForwarder) Forward(_ context.Context, event jobs.WebhookProcess) error {
	f.Log.Debug("Webhook event received",
		zap.String("webhook.event", event.Event),
		zap.Int("webhook.payload_size", len(event.Payload)))
	return nil
}
