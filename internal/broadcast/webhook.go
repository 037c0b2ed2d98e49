package broadcast

import (
	"context"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
)

var _ service.EventBroadcaster = (*WebhookSink)(nil)

// WebhookSink queues request lifecycle events for the webhook sender. Newly
// created requests also carry the volunteer-facing notification text.
type WebhookSink struct {
	queue service.WebhookQueue
	now   func() time.Time
}

func NewWebhookSink(q service.WebhookQueue) *WebhookSink {
	return &WebhookSink{queue: q, now: time.Now}
}

func (s *WebhookSink) Publish(ctx context.Context, topic string, event any) error {
	changed, ok := event.(domain.RequestChanged)
	if !ok {
		// location pings are too chatty for webhooks
		return nil
	}

	payload := domain.WebhookPayload{
		Topic:    topic,
		Event:    &changed,
		QueuedAt: s.now().UTC(),
	}
	if changed.PreviousStatus == "" && changed.NewStatus == domain.StatusPending && changed.Request != nil {
		n := domain.NotificationFor(changed.Request)
		payload.Notification = &n
	}
	return s.queue.Enqueue(ctx, payload)
}
