package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"

	"github.com/redis/go-redis/v9"
)

var _ service.WebhookQueue = (*WebhookQueue)(nil)

type WebhookQueue struct {
	client *redis.Client
	key    string
}

func NewWebhookQueue(client *redis.Client, key string) *WebhookQueue {
	return &WebhookQueue{client: client, key: key}
}

func (q *WebhookQueue) Enqueue(ctx context.Context, payload domain.WebhookPayload) error {
	const op = "redis.WebhookQueue.Enqueue"

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, e.ErrInternal)
	}
	if err := q.client.LPush(ctx, q.key, b).Err(); err != nil {
		return e.WrapError(ctx, op, err)
	}
	return nil
}

func (q *WebhookQueue) BRPop(ctx context.Context, timeout time.Duration) (domain.WebhookPayload, error) {
	var p domain.WebhookPayload

	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return p, e.ErrWebHookEmpty
		}
		return p, err
	}
	if len(res) < 2 {
		return p, e.ErrWebHookEmpty
	}
	if err := json.Unmarshal([]byte(res[1]), &p); err != nil {
		return p, err
	}
	return p, nil
}

// Len is the current backlog, exposed for health output.
func (q *WebhookQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
