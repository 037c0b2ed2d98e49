package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"reliefbridge/internal/config"
	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

const webhookMaxRetries = 3

// WebhookSender drains the webhook queue and POSTs every payload to the
// configured endpoint, retrying with linear backoff.
type WebhookSender struct {
	logger  *slog.Logger
	cfg     config.WebhookConfig
	queue   WebhookQueue
	http    *http.Client
	backoff func(attempt int) time.Duration
}

func NewWebhookSender(logger *slog.Logger, cfg config.WebhookConfig, q WebhookQueue) *WebhookSender {
	return &WebhookSender{
		logger:  logger,
		cfg:     cfg,
		queue:   q,
		http:    &http.Client{Timeout: 5 * time.Second},
		backoff: func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
}

func (s *WebhookSender) Run(ctx context.Context) {
	s.logger.Info("webhookSender STARTED", slog.String("url", s.cfg.URL))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("webhookSender STOPPED", slog.String("reason", ctx.Err().Error()))
			return
		default:
		}

		payload, err := s.queue.BRPop(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, e.ErrWebHookEmpty) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error("BRPop failed", slog.Any("error", err))
			sleepCtx(ctx, 500*time.Millisecond)
			continue
		}

		s.logger.Info("sending webhook", slog.String("topic", payload.Topic))
		s.Send(ctx, payload)
	}
}

// Send delivers one payload. It reports whether the endpoint accepted it.
func (s *WebhookSender) Send(ctx context.Context, p domain.WebhookPayload) bool {
	body, err := json.Marshal(p)
	if err != nil {
		s.logger.Error("marshal webhook payload failed", slog.String("error", err.Error()))
		return false
	}

	for attempt := 1; attempt <= webhookMaxRetries; attempt++ {
		if ctx.Err() != nil {
			s.logger.Info("stop retries due to context cancel")
			return false
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
		if err != nil {
			s.logger.Error("create webhook request failed", slog.String("error", err.Error()))
			return false
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Relief-Topic", p.Topic)

		resp, err := s.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_ = resp.Body.Close()
			return true
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		reason := "unknown"
		if err != nil {
			reason = err.Error()
		} else if resp != nil {
			reason = resp.Status
		}

		s.logger.Warn("webhook failed",
			slog.Int("attempt", attempt),
			slog.String("url", s.cfg.URL),
			slog.String("reason", reason),
		)

		if attempt < webhookMaxRetries {
			sleepCtx(ctx, s.backoff(attempt))
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
