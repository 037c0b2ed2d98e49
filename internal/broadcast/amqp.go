package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reliefbridge/internal/config"
	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ service.EventBroadcaster = (*AMQPPublisher)(nil)

const (
	amqpMaxDialAttempts = 10
	amqpMaxDialDelay    = 30 * time.Second
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange, routing key = topic.
type AMQPPublisher struct {
	exchange string
	logger   *slog.Logger

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   channel
}

// NewAMQPPublisher dials the broker with backoff and declares the exchange.
func NewAMQPPublisher(ctx context.Context, cfg config.AMQPConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	const op = "broadcast.NewAMQPPublisher"

	p := &AMQPPublisher{exchange: cfg.Exchange, logger: logger}

	delay := time.Second
	for attempt := 1; ; attempt++ {
		err := p.connect(cfg.URL)
		if err == nil {
			logger.Info("RabbitMQ connected",
				slog.String("exchange", cfg.Exchange),
				slog.Int("attempt", attempt),
			)
			return p, nil
		}
		logger.Warn("RabbitMQ connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.Any("error", err),
		)
		if attempt == amqpMaxDialAttempts {
			return nil, fmt.Errorf("%s: after %d attempts: %v: %w", op, attempt, err, e.ErrUnavailable)
		}

		select {
		case <-ctx.Done():
			return nil, e.WrapError(ctx, op, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*1.5), amqpMaxDialDelay)
	}
}

func newAMQPPublisherWithChannel(ch channel, exchange string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{exchange: exchange, logger: logger, ch: ch}
}

func (p *AMQPPublisher) connect(url string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.mu.Lock()
	p.conn = conn
	p.ch = ch
	p.mu.Unlock()
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, event any) error {
	const op = "broadcast.AMQPPublisher.Publish"

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("%s: channel not available: %w", op, e.ErrUnavailable)
	}

	body, err := json.Marshal(Envelope{Topic: topic, Data: event})
	if err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, e.ErrInternal)
	}

	err = ch.PublishWithContext(ctx, p.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return e.WrapError(ctx, op, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.logger.Info("RabbitMQ connection closed")
}
