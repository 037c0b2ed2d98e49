// Package broadcast delivers domain events to subscribers. Every sink is best
// effort: the coordination core logs a failed publish and moves on.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reliefbridge/internal/obs"
	"reliefbridge/internal/service"
)

var (
	_ service.EventBroadcaster = Nop{}
	_ service.EventBroadcaster = (*Fanout)(nil)
)

// Envelope is the wire shape shared by the amqp and websocket sinks.
type Envelope struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

type namedSink struct {
	name string
	sink service.EventBroadcaster
}

// Fanout publishes to every sink in order. One sink failing does not stop the
// others; the failures are joined.
type Fanout struct {
	sinks  []namedSink
	logger *slog.Logger
}

func NewFanout(logger *slog.Logger) *Fanout {
	return &Fanout{logger: logger}
}

func (f *Fanout) Add(name string, sink service.EventBroadcaster) *Fanout {
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
	return f
}

func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.sink.Publish(ctx, topic, event); err != nil {
			obs.RecordBroadcastFailure(s.name)
			f.logger.Warn("sink publish failed",
				slog.String("sink", s.name),
				slog.String("topic", topic),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
