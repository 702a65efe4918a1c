package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Producer writes a keyed message to an external stream.
type Producer interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Forwarder relays every event to an external producer, keyed by aggregate ID so
// that consumers see the events of one order or return in commit order.
type Forwarder struct {
	producer Producer
	timeout  time.Duration
	logger   *zap.Logger
}

// NewForwarder creates a wildcard handler that forwards events to producer.
func NewForwarder(producer Producer, timeout time.Duration, logger *zap.Logger) *Forwarder {
	return &Forwarder{producer: producer, timeout: timeout, logger: logger}
}

// Handles subscribes the forwarder to every event.
func (f *Forwarder) Handles() []string {
	return []string{AllEvents}
}

// Handle forwards one event. Delivery is best effort; the transition has already committed.
func (f *Forwarder) Handle(event Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.producer.Publish(ctx, event.AggregateID().String(), event); err != nil {
		f.logger.Warn("failed to forward event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
