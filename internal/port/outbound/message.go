package outbound

import (
	"context"

	"github.com/emberwick/storefront/internal/infra/events"
)

// EventPublisherPort dispatches domain events after a transition commits.
type EventPublisherPort interface {
	Publish(event events.Event)
}

// MessageProducerPort writes a keyed message to the external notification stream.
type MessageProducerPort interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}
