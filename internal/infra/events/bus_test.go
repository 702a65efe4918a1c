package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBus_Publish(t *testing.T) {
	t.Run("dispatches to typed and wildcard handlers in order", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		var calls []string

		bus.Register(NewHandlerFunc([]string{OrderStatusChangedType}, func(Event) error {
			calls = append(calls, "typed")
			return nil
		}))
		bus.Register(NewHandlerFunc([]string{AllEvents}, func(Event) error {
			calls = append(calls, "wildcard")
			return nil
		}))
		bus.Register(NewHandlerFunc([]string{ReturnStatusChangedType}, func(Event) error {
			calls = append(calls, "other")
			return nil
		}))

		bus.Publish(NewOrderStatusChanged(uuid.New(), uuid.New(), "PENDING", "CANCELLED", uuid.New()))

		assert.Equal(t, []string{"typed", "wildcard"}, calls)
	})

	t.Run("failing handler does not stop the rest", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		delivered := false

		bus.Register(NewHandlerFunc([]string{RefundFailedType}, func(Event) error {
			return errors.New("broker down")
		}))
		bus.Register(NewHandlerFunc([]string{RefundFailedType}, func(Event) error {
			delivered = true
			return nil
		}))

		bus.Publish(NewRefundFailed(uuid.New(), "ReturnRequest", uuid.New(), 4999, "card_declined"))

		assert.True(t, delivered)
	})

	t.Run("no handlers is a no-op", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		assert.NotPanics(t, func() {
			bus.Publish(NewRefundCompleted(uuid.New(), "Order", uuid.New(), 4999, "re_1"))
		})
	})
}

func TestNewBaseEvent(t *testing.T) {
	id := uuid.New()
	e := NewReturnStatusChanged(id, uuid.New(), "REQUESTED", "INSTRUCTIONS_SENT", uuid.New())

	assert.Equal(t, ReturnStatusChangedType, e.EventType())
	assert.Equal(t, id, e.AggregateID())
	assert.Equal(t, "ReturnRequest", e.AggregateType())
	assert.NotEqual(t, uuid.Nil, e.EventID())
	assert.False(t, e.OccurredAt().IsZero())
}
