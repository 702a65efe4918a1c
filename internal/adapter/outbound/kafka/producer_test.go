package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Run("writes keyed json with trace headers", func(t *testing.T) {
		writer := &recordingWriter{}
		p := &producer{writer: writer, topic: "storefront.lifecycle"}

		err := p.Publish(context.Background(), "order-1", map[string]string{"type": "order.status_changed"})

		require.NoError(t, err)
		require.Len(t, writer.msgs, 1)
		msg := writer.msgs[0]
		assert.Equal(t, "order-1", string(msg.Key))

		var body map[string]string
		require.NoError(t, json.Unmarshal(msg.Value, &body))
		assert.Equal(t, "order.status_changed", body["type"])

		carrier := headerCarrier{msg: &msg}
		assert.NotEmpty(t, carrier.Get("traceparent"))
	})

	t.Run("write failure", func(t *testing.T) {
		p := &producer{writer: &recordingWriter{err: errors.New("broker down")}, topic: "t"}

		err := p.Publish(context.Background(), "k", struct{}{})

		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		p := &producer{writer: &recordingWriter{}, topic: "t"}

		err := p.Publish(context.Background(), "k", make(chan int))

		assert.ErrorContains(t, err, "marshal message")
	})
}

func TestHeaderCarrier(t *testing.T) {
	msg := &kafka.Message{}
	c := headerCarrier{msg: msg}

	c.Set("a", "1")
	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Empty(t, c.Get("missing"))
}
