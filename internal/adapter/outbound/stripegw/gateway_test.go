package stripegw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStripe serves the two refund endpoints the gateway uses.
type fakeStripe struct {
	mu       sync.Mutex
	refunds  []map[string]any
	failWith int
	errCode  string
	posts    []*http.Request
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path != "/v1/refunds" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object":   "list",
			"url":      "/v1/refunds",
			"has_more": false,
			"data":     f.refunds,
		})
	case http.MethodPost:
		_ = r.ParseForm()
		f.posts = append(f.posts, r)
		if f.failWith != 0 {
			w.WriteHeader(f.failWith)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"type":    "invalid_request_error",
					"code":    f.errCode,
					"message": "refused",
				},
			})
			return
		}
		refund := map[string]any{
			"id":     "re_test_1",
			"object": "refund",
			"amount": json.Number(r.PostForm.Get("amount")),
			"status": "succeeded",
			"metadata": map[string]string{
				"idempotency_key": r.PostForm.Get("metadata[idempotency_key]"),
			},
		}
		f.refunds = append(f.refunds, refund)
		_ = json.NewEncoder(w).Encode(refund)
	}
}

func newTestGateway(t *testing.T, fake *fakeStripe) outbound.PaymentGatewayPort {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return NewGateway(Config{SecretKey: "sk_test_123", BaseURL: server.URL}, server.Client())
}

func refundRequest() *model.GatewayRefundRequest {
	return &model.GatewayRefundRequest{
		PaymentReference: "pi_123",
		Amount:           4999,
		Currency:         "usd",
		IdempotencyKey:   "order-1-cancel",
	}
}

func TestGateway_CreateRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("creates refund with idempotency key", func(t *testing.T) {
		fake := &fakeStripe{}
		gw := newTestGateway(t, fake)

		refund, err := gw.CreateRefund(ctx, refundRequest())

		require.NoError(t, err)
		assert.Equal(t, "re_test_1", refund.ID)
		assert.Equal(t, int64(4999), refund.Amount)
		assert.Equal(t, model.GatewayRefundSucceeded, refund.Status)
		require.Len(t, fake.posts, 1)
		assert.Equal(t, "order-1-cancel", fake.posts[0].Header.Get("Idempotency-Key"))
		assert.Equal(t, "pi_123", fake.posts[0].PostForm.Get("payment_intent"))
	})

	t.Run("returns existing refund tagged with key", func(t *testing.T) {
		fake := &fakeStripe{}
		gw := newTestGateway(t, fake)

		_, err := gw.CreateRefund(ctx, refundRequest())
		require.NoError(t, err)
		again, err := gw.CreateRefund(ctx, refundRequest())

		require.NoError(t, err)
		assert.Equal(t, "re_test_1", again.ID)
		assert.Len(t, fake.posts, 1)
	})

	t.Run("existing refund for a different amount", func(t *testing.T) {
		fake := &fakeStripe{}
		gw := newTestGateway(t, fake)
		_, err := gw.CreateRefund(ctx, refundRequest())
		require.NoError(t, err)

		req := refundRequest()
		req.Amount = 100
		_, err = gw.CreateRefund(ctx, req)

		var gwErr *outbound.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "idempotency_error", gwErr.Code)
		assert.False(t, gwErr.Temporary)
	})

	t.Run("client error is permanent", func(t *testing.T) {
		gw := newTestGateway(t, &fakeStripe{failWith: http.StatusBadRequest, errCode: "charge_already_refunded"})

		_, err := gw.CreateRefund(ctx, refundRequest())

		var gwErr *outbound.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		assert.Equal(t, "charge_already_refunded", gwErr.Code)
		assert.False(t, gwErr.Temporary)
	})

	t.Run("server error is temporary", func(t *testing.T) {
		gw := newTestGateway(t, &fakeStripe{failWith: http.StatusServiceUnavailable, errCode: "api_error"})

		_, err := gw.CreateRefund(ctx, refundRequest())

		var gwErr *outbound.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.True(t, gwErr.Temporary)
	})
}

func TestGateway_Name(t *testing.T) {
	assert.Equal(t, "stripe", NewGateway(Config{SecretKey: "sk_test"}, nil).Name())
}
