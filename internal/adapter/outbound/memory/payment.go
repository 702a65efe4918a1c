package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
)

// PaymentGateway is an in-memory payment gateway. Like Stripe it is idempotent on the
// idempotency key: replaying a key returns the refund created by the first call, or the
// permanent error the first call was rejected with.
type PaymentGateway struct {
	mu       sync.Mutex
	refunds  map[string]*model.GatewayRefund
	rejected map[string]error
	failures []error
	latency  time.Duration
	calls    int
	seq      int
}

// NewPaymentGateway creates a new in-memory payment gateway.
func NewPaymentGateway() *PaymentGateway {
	return &PaymentGateway{
		refunds:  make(map[string]*model.GatewayRefund),
		rejected: make(map[string]error),
	}
}

// Name returns the gateway name.
func (g *PaymentGateway) Name() string {
	return "fake"
}

// FailNext makes the next len(errs) calls fail with errs, in order.
func (g *PaymentGateway) FailNext(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = append(g.failures, errs...)
}

// SetLatency delays every call by d, or until the call's context is done.
func (g *PaymentGateway) SetLatency(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latency = d
}

// Calls returns the number of CreateRefund calls received.
func (g *PaymentGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// RefundCount returns the number of distinct refunds issued.
func (g *PaymentGateway) RefundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

// Refund returns the refund recorded under an idempotency key, or nil.
func (g *PaymentGateway) Refund(idempotencyKey string) *model.GatewayRefund {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.refunds[idempotencyKey]; ok {
		copied := *r
		return &copied
	}
	return nil
}

func (g *PaymentGateway) CreateRefund(ctx context.Context, req *model.GatewayRefundRequest) (*model.GatewayRefund, error) {
	g.mu.Lock()
	g.calls++
	latency := g.latency
	var failure error
	if len(g.failures) > 0 {
		failure = g.failures[0]
		g.failures = g.failures[1:]
	}
	g.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if stored, ok := g.rejected[req.IdempotencyKey]; ok {
		return nil, stored
	}
	if failure != nil {
		var gwErr *outbound.GatewayError
		if errors.As(failure, &gwErr) && !gwErr.Temporary {
			g.rejected[req.IdempotencyKey] = failure
		}
		return nil, failure
	}

	if existing, ok := g.refunds[req.IdempotencyKey]; ok {
		if existing.Amount != req.Amount || existing.PaymentReference != req.PaymentReference {
			return nil, outbound.ClassifyStatus(400, "idempotency_error",
				"keys for idempotent requests can only be used with the same parameters they were first used with")
		}
		copied := *existing
		return &copied, nil
	}

	g.seq++
	refund := &model.GatewayRefund{
		ID:               fmt.Sprintf("re_fake_%06d", g.seq),
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
		Status:           model.GatewayRefundSucceeded,
		IdempotencyKey:   req.IdempotencyKey,
	}
	g.refunds[req.IdempotencyKey] = refund
	copied := *refund
	return &copied, nil
}

// Compile-time check
var _ outbound.PaymentGatewayPort = (*PaymentGateway)(nil)
