// Package refund bridges order cancellation and return completion to the payment
// gateway. The coordinator is stateless: it never writes domain state, and callers
// commit its result together with their own status transition.
package refund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/emberwick/storefront/internal/utils/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/emberwick/storefront/internal/domain/refund")

// Config controls retry and circuit breaking around the gateway.
type Config struct {
	// MaxAttempts is the total number of gateway calls per request, including the first.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RequestTimeout bounds each individual gateway call.
	RequestTimeout time.Duration

	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:             3,
		InitialBackoff:          200 * time.Millisecond,
		MaxBackoff:              2 * time.Second,
		RequestTimeout:          10 * time.Second,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      30 * time.Second,
	}
}

// Request is a refund to issue through the gateway.
type Request struct {
	// IdempotencyKey must be derived from the owning entity, never generated per call.
	IdempotencyKey   string
	PaymentReference string
	Amount           int64
	// MaxAmount is the originally charged price for what is being refunded.
	MaxAmount int64
	Currency  string
	Metadata  map[string]string
}

// Result is the gateway's answer to a successful refund.
type Result struct {
	GatewayRefundID string
	Status          model.GatewayRefundStatus
	Amount          int64
	Attempts        int
}

// RefundCoordinator is the only component that talks to the payment gateway.
type RefundCoordinator interface {
	// Refund issues the refund, retrying transient failures with exponential backoff.
	// Validation failures return a validation error without calling the gateway; every
	// gateway failure surfaces as a gateway error.
	Refund(ctx context.Context, req *Request) (*Result, error)
}

type coordinator struct {
	gateway  outbound.PaymentGatewayPort
	cfg      Config
	breaker  *gobreaker.CircuitBreaker[*model.GatewayRefund]
	inFlight singleflight.Group
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewRefundCoordinator creates a new refund coordinator.
func NewRefundCoordinator(gateway outbound.PaymentGatewayPort, cfg Config, m *metrics.Metrics, logger *zap.Logger) RefundCoordinator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = DefaultConfig().BreakerFailureThreshold
	}
	threshold := cfg.BreakerFailureThreshold

	breaker := gobreaker.NewCircuitBreaker[*model.GatewayRefund](gobreaker.Settings{
		Name:        "refund-" + gateway.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Permanent rejections mean the gateway is healthy and answering.
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("refund circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &coordinator{
		gateway: gateway,
		cfg:     cfg,
		breaker: breaker,
		metrics: m,
		logger:  logger,
	}
}

func (c *coordinator) Refund(ctx context.Context, req *Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "refund.Refund")
	defer span.End()
	span.SetAttributes(
		attribute.String("refund.idempotency_key", req.IdempotencyKey),
		attribute.String("refund.gateway", c.gateway.Name()),
		attribute.Int64("refund.amount", req.Amount),
	)

	started := time.Now()
	// The shared call outlives any one caller: a disconnecting caller must not fail the
	// refund for everyone waiting on it. Each attempt still has its own timeout.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, shared := c.inFlight.Do(req.IdempotencyKey, func() (any, error) {
		return c.refundWithRetry(sharedCtx, req)
	})
	if shared {
		c.logger.Debug("refund call shared with concurrent request",
			zap.String("idempotency_key", req.IdempotencyKey),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.RecordRefundOutcome(c.gateway.Name(), "failed", req.Amount, time.Since(started))
		return nil, err
	}

	result := v.(*Result)
	span.SetAttributes(
		attribute.String("refund.gateway_refund_id", result.GatewayRefundID),
		attribute.Int("refund.attempts", result.Attempts),
	)
	c.metrics.RecordRefundOutcome(c.gateway.Name(), "completed", result.Amount, time.Since(started))

	// Callers must not mutate the shared result.
	out := *result
	return &out, nil
}

func (c *coordinator) refundWithRetry(ctx context.Context, req *Request) (*Result, error) {
	attempts := 0
	operation := func() (*model.GatewayRefund, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		attempts++

		refund, err := c.attempt(ctx, req)
		if err == nil {
			c.metrics.RecordRefundAttempt(c.gateway.Name(), "success")
			return refund, nil
		}
		if isTransient(err) {
			c.metrics.RecordRefundAttempt(c.gateway.Name(), "transient")
			return nil, err
		}
		c.metrics.RecordRefundAttempt(c.gateway.Name(), "permanent")
		return nil, backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("transient refund failure, retrying",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	refund, err := backoff.RetryNotifyWithData[*model.GatewayRefund](operation, c.newBackOff(ctx), notify)
	if err != nil {
		c.logger.Error("refund failed",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("payment_reference", req.PaymentReference),
			zap.Int64("amount", req.Amount),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, apperrors.Gateway(failureMessage(err), err).WithDetails(map[string]any{
			"idempotency_key": req.IdempotencyKey,
			"attempts":        attempts,
			"reason":          failureReason(err),
		})
	}

	c.logger.Info("refund issued",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("gateway_refund_id", refund.ID),
		zap.Int64("amount", refund.Amount),
		zap.Int("attempts", attempts),
	)

	return &Result{
		GatewayRefundID: refund.ID,
		Status:          refund.Status,
		Amount:          refund.Amount,
		Attempts:        attempts,
	}, nil
}

// attempt performs one breaker-guarded gateway call under its own timeout.
func (c *coordinator) attempt(ctx context.Context, req *Request) (*model.GatewayRefund, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	refund, err := c.breaker.Execute(func() (*model.GatewayRefund, error) {
		refund, err := c.gateway.CreateRefund(attemptCtx, &model.GatewayRefundRequest{
			PaymentReference: req.PaymentReference,
			Amount:           req.Amount,
			Currency:         req.Currency,
			IdempotencyKey:   req.IdempotencyKey,
			Metadata:         req.Metadata,
		})
		if err != nil {
			return nil, err
		}
		if !refund.Status.IsAccepted() {
			return nil, &outbound.GatewayError{
				StatusCode: 200,
				Code:       "refund_" + string(refund.Status),
				Message:    fmt.Sprintf("gateway reported refund %s as %s", refund.ID, refund.Status),
			}
		}
		return refund, nil
	})
	if err != nil {
		return nil, err
	}
	if refund.Amount != req.Amount {
		c.logger.Warn("gateway refund amount differs from request",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("requested", req.Amount),
			zap.Int64("refunded", refund.Amount),
		)
	}
	return refund, nil
}

func (c *coordinator) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		b.MaxInterval = c.cfg.MaxBackoff
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)
}

// Validate checks a refund request without calling the gateway.
func Validate(req *Request) error {
	switch {
	case req == nil:
		return apperrors.Validation("refund request is required")
	case req.IdempotencyKey == "":
		return apperrors.Validation("idempotency key is required")
	case req.PaymentReference == "":
		return apperrors.Validation("payment reference is required")
	case req.Amount <= 0:
		return apperrors.Validation("refund amount must be positive").
			WithDetails(map[string]any{"amount": req.Amount})
	case req.Amount > req.MaxAmount:
		return apperrors.Validation("refund amount exceeds the original charged price").
			WithDetails(map[string]any{"amount": req.Amount, "max_amount": req.MaxAmount})
	}
	return nil
}

// isTransient reports whether a failed gateway call is worth retrying.
func isTransient(err error) bool {
	var gwErr *outbound.GatewayError
	switch {
	case errors.As(err, &gwErr):
		return gwErr.Temporary
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	// Deadline exceeded, connection resets and other transport failures.
	return true
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "payment gateway unavailable"
	case isTransient(err):
		return "payment gateway did not accept the refund after retries"
	}
	return "payment gateway rejected the refund"
}

// failureReason returns a short reason suitable for showing to an operator.
func failureReason(err error) string {
	var gwErr *outbound.GatewayError
	if errors.As(err, &gwErr) && gwErr.Code != "" {
		return gwErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}

// FailureReason extracts the operator-facing reason from a coordinator error.
func FailureReason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if reason, ok := appErr.Details["reason"].(string); ok && reason != "" {
			return reason
		}
		return appErr.Message
	}
	return err.Error()
}
