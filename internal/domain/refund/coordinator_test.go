package refund

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock implementations ---

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) CreateRefund(ctx context.Context, req *model.GatewayRefundRequest) (*model.GatewayRefund, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewayRefund), args.Error(1)
}

// blockingGateway holds every call until release is closed.
type blockingGateway struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Name() string { return "blocking" }

func (g *blockingGateway) CreateRefund(ctx context.Context, req *model.GatewayRefundRequest) (*model.GatewayRefund, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &model.GatewayRefund{ID: "re_shared", Amount: req.Amount, Status: model.GatewayRefundSucceeded, IdempotencyKey: req.IdempotencyKey}, nil
}

func testConfig() Config {
	return Config{
		MaxAttempts:             3,
		InitialBackoff:          time.Millisecond,
		MaxBackoff:              2 * time.Millisecond,
		RequestTimeout:          time.Second,
		BreakerFailureThreshold: 100,
		BreakerOpenTimeout:      time.Minute,
	}
}

func validRequest() *Request {
	return &Request{
		IdempotencyKey:   "order-1-cancel",
		PaymentReference: "pi_123",
		Amount:           4999,
		MaxAmount:        4999,
		Currency:         "usd",
	}
}

func succeeded(amount int64) *model.GatewayRefund {
	return &model.GatewayRefund{ID: "re_123", Amount: amount, Status: model.GatewayRefundSucceeded}
}

// --- Tests ---

func TestCoordinator_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"amount above original price", func(r *Request) { r.Amount = 5000 }},
		{"zero amount", func(r *Request) { r.Amount = 0 }},
		{"negative amount", func(r *Request) { r.Amount = -1 }},
		{"missing idempotency key", func(r *Request) { r.IdempotencyKey = "" }},
		{"missing payment reference", func(r *Request) { r.PaymentReference = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())

			req := validRequest()
			tt.mutate(req)

			result, err := c.Refund(context.Background(), req)

			assert.Nil(t, result)
			assert.True(t, apperrors.IsValidation(err))
			gw.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
		})
	}

	t.Run("nil request", func(t *testing.T) {
		c := NewRefundCoordinator(new(MockGateway), testConfig(), nil, zap.NewNop())
		_, err := c.Refund(context.Background(), nil)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestCoordinator_Success(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateRefund", mock.Anything, mock.MatchedBy(func(r *model.GatewayRefundRequest) bool {
		return r.IdempotencyKey == "order-1-cancel" && r.PaymentReference == "pi_123" && r.Amount == 4999
	})).Return(succeeded(4999), nil).Once()

	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
	result, err := c.Refund(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, "re_123", result.GatewayRefundID)
	assert.Equal(t, int64(4999), result.Amount)
	assert.Equal(t, 1, result.Attempts)
	gw.AssertExpectations(t)
}

func TestCoordinator_PartialAmount(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateRefund", mock.Anything, mock.Anything).Return(succeeded(2500), nil).Once()

	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
	req := validRequest()
	req.Amount = 2500

	result, err := c.Refund(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, int64(2500), result.Amount)
}

func TestCoordinator_RetriesTransientFailures(t *testing.T) {
	t.Run("5xx then success", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("CreateRefund", mock.Anything, mock.Anything).
			Return(nil, outbound.ClassifyStatus(503, "", "unavailable")).Twice()
		gw.On("CreateRefund", mock.Anything, mock.Anything).
			Return(succeeded(4999), nil).Once()

		c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
		result, err := c.Refund(context.Background(), validRequest())

		require.NoError(t, err)
		assert.Equal(t, 3, result.Attempts)
		gw.AssertNumberOfCalls(t, "CreateRefund", 3)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("CreateRefund", mock.Anything, mock.Anything).
			Return(nil, outbound.ClassifyStatus(500, "api_error", "boom"))

		c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
		_, err := c.Refund(context.Background(), validRequest())

		require.Error(t, err)
		assert.True(t, apperrors.IsGateway(err))
		assert.Equal(t, "api_error", FailureReason(err))
		gw.AssertNumberOfCalls(t, "CreateRefund", 3)
	})

	t.Run("rate limited is transient", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("CreateRefund", mock.Anything, mock.Anything).
			Return(nil, outbound.ClassifyStatus(429, "rate_limit", "slow down")).Once()
		gw.On("CreateRefund", mock.Anything, mock.Anything).
			Return(succeeded(4999), nil).Once()

		c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
		_, err := c.Refund(context.Background(), validRequest())

		require.NoError(t, err)
		gw.AssertNumberOfCalls(t, "CreateRefund", 2)
	})
}

func TestCoordinator_TimeoutsThenPermanentFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateRefund", mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded).Twice()
	gw.On("CreateRefund", mock.Anything, mock.Anything).
		Return(nil, outbound.ClassifyStatus(400, "charge_already_refunded", "already refunded")).Once()

	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
	result, err := c.Refund(context.Background(), validRequest())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, apperrors.IsGateway(err))
	assert.Equal(t, "charge_already_refunded", FailureReason(err))
	gw.AssertNumberOfCalls(t, "CreateRefund", 3)
}

func TestCoordinator_PermanentFailureIsNotRetried(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateRefund", mock.Anything, mock.Anything).
		Return(nil, outbound.ClassifyStatus(402, "card_declined", "declined")).Once()

	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
	_, err := c.Refund(context.Background(), validRequest())

	assert.True(t, apperrors.IsGateway(err))
	gw.AssertNumberOfCalls(t, "CreateRefund", 1)
}

func TestCoordinator_GatewayReportsFailedRefund(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateRefund", mock.Anything, mock.Anything).
		Return(&model.GatewayRefund{ID: "re_bad", Amount: 4999, Status: model.GatewayRefundFailed}, nil).Once()

	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
	_, err := c.Refund(context.Background(), validRequest())

	assert.True(t, apperrors.IsGateway(err))
	assert.Equal(t, "refund_failed", FailureReason(err))
	gw.AssertNumberOfCalls(t, "CreateRefund", 1)
}

func TestCoordinator_PerAttemptTimeout(t *testing.T) {
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	cfg.RequestTimeout = 20 * time.Millisecond

	c := NewRefundCoordinator(gw, cfg, nil, zap.NewNop())
	_, err := c.Refund(context.Background(), validRequest())

	require.Error(t, err)
	assert.True(t, apperrors.IsGateway(err))
	assert.Equal(t, "timeout", FailureReason(err))
	assert.Equal(t, int32(2), gw.calls.Load())
}

func TestCoordinator_ConcurrentCallsShareOneGatewayCall(t *testing.T) {
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Result, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Refund(context.Background(), validRequest())
	}()
	<-gw.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Refund(context.Background(), validRequest())
		}(i)
	}
	// Give the followers time to join the in-flight call before it completes.
	time.Sleep(50 * time.Millisecond)
	close(gw.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "re_shared", results[i].GatewayRefundID)
	}
	assert.Equal(t, int32(1), gw.calls.Load())
}

func TestCoordinator_CircuitBreakerFailsFast(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateRefund", mock.Anything, mock.Anything).
		Return(nil, outbound.ClassifyStatus(503, "", "unavailable"))

	cfg := testConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerFailureThreshold = 2
	c := NewRefundCoordinator(gw, cfg, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := c.Refund(context.Background(), validRequest())
		require.True(t, apperrors.IsGateway(err))
	}

	_, err := c.Refund(context.Background(), validRequest())

	require.True(t, apperrors.IsGateway(err))
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "payment gateway unavailable", appErr.Message)
	gw.AssertNumberOfCalls(t, "CreateRefund", 2)
}

func TestCoordinator_CallerCancellationDoesNotAbortRefund(t *testing.T) {
	gw := new(MockGateway)
	ctx, cancel := context.WithCancel(context.Background())
	gw.On("CreateRefund", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, outbound.ClassifyStatus(503, "", "unavailable")).Once()
	gw.On("CreateRefund", mock.Anything, mock.Anything).
		Return(succeeded(4999), nil).Once()

	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())
	result, err := c.Refund(ctx, validRequest())

	require.NoError(t, err)
	assert.Equal(t, "re_123", result.GatewayRefundID)
	gw.AssertNumberOfCalls(t, "CreateRefund", 2)
}

func TestCoordinator_FollowerSurvivesLeaderCancellation(t *testing.T) {
	gw := &blockingGateway{started: make(chan struct{}), release: make(chan struct{})}
	c := NewRefundCoordinator(gw, testConfig(), nil, zap.NewNop())

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var followerResult *Result
	var followerErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.Refund(leaderCtx, validRequest())
	}()
	<-gw.started
	go func() {
		defer wg.Done()
		followerResult, followerErr = c.Refund(context.Background(), validRequest())
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	time.Sleep(20 * time.Millisecond)
	close(gw.release)
	wg.Wait()

	require.NoError(t, followerErr)
	assert.Equal(t, "re_shared", followerResult.GatewayRefundID)
	assert.Equal(t, int32(1), gw.calls.Load())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(errors.New("connection reset by peer")))
	assert.True(t, isTransient(outbound.ClassifyStatus(0, "", "dial tcp")))
	assert.False(t, isTransient(outbound.ClassifyStatus(404, "resource_missing", "")))
	assert.False(t, isTransient(context.Canceled))
}
