package returns

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/adapter/outbound/memory"
	"github.com/emberwick/storefront/internal/domain/refund"
	"github.com/emberwick/storefront/internal/infra/events"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	domain  ReturnDomain
	orders  outbound.OrderDatabasePort
	returns outbound.ReturnDatabasePort
	gateway *memory.PaymentGateway
	cache   *memory.ViewCache

	mu     sync.Mutex
	events []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		orders:  memory.NewOrderAdapter(store),
		returns: memory.NewReturnAdapter(store),
		gateway: memory.NewPaymentGateway(),
		cache:   memory.NewViewCache(),
	}

	bus := events.NewBus(zap.NewNop())
	bus.Register(events.NewHandlerFunc([]string{events.AllEvents}, func(e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	}))

	cfg := refund.DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	coordinator := refund.NewRefundCoordinator(f.gateway, cfg, nil, zap.NewNop())

	f.domain = NewReturnDomain(f.returns, f.orders, memory.NewStatusHistoryAdapter(store), coordinator,
		f.cache, f.cache, bus, nil, zap.NewNop())
	return f
}

// seedOrder creates an order with one item of quantity 1 at price.
func (f *fixture) seedOrder(t *testing.T, status model.OrderStatus, price int64) (*model.Order, *model.OrderItem) {
	t.Helper()
	item := &model.OrderItem{ID: uuid.New(), ProductID: uuid.New(), ScentID: uuid.New(), Quantity: 1, Price: price}
	order := &model.Order{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		Status:                status,
		Total:                 price,
		Currency:              "usd",
		StripePaymentIntentID: "pi_" + uuid.NewString()[:8],
		Items:                 []*model.OrderItem{item},
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order, item
}

// deliveredReturn drives a new return up to RETURN_DELIVERED.
func (f *fixture) deliveredReturn(t *testing.T, price int64) (*model.Order, *model.ReturnRequest) {
	t.Helper()
	ctx := context.Background()
	admin := model.NewAdmin(uuid.New())
	order, item := f.seedOrder(t, model.OrderStatusDelivered, price)

	ret, err := f.domain.Create(ctx, model.NewCustomer(order.UserID), item.ID, "defective", nil)
	require.NoError(t, err)
	_, err = f.domain.SendInstructions(ctx, admin, ret.ID, instructions())
	require.NoError(t, err)
	_, err = f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{TrackingNumber: ptr("1Z999AA10123456784")}, model.ReturnStatusReturnShippingSent)
	require.NoError(t, err)
	_, err = f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{}, model.ReturnStatusReturnInTransit)
	require.NoError(t, err)
	ret, err = f.domain.MarkDelivered(ctx, admin, ret.ID)
	require.NoError(t, err)
	return order, ret
}

func (f *fixture) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.EventType()
	}
	return out
}

func instructions() model.ReturnInstructions {
	return model.ReturnInstructions{
		Instructions: "Pack the candle in its original box.",
		Address:      "Emberwick Returns, 12 Wick Lane, Portland OR 97201",
		Deadline:     time.Now().Add(14 * 24 * time.Hour),
	}
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestReturnDomain_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := model.NewAdmin(uuid.New())
	order, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)
	customer := model.NewCustomer(order.UserID)

	ret, err := f.domain.Create(ctx, customer, item.ID, "defective", ptr("wick snapped"))
	require.NoError(t, err)
	assert.Equal(t, model.ReturnStatusRequested, ret.Status)
	assert.Equal(t, model.RefundStatusPending, ret.RefundStatus)
	assert.Equal(t, order.ID, ret.OrderID)

	ret, err = f.domain.SendInstructions(ctx, admin, ret.ID, instructions())
	require.NoError(t, err)
	assert.Equal(t, model.ReturnStatusInstructionsSent, ret.Status)
	require.NotNil(t, ret.ReturnDeadline)

	ret, err = f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{
		TrackingNumber: ptr("1Z999AA10123456784"),
		Carrier:        ptr("UPS"),
		TrackingURL:    ptr("https://www.ups.com/track?tracknum=1Z999AA10123456784"),
	}, model.ReturnStatusReturnShippingSent)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnStatusReturnShippingSent, ret.Status)
	assert.NotNil(t, ret.ShippedAt)

	ret, err = f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{}, model.ReturnStatusReturnInTransit)
	require.NoError(t, err)
	assert.Equal(t, "1Z999AA10123456784", *ret.TrackingNumber)

	ret, err = f.domain.MarkDelivered(ctx, admin, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnStatusReturnDelivered, ret.Status)
	assert.NotNil(t, ret.DeliveredAt)

	ret, err = f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnStatusCompleted, ret.Status)
	assert.Equal(t, model.RefundStatusCompleted, ret.RefundStatus)
	require.NotNil(t, ret.RefundAmount)
	assert.Equal(t, int64(4999), *ret.RefundAmount)
	assert.NotNil(t, ret.StripeRefundID)
	assert.NotNil(t, ret.RefundedAt)

	refunded := f.gateway.Refund(RefundIdempotencyKey(ret.ID, 1))
	require.NotNil(t, refunded)
	assert.Equal(t, order.StripePaymentIntentID, refunded.PaymentReference)

	history, err := f.domain.History(ctx, customer, ret.ID)
	require.NoError(t, err)
	var transitions []string
	for _, h := range history {
		transitions = append(transitions, string(h.EntityKind)+":"+h.ToStatus)
	}
	assert.Equal(t, []string{
		"return:REQUESTED",
		"return:INSTRUCTIONS_SENT",
		"return:RETURN_SHIPPING_SENT",
		"return:RETURN_IN_TRANSIT",
		"return:RETURN_DELIVERED",
		"refund:PROCESSING",
		"return:COMPLETED",
		"refund:COMPLETED",
	}, transitions)

	assert.Contains(t, f.eventTypes(), events.RefundCompletedType)
}

func TestReturnDomain_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("second active return for an item conflicts", func(t *testing.T) {
		f := newFixture(t)
		order, item := f.seedOrder(t, model.OrderStatusShipped, 4999)
		customer := model.NewCustomer(order.UserID)

		first, err := f.domain.Create(ctx, customer, item.ID, "wrong scent", nil)
		require.NoError(t, err)

		_, err = f.domain.Create(ctx, customer, item.ID, "changed my mind", nil)

		require.True(t, apperrors.IsConflict(err))
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, first.ID.String(), appErr.Details["return_id"])
	})

	t.Run("new return allowed after rejection", func(t *testing.T) {
		f := newFixture(t)
		order, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)
		customer := model.NewCustomer(order.UserID)

		first, err := f.domain.Create(ctx, customer, item.ID, "wrong scent", nil)
		require.NoError(t, err)
		_, err = f.domain.Reject(ctx, model.NewAdmin(uuid.New()), first.ID, "outside return window")
		require.NoError(t, err)

		_, err = f.domain.Create(ctx, customer, item.ID, "arrived broken", nil)
		assert.NoError(t, err)
	})

	for _, status := range []model.OrderStatus{model.OrderStatusPending, model.OrderStatusCancelled} {
		t.Run("order in "+string(status)+" is not returnable", func(t *testing.T) {
			f := newFixture(t)
			order, item := f.seedOrder(t, status, 4999)

			_, err := f.domain.Create(ctx, model.NewCustomer(order.UserID), item.ID, "defective", nil)

			assert.True(t, apperrors.IsValidation(err))
		})
	}

	t.Run("reason is required", func(t *testing.T) {
		f := newFixture(t)
		order, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)

		_, err := f.domain.Create(ctx, model.NewCustomer(order.UserID), item.ID, "   ", nil)

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("someone else's item", func(t *testing.T) {
		f := newFixture(t)
		_, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)

		_, err := f.domain.Create(ctx, model.NewCustomer(uuid.New()), item.ID, "defective", nil)

		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.domain.Create(ctx, model.NewCustomer(uuid.New()), uuid.New(), "defective", nil)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestReturnDomain_SendInstructions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)
	ret, err := f.domain.Create(ctx, model.NewCustomer(order.UserID), item.ID, "defective", nil)
	require.NoError(t, err)

	t.Run("customers cannot send instructions", func(t *testing.T) {
		_, err := f.domain.SendInstructions(ctx, model.NewCustomer(order.UserID), ret.ID, instructions())
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("deadline in the past", func(t *testing.T) {
		in := instructions()
		in.Deadline = time.Now().Add(-time.Hour)

		_, err := f.domain.SendInstructions(ctx, model.NewAdmin(uuid.New()), ret.ID, in)

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("address required", func(t *testing.T) {
		in := instructions()
		in.Address = ""

		_, err := f.domain.SendInstructions(ctx, model.NewAdmin(uuid.New()), ret.ID, in)

		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestReturnDomain_UpdateTracking(t *testing.T) {
	ctx := context.Background()
	admin := model.NewAdmin(uuid.New())

	setup := func(t *testing.T) (*fixture, *model.ReturnRequest) {
		f := newFixture(t)
		order, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)
		ret, err := f.domain.Create(ctx, model.NewCustomer(order.UserID), item.ID, "defective", nil)
		require.NoError(t, err)
		ret, err = f.domain.SendInstructions(ctx, admin, ret.ID, instructions())
		require.NoError(t, err)
		return f, ret
	}

	t.Run("shipping without a tracking number is rejected", func(t *testing.T) {
		f, ret := setup(t)

		_, err := f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{Carrier: ptr("UPS")}, model.ReturnStatusReturnShippingSent)

		assert.True(t, apperrors.IsValidation(err))
		stored, _ := f.returns.GetByID(ctx, ret.ID)
		assert.Equal(t, model.ReturnStatusInstructionsSent, stored.Status)
	})

	t.Run("blank tracking number counts as missing", func(t *testing.T) {
		f, ret := setup(t)

		_, err := f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{TrackingNumber: ptr("  ")}, model.ReturnStatusReturnShippingSent)

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("skipping to delivered is an invalid transition", func(t *testing.T) {
		f, ret := setup(t)

		_, err := f.domain.MarkDelivered(ctx, admin, ret.ID)

		assert.True(t, apperrors.IsInvalidTransition(err))
	})

	t.Run("non shipping target", func(t *testing.T) {
		f, ret := setup(t)

		_, err := f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{}, model.ReturnStatusCompleted)

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("relative tracking url", func(t *testing.T) {
		f, ret := setup(t)

		_, err := f.domain.UpdateTracking(ctx, admin, ret.ID, model.TrackingUpdate{
			TrackingNumber: ptr("1Z"),
			TrackingURL:    ptr("/track/1Z"),
		}, model.ReturnStatusReturnShippingSent)

		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestReturnDomain_ProcessRefund(t *testing.T) {
	ctx := context.Background()
	admin := model.NewAdmin(uuid.New())

	t.Run("amount above the item price is rejected before the gateway", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)

		_, err := f.domain.ProcessRefund(ctx, admin, ret.ID, ptr(int64(5000)))

		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, 0, f.gateway.Calls())
		stored, _ := f.returns.GetByID(ctx, ret.ID)
		assert.Equal(t, model.RefundStatusPending, stored.RefundStatus)
	})

	t.Run("partial refund", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)

		updated, err := f.domain.ProcessRefund(ctx, admin, ret.ID, ptr(int64(2000)))

		require.NoError(t, err)
		assert.Equal(t, int64(2000), *updated.RefundAmount)
	})

	t.Run("default amount covers the whole line", func(t *testing.T) {
		f := newFixture(t)
		item := &model.OrderItem{ID: uuid.New(), ProductID: uuid.New(), ScentID: uuid.New(), Quantity: 3, Price: 1500}
		order := &model.Order{ID: uuid.New(), UserID: uuid.New(), Status: model.OrderStatusDelivered, Total: 4500,
			Currency: "usd", StripePaymentIntentID: "pi_line", Items: []*model.OrderItem{item}}
		require.NoError(t, f.orders.Create(ctx, order))
		ret, err := f.domain.Create(ctx, model.NewCustomer(order.UserID), item.ID, "too strong", nil)
		require.NoError(t, err)
		ret.Status = model.ReturnStatusReturnDelivered
		ok, err := f.returns.CompareAndSwap(ctx, ret, model.ReturnState{Status: model.ReturnStatusRequested, RefundStatus: model.RefundStatusPending})
		require.NoError(t, err)
		require.True(t, ok)

		updated, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(4500), *updated.RefundAmount)
	})

	t.Run("before delivery is an invalid transition", func(t *testing.T) {
		f := newFixture(t)
		order, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)
		ret, err := f.domain.Create(ctx, model.NewCustomer(order.UserID), item.ID, "defective", nil)
		require.NoError(t, err)

		_, err = f.domain.ProcessRefund(ctx, admin, ret.ID, nil)

		assert.True(t, apperrors.IsInvalidTransition(err))
		assert.Equal(t, 0, f.gateway.Calls())
	})

	t.Run("from inspection", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)

		inspected, err := f.domain.StartInspection(ctx, admin, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusProcessing, inspected.Status)

		updated, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusCompleted, updated.Status)
	})

	t.Run("gateway failure marks the refund failed and keeps the status", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)
		f.gateway.FailNext(outbound.ClassifyStatus(402, "card_declined", "The card was declined"))

		_, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)

		require.True(t, apperrors.IsGateway(err))
		stored, _ := f.returns.GetByID(ctx, ret.ID)
		assert.Equal(t, model.ReturnStatusReturnDelivered, stored.Status)
		assert.Equal(t, model.RefundStatusFailed, stored.RefundStatus)
		require.NotNil(t, stored.RefundFailureReason)
		assert.Equal(t, "card_declined", *stored.RefundFailureReason)
		assert.Nil(t, stored.RefundedAt)
		assert.Contains(t, f.eventTypes(), events.RefundFailedType)

		// A failed refund is not retried until an operator resets it.
		_, err = f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
		assert.True(t, apperrors.IsInvalidTransition(err))

		reset, err := f.domain.ResetRefund(ctx, admin, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusPending, reset.RefundStatus)
		assert.Nil(t, reset.RefundFailureReason)
		assert.Equal(t, 2, reset.RefundAttempt)

		// The gateway keeps replaying the declined attempt, the retry uses a new key.
		completed, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusCompleted, completed.RefundStatus)
		assert.Equal(t, 1, f.gateway.RefundCount())
		assert.Nil(t, f.gateway.Refund(RefundIdempotencyKey(ret.ID, 1)))
		assert.NotNil(t, f.gateway.Refund(RefundIdempotencyKey(ret.ID, 2)))
	})

	t.Run("retry after reset may correct the amount", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)
		f.gateway.FailNext(outbound.ClassifyStatus(400, "amount_too_large", "amount exceeds the remaining charge"))

		_, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
		require.True(t, apperrors.IsGateway(err))
		_, err = f.domain.ResetRefund(ctx, admin, ret.ID)
		require.NoError(t, err)

		completed, err := f.domain.ProcessRefund(ctx, admin, ret.ID, ptr(int64(3000)))

		require.NoError(t, err)
		assert.Equal(t, int64(3000), *completed.RefundAmount)
		assert.Equal(t, int64(3000), f.gateway.Refund(RefundIdempotencyKey(ret.ID, 2)).Amount)
	})

	t.Run("refund is claimed while the gateway call is in flight", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)
		f.gateway.SetLatency(100 * time.Millisecond)

		done := make(chan error, 1)
		go func() {
			_, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
			done <- err
		}()
		require.Eventually(t, func() bool { return f.gateway.Calls() == 1 }, time.Second, 5*time.Millisecond)

		stored, err := f.returns.GetByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RefundStatusProcessing, stored.RefundStatus)

		_, err = f.domain.Reject(ctx, admin, ret.ID, "changed our mind")
		assert.True(t, apperrors.IsConflict(err))
		_, err = f.domain.StartInspection(ctx, admin, ret.ID)
		assert.True(t, apperrors.IsConflict(err))
		_, err = f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
		assert.True(t, apperrors.IsConflict(err))

		require.NoError(t, <-done)
		stored, err = f.returns.GetByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusCompleted, stored.Status)
		assert.Equal(t, model.RefundStatusCompleted, stored.RefundStatus)
		assert.NotNil(t, stored.StripeRefundID)
		assert.Equal(t, 1, f.gateway.Calls())
	})

	t.Run("concurrent refunds complete once", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)
		f.gateway.SetLatency(50 * time.Millisecond)

		const callers = 2
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, apperrors.IsConflict(err) || apperrors.IsInvalidTransition(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, f.gateway.RefundCount())
		assert.Equal(t, 1, f.gateway.Calls())

		stored, _ := f.returns.GetByID(ctx, ret.ID)
		assert.Equal(t, model.RefundStatusCompleted, stored.RefundStatus)
	})

	t.Run("customers cannot refund", func(t *testing.T) {
		f := newFixture(t)
		order, ret := f.deliveredReturn(t, 4999)

		_, err := f.domain.ProcessRefund(ctx, model.NewCustomer(order.UserID), ret.ID, nil)

		assert.True(t, apperrors.IsForbidden(err))
		assert.Equal(t, 0, f.gateway.Calls())
	})
}

func TestReturnDomain_Reject(t *testing.T) {
	ctx := context.Background()
	admin := model.NewAdmin(uuid.New())

	t.Run("from any active status", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)

		rejected, err := f.domain.Reject(ctx, admin, ret.ID, "item shows use")

		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusRejected, rejected.Status)
		assert.Equal(t, "item shows use", *rejected.RejectionReason)
		assert.Equal(t, model.RefundStatusPending, rejected.RefundStatus)
		assert.Equal(t, 0, f.gateway.Calls())
	})

	t.Run("completed return cannot be rejected", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)
		_, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
		require.NoError(t, err)

		_, err = f.domain.Reject(ctx, admin, ret.ID, "too late")

		assert.True(t, apperrors.IsInvalidTransition(err))
	})

	t.Run("refund in progress", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)
		processing := ret.Clone()
		processing.RefundStatus = model.RefundStatusProcessing
		ok, err := f.returns.CompareAndSwap(ctx, processing, ret.State())
		require.NoError(t, err)
		require.True(t, ok)

		_, err = f.domain.Reject(ctx, admin, ret.ID, "changed mind")

		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("reason required", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)

		_, err := f.domain.Reject(ctx, admin, ret.ID, "")

		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestReturnDomain_Reads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, item := f.seedOrder(t, model.OrderStatusDelivered, 4999)
	customer := model.NewCustomer(order.UserID)
	ret, err := f.domain.Create(ctx, customer, item.ID, "defective", nil)
	require.NoError(t, err)
	other, otherItem := f.seedOrder(t, model.OrderStatusDelivered, 1000)
	_, err = f.domain.Create(ctx, model.NewCustomer(other.UserID), otherItem.ID, "defective", nil)
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, err := f.domain.Get(ctx, customer, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, ret.ID, got.ID)

		_, err = f.domain.Get(ctx, model.NewCustomer(other.UserID), ret.ID)
		assert.True(t, apperrors.IsForbidden(err))

		_, err = f.domain.Get(ctx, customer, uuid.New())
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("customers list their own", func(t *testing.T) {
		list, total, err := f.domain.ListForUser(ctx, customer, nil, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, ret.ID, list[0].ID)
	})

	t.Run("admins list all with filters", func(t *testing.T) {
		status := model.ReturnStatusRequested
		_, total, err := f.domain.ListAll(ctx, model.NewAdmin(uuid.New()), &model.ReturnFilter{Status: &status}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		_, _, err = f.domain.ListAll(ctx, customer, nil, 1, 20)
		assert.True(t, apperrors.IsForbidden(err))

		bogus := model.RefundStatus("LOST")
		_, _, err = f.domain.ListAll(ctx, model.NewAdmin(uuid.New()), &model.ReturnFilter{RefundStatus: &bogus}, 1, 20)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestReturnDomain_ResetRefund(t *testing.T) {
	ctx := context.Background()
	admin := model.NewAdmin(uuid.New())

	t.Run("only failed refunds can be reset", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)

		_, err := f.domain.ResetRefund(ctx, admin, ret.ID)

		assert.True(t, apperrors.IsInvalidTransition(err))
	})

	t.Run("closed return", func(t *testing.T) {
		f := newFixture(t)
		_, ret := f.deliveredReturn(t, 4999)
		f.gateway.FailNext(outbound.ClassifyStatus(400, "charge_disputed", "disputed"))
		_, err := f.domain.ProcessRefund(ctx, admin, ret.ID, nil)
		require.True(t, apperrors.IsGateway(err))
		_, err = f.domain.Reject(ctx, admin, ret.ID, "chargeback opened")
		require.NoError(t, err)

		_, err = f.domain.ResetRefund(ctx, admin, ret.ID)

		assert.True(t, apperrors.IsInvalidTransition(err))
	})
}
