// Package returns implements the return request lifecycle: creation by the customer,
// admin-driven instructions and tracking, and the refund that completes a return.
package returns

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/emberwick/storefront/internal/domain/refund"
	"github.com/emberwick/storefront/internal/domain/transition"
	"github.com/emberwick/storefront/internal/infra/events"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/emberwick/storefront/internal/utils/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReturnDomain defines the interface for return request business logic.
type ReturnDomain interface {
	// Customer operations
	Create(ctx context.Context, actor model.Actor, orderItemID uuid.UUID, reason string, description *string) (*model.ReturnRequest, error)

	// Admin operations
	SendInstructions(ctx context.Context, actor model.Actor, returnID uuid.UUID, in model.ReturnInstructions) (*model.ReturnRequest, error)
	UpdateTracking(ctx context.Context, actor model.Actor, returnID uuid.UUID, update model.TrackingUpdate, target model.ReturnStatus) (*model.ReturnRequest, error)
	MarkDelivered(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error)
	StartInspection(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error)
	ProcessRefund(ctx context.Context, actor model.Actor, returnID uuid.UUID, amount *int64) (*model.ReturnRequest, error)
	Reject(ctx context.Context, actor model.Actor, returnID uuid.UUID, reason string) (*model.ReturnRequest, error)
	ResetRefund(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error)

	// Reads
	Get(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error)
	ListForUser(ctx context.Context, actor model.Actor, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error)
	ListAll(ctx context.Context, actor model.Actor, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error)
	History(ctx context.Context, actor model.Actor, returnID uuid.UUID) ([]*model.StatusChange, error)
}

// trackingTargets are the statuses UpdateTracking may move a return to.
var trackingTargets = map[model.ReturnStatus]bool{
	model.ReturnStatusReturnShippingSent: true,
	model.ReturnStatusReturnInTransit:    true,
	model.ReturnStatusReturnDelivered:    true,
}

// returnDomain implements ReturnDomain.
type returnDomain struct {
	returnDB    outbound.ReturnDatabasePort
	orderDB     outbound.OrderDatabasePort
	historyDB   outbound.StatusHistoryDatabasePort
	refunds     refund.RefundCoordinator
	views       outbound.ViewCachePort
	invalidator outbound.ViewInvalidatorPort
	publisher   outbound.EventPublisherPort
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewReturnDomain creates a new return domain service.
func NewReturnDomain(
	returnDB outbound.ReturnDatabasePort,
	orderDB outbound.OrderDatabasePort,
	historyDB outbound.StatusHistoryDatabasePort,
	refunds refund.RefundCoordinator,
	views outbound.ViewCachePort,
	invalidator outbound.ViewInvalidatorPort,
	publisher outbound.EventPublisherPort,
	m *metrics.Metrics,
	logger *zap.Logger,
) ReturnDomain {
	return &returnDomain{
		returnDB:    returnDB,
		orderDB:     orderDB,
		historyDB:   historyDB,
		refunds:     refunds,
		views:       views,
		invalidator: invalidator,
		publisher:   publisher,
		metrics:     m,
		logger:      logger.Named("returns"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ===== Customer operations =====

func (d *returnDomain) Create(ctx context.Context, actor model.Actor, orderItemID uuid.UUID, reason string, description *string) (*model.ReturnRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("reason is required")
	}
	if len(reason) > MaxReasonLength {
		return nil, apperrors.Validation(fmt.Sprintf("reason must be at most %d characters", MaxReasonLength))
	}
	description = trimmed(description)
	if description != nil && len(*description) > MaxDescriptionLength {
		return nil, apperrors.Validation(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}

	item, err := d.orderDB.GetItem(ctx, orderItemID)
	if err != nil {
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if item == nil {
		return nil, errOrderItemNotFound(orderItemID)
	}
	order, err := d.orderDB.GetByID(ctx, item.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, errOrderNotFound(item.OrderID)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperrors.Forbidden("order belongs to another customer")
	}
	if !order.Status.IsReturnable() {
		return nil, apperrors.Validation("order is not eligible for return").WithDetails(map[string]any{
			"order_id": order.ID.String(),
			"status":   string(order.Status),
			"eligible": []string{
				string(model.OrderStatusProcessing),
				string(model.OrderStatusShipped),
				string(model.OrderStatusDelivered),
			},
		})
	}

	existing, err := d.returnDB.FindActiveByOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, fmt.Errorf("find active return: %w", err)
	}
	if existing != nil {
		return nil, errActiveReturnExists(existing.ID)
	}

	now := d.now()
	ret := &model.ReturnRequest{
		ID:            uuid.New(),
		OrderID:       order.ID,
		OrderItemID:   orderItemID,
		UserID:        order.UserID,
		Reason:        reason,
		Description:   description,
		Status:        model.ReturnStatusRequested,
		RefundStatus:  model.RefundStatusPending,
		RefundAttempt: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	change := model.NewStatusChange(model.EntityReturn, ret.ID, "", string(ret.Status), actor, reason, now)

	// The store's uniqueness guard covers a concurrent create for the same item.
	if err := d.returnDB.Create(ctx, ret, change); err != nil {
		if apperrors.IsConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create return: %w", err)
	}

	d.afterCommit(ctx, &model.ReturnRequest{ID: ret.ID, RefundStatus: ret.RefundStatus}, ret, actor)
	return ret, nil
}

// ===== Admin operations =====

func (d *returnDomain) SendInstructions(ctx context.Context, actor model.Actor, returnID uuid.UUID, in model.ReturnInstructions) (*model.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly("sending return instructions")
	}
	instructions := strings.TrimSpace(in.Instructions)
	address := strings.TrimSpace(in.Address)
	switch {
	case instructions == "":
		return nil, apperrors.Validation("instructions are required")
	case address == "":
		return nil, apperrors.Validation("return address is required")
	case in.Deadline.IsZero():
		return nil, apperrors.Validation("return deadline is required")
	case !in.Deadline.After(d.now()):
		return nil, apperrors.Validation("return deadline must be in the future")
	}

	current, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	next, err := transition.Return(current.Status, model.ReturnStatusInstructionsSent)
	if err != nil {
		return nil, err
	}

	deadline := in.Deadline.UTC()
	updated := current.Clone()
	updated.Status = next
	updated.ReturnInstructions = &instructions
	updated.ReturnAddress = &address
	updated.ReturnDeadline = &deadline

	return d.commit(ctx, actor, current, updated, "")
}

func (d *returnDomain) UpdateTracking(ctx context.Context, actor model.Actor, returnID uuid.UUID, update model.TrackingUpdate, target model.ReturnStatus) (*model.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly("updating return tracking")
	}
	if !trackingTargets[target] {
		return nil, apperrors.Validation("tracking updates only move a return through shipping statuses").
			WithDetails(map[string]any{"status": string(target)})
	}
	update = model.TrackingUpdate{
		TrackingNumber: trimmed(update.TrackingNumber),
		Carrier:        trimmed(update.Carrier),
		TrackingURL:    trimmed(update.TrackingURL),
	}
	if update.TrackingURL != nil {
		if err := validateTrackingURL(*update.TrackingURL); err != nil {
			return nil, err
		}
	}

	current, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	next, err := transition.Return(current.Status, target)
	if err != nil {
		return nil, err
	}

	now := d.now()
	updated := current.Clone()
	updated.Status = next
	if update.TrackingNumber != nil {
		updated.TrackingNumber = update.TrackingNumber
	}
	if update.Carrier != nil {
		updated.Carrier = update.Carrier
	}
	if update.TrackingURL != nil {
		updated.TrackingURL = update.TrackingURL
	}

	switch next {
	case model.ReturnStatusReturnShippingSent:
		if updated.TrackingNumber == nil {
			return nil, apperrors.Validation("tracking number is required once the return has shipped")
		}
		updated.ShippedAt = &now
	case model.ReturnStatusReturnDelivered:
		updated.DeliveredAt = &now
	}

	return d.commit(ctx, actor, current, updated, "")
}

func (d *returnDomain) MarkDelivered(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error) {
	return d.UpdateTracking(ctx, actor, returnID, model.TrackingUpdate{}, model.ReturnStatusReturnDelivered)
}

// StartInspection moves a delivered return into PROCESSING while the item is inspected.
func (d *returnDomain) StartInspection(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly("inspecting a return")
	}
	current, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if current.RefundStatus == model.RefundStatusProcessing {
		return nil, errRefundInProgress(returnID)
	}
	next, err := transition.Return(current.Status, model.ReturnStatusProcessing)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.Status = next
	return d.commit(ctx, actor, current, updated, "")
}

// ProcessRefund claims the refund (PENDING to PROCESSING) before calling the gateway and
// commits the outcome from PROCESSING: COMPLETED together with the return, or FAILED.
func (d *returnDomain) ProcessRefund(ctx context.Context, actor model.Actor, returnID uuid.UUID, amount *int64) (*model.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly("refunding a return")
	}

	current, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if _, err := transition.Return(current.Status, model.ReturnStatusCompleted); err != nil {
		return nil, err
	}
	if current.RefundStatus == model.RefundStatusProcessing {
		return nil, errRefundInProgress(returnID)
	}
	claimedStatus, err := transition.Refund(current.RefundStatus, model.RefundStatusProcessing)
	if err != nil {
		return nil, err
	}

	item, err := d.orderDB.GetItem(ctx, current.OrderItemID)
	if err != nil {
		return nil, fmt.Errorf("get order item: %w", err)
	}
	if item == nil {
		return nil, errOrderItemNotFound(current.OrderItemID)
	}
	order, err := d.orderDB.GetByID(ctx, current.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, errOrderNotFound(current.OrderID)
	}

	maxAmount := item.LineTotal()
	refundAmount := maxAmount
	if amount != nil {
		refundAmount = *amount
	}
	key := RefundIdempotencyKey(returnID, current.RefundAttempt)
	req := &refund.Request{
		IdempotencyKey:   key,
		PaymentReference: order.StripePaymentIntentID,
		Amount:           refundAmount,
		MaxAmount:        maxAmount,
		Currency:         order.Currency,
		Metadata: map[string]string{
			"return_id":     returnID.String(),
			"order_id":      current.OrderID.String(),
			"order_item_id": current.OrderItemID.String(),
		},
	}
	if err := refund.Validate(req); err != nil {
		return nil, err
	}

	claim := current.Clone()
	claim.RefundStatus = claimedStatus
	claim.RefundFailureReason = nil
	claimed, err := d.commit(ctx, actor, current, claim, "refund started")
	if err != nil {
		return nil, err
	}

	// Once claimed the outcome must be recorded even if the caller goes away.
	settleCtx := context.WithoutCancel(ctx)

	result, err := d.refunds.Refund(settleCtx, req)
	if err != nil {
		d.recordRefundFailure(settleCtx, actor, claimed, refundAmount, err)
		return nil, err
	}

	now := d.now()
	refundID := result.GatewayRefundID
	updated := claimed.Clone()
	updated.Status = model.ReturnStatusCompleted
	updated.RefundStatus = model.RefundStatusCompleted
	updated.RefundAmount = &refundAmount
	updated.StripeRefundID = &refundID
	updated.RefundedAt = &now

	completed, err := d.commit(settleCtx, actor, claimed, updated, "refund "+refundID)
	if err != nil {
		d.logger.Error("refund issued but return completion was not committed",
			zap.String("return_id", returnID.String()),
			zap.String("stripe_refund_id", refundID),
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
		return nil, err
	}

	d.publisher.Publish(events.NewRefundCompleted(returnID, "ReturnRequest", current.UserID, refundAmount, refundID))
	return completed, nil
}

// recordRefundFailure moves a claimed refund to FAILED so the operator sees it. The
// return status is left unchanged.
func (d *returnDomain) recordRefundFailure(ctx context.Context, actor model.Actor, claimed *model.ReturnRequest, amount int64, cause error) {
	reason := refund.FailureReason(cause)

	failed := claimed.Clone()
	failed.RefundStatus = model.RefundStatusFailed
	failed.RefundFailureReason = &reason
	if _, err := d.commit(ctx, actor, claimed, failed, reason); err != nil {
		d.logger.Error("could not record refund failure",
			zap.String("return_id", claimed.ID.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}

	d.publisher.Publish(events.NewRefundFailed(claimed.ID, "ReturnRequest", claimed.UserID, amount, reason))
}

func (d *returnDomain) Reject(ctx context.Context, actor model.Actor, returnID uuid.UUID, reason string) (*model.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly("rejecting a return")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("rejection reason is required")
	}
	if len(reason) > MaxReasonLength {
		return nil, apperrors.Validation(fmt.Sprintf("rejection reason must be at most %d characters", MaxReasonLength))
	}

	current, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if current.RefundStatus == model.RefundStatusProcessing {
		return nil, errRefundInProgress(returnID)
	}
	next, err := transition.Return(current.Status, model.ReturnStatusRejected)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.Status = next
	updated.RejectionReason = &reason
	return d.commit(ctx, actor, current, updated, reason)
}

// ResetRefund moves a FAILED refund back to PENDING so an operator can retry it. The
// retry is a new attempt with a new gateway idempotency key.
func (d *returnDomain) ResetRefund(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly("resetting a refund")
	}

	current, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !current.Status.IsActive() {
		// A closed return has no refund left to retry.
		return nil, apperrors.InvalidTransition(string(model.EntityRefund), string(current.RefundStatus),
			string(model.RefundStatusPending), nil)
	}
	next, err := transition.Refund(current.RefundStatus, model.RefundStatusPending)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.RefundStatus = next
	updated.RefundFailureReason = nil
	updated.RefundAttempt = max(current.RefundAttempt, 1) + 1
	return d.commit(ctx, actor, current, updated, "manual retry")
}

// ===== Reads =====

func (d *returnDomain) Get(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error) {
	if d.views != nil {
		cached, err := d.views.GetReturn(ctx, returnID)
		if err != nil {
			d.logger.Warn("return view cache read failed", zap.String("return_id", returnID.String()), zap.Error(err))
		}
		if cached != nil {
			if !actor.CanAccess(cached.UserID) {
				return nil, errNotReturnOwner()
			}
			return cached, nil
		}
	}

	ret, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(ret.UserID) {
		return nil, errNotReturnOwner()
	}

	if d.views != nil {
		if err := d.views.SetReturn(ctx, ret); err != nil {
			d.logger.Warn("return view cache write failed", zap.String("return_id", returnID.String()), zap.Error(err))
		}
	}
	return ret, nil
}

func (d *returnDomain) ListForUser(ctx context.Context, actor model.Actor, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error) {
	if filter == nil {
		filter = &model.ReturnFilter{}
	}
	userID := actor.UserID
	filter.UserID = &userID
	return d.list(ctx, filter, page, pageSize)
}

func (d *returnDomain) ListAll(ctx context.Context, actor model.Actor, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, errAdminOnly("listing all returns")
	}
	if filter == nil {
		filter = &model.ReturnFilter{}
	}
	return d.list(ctx, filter, page, pageSize)
}

func (d *returnDomain) list(ctx context.Context, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, apperrors.Validation("unknown return status").
			WithDetails(map[string]any{"status": string(*filter.Status)})
	}
	if filter.RefundStatus != nil && !filter.RefundStatus.IsValid() {
		return nil, 0, apperrors.Validation("unknown refund status").
			WithDetails(map[string]any{"refund_status": string(*filter.RefundStatus)})
	}
	return d.returnDB.List(ctx, filter, page, pageSize)
}

// History returns the return's status and refund timeline, oldest first.
func (d *returnDomain) History(ctx context.Context, actor model.Actor, returnID uuid.UUID) ([]*model.StatusChange, error) {
	ret, err := d.load(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(ret.UserID) {
		return nil, errNotReturnOwner()
	}

	statuses, err := d.historyDB.ListByEntity(ctx, model.EntityReturn, returnID)
	if err != nil {
		return nil, fmt.Errorf("list return history: %w", err)
	}
	refunds, err := d.historyDB.ListByEntity(ctx, model.EntityRefund, returnID)
	if err != nil {
		return nil, fmt.Errorf("list refund history: %w", err)
	}

	timeline := append(statuses, refunds...)
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].CreatedAt.Before(timeline[j].CreatedAt)
	})
	return timeline, nil
}

// ===== Helpers =====

func (d *returnDomain) load(ctx context.Context, returnID uuid.UUID) (*model.ReturnRequest, error) {
	ret, err := d.returnDB.GetByID(ctx, returnID)
	if err != nil {
		return nil, fmt.Errorf("get return: %w", err)
	}
	if ret == nil {
		return nil, errReturnNotFound(returnID)
	}
	return ret, nil
}

// commit writes updated if the stored return still matches current, recording one
// history row per axis that changed.
func (d *returnDomain) commit(ctx context.Context, actor model.Actor, current, updated *model.ReturnRequest, note string) (*model.ReturnRequest, error) {
	now := d.now()
	updated.UpdatedAt = now

	var changes []*model.StatusChange
	if current.Status != updated.Status {
		changes = append(changes, model.NewStatusChange(model.EntityReturn, current.ID,
			string(current.Status), string(updated.Status), actor, note, now))
	}
	if current.RefundStatus != updated.RefundStatus {
		changes = append(changes, model.NewStatusChange(model.EntityRefund, current.ID,
			string(current.RefundStatus), string(updated.RefundStatus), actor, note, now))
	}

	ok, err := d.returnDB.CompareAndSwap(ctx, updated, current.State(), changes...)
	if err != nil {
		return nil, fmt.Errorf("update return: %w", err)
	}
	if !ok {
		d.metrics.RecordConflict(string(model.EntityReturn))
		return nil, errConcurrentUpdate(current.ID)
	}

	d.afterCommit(ctx, current, updated, actor)
	return updated, nil
}

// afterCommit runs the post-commit hooks. Their failures never undo the transition.
func (d *returnDomain) afterCommit(ctx context.Context, before, after *model.ReturnRequest, actor model.Actor) {
	if before.Status != after.Status {
		d.metrics.RecordTransition(string(model.EntityReturn), string(before.Status), string(after.Status))
		d.publisher.Publish(events.NewReturnStatusChanged(after.ID, after.UserID, string(before.Status), string(after.Status), actor.UserID))
	}
	if before.RefundStatus != after.RefundStatus {
		d.metrics.RecordTransition(string(model.EntityRefund), string(before.RefundStatus), string(after.RefundStatus))
	}

	if err := d.invalidator.Invalidate(ctx, model.EntityReturn, after.ID); err != nil {
		d.logger.Warn("return view invalidation failed",
			zap.String("return_id", after.ID.String()),
			zap.Error(err),
		)
	}

	d.logger.Info("return updated",
		zap.String("return_id", after.ID.String()),
		zap.String("status", string(after.Status)),
		zap.String("refund_status", string(after.RefundStatus)),
		zap.String("actor_id", actor.UserID.String()),
		zap.String("actor_role", string(actor.Role)),
	)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateTrackingURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.Validation("tracking url must be an absolute http(s) url").
			WithDetails(map[string]any{"tracking_url": raw})
	}
	return nil
}
