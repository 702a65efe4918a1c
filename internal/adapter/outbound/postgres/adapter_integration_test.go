//go:build integration

package postgres_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/emberwick/storefront/internal/adapter/outbound/postgres"
	"github.com/emberwick/storefront/internal/infra/config"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/emberwick/storefront/internal/shared/database"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/emberwick/storefront/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// AdapterIntegrationTestSuite runs the postgres adapters against a migrated
// PostgreSQL container.
type AdapterIntegrationTestSuite struct {
	suite.Suite
	container *pgcontainer.PostgresContainer
	db        *gorm.DB

	orders  outbound.OrderDatabasePort
	returns outbound.ReturnDatabasePort
	history outbound.StatusHistoryDatabasePort
}

func TestAdapterIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AdapterIntegrationTestSuite))
}

func (s *AdapterIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("storefront"),
		pgcontainer.WithUsername("storefront"),
		pgcontainer.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	s.Require().NoError(err)
	portNum, err := strconv.Atoi(port.Port())
	s.Require().NoError(err)

	dbCfg := &config.DatabaseConfig{
		Host:         host,
		Port:         portNum,
		User:         "storefront",
		Password:     "storefront",
		Database:     "storefront",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
	s.Require().NoError(migrations.Up(dbCfg.URL()))

	db, err := database.New(dbCfg)
	s.Require().NoError(err)
	s.db = db

	s.orders = postgres.NewOrderAdapter(db)
	s.returns = postgres.NewReturnAdapter(db)
	s.history = postgres.NewStatusHistoryAdapter(db)
}

func (s *AdapterIntegrationTestSuite) TearDownSuite() {
	if s.db != nil {
		_ = database.Close(s.db)
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *AdapterIntegrationTestSuite) SetupTest() {
	s.Require().NoError(s.db.Exec("TRUNCATE TABLE status_history, return_requests, order_items, orders CASCADE").Error)
}

func (s *AdapterIntegrationTestSuite) seedOrder(status model.OrderStatus) *model.Order {
	order := &model.Order{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		Status:                status,
		Total:                 6400,
		Currency:              "usd",
		StripePaymentIntentID: "pi_integration",
		Items: []*model.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), ScentID: uuid.New(), Quantity: 2, Price: 3200},
		},
	}
	s.Require().NoError(s.orders.Create(context.Background(), order))
	return order
}

func (s *AdapterIntegrationTestSuite) newReturn(order *model.Order) *model.ReturnRequest {
	return &model.ReturnRequest{
		ID:            uuid.New(),
		OrderID:       order.ID,
		OrderItemID:   order.Items[0].ID,
		UserID:        order.UserID,
		Reason:        "cracked jar",
		Status:        model.ReturnStatusRequested,
		RefundStatus:  model.RefundStatusPending,
		RefundAttempt: 1,
	}
}

func (s *AdapterIntegrationTestSuite) TestOrder_CreateAndGet() {
	ctx := context.Background()
	order := s.seedOrder(model.OrderStatusPending)

	found, err := s.orders.GetByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(model.OrderStatusPending, found.Status)
	s.Require().Len(found.Items, 1)
	s.Equal(int64(6400), found.Items[0].LineTotal())

	item, err := s.orders.GetItem(ctx, order.Items[0].ID)
	s.Require().NoError(err)
	s.Equal(order.ID, item.OrderID)

	missing, err := s.orders.GetByID(ctx, uuid.New())
	s.NoError(err)
	s.Nil(missing)
}

func (s *AdapterIntegrationTestSuite) TestOrder_CompareAndSwap() {
	ctx := context.Background()
	order := s.seedOrder(model.OrderStatusPending)
	actor := model.NewAdmin(uuid.New())

	updated := order.Clone()
	updated.Status = model.OrderStatusProcessing
	updated.UpdatedAt = time.Now().UTC()
	change := model.NewStatusChange(model.EntityOrder, order.ID, "PENDING", "PROCESSING", actor, "", updated.UpdatedAt)

	ok, err := s.orders.CompareAndSwap(ctx, updated, model.OrderStatusPending, change)
	s.Require().NoError(err)
	s.True(ok)

	// A second writer holding the stale status loses.
	stale := order.Clone()
	stale.Status = model.OrderStatusCancelled
	ok, err = s.orders.CompareAndSwap(ctx, stale, model.OrderStatusPending,
		model.NewStatusChange(model.EntityOrder, order.ID, "PENDING", "CANCELLED", actor, "", time.Now().UTC()))
	s.Require().NoError(err)
	s.False(ok)

	found, err := s.orders.GetByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(model.OrderStatusProcessing, found.Status)

	changes, err := s.history.ListByEntity(ctx, model.EntityOrder, order.ID)
	s.Require().NoError(err)
	s.Require().Len(changes, 1)
	s.Equal("PROCESSING", changes[0].ToStatus)
}

func (s *AdapterIntegrationTestSuite) TestOrder_ListFilters() {
	ctx := context.Background()
	first := s.seedOrder(model.OrderStatusPending)
	s.seedOrder(model.OrderStatusDelivered)

	orders, total, err := s.orders.List(ctx, &model.OrderFilter{UserID: &first.UserID}, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(first.ID, orders[0].ID)

	status := model.OrderStatusDelivered
	_, total, err = s.orders.List(ctx, &model.OrderFilter{Status: &status}, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
}

func (s *AdapterIntegrationTestSuite) TestReturn_OneActivePerItem() {
	ctx := context.Background()
	order := s.seedOrder(model.OrderStatusDelivered)

	first := s.newReturn(order)
	s.Require().NoError(s.returns.Create(ctx, first,
		model.NewStatusChange(model.EntityReturn, first.ID, "", "REQUESTED", model.NewCustomer(order.UserID), "", time.Now().UTC())))

	err := s.returns.Create(ctx, s.newReturn(order), nil)
	s.Require().Error(err)
	s.True(apperrors.IsConflict(err))
	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(first.ID.String(), appErr.Details["return_id"])

	rejected := first.Clone()
	rejected.Status = model.ReturnStatusRejected
	reason := "outside return window"
	rejected.RejectionReason = &reason
	ok, err := s.returns.CompareAndSwap(ctx, rejected, first.State())
	s.Require().NoError(err)
	s.Require().True(ok)

	second := s.newReturn(order)
	s.Require().NoError(s.returns.Create(ctx, second, nil))

	active, err := s.returns.FindActiveByOrderItem(ctx, order.Items[0].ID)
	s.Require().NoError(err)
	s.Require().NotNil(active)
	s.Equal(second.ID, active.ID)
}

func (s *AdapterIntegrationTestSuite) TestReturn_CompareAndSwapGuardsRefundStatus() {
	ctx := context.Background()
	order := s.seedOrder(model.OrderStatusDelivered)
	ret := s.newReturn(order)
	ret.Status = model.ReturnStatusReturnDelivered
	s.Require().NoError(s.returns.Create(ctx, ret, nil))
	actor := model.NewAdmin(uuid.New())

	claimed := ret.Clone()
	claimed.Status = model.ReturnStatusProcessing
	claimed.RefundStatus = model.RefundStatusProcessing
	ok, err := s.returns.CompareAndSwap(ctx, claimed, ret.State(),
		model.NewStatusChange(model.EntityReturn, ret.ID, "RETURN_DELIVERED", "PROCESSING", actor, "", time.Now().UTC()),
		model.NewStatusChange(model.EntityRefund, ret.ID, "PENDING", "PROCESSING", actor, "", time.Now().UTC()))
	s.Require().NoError(err)
	s.True(ok)

	// The same claim again is stale on refund_status.
	ok, err = s.returns.CompareAndSwap(ctx, claimed, ret.State())
	s.Require().NoError(err)
	s.False(ok)

	// Clearing an optional field is persisted.
	failed := claimed.Clone()
	failed.RefundStatus = model.RefundStatusFailed
	why := "card_declined"
	failed.RefundFailureReason = &why
	ok, err = s.returns.CompareAndSwap(ctx, failed, claimed.State())
	s.Require().NoError(err)
	s.Require().True(ok)

	reset := failed.Clone()
	reset.RefundStatus = model.RefundStatusPending
	reset.RefundFailureReason = nil
	reset.RefundAttempt = 2
	ok, err = s.returns.CompareAndSwap(ctx, reset, failed.State())
	s.Require().NoError(err)
	s.Require().True(ok)

	found, err := s.returns.GetByID(ctx, ret.ID)
	s.Require().NoError(err)
	s.Equal(model.RefundStatusPending, found.RefundStatus)
	s.Nil(found.RefundFailureReason)
	s.Equal(2, found.RefundAttempt)

	refundHistory, err := s.history.ListByEntity(ctx, model.EntityRefund, ret.ID)
	s.Require().NoError(err)
	s.Len(refundHistory, 1)
}

func (s *AdapterIntegrationTestSuite) TestReturn_ListFilters() {
	ctx := context.Background()
	order := s.seedOrder(model.OrderStatusDelivered)
	ret := s.newReturn(order)
	s.Require().NoError(s.returns.Create(ctx, ret, nil))

	status := model.ReturnStatusRequested
	list, total, err := s.returns.List(ctx, &model.ReturnFilter{UserID: &order.UserID, Status: &status}, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(ret.ID, list[0].ID)

	failed := model.RefundStatusFailed
	_, total, err = s.returns.List(ctx, &model.ReturnFilter{RefundStatus: &failed}, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(0), total)
}
