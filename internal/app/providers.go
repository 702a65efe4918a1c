package app

import (
	"context"
	"net/http"

	ginadapter "github.com/emberwick/storefront/internal/adapter/inbound/gin"
	"github.com/emberwick/storefront/internal/adapter/outbound/jwtauth"
	"github.com/emberwick/storefront/internal/adapter/outbound/kafka"
	"github.com/emberwick/storefront/internal/adapter/outbound/memory"
	"github.com/emberwick/storefront/internal/adapter/outbound/postgres"
	redisadapter "github.com/emberwick/storefront/internal/adapter/outbound/redis"
	"github.com/emberwick/storefront/internal/adapter/outbound/stripegw"
	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/domain/refund"
	"github.com/emberwick/storefront/internal/domain/returns"
	"github.com/emberwick/storefront/internal/infra/config"
	"github.com/emberwick/storefront/internal/infra/events"
	"github.com/emberwick/storefront/internal/infra/httpclient"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/emberwick/storefront/internal/shared/cache"
	"github.com/emberwick/storefront/internal/shared/database"
	"github.com/emberwick/storefront/internal/shared/logger"
	"github.com/emberwick/storefront/internal/utils/metrics"
	"github.com/emberwick/storefront/internal/utils/middleware"
	"github.com/emberwick/storefront/migrations"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ===== Infrastructure Providers =====

// ProvideLogger creates the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func()) {
	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return log, func() { _ = log.Sync() }
}

// ProvideMetrics registers the service collectors with the default registry.
func ProvideMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(cfg.Telemetry.MetricNamespace, prometheus.DefaultRegisterer)
}

// ProvideDatabase opens postgres when it is the configured storage driver.
// It returns a nil *gorm.DB for the in-memory driver.
func ProvideDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		return nil, func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(cfg.Database.URL()); err != nil {
			return nil, nil, err
		}
		log.Info("database migrations applied")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideRedisClient connects to redis when an address is configured. Redis is
// optional: on failure the service falls back to in-process stores.
func ProvideRedisClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (redis.UniversalClient, func()) {
	if !cfg.Redis.Enabled() {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, using in-process caches", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = cache.Close(client) }
}

// ProvideHTTPClient creates the outbound HTTP client used for gateway calls.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient, cfg.Refund.RequestTimeout)
}

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideDatabase,
	ProvideRedisClient,
	ProvideHTTPClient,
)

// ===== Outbound Adapter Providers =====

// ProvideMemoryStore creates the shared in-process store. It is only read when
// the storage driver is memory.
func ProvideMemoryStore() *memory.Store {
	return memory.NewStore()
}

// ProvideOrderDB selects the order storage adapter.
func ProvideOrderDB(db *gorm.DB, store *memory.Store) outbound.OrderDatabasePort {
	if db != nil {
		return postgres.NewOrderAdapter(db)
	}
	return memory.NewOrderAdapter(store)
}

// ProvideReturnDB selects the return request storage adapter.
func ProvideReturnDB(db *gorm.DB, store *memory.Store) outbound.ReturnDatabasePort {
	if db != nil {
		return postgres.NewReturnAdapter(db)
	}
	return memory.NewReturnAdapter(store)
}

// ProvideStatusHistoryDB selects the status history storage adapter.
func ProvideStatusHistoryDB(db *gorm.DB, store *memory.Store) outbound.StatusHistoryDatabasePort {
	if db != nil {
		return postgres.NewStatusHistoryAdapter(db)
	}
	return memory.NewStatusHistoryAdapter(store)
}

// ProvidePaymentGateway selects the payment gateway adapter.
func ProvidePaymentGateway(cfg *config.Config, client *http.Client, log *zap.Logger) outbound.PaymentGatewayPort {
	if cfg.Payment.Gateway == config.GatewayStripe {
		return stripegw.NewGateway(stripegw.Config{
			SecretKey: cfg.Stripe.SecretKey,
			BaseURL:   cfg.Stripe.BaseURL,
		}, client)
	}
	log.Warn("using fake payment gateway, refunds are not sent to a payment provider")
	return memory.NewPaymentGateway()
}

// ProvideViewCache uses redis for read views when it is available.
func ProvideViewCache(cfg *config.Config, client redis.UniversalClient, m *metrics.Metrics) redisadapter.ViewCache {
	if client != nil {
		return redisadapter.NewViewCache(client, cfg.Cache.ViewTTL, m)
	}
	return memory.NewViewCache()
}

// ProvideViewCachePort exposes the read side of the view cache.
func ProvideViewCachePort(c redisadapter.ViewCache) outbound.ViewCachePort {
	return c
}

// ProvideViewInvalidator exposes the invalidation side of the view cache.
func ProvideViewInvalidator(c redisadapter.ViewCache) outbound.ViewInvalidatorPort {
	return c
}

// ProvideIdempotencyStore stores replayable responses in redis, or in process.
func ProvideIdempotencyStore(client redis.UniversalClient) outbound.IdempotencyStorePort {
	if client != nil {
		return redisadapter.NewIdempotencyStore(client)
	}
	return memory.NewIdempotencyStore()
}

// ProvideRateLimiter returns nil when rate limiting is off or redis is missing.
func ProvideRateLimiter(cfg *config.Config, client redis.UniversalClient) outbound.RateLimiterPort {
	if !cfg.RateLimit.Enabled || client == nil {
		return nil
	}
	return redisadapter.NewRateLimiter(client)
}

// ProvideTokenValidator creates the bearer token validator.
func ProvideTokenValidator(cfg *config.Config) outbound.TokenValidatorPort {
	return jwtauth.NewValidator(jwtauth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		Leeway: cfg.Auth.Leeway,
	})
}

// ProvideMessageProducer connects the lifecycle event stream when kafka is configured.
func ProvideMessageProducer(cfg *config.Config, log *zap.Logger) (outbound.MessageProducerPort, func()) {
	if !cfg.Kafka.Enabled() {
		return nil, func() {}
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	return producer, func() {
		if err := producer.Close(); err != nil {
			log.Warn("close kafka producer", zap.Error(err))
		}
	}
}

// ProvideEventBus creates the in-process event bus and attaches the kafka
// forwarder when a producer exists.
func ProvideEventBus(cfg *config.Config, producer outbound.MessageProducerPort, log *zap.Logger) *events.Bus {
	bus := events.NewBus(log)
	if producer != nil {
		bus.Register(events.NewForwarder(producer, cfg.Kafka.PublishTimeout, log))
	}
	return bus
}

// OutboundSet provides storage, gateway, cache and messaging adapters.
var OutboundSet = wire.NewSet(
	ProvideMemoryStore,
	ProvideOrderDB,
	ProvideReturnDB,
	ProvideStatusHistoryDB,
	ProvidePaymentGateway,
	ProvideViewCache,
	ProvideViewCachePort,
	ProvideViewInvalidator,
	ProvideIdempotencyStore,
	ProvideRateLimiter,
	ProvideTokenValidator,
	ProvideMessageProducer,
	ProvideEventBus,
	wire.Bind(new(outbound.EventPublisherPort), new(*events.Bus)),
)

// ===== Domain Providers =====

// ProvideRefundCoordinator creates the refund coordinator from the refund section.
func ProvideRefundCoordinator(cfg *config.Config, gateway outbound.PaymentGatewayPort, m *metrics.Metrics, log *zap.Logger) refund.RefundCoordinator {
	return refund.NewRefundCoordinator(gateway, refund.Config{
		MaxAttempts:             cfg.Refund.MaxAttempts,
		InitialBackoff:          cfg.Refund.InitialBackoff,
		MaxBackoff:              cfg.Refund.MaxBackoff,
		RequestTimeout:          cfg.Refund.RequestTimeout,
		BreakerFailureThreshold: cfg.Refund.BreakerFailureThreshold,
		BreakerOpenTimeout:      cfg.Refund.BreakerOpenTimeout,
	}, m, log)
}

// DomainSet provides the order and return domains.
var DomainSet = wire.NewSet(
	ProvideRefundCoordinator,
	order.NewOrderDomain,
	returns.NewReturnDomain,
)

// ===== Handler Providers =====

// ProvideRoleAuthorizer creates the admin allow-list authorizer.
func ProvideRoleAuthorizer(cfg *config.Config) *middleware.SystemRoleAuthorizer {
	return middleware.NewSystemRoleAuthorizer(cfg.AccessControl.AdminEmails, cfg.AccessControl.AdminUserIDs)
}

// HandlerSet provides all HTTP handlers.
var HandlerSet = wire.NewSet(
	ProvideRoleAuthorizer,
	ginadapter.NewOrderHandler,
	ginadapter.NewReturnHandler,
	ginadapter.NewReturnAdminHandler,
	wire.Struct(new(Handlers), "*"),
)

// ===== Master Set =====

// AppSet is the master provider set that includes all dependencies.
var AppSet = wire.NewSet(
	InfraSet,
	OutboundSet,
	DomainSet,
	HandlerSet,
	New,
)
