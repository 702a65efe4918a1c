// Package app is the composition root: it builds the adapters, domains and
// handlers and mounts them on a gin router.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/emberwick/storefront/internal/infra/config"
	"github.com/emberwick/storefront/internal/port/inbound"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/emberwick/storefront/internal/utils/metrics"
	"github.com/emberwick/storefront/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Order       inbound.OrderHttpPort
	Return      inbound.ReturnHttpPort
	ReturnAdmin inbound.ReturnAdminHttpPort
}

// App holds the router and the connections the health check reports on.
type App struct {
	config *config.Config
	router *gin.Engine
	logger *zap.Logger
	db     *gorm.DB
	redis  redis.UniversalClient
}

// New creates the application and sets up its routes.
func New(
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	validator outbound.TokenValidatorPort,
	authorizer *middleware.SystemRoleAuthorizer,
	limiter outbound.RateLimiterPort,
	idempotency outbound.IdempotencyStorePort,
	handlers *Handlers,
) *App {
	a := &App{
		config: cfg,
		logger: log,
		db:     db,
		redis:  redisClient,
	}
	a.router = a.setupRouter(m, validator, authorizer, limiter, idempotency, handlers)
	return a
}

func (a *App) setupRouter(
	m *metrics.Metrics,
	validator outbound.TokenValidatorPort,
	authorizer *middleware.SystemRoleAuthorizer,
	limiter outbound.RateLimiterPort,
	idempotency outbound.IdempotencyStorePort,
	handlers *Handlers,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	corsCfg := middleware.DefaultCORSConfig()
	if len(a.config.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = a.config.Server.CORSOrigins
	}

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(corsCfg))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequireAuth(validator))
	v1.Use(middleware.ResolveRoles(authorizer))
	if limiter != nil {
		v1.Use(middleware.RateLimitByUser(limiter, a.config.RateLimit.APILimit, a.config.RateLimit.APIWindow))
	}
	idemCfg := middleware.DefaultIdempotencyConfig()
	if a.config.RateLimit.IdempotencyTTL > 0 {
		idemCfg.TTL = a.config.RateLimit.IdempotencyTTL
	}
	v1.Use(middleware.Idempotency(idempotency, idemCfg))

	handlers.Order.RegisterRoutes(v1)
	handlers.Return.RegisterRoutes(v1)
	handlers.ReturnAdmin.RegisterRoutes(v1)

	return r
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK

	if a.db != nil {
		checks["database"] = "ok"
		sqlDB, err := a.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if a.redis != nil {
		// Redis is optional, a failed ping degrades but does not fail the check.
		checks["redis"] = "ok"
		if err := a.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}
