package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/emberwick/storefront/internal/utils/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const viewKeyPrefix = "view:"

// viewCache implements outbound.ViewCachePort and outbound.ViewInvalidatorPort.
type viewCache struct {
	client  redis.UniversalClient
	ttl     time.Duration
	metrics *metrics.Metrics
}

// ViewCache is the redis-backed view cache and its invalidation hook.
type ViewCache interface {
	outbound.ViewCachePort
	outbound.ViewInvalidatorPort
}

// NewViewCache creates a redis view cache whose entries expire after ttl.
// m may be nil.
func NewViewCache(client redis.UniversalClient, ttl time.Duration, m *metrics.Metrics) ViewCache {
	return &viewCache{client: client, ttl: ttl, metrics: m}
}

func (c *viewCache) key(kind model.EntityKind, id uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", viewKeyPrefix, kind, id)
}

func (c *viewCache) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	found, err := c.get(ctx, model.EntityOrder, id, &order)
	if err != nil || !found {
		return nil, err
	}
	return &order, nil
}

func (c *viewCache) SetOrder(ctx context.Context, order *model.Order) error {
	return c.set(ctx, model.EntityOrder, order.ID, order)
}

func (c *viewCache) GetReturn(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	var ret model.ReturnRequest
	found, err := c.get(ctx, model.EntityReturn, id, &ret)
	if err != nil || !found {
		return nil, err
	}
	return &ret, nil
}

func (c *viewCache) SetReturn(ctx context.Context, ret *model.ReturnRequest) error {
	return c.set(ctx, model.EntityReturn, ret.ID, ret)
}

func (c *viewCache) Invalidate(ctx context.Context, kind model.EntityKind, id uuid.UUID) error {
	// Refund transitions live on the return view.
	if kind == model.EntityRefund {
		kind = model.EntityReturn
	}
	return c.client.Del(ctx, c.key(kind, id)).Err()
}

func (c *viewCache) get(ctx context.Context, kind model.EntityKind, id uuid.UUID, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.key(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.recordMiss(kind)
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A view written by an older release is treated as a miss.
		c.recordMiss(kind)
		return false, nil
	}
	c.recordHit(kind)
	return true, nil
}

func (c *viewCache) set(ctx context.Context, kind model.EntityKind, id uuid.UUID, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(kind, id), data, c.ttl).Err()
}

func (c *viewCache) recordHit(kind model.EntityKind) {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(kind.String())
	}
}

func (c *viewCache) recordMiss(kind model.EntityKind) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(kind.String())
	}
}

// Compile-time checks
var (
	_ outbound.ViewCachePort       = (*viewCache)(nil)
	_ outbound.ViewInvalidatorPort = (*viewCache)(nil)
)
