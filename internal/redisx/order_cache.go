package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

// OrderStore is the persistence the cache sits in front of.
type OrderStore interface {
	CreateOrder(ctx context.Context, o orders.Order) error
	FindOrder(ctx context.Context, id string) (orders.Order, error)
	ListOrders(ctx context.Context, f orders.Filter) ([]orders.Order, error)
	SaveOrder(ctx context.Context, o orders.Order, prev orders.Status) error
}

// CachedOrders serves FindOrder from Redis and falls back to Next. Saves go to
// Next first, then drop the cached copy and bump the order's generation. A fill
// read from Next before a save is discarded if the generation moved, so a slow
// reader cannot put back a stale status. Redis errors never fail a call.
type CachedOrders struct {
	Next OrderStore
	RDB  *redis.Client
	TTL  time.Duration
	Log  *zap.Logger
}

func NewCachedOrders(next OrderStore, rdb *redis.Client, log *zap.Logger) *CachedOrders {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedOrders{Next: next, RDB: rdb, TTL: TTLOrderCache, Log: log}
}

func (c *CachedOrders) CreateOrder(ctx context.Context, o orders.Order) error {
	gen := c.generation(ctx, o.ID)
	if err := c.Next.CreateOrder(ctx, o); err != nil {
		return err
	}
	c.fill(ctx, o, gen)
	return nil
}

func (c *CachedOrders) FindOrder(ctx context.Context, id string) (orders.Order, error) {
	key := fmt.Sprintf(KeyOrder, id)
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		var o orders.Order
		if err := json.Unmarshal(b, &o); err == nil {
			return o, nil
		}
		c.Log.Warn("drop undecodable cached order", zap.String("order_id", id))
		_ = c.RDB.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.Log.Warn("order cache read", zap.String("order_id", id), zap.Error(err))
	}

	gen := c.generation(ctx, id)
	o, err := c.Next.FindOrder(ctx, id)
	if err != nil {
		return orders.Order{}, err
	}
	c.fill(ctx, o, gen)
	return o, nil
}

func (c *CachedOrders) ListOrders(ctx context.Context, f orders.Filter) ([]orders.Order, error) {
	return c.Next.ListOrders(ctx, f)
}

func (c *CachedOrders) SaveOrder(ctx context.Context, o orders.Order, prev orders.Status) error {
	err := c.Next.SaveOrder(ctx, o, prev)
	// the cached copy may be what made the caller stale
	genKey := fmt.Sprintf(KeyOrderGen, o.ID)
	_, delErr := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, TTLOrderGen)
		p.Del(ctx, fmt.Sprintf(KeyOrder, o.ID))
		return nil
	})
	if delErr != nil {
		c.Log.Warn("order cache invalidate", zap.String("order_id", o.ID), zap.Error(delErr))
	}
	return err
}

// generation returns the save counter of an order, or -1 when Redis cannot
// tell; fill skips on -1.
func (c *CachedOrders) generation(ctx context.Context, id string) int64 {
	n, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderGen, id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		c.Log.Warn("order cache generation", zap.String("order_id", id), zap.Error(err))
		return -1
	}
	return n
}

// fill caches o if no save happened since gen was read. The generation key is
// watched, so a save racing the write aborts it.
func (c *CachedOrders) fill(ctx context.Context, o orders.Order, gen int64) {
	if gen < 0 {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	genKey := fmt.Sprintf(KeyOrderGen, o.ID)
	err = c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			cur, err = 0, nil
		}
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, fmt.Sprintf(KeyOrder, o.ID), b, c.TTL)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.Log.Debug("skip stale order cache fill", zap.String("order_id", o.ID))
	default:
		c.Log.Warn("order cache write", zap.String("order_id", o.ID), zap.Error(err))
	}
}

var errStaleFill = errors.New("order saved since read")
