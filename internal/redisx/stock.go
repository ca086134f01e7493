package redisx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

const stockTotalField = "_total"

// WriteStockSnapshot replaces the stock hash of p with its current levels.
func WriteStockSnapshot(ctx context.Context, rdb *redis.Client, p orders.Product) error {
	key := fmt.Sprintf(KeyStock, p.ID)
	fields := make(map[string]any, len(p.Warehouses)+1)
	for _, w := range p.Warehouses {
		fields[w.Name] = w.StockLevel
	}
	fields[stockTotalField] = p.TotalStock()

	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		return nil
	})
	return err
}

// ReadStockSnapshot returns warehouse levels and the total for productID.
// A product without a snapshot yields an empty map.
func ReadStockSnapshot(ctx context.Context, rdb *redis.Client, productID string) (map[string]int, int, error) {
	raw, err := rdb.HGetAll(ctx, fmt.Sprintf(KeyStock, productID)).Result()
	if err != nil {
		return nil, 0, err
	}
	levels := make(map[string]int, len(raw))
	total := 0
	for k, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, 0, fmt.Errorf("stock %s/%s: %w", productID, k, err)
		}
		if k == stockTotalField {
			total = n
			continue
		}
		levels[k] = n
	}
	return levels, total, nil
}

type StockSnapshots struct{ RDB *redis.Client }

func (s StockSnapshots) Write(ctx context.Context, p orders.Product) error {
	return WriteStockSnapshot(ctx, s.RDB, p)
}
