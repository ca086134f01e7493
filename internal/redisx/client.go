package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Seen marks event id as processed by service and reports whether it already was.
func Seen(ctx context.Context, rdb *redis.Client, service, id string) (bool, error) {
	ok, err := rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, id), "1", TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Forget removes a dedup mark so a failed event can be retried.
func Forget(ctx context.Context, rdb *redis.Client, service, id string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, id)).Err()
}

// Dedup binds Seen and Forget to one consuming service.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

func (d Dedup) Seen(ctx context.Context, id string) (bool, error) { return Seen(ctx, d.RDB, d.Service, id) }

func (d Dedup) Forget(ctx context.Context, id string) error { return Forget(ctx, d.RDB, d.Service, id) }
