package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight is returned when another request holds the same idempotency key.
var ErrInFlight = errors.New("request with this idempotency key is still in progress")

// Idempotency remembers which order a buyer's idempotency key produced.
// PendingTTL bounds a claim that is never completed, e.g. after a crash.
type Idempotency struct {
	RDB        *redis.Client
	TTL        time.Duration
	PendingTTL time.Duration
}

func NewIdempotency(rdb *redis.Client) *Idempotency {
	return &Idempotency{RDB: rdb, TTL: TTLIdempotency, PendingTTL: TTLIdemPending}
}

// Claim reserves key for buyerID. When the key was already used it returns the
// order id it produced; a claim that is still pending yields ErrInFlight.
func (i *Idempotency) Claim(ctx context.Context, buyerID, key string) (orderID string, claimed bool, err error) {
	k := fmt.Sprintf(KeyIdemOrderPlace, buyerID, key)
	ok, err := i.RDB.SetNX(ctx, k, idemPending, i.PendingTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := i.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SetNX and Get; let the caller retry
		return "", false, ErrInFlight
	}
	if err != nil {
		return "", false, err
	}
	if v == idemPending {
		return "", false, ErrInFlight
	}
	return v, false, nil
}

// Complete records the order created under a claimed key and keeps it for TTL.
func (i *Idempotency) Complete(ctx context.Context, buyerID, key, orderID string) error {
	return i.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderPlace, buyerID, key), orderID, i.TTL).Err()
}

// Abandon releases a claim after a failed placement so the client can retry.
func (i *Idempotency) Abandon(ctx context.Context, buyerID, key string) error {
	return i.RDB.Del(ctx, fmt.Sprintf(KeyIdemOrderPlace, buyerID, key)).Err()
}
