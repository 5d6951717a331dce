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

// FirstSeen marks (service, id) as processed and reports whether this call
// was the first. SETNX keeps it atomic across consumer workers.
func FirstSeen(ctx context.Context, rdb *redis.Client, service, id string) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, id), "1", TTLDedup).Result()
}

// SyncIdempotency caches client_id -> sale_id for offline replays. Redis
// failures degrade to a cache miss; the database stays authoritative.
type SyncIdempotency struct {
	RDB *redis.Client
}

func (c SyncIdempotency) Lookup(ctx context.Context, clientID string) (string, bool) {
	v, err := c.RDB.Get(ctx, fmt.Sprintf(KeyIdemSync, clientID)).Result()
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (c SyncIdempotency) Remember(ctx context.Context, clientID, saleID string) {
	_ = c.RDB.Set(ctx, fmt.Sprintf(KeyIdemSync, clientID), saleID, TTLIdempotency).Err()
}
