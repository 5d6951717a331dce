package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-resale-market.git/internal/syncer"
)

var _ syncer.IdempotencyCache = SyncIdempotency{}

func TestSyncIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	defer rdb.Close()
	ctx := context.Background()
	cache := SyncIdempotency{RDB: rdb}

	_, ok := cache.Lookup(ctx, "c1")
	assert.False(t, ok)

	cache.Remember(ctx, "c1", "sale-1")
	id, ok := cache.Lookup(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, "sale-1", id)
	assert.Equal(t, TTLIdempotency, mr.TTL("idem:sync:c1"))
}

func TestSyncIdempotency_RedisDownIsAMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	defer rdb.Close()
	mr.Close()

	cache := SyncIdempotency{RDB: rdb}
	cache.Remember(context.Background(), "c1", "sale-1")
	_, ok := cache.Lookup(context.Background(), "c1")
	assert.False(t, ok)
}

func TestFirstSeen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	defer rdb.Close()
	ctx := context.Background()

	first, err := FirstSeen(ctx, rdb, "notifier", "ev-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := FirstSeen(ctx, rdb, "notifier", "ev-1")
	require.NoError(t, err)
	assert.False(t, again)

	ok, err := Exists(ctx, rdb, "dedup:notifier:ev-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
