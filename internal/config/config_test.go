package config

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "COMMISSION_RATE", "LIST_FEE", "SYNC_MAX_BATCH", "KAFKA_BROKERS", "STORE"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.Store)
	assert.True(t, cfg.CommissionRate.Equal(decimal.RequireFromString("0.20")))
	assert.True(t, cfg.ListFee.IsZero())
	assert.Equal(t, 500, cfg.SyncMaxBatch)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COMMISSION_RATE", "0.15")
	t.Setenv("LIST_FEE", "2.50")
	t.Setenv("SYNC_MAX_BATCH", "50")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MARKET_TIMEZONE", "not/a-zone")

	cfg := Load()
	assert.Equal(t, 50, cfg.SyncMaxBatch)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	_, err := cfg.Location()
	assert.Error(t, err, "unknown zone is reported, not replaced by UTC")

	rates, err := cfg.Fees().Rates(context.Background(), "any")
	require.NoError(t, err)
	assert.True(t, rates.CommissionRate.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, rates.ListFee.Equal(decimal.RequireFromString("2.5")))
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("COMMISSION_RATE", "lots")
	t.Setenv("SYNC_WORKERS", "x")

	cfg := Load()
	assert.True(t, cfg.CommissionRate.Equal(decimal.RequireFromString("0.20")))
	assert.Equal(t, 8, cfg.SyncWorkers)
}

func TestLocation_DefaultZone(t *testing.T) {
	t.Setenv("MARKET_TIMEZONE", "")
	loc, err := Load().Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())

	// 2025-06-13 is summer time: 17:00 Paris is 15:00 UTC
	friday := time.Date(2025, 6, 13, 15, 0, 0, 0, time.UTC).In(loc)
	assert.Equal(t, 17, friday.Hour())
}
