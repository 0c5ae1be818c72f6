package billing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSummaryCache(client, time.Minute), mr
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	_, ok := cache.Get(ctx, day)
	require.False(t, ok)

	total, _ := decimal.NewFromString("1234.00")
	summary := DaySummary{Date: "2026-03-14", BillCount: 12, Total: total, Cash: total}
	require.NoError(t, cache.Set(ctx, day, summary))

	got, ok := cache.Get(ctx, day)
	require.True(t, ok)
	require.Equal(t, 12, got.BillCount)
	require.True(t, got.Total.Equal(total))

	require.NoError(t, cache.Invalidate(ctx, day))
	_, ok = cache.Get(ctx, day)
	require.False(t, ok)
}

func TestSummaryCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, cache.Set(ctx, day, DaySummary{Date: "2026-03-14", BillCount: 1}))
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, day)
	require.False(t, ok)
}

func TestSummaryCacheNilIsNoOp(t *testing.T) {
	var cache *SummaryCache
	ctx := context.Background()
	day := time.Now()

	_, ok := cache.Get(ctx, day)
	require.False(t, ok)
	require.NoError(t, cache.Set(ctx, day, DaySummary{}))
	require.NoError(t, cache.Invalidate(ctx, day))
}
