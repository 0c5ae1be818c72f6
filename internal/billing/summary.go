package billing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "billing:summary:"

// SummaryCache keeps day summaries in Redis so the dashboard does not
// aggregate the bills table on every poll. A nil cache is a no-op, so
// callers never have to branch on whether Redis is configured.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache instantiates the cache helper.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(date time.Time) string {
	return summaryKeyPrefix + date.Format("2006-01-02")
}

// Get returns the cached summary for the given day, if present.
func (c *SummaryCache) Get(ctx context.Context, date time.Time) (DaySummary, bool) {
	if c == nil || c.client == nil {
		return DaySummary{}, false
	}
	payload, err := c.client.Get(ctx, summaryKey(date)).Bytes()
	if err != nil {
		return DaySummary{}, false
	}
	var summary DaySummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return DaySummary{}, false
	}
	return summary, true
}

// Set stores the summary for the given day.
func (c *SummaryCache) Set(ctx context.Context, date time.Time, summary DaySummary) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKey(date), raw, c.ttl).Err()
}

// Invalidate drops the cached summary for the given day. Called after
// every bill create or cancel so readers never see a stale total.
func (c *SummaryCache) Invalidate(ctx context.Context, date time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, summaryKey(date)).Err()
}
