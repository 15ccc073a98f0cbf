package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfold/zerodte/internal/domain"
)

const (
	usageSummaryPrefix = "zerodte:tokens:summary:"
	usageHistoryPrefix = "zerodte:tokens:history:"

	// usageTTL keeps token accounting around for a day after the last write.
	usageTTL = 24 * time.Hour
	// usageHistoryMax caps the per-day cycle list.
	usageHistoryMax = 100
)

// UsageStore implements domain.UsageStore with a per-day JSON summary key and
// a bounded per-day list of cycle records, both expiring after 24 hours.
type UsageStore struct {
	rdb *redis.Client
}

// NewUsageStore creates a UsageStore backed by the given Client.
func NewUsageStore(c *Client) *UsageStore {
	return &UsageStore{rdb: c.Underlying()}
}

func usageSummaryKey(date string) string { return usageSummaryPrefix + date }
func usageHistoryKey(date string) string { return usageHistoryPrefix + date }

// SaveCycle folds the cycle into the daily summary and prepends it to the
// cycle history. The read-modify-write on the summary is not transactional;
// a single writer (the control loop) is the expected access pattern.
func (us *UsageStore) SaveCycle(ctx context.Context, cycle domain.UsageCycle) error {
	summary, err := us.DailySummary(ctx, cycle.Date)
	if err != nil {
		return err
	}
	summary.Cycles++
	summary.InputTokens += cycle.TotalInput
	summary.OutputTokens += cycle.TotalOutput

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: marshal usage summary: %w", err)
	}
	cycleJSON, err := json.Marshal(cycle)
	if err != nil {
		return fmt.Errorf("redis: marshal usage cycle: %w", err)
	}

	pipe := us.rdb.TxPipeline()
	pipe.Set(ctx, usageSummaryKey(cycle.Date), summaryJSON, usageTTL)
	pipe.LPush(ctx, usageHistoryKey(cycle.Date), cycleJSON)
	pipe.LTrim(ctx, usageHistoryKey(cycle.Date), 0, usageHistoryMax-1)
	pipe.Expire(ctx, usageHistoryKey(cycle.Date), usageTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save usage cycle: %w", err)
	}
	return nil
}

// DailySummary returns the aggregate for a date; a missing key yields zeros.
func (us *UsageStore) DailySummary(ctx context.Context, date string) (domain.UsageSummary, error) {
	raw, err := us.rdb.Get(ctx, usageSummaryKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.UsageSummary{}, nil
		}
		return domain.UsageSummary{}, fmt.Errorf("redis: get usage summary: %w", err)
	}

	var summary domain.UsageSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.UsageSummary{}, fmt.Errorf("redis: unmarshal usage summary: %w", err)
	}
	return summary, nil
}

// RecentCycles returns up to limit cycles for the date, newest first.
func (us *UsageStore) RecentCycles(ctx context.Context, date string, limit int) ([]domain.UsageCycle, error) {
	if limit <= 0 || limit > usageHistoryMax {
		limit = usageHistoryMax
	}

	raw, err := us.rdb.LRange(ctx, usageHistoryKey(date), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: usage cycles: %w", err)
	}

	cycles := make([]domain.UsageCycle, 0, len(raw))
	for _, item := range raw {
		var cycle domain.UsageCycle
		if err := json.Unmarshal([]byte(item), &cycle); err != nil {
			continue
		}
		cycles = append(cycles, cycle)
	}
	return cycles, nil
}

// Compile-time interface check.
var _ domain.UsageStore = (*UsageStore)(nil)
