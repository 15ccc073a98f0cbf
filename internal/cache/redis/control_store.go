package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantfold/zerodte/internal/domain"
)

const (
	modeKey  = "zerodte:mode"
	focusKey = "zerodte:focus"
)

// ControlStore implements domain.ControlStore on two plain Redis keys. Both
// are single scalars with last-write-wins semantics; the control loop reads
// them fresh at the start of every iteration.
type ControlStore struct {
	rdb *redis.Client
}

// NewControlStore creates a ControlStore backed by the given Client.
func NewControlStore(c *Client) *ControlStore {
	return &ControlStore{rdb: c.Underlying()}
}

// Mode returns the operator-selected operating mode. An unset or invalid key
// yields the ModeFast default rather than an error, so a stale value written
// by an older build can never stall the loop.
func (cs *ControlStore) Mode(ctx context.Context) (domain.OperatingMode, error) {
	raw, err := cs.rdb.Get(ctx, modeKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ModeFast, nil
		}
		return "", fmt.Errorf("redis: get mode: %w", err)
	}

	mode, err := domain.ParseMode(raw)
	if err != nil {
		return domain.ModeFast, nil
	}
	return mode, nil
}

// SetMode stores the operating mode.
func (cs *ControlStore) SetMode(ctx context.Context, mode domain.OperatingMode) error {
	if err := cs.rdb.Set(ctx, modeKey, string(mode), 0).Err(); err != nil {
		return fmt.Errorf("redis: set mode: %w", err)
	}
	return nil
}

// Focus returns the operator's focus question, or "" when the loop should
// scan for fresh setups.
func (cs *ControlStore) Focus(ctx context.Context) (string, error) {
	focus, err := cs.rdb.Get(ctx, focusKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis: get focus: %w", err)
	}
	return focus, nil
}

// SetFocus stores the focus question; an empty value deletes the key and
// returns the loop to scanning mode.
func (cs *ControlStore) SetFocus(ctx context.Context, focus string) error {
	if focus == "" {
		if err := cs.rdb.Del(ctx, focusKey).Err(); err != nil {
			return fmt.Errorf("redis: clear focus: %w", err)
		}
		return nil
	}
	if err := cs.rdb.Set(ctx, focusKey, focus, 0).Err(); err != nil {
		return fmt.Errorf("redis: set focus: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ControlStore = (*ControlStore)(nil)
