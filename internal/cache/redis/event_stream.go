package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quantfold/zerodte/internal/domain"
)

// Key and channel names for the event feed.
const (
	eventsChannel = "zerodte:events"
	historyKey    = "zerodte:history"
	sessionKey    = "zerodte:session"
)

const (
	// defaultMaxHistory caps the stored feed at the last 500 records.
	defaultMaxHistory = 500
	// defaultHistoryTTL expires the feed after a trading day.
	defaultHistoryTTL = 8 * time.Hour
)

// EventStreamConfig tunes the history bounds.
type EventStreamConfig struct {
	MaxHistory int
	HistoryTTL time.Duration
}

// EventStream implements domain.EventStream on Redis: Pub/Sub for live
// delivery and an LPUSH/LTRIM list for bounded history. Because LPUSH
// prepends, the list holds newest-first and History reverses before
// returning.
type EventStream struct {
	rdb *redis.Client
	max int
	ttl time.Duration
	seq atomic.Int64
}

// NewEventStream creates an EventStream backed by the given Client.
func NewEventStream(c *Client, cfg EventStreamConfig) *EventStream {
	max := cfg.MaxHistory
	if max <= 0 {
		max = defaultMaxHistory
	}
	ttl := cfg.HistoryTTL
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &EventStream{rdb: c.Underlying(), max: max, ttl: ttl}
}

// Append publishes the record to live subscribers and prepends it to the
// bounded history list, trimming by count and refreshing the TTL in the same
// pipeline. Record ordering metadata is stamped here so that both delivery
// paths carry identical payloads.
func (es *EventStream) Append(ctx context.Context, record domain.EventRecord) error {
	es.stamp(&record)

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	pipe := es.rdb.TxPipeline()
	pipe.Publish(ctx, eventsChannel, payload)
	pipe.LPush(ctx, historyKey, payload)
	pipe.LTrim(ctx, historyKey, 0, int64(es.max)-1)
	pipe.Expire(ctx, historyKey, es.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append event: %w", err)
	}
	return nil
}

// stamp fills wall-clock and ordering fields when the caller left them zero.
// Seq is a process-local monotonic counter that breaks same-millisecond ties.
func (es *EventStream) stamp(record *domain.EventRecord) {
	now := time.Now()
	if record.UnixMilli == 0 {
		record.UnixMilli = now.UnixMilli()
	}
	if record.Timestamp == "" {
		record.Timestamp = now.Format("15:04:05")
	}
	if record.Seq == 0 {
		record.Seq = es.seq.Add(1)
	}
}

// History returns up to limit of the most recent records, oldest first.
// Undecodable entries (e.g. written by an older build) are skipped.
func (es *EventStream) History(ctx context.Context, limit int) ([]domain.EventRecord, error) {
	if limit <= 0 || limit > es.max {
		limit = es.max
	}

	raw, err := es.rdb.LRange(ctx, historyKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: event history: %w", err)
	}

	// LRange returns newest-first; reverse into display order.
	records := make([]domain.EventRecord, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var rec domain.EventRecord
		if err := json.Unmarshal([]byte(raw[i]), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Subscribe bridges the Redis Pub/Sub channel to a Go channel. The
// subscription and the returned channel are closed when ctx is cancelled.
func (es *EventStream) Subscribe(ctx context.Context) (<-chan domain.EventRecord, error) {
	pubsub := es.rdb.Subscribe(ctx, eventsChannel)

	// Receive the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe events: %w", err)
	}

	out := make(chan domain.EventRecord, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rec domain.EventRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// ResetSession clears stored history and assigns a fresh 8-character session
// id, announcing the reset to any already-connected subscribers. Replay of
// pre-reset history is invalidated by the id change even before the TTL
// removes it.
func (es *EventStream) ResetSession(ctx context.Context) (string, error) {
	session := uuid.NewString()[:8]

	if err := es.rdb.Del(ctx, historyKey).Err(); err != nil {
		return "", fmt.Errorf("redis: clear history: %w", err)
	}
	if err := es.rdb.Set(ctx, sessionKey, session, 0).Err(); err != nil {
		return "", fmt.Errorf("redis: set session: %w", err)
	}

	record := domain.EventRecord{
		Type:      domain.EventSessionReset,
		SessionID: session,
		Content:   "New session started",
	}
	es.stamp(&record)
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("redis: marshal session reset: %w", err)
	}
	if err := es.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return "", fmt.Errorf("redis: publish session reset: %w", err)
	}

	return session, nil
}

// SessionID returns the current session id, or "" when none has been set.
func (es *EventStream) SessionID(ctx context.Context) (string, error) {
	session, err := es.rdb.Get(ctx, sessionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis: get session: %w", err)
	}
	return session, nil
}

// Compile-time interface check.
var _ domain.EventStream = (*EventStream)(nil)
