// Package stream provides an in-memory domain.EventStream used by tests and
// local development. The production implementation lives in cache/redis.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantfold/zerodte/internal/domain"
)

// DefaultMaxHistory matches the production history cap.
const DefaultMaxHistory = 500

// Memory is a process-local EventStream. Records are held oldest-first and
// trimmed to a maximum count; there is no TTL eviction since the process
// itself is the session.
type Memory struct {
	mu      sync.Mutex
	records []domain.EventRecord
	subs    map[chan domain.EventRecord]struct{}
	session string
	max     int
	seq     int64
	now     func() time.Time
}

// NewMemory creates a Memory stream capped at max records (DefaultMaxHistory
// when max is non-positive).
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &Memory{
		subs: make(map[chan domain.EventRecord]struct{}),
		max:  max,
		now:  time.Now,
	}
}

// SetClock overrides the time source. Test helper.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Append stores the record and broadcasts it to live subscribers. A
// subscriber with a full buffer misses the record; it can catch up through
// History, same as the production stream. Sends happen under the mutex so a
// concurrent unsubscribe cannot close a channel mid-send.
func (m *Memory) Append(ctx context.Context, record domain.EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stamp(&record)
	m.records = append(m.records, record)
	if len(m.records) > m.max {
		m.records = m.records[len(m.records)-m.max:]
	}

	for ch := range m.subs {
		select {
		case ch <- record:
		default:
		}
	}
	return nil
}

// stamp fills ordering metadata; callers hold m.mu.
func (m *Memory) stamp(record *domain.EventRecord) {
	ts := m.now()
	if record.UnixMilli == 0 {
		record.UnixMilli = ts.UnixMilli()
	}
	if record.Timestamp == "" {
		record.Timestamp = ts.Format("15:04:05")
	}
	m.seq++
	record.Seq = m.seq
}

// History returns up to limit of the most recent records, oldest first.
func (m *Memory) History(ctx context.Context, limit int) ([]domain.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.EventRecord, limit)
	copy(out, m.records[n-limit:])
	return out, nil
}

// Subscribe returns a channel of live records, closed when ctx is cancelled.
func (m *Memory) Subscribe(ctx context.Context) (<-chan domain.EventRecord, error) {
	ch := make(chan domain.EventRecord, 128)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		// Close under the same mutex that guards Append's sends, so the
		// channel can never be closed between a send's selection and
		// delivery.
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()

	return ch, nil
}

// ResetSession clears history and assigns a fresh short session id.
func (m *Memory) ResetSession(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.records = nil
	m.session = uuid.NewString()[:8]
	session := m.session
	m.mu.Unlock()

	_ = m.Append(ctx, domain.EventRecord{
		Type:      domain.EventSessionReset,
		SessionID: session,
		Content:   "New session started",
	})
	return session, nil
}

// SessionID returns the current session id.
func (m *Memory) SessionID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

// Compile-time interface check.
var _ domain.EventStream = (*Memory)(nil)
