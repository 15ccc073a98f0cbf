package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
)

// UsageTracker accumulates per-agent token usage across one analysis cycle
// and flushes it on Finish. The cache store always receives the cycle; the
// archive is optional and only used when configured.
type UsageTracker struct {
	store   domain.UsageStore
	archive domain.UsageArchive
	loc     *time.Location
	now     func() time.Time

	mu          sync.Mutex
	agents      map[string]domain.AgentUsage
	totalInput  int
	totalOutput int
}

// NewUsageTracker creates a tracker. archive may be nil.
func NewUsageTracker(store domain.UsageStore, archive domain.UsageArchive, loc *time.Location) *UsageTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &UsageTracker{
		store:   store,
		archive: archive,
		loc:     loc,
		now:     time.Now,
		agents:  make(map[string]domain.AgentUsage),
	}
}

// Record adds the tokens one agent consumed to the running cycle.
func (t *UsageTracker) Record(agent string, inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.agents[agent]
	u.Input += inputTokens
	u.Output += outputTokens
	t.agents[agent] = u
	t.totalInput += inputTokens
	t.totalOutput += outputTokens
}

// Finish persists the accumulated cycle and resets the tracker for the next
// one. The reset happens even when persistence fails so one bad flush cannot
// double-count the next cycle.
func (t *UsageTracker) Finish(ctx context.Context, mode string, latencySecs float64) (domain.UsageCycle, error) {
	t.mu.Lock()
	now := t.now().In(t.loc)
	cycle := domain.UsageCycle{
		Timestamp:   now.Format("15:04:05"),
		Date:        now.Format("2006-01-02"),
		Mode:        mode,
		Agents:      t.agents,
		TotalInput:  t.totalInput,
		TotalOutput: t.totalOutput,
		LatencySecs: latencySecs,
	}
	t.agents = make(map[string]domain.AgentUsage)
	t.totalInput = 0
	t.totalOutput = 0
	t.mu.Unlock()

	if err := t.store.SaveCycle(ctx, cycle); err != nil {
		return cycle, fmt.Errorf("swarm: save usage cycle: %w", err)
	}
	if t.archive != nil {
		if err := t.archive.ArchiveCycle(ctx, cycle); err != nil {
			return cycle, fmt.Errorf("swarm: archive usage cycle: %w", err)
		}
	}
	return cycle, nil
}
