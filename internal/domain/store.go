package domain

import "context"

// EventStream is the append-only, bounded feed that backs both the live UI
// and trade-state resolution. Within a single process, Append order is the
// total order: every subscriber sees records in the same order, and History
// returns them oldest-first.
type EventStream interface {
	// Append publishes the record to live subscribers and stores it in the
	// bounded history. The stream stamps Timestamp, UnixMilli and Seq when
	// they are zero.
	Append(ctx context.Context, record EventRecord) error

	// History returns up to limit of the most recent records, oldest first.
	History(ctx context.Context, limit int) ([]EventRecord, error)

	// Subscribe returns a channel of live records. The channel is closed
	// when ctx is cancelled. A slow consumer may miss records; it can
	// recover by calling History.
	Subscribe(ctx context.Context) (<-chan EventRecord, error)

	// ResetSession clears stored history and assigns a fresh session id.
	// Called once on cold start.
	ResetSession(ctx context.Context) (string, error)

	// SessionID returns the current session id, or "" if none is set.
	SessionID(ctx context.Context) (string, error)
}

// ControlStore holds the two externally writable scalars that steer the
// control loop. Reads and writes are last-write-wins.
type ControlStore interface {
	// Mode returns the current operating mode, defaulting to ModeFast when
	// the key is unset.
	Mode(ctx context.Context) (OperatingMode, error)
	SetMode(ctx context.Context, mode OperatingMode) error

	// Focus returns the operator-supplied focus question, or "" when the
	// loop should scan for fresh setups.
	Focus(ctx context.Context) (string, error)
	SetFocus(ctx context.Context, focus string) error
}

// AgentUsage is the token consumption of one agent within a cycle.
type AgentUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// UsageCycle is the token accounting for one full analysis cycle.
type UsageCycle struct {
	Timestamp    string                `json:"timestamp"` // HH:MM:SS
	Date         string                `json:"date"`      // YYYY-MM-DD
	Mode         string                `json:"mode"`
	Agents       map[string]AgentUsage `json:"agents"`
	TotalInput   int                   `json:"total_input"`
	TotalOutput  int                   `json:"total_output"`
	LatencySecs  float64               `json:"latency_sec,omitempty"`
}

// UsageSummary aggregates token usage across a trading day.
type UsageSummary struct {
	Cycles       int `json:"cycles"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// UsageStore tracks token usage for the live dashboard: a rolling daily
// summary plus a bounded list of recent cycles.
type UsageStore interface {
	SaveCycle(ctx context.Context, cycle UsageCycle) error
	DailySummary(ctx context.Context, date string) (UsageSummary, error)
	// RecentCycles returns the most recent cycles for a date, newest first.
	RecentCycles(ctx context.Context, date string, limit int) ([]UsageCycle, error)
}

// UsageArchive persists usage cycles durably for historical analysis. It is
// optional: when no database is configured, cycles live only in the cache.
type UsageArchive interface {
	ArchiveCycle(ctx context.Context, cycle UsageCycle) error
	ListCycles(ctx context.Context, date string, limit int) ([]UsageCycle, error)
}
