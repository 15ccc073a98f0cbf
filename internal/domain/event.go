// Package domain defines the core types and interfaces shared across the
// zero-DTE copilot: event records, trade signals, worker contracts, and the
// storage interfaces implemented by the cache and store layers.
package domain

// EventType identifies what a single event record represents.
type EventType string

const (
	// EventQuestion is a task the control loop sent to the swarm.
	EventQuestion EventType = "AGENT_QUESTION"
	// EventResponse is the swarm's full analysis, usually carrying a signal.
	EventResponse EventType = "SWARM_RESPONSE"
	// EventError records a failed analysis cycle.
	EventError EventType = "AGENT_ERROR"
	// EventSignalUpdate marks a direction flip between consecutive cycles.
	EventSignalUpdate EventType = "SIGNAL_UPDATE"
	// EventMarketSnapshot carries raw market data fetched by a data worker.
	EventMarketSnapshot EventType = "MARKET_SNAPSHOT"
	// EventSessionReset announces a fresh session after a cold start.
	EventSessionReset EventType = "SESSION_RESET"
	// EventConnected is the acknowledgement sent to a feed subscriber on
	// connect; it is never stored in history.
	EventConnected EventType = "CONNECTED"
)

// EventRecord is one immutable entry in the event feed. Records are created
// once, appended once, and evicted only by the store's size and TTL bounds.
type EventRecord struct {
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`        // wall clock, HH:MM:SS
	UnixMilli int64     `json:"ts_ms"`            // append time for ordering
	Seq       int64     `json:"seq,omitempty"`    // tie-break within one ms
	SessionID string    `json:"session_id,omitempty"`
	Content   string    `json:"content"`
	Signal    *Signal   `json:"signal,omitempty"`
}
