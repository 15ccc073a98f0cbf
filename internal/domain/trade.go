package domain

import (
	"fmt"
	"time"
)

// Direction is the action field of a coordinator signal.
type Direction string

const (
	DirectionCall Direction = "CALL"
	DirectionPut  Direction = "PUT"
	DirectionWait Direction = "WAIT"
	DirectionExit Direction = "EXIT"
)

// Directional reports whether the direction names an actual position side.
func (d Direction) Directional() bool {
	return d == DirectionCall || d == DirectionPut
}

// SignalKind distinguishes a new entry from a hold of an existing position.
// Records with no position semantics (WAIT, EXIT) carry an empty kind.
type SignalKind string

const (
	SignalEntry SignalKind = "ENTRY"
	SignalHold  SignalKind = "HOLD"
)

// Conviction is the coordinator's confidence score.
type Conviction string

const (
	ConvictionHigh Conviction = "HIGH"
	ConvictionMed  Conviction = "MED"
	ConvictionLow  Conviction = "LOW"
)

// Signal is the structured payload the coordinator emits as the last line of
// its response. All price fields are zero when the upstream emitted null.
type Signal struct {
	Action     Direction  `json:"action,omitempty"`
	Kind       SignalKind `json:"signal,omitempty"`
	Price      float64    `json:"price,omitempty"`
	Entry      float64    `json:"entry,omitempty"`
	Stop       float64    `json:"stop,omitempty"`
	Target     float64    `json:"target,omitempty"`
	Conviction Conviction `json:"conviction,omitempty"`
	// LatencySeconds is stamped by the control loop, not the coordinator.
	LatencySeconds float64 `json:"latency_sec,omitempty"`
}

// TradeState is the position reconstructed from the event feed. It is a view:
// it is recomputed on demand and never stored.
type TradeState struct {
	InTrade     bool       `json:"in_trade"`
	Direction   Direction  `json:"direction,omitempty"`
	EntryPrice  float64    `json:"entry_price,omitempty"`
	StopPrice   float64    `json:"stop_price,omitempty"`
	TargetPrice float64    `json:"target_price,omitempty"`
	LastPrice   float64    `json:"last_price,omitempty"`
	Kind        SignalKind `json:"signal,omitempty"`
	Conviction  Conviction `json:"conviction,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// Flat reports whether no position is currently held.
func (s TradeState) Flat() bool {
	return !s.InTrade
}

// Summary renders the state as a single line suitable for a task prompt.
func (s TradeState) Summary() string {
	if !s.InTrade {
		return "No open position."
	}
	return fmt.Sprintf("In %s since entry $%.2f (stop $%.2f, target $%.2f), last signal %s %s at $%.2f.",
		s.Direction, s.EntryPrice, s.StopPrice, s.TargetPrice, s.Kind, s.Conviction, s.LastPrice)
}
