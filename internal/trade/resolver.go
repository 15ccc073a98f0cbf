package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
)

// defaultLookback is how many recent events the resolver inspects. A 0DTE
// position never survives more than a handful of cycles, so anything older
// is stale by definition.
const defaultLookback = 25

// Resolver reconstructs the current trade state from the event feed instead
// of keeping a mutable position record. A crashed process recovers its state
// by scanning the same feed the UI renders.
type Resolver struct {
	stream   domain.EventStream
	lookback int
}

// NewResolver creates a Resolver over the given stream. lookback <= 0 uses
// the default window.
func NewResolver(stream domain.EventStream, lookback int) *Resolver {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	return &Resolver{stream: stream, lookback: lookback}
}

// Resolve scans the feed newest-first and returns the reconstructed state.
//
// The newest record carrying a position kind (ENTRY or HOLD) supplies the
// current direction, price and conviction. Walking further back, an EXIT seen
// before any ENTRY means the position was closed, so the state is flat. The
// first ENTRY encountered supplies the original entry, stop and target. A
// window with no ENTRY resolves flat regardless of anything else in it.
func (r *Resolver) Resolve(ctx context.Context) (domain.TradeState, error) {
	records, err := r.stream.History(ctx, r.lookback)
	if err != nil {
		return domain.TradeState{}, fmt.Errorf("trade: resolve state: %w", err)
	}

	var (
		state   domain.TradeState
		current bool
	)
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.Type != domain.EventResponse || rec.Signal == nil {
			continue
		}
		sig := rec.Signal

		if !current && sig.Kind != "" && sig.Action.Directional() {
			state = domain.TradeState{
				InTrade:    true,
				Direction:  sig.Action,
				LastPrice:  sig.Price,
				Kind:       sig.Kind,
				Conviction: sig.Conviction,
				UpdatedAt:  time.UnixMilli(rec.UnixMilli),
			}
			current = true
			if sig.Kind == domain.SignalEntry {
				// The newest position record is itself the entry.
				state.EntryPrice = sig.Entry
				state.StopPrice = sig.Stop
				state.TargetPrice = sig.Target
				return state, nil
			}
			continue
		}

		if sig.Action == domain.DirectionExit {
			// Closed after the most recent entry; nothing is open.
			return domain.TradeState{}, nil
		}

		if sig.Kind == domain.SignalEntry && sig.Action.Directional() {
			if !current {
				return domain.TradeState{}, nil
			}
			state.EntryPrice = sig.Entry
			state.StopPrice = sig.Stop
			state.TargetPrice = sig.Target
			return state, nil
		}
	}

	// Either nothing in the window or a HOLD whose entry scrolled out of it.
	return domain.TradeState{}, nil
}
