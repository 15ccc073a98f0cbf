package trade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/zerodte/internal/domain"
	"github.com/quantfold/zerodte/internal/stream"
)

func appendResponse(t *testing.T, s *stream.Memory, sig domain.Signal) {
	t.Helper()
	err := s.Append(context.Background(), domain.EventRecord{
		Type:    domain.EventResponse,
		Content: "analysis",
		Signal:  &sig,
	})
	require.NoError(t, err)
}

func TestResolveEmptyFeedIsFlat(t *testing.T) {
	s := stream.NewMemory(0)
	state, err := NewResolver(s, 0).Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Flat())
}

func TestResolveEntryOnly(t *testing.T) {
	s := stream.NewMemory(0)
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionCall, Kind: domain.SignalEntry,
		Price: 571.42, Entry: 571.40, Stop: 570.80, Target: 572.60,
		Conviction: domain.ConvictionHigh,
	})

	state, err := NewResolver(s, 0).Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, state.InTrade)
	assert.Equal(t, domain.DirectionCall, state.Direction)
	assert.Equal(t, 571.40, state.EntryPrice)
	assert.Equal(t, 570.80, state.StopPrice)
	assert.Equal(t, 572.60, state.TargetPrice)
	assert.Equal(t, domain.SignalEntry, state.Kind)
}

func TestResolveHoldMergesEntryLevels(t *testing.T) {
	s := stream.NewMemory(0)
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionCall, Kind: domain.SignalEntry,
		Price: 571.42, Entry: 571.40, Stop: 570.80, Target: 572.60,
		Conviction: domain.ConvictionHigh,
	})
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionCall, Kind: domain.SignalHold,
		Price: 571.95, Conviction: domain.ConvictionMed,
	})

	state, err := NewResolver(s, 0).Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, state.InTrade)
	// Levels come from the entry; price, kind and conviction from the hold.
	assert.Equal(t, 571.40, state.EntryPrice)
	assert.Equal(t, 570.80, state.StopPrice)
	assert.Equal(t, 571.95, state.LastPrice)
	assert.Equal(t, domain.SignalHold, state.Kind)
	assert.Equal(t, domain.ConvictionMed, state.Conviction)
}

func TestResolveExitClosesPosition(t *testing.T) {
	s := stream.NewMemory(0)
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionCall, Kind: domain.SignalEntry,
		Price: 571.42, Entry: 571.40, Stop: 570.80, Target: 572.60,
		Conviction: domain.ConvictionHigh,
	})
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionExit, Price: 572.55,
		Conviction: domain.ConvictionHigh,
	})

	state, err := NewResolver(s, 0).Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Flat())
}

func TestResolveExitOnlyIsFlat(t *testing.T) {
	s := stream.NewMemory(0)
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionExit, Price: 570.00,
		Conviction: domain.ConvictionLow,
	})

	state, err := NewResolver(s, 0).Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Flat())
}

func TestResolveReentryAfterExit(t *testing.T) {
	s := stream.NewMemory(0)
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionCall, Kind: domain.SignalEntry,
		Price: 571.42, Entry: 571.40, Stop: 570.80, Target: 572.60,
		Conviction: domain.ConvictionHigh,
	})
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionExit, Price: 572.55,
		Conviction: domain.ConvictionHigh,
	})
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionPut, Kind: domain.SignalEntry,
		Price: 572.40, Entry: 572.35, Stop: 573.00, Target: 571.20,
		Conviction: domain.ConvictionMed,
	})

	state, err := NewResolver(s, 0).Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, state.InTrade)
	assert.Equal(t, domain.DirectionPut, state.Direction)
	assert.Equal(t, 572.35, state.EntryPrice)
}

func TestResolveHoldWithEntryOutsideWindowIsFlat(t *testing.T) {
	s := stream.NewMemory(0)
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionCall, Kind: domain.SignalEntry,
		Price: 571.42, Entry: 571.40, Stop: 570.80, Target: 572.60,
		Conviction: domain.ConvictionHigh,
	})
	for i := 0; i < 3; i++ {
		appendResponse(t, s, domain.Signal{
			Action: domain.DirectionCall, Kind: domain.SignalHold,
			Price: 571.50, Conviction: domain.ConvictionMed,
		})
	}

	// Lookback of 2: the entry record is no longer visible.
	state, err := NewResolver(s, 2).Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Flat())
}

func TestResolveIgnoresNonResponseRecords(t *testing.T) {
	s := stream.NewMemory(0)
	require.NoError(t, s.Append(context.Background(), domain.EventRecord{
		Type: domain.EventQuestion, Content: "scan for setups",
	}))
	appendResponse(t, s, domain.Signal{
		Action: domain.DirectionWait, Price: 571.10,
		Conviction: domain.ConvictionLow,
	})

	state, err := NewResolver(s, 0).Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Flat())
}
