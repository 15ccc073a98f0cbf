package swarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/zerodte/internal/domain"
)

func stubWorker(name string) domain.Worker {
	return domain.WorkerFunc(func(_ context.Context, _ string, _ map[string]string) (domain.WorkerResult, error) {
		return domain.WorkerResult{Text: name + " report", InputTokens: 10, OutputTokens: 5}, nil
	})
}

func testWorkers() Workers {
	return Workers{
		MarketBreadth: stubWorker("market_breadth"),
		Setup:         stubWorker("setup"),
		OrderFlow:     stubWorker("order_flow"),
		OptionsFlow:   stubWorker("options_flow"),
		FinancialData: stubWorker("financial_data"),
		Technicals:    stubWorker("technicals"),
		Coordinator:   stubWorker("coordinator"),
	}
}

func TestAnalyzeFastDepth(t *testing.T) {
	s, err := New(Config{Ticker: "SPY"}, testWorkers(), nil, nil)
	require.NoError(t, err)

	report, err := s.Analyze(context.Background(), "scan for setups", domain.ModeFast)
	require.NoError(t, err)
	assert.Len(t, report.Results, 3)
	assert.Contains(t, report.Results, "technicals")
	assert.NotContains(t, report.Results, "market_breadth")
	assert.Equal(t, "coordinator report", report.FinalText)
}

func TestAnalyzeFullDepth(t *testing.T) {
	s, err := New(Config{Ticker: "SPY"}, testWorkers(), nil, nil)
	require.NoError(t, err)

	report, err := s.Analyze(context.Background(), "deep dive", domain.ModeFull)
	require.NoError(t, err)
	assert.Len(t, report.Results, 6)
	assert.Equal(t, 60, report.TotalInputTokens)
	assert.Equal(t, "coordinator report", report.FinalText)
}

func TestAnalyzeRecordsUsage(t *testing.T) {
	store := &fakeUsageStore{}
	tracker := NewUsageTracker(store, nil, time.UTC)

	s, err := New(Config{Ticker: "SPY"}, testWorkers(), tracker, nil)
	require.NoError(t, err)

	_, err = s.Analyze(context.Background(), "scan", domain.ModeFast)
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	cycle := store.saved[0]
	assert.Equal(t, "fast", cycle.Mode)
	assert.Equal(t, 30, cycle.TotalInput)
	assert.Len(t, cycle.Agents, 3)
}

func TestAnalyzePromptCarriesTickerAndTask(t *testing.T) {
	var seenTask string
	workers := testWorkers()
	workers.Coordinator = domain.WorkerFunc(func(_ context.Context, task string, shared map[string]string) (domain.WorkerResult, error) {
		seenTask = task
		return domain.WorkerResult{Text: "ok"}, nil
	})

	s, err := New(Config{Ticker: "NVDA"}, workers, nil, nil)
	require.NoError(t, err)

	_, err = s.Analyze(context.Background(), "validate breakout thesis", domain.ModeFast)
	require.NoError(t, err)
	assert.Contains(t, seenTask, "NVDA")
	assert.Contains(t, seenTask, "validate breakout thesis")
}
