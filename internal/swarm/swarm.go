// Package swarm assembles the analysis worker graphs and tracks their token
// usage. Two topologies exist: the full six-agent graph for deep analysis
// and a two-specialist fast graph for cheap intraday cycles.
package swarm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
	"github.com/quantfold/zerodte/internal/graph"
)

const (
	defaultNodeTimeout  = 60 * time.Second
	defaultSetupTimeout = 30 * time.Second
)

// Workers holds one worker per agent role. All fields are required.
type Workers struct {
	MarketBreadth domain.Worker
	Setup         domain.Worker
	OrderFlow     domain.Worker
	OptionsFlow   domain.Worker
	FinancialData domain.Worker
	Technicals    domain.Worker
	Coordinator   domain.Worker
}

// Config holds swarm assembly parameters.
type Config struct {
	// Ticker is the symbol every cycle analyzes.
	Ticker string
	// NodeTimeout bounds a single agent invocation.
	NodeTimeout time.Duration
	// SetupTimeout bounds the lightweight setup agent.
	SetupTimeout time.Duration
	// Location is the trading timezone used for date stamps.
	Location *time.Location
}

// Swarm owns the compiled graphs and runs analysis cycles against them.
type Swarm struct {
	cfg     Config
	full    *graph.Graph
	fast    *graph.Graph
	tracker *UsageTracker
	logger  *slog.Logger
	now     func() time.Time
}

// New compiles both graphs. A nil tracker disables usage accounting.
func New(cfg Config, w Workers, tracker *UsageTracker, logger *slog.Logger) (*Swarm, error) {
	if cfg.NodeTimeout <= 0 {
		cfg.NodeTimeout = defaultNodeTimeout
	}
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = defaultSetupTimeout
	}
	if cfg.Ticker == "" {
		cfg.Ticker = "SPY"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	full, err := buildFullGraph(cfg, w)
	if err != nil {
		return nil, fmt.Errorf("swarm: build full graph: %w", err)
	}
	fast, err := buildFastGraph(cfg, w)
	if err != nil {
		return nil, fmt.Errorf("swarm: build fast graph: %w", err)
	}

	return &Swarm{
		cfg:     cfg,
		full:    full,
		fast:    fast,
		tracker: tracker,
		logger:  logger.With(slog.String("component", "swarm")),
		now:     time.Now,
	}, nil
}

// buildFullGraph wires the deep-analysis topology:
// market_breadth -> setup -> {order_flow, options_flow, financial_data} -> coordinator.
func buildFullGraph(cfg Config, w Workers) (*graph.Graph, error) {
	b := graph.NewBuilder()
	b.AddNode("market_breadth", w.MarketBreadth, cfg.NodeTimeout)
	b.AddNode("setup", w.Setup, cfg.SetupTimeout)
	b.AddNode("order_flow", w.OrderFlow, cfg.NodeTimeout)
	b.AddNode("options_flow", w.OptionsFlow, cfg.NodeTimeout)
	b.AddNode("financial_data", w.FinancialData, cfg.NodeTimeout)
	b.AddNode("coordinator", w.Coordinator, cfg.NodeTimeout)

	b.AddEdge("market_breadth", "setup")
	b.AddEdge("setup", "order_flow")
	b.AddEdge("setup", "options_flow")
	b.AddEdge("setup", "financial_data")
	b.AddEdge("order_flow", "coordinator")
	b.AddEdge("options_flow", "coordinator")
	b.AddEdge("financial_data", "coordinator")

	return b.Build()
}

// buildFastGraph wires the cheap topology: {order_flow, technicals} -> coordinator.
func buildFastGraph(cfg Config, w Workers) (*graph.Graph, error) {
	b := graph.NewBuilder()
	b.AddNode("order_flow", w.OrderFlow, cfg.NodeTimeout)
	b.AddNode("technicals", w.Technicals, cfg.NodeTimeout)
	b.AddNode("coordinator", w.Coordinator, cfg.NodeTimeout)

	b.AddEdge("order_flow", "coordinator")
	b.AddEdge("technicals", "coordinator")

	return b.Build()
}

// Analyze runs one cycle at the given depth and returns the execution report.
// Usage accounting failures are logged, never returned; an analysis that
// completed is worth more than its token ledger.
func (s *Swarm) Analyze(ctx context.Context, task string, depth domain.OperatingMode) (*graph.Report, error) {
	g := s.fast
	if depth == domain.ModeFull {
		g = s.full
	}

	date := s.now().In(s.cfg.Location).Format("2006-01-02")
	shared := map[string]string{
		"ticker": s.cfg.Ticker,
		"date":   date,
	}

	prompt := buildPrompt(depth, task, s.cfg.Ticker, date)

	report, err := g.Execute(ctx, prompt, shared)
	if err != nil {
		return nil, err
	}

	if s.tracker != nil {
		for name, res := range report.Results {
			s.tracker.Record(name, res.InputTokens, res.OutputTokens)
		}
		if _, err := s.tracker.Finish(ctx, string(depth), report.TotalLatency.Seconds()); err != nil {
			s.logger.Warn("usage tracking failed", slog.String("error", err.Error()))
		}
	}

	return report, nil
}
