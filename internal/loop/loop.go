// Package loop runs the continuous analysis cycle: compose a task from the
// current position and operator focus, run the swarm, publish the outcome,
// sleep, repeat until the market close cutoff.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
	"github.com/quantfold/zerodte/internal/graph"
	"github.com/quantfold/zerodte/internal/notify"
	"github.com/quantfold/zerodte/internal/trade"
)

const (
	defaultInterval  = 60 * time.Second
	defaultBackoff   = 5 * time.Second
	defaultFullEvery = 5
	defaultCutoffHr  = 13

	// errContentMax bounds how much of a failure message lands on the feed.
	errContentMax = 500
)

// Analyzer runs one swarm cycle at the requested depth.
type Analyzer interface {
	Analyze(ctx context.Context, task string, depth domain.OperatingMode) (*graph.Report, error)
}

// StateResolver reconstructs the current trade state from the feed.
type StateResolver interface {
	Resolve(ctx context.Context) (domain.TradeState, error)
}

// Config holds loop timing parameters.
type Config struct {
	// Interval between successful cycles.
	Interval time.Duration
	// Backoff before resuming after a failed cycle.
	Backoff time.Duration
	// CutoffHour/CutoffMinute is the local wall-clock stop time.
	CutoffHour   int
	CutoffMinute int
	// FullEvery forces a full-depth cycle after this many fast cycles in
	// auto mode.
	FullEvery int
	// Location is the trading timezone.
	Location *time.Location
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	if c.CutoffHour == 0 && c.CutoffMinute == 0 {
		c.CutoffHour = defaultCutoffHr
	}
	if c.FullEvery <= 0 {
		c.FullEvery = defaultFullEvery
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Loop is the continuous controller. It is not safe for concurrent Run calls.
type Loop struct {
	cfg      Config
	stream   domain.EventStream
	control  domain.ControlStore
	resolver StateResolver
	analyzer Analyzer
	notifier *notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	// Auto-depth bookkeeping, reset as cycles complete.
	firstCycle     bool
	forceFull      bool
	fastStreak     int
	lastDirection  domain.Direction
	lastConviction domain.Conviction
	justClosed     bool
}

// New creates a Loop. notifier may be nil.
func New(cfg Config, stream domain.EventStream, control domain.ControlStore,
	resolver StateResolver, analyzer Analyzer, notifier *notify.Notifier, logger *slog.Logger) *Loop {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:        cfg,
		stream:     stream,
		control:    control,
		resolver:   resolver,
		analyzer:   analyzer,
		notifier:   notifier,
		logger:     logger.With(slog.String("component", "loop")),
		now:        time.Now,
		firstCycle: true,
	}
}

// Run executes cycles until the cutoff or ctx cancellation. A failed cycle
// never ends the loop: the failure is published, the loop backs off and
// resumes with a recovery task. Run returns nil only on the clean cutoff.
func (l *Loop) Run(ctx context.Context) error {
	resume := false
	for {
		err := l.session(ctx, resume)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		l.logger.Error("cycle failed, backing off",
			slog.String("error", err.Error()),
			slog.Duration("backoff", l.cfg.Backoff),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.Backoff):
		}
		resume = true
	}
}

// session iterates until cutoff (nil) or the first failed cycle (error).
func (l *Loop) session(ctx context.Context, resume bool) error {
	for {
		now := l.now().In(l.cfg.Location)
		if l.pastCutoff(now) {
			l.logger.Info("market close cutoff reached, stopping",
				slog.String("time", now.Format("15:04:05")),
			)
			return nil
		}

		if err := l.iterate(ctx, resume); err != nil {
			return err
		}
		resume = false

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.Interval):
		}
	}
}

func (l *Loop) iterate(ctx context.Context, resume bool) error {
	mode, err := l.control.Mode(ctx)
	if err != nil {
		return fmt.Errorf("loop: read mode: %w", err)
	}
	focus, err := l.control.Focus(ctx)
	if err != nil {
		return fmt.Errorf("loop: read focus: %w", err)
	}
	state, err := l.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	depth := l.chooseDepth(mode)
	task := l.composeTask(resume, focus, state)

	if err := l.stream.Append(ctx, domain.EventRecord{
		Type:    domain.EventQuestion,
		Content: task,
	}); err != nil {
		return fmt.Errorf("loop: publish question: %w", err)
	}

	l.logger.Info("cycle start",
		slog.String("mode", string(mode)),
		slog.String("depth", string(depth)),
		slog.Bool("in_trade", state.InTrade),
	)

	report, err := l.analyzer.Analyze(ctx, task, depth)
	if err != nil {
		if pubErr := l.stream.Append(ctx, domain.EventRecord{
			Type:    domain.EventError,
			Content: truncate(err.Error(), errContentMax),
		}); pubErr != nil {
			l.logger.Warn("error publish failed", slog.String("error", pubErr.Error()))
		}
		return fmt.Errorf("loop: analyze: %w", err)
	}

	sig, found := trade.ExtractSignal(report.FinalText)
	sig.LatencySeconds = report.TotalLatency.Seconds()
	if found {
		l.observeSignal(ctx, sig)
	}

	if err := l.stream.Append(ctx, domain.EventRecord{
		Type:    domain.EventResponse,
		Content: report.FinalText,
		Signal:  &sig,
	}); err != nil {
		return fmt.Errorf("loop: publish response: %w", err)
	}

	l.logger.Info("cycle done",
		slog.String("action", string(sig.Action)),
		slog.String("conviction", string(sig.Conviction)),
		slog.Int("completed", report.Completed),
		slog.Int("total", report.Total),
		slog.Float64("latency_sec", sig.LatencySeconds),
	)
	return nil
}

// observeSignal updates flip and conviction bookkeeping from a parsed signal.
func (l *Loop) observeSignal(ctx context.Context, sig domain.Signal) {
	if sig.Action == domain.DirectionExit {
		l.justClosed = true
	}

	if sig.Action.Directional() {
		if l.lastDirection.Directional() && sig.Action != l.lastDirection {
			flip := fmt.Sprintf("%s → %s", l.lastDirection, sig.Action)
			if err := l.stream.Append(ctx, domain.EventRecord{
				Type:    domain.EventSignalUpdate,
				Content: flip,
				Signal:  &sig,
			}); err != nil {
				l.logger.Warn("flip publish failed", slog.String("error", err.Error()))
			}
			if l.notifier != nil {
				if err := l.notifier.FlipAlert(ctx, l.lastDirection, sig.Action, sig); err != nil {
					l.logger.Warn("flip alert failed", slog.String("error", err.Error()))
				}
			}
			// A reversal deserves a deep look next cycle.
			l.forceFull = true
		}
		l.lastDirection = sig.Action
		l.justClosed = false
	}

	if sig.Conviction != "" {
		if convictionRank(sig.Conviction) < convictionRank(l.lastConviction) {
			l.forceFull = true
		}
		l.lastConviction = sig.Conviction
	}
}

// chooseDepth maps the operating mode to a concrete depth for this cycle.
func (l *Loop) chooseDepth(mode domain.OperatingMode) domain.OperatingMode {
	switch mode {
	case domain.ModeFull:
		return domain.ModeFull
	case domain.ModeAuto:
		if l.firstCycle || l.forceFull || l.fastStreak >= l.cfg.FullEvery {
			l.firstCycle = false
			l.forceFull = false
			l.fastStreak = 0
			return domain.ModeFull
		}
		l.fastStreak++
		return domain.ModeFast
	default:
		return domain.ModeFast
	}
}

func (l *Loop) composeTask(resume bool, focus string, state domain.TradeState) string {
	now := l.now().In(l.cfg.Location)

	var b strings.Builder
	if resume {
		b.WriteString("Resume monitoring after an interrupted cycle. Re-establish context from the position below. ")
	}
	if focus != "" {
		fmt.Fprintf(&b, "Validate this thesis and report whether it still holds: %s", focus)
	} else {
		b.WriteString("Scan the market for fresh 0DTE setups and manage any open position.")
	}

	fmt.Fprintf(&b, "\n\nTime: %s.", now.Format("15:04:05 MST"))
	if marketOpen(now) {
		b.WriteString(" Market is open.")
	} else {
		b.WriteString(" Market is closed; analysis is preparatory only.")
	}

	if state.InTrade {
		fmt.Fprintf(&b, "\nPosition: %s", state.Summary())
	} else if l.justClosed {
		b.WriteString("\nPosition: just closed. Scan for the next setup; do not anchor on the previous trade.")
	} else {
		fmt.Fprintf(&b, "\nPosition: %s", state.Summary())
	}

	return b.String()
}

func (l *Loop) pastCutoff(now time.Time) bool {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(),
		l.cfg.CutoffHour, l.cfg.CutoffMinute, 0, 0, l.cfg.Location)
	return !now.Before(cutoff)
}

func convictionRank(c domain.Conviction) int {
	switch c {
	case domain.ConvictionHigh:
		return 3
	case domain.ConvictionMed:
		return 2
	case domain.ConvictionLow:
		return 1
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
