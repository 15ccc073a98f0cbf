// Package app provides the top-level application lifecycle for the zero-DTE
// copilot. It wires together the cache, stores, analysis swarm, control loop,
// and API server, and runs them until shutdown or the daily cutoff.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfold/zerodte/internal/config"
	"github.com/quantfold/zerodte/internal/loop"
	"github.com/quantfold/zerodte/internal/server"
	"github.com/quantfold/zerodte/internal/server/handler"
	"github.com/quantfold/zerodte/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and runs the control loop, WebSocket hub, and
// HTTP server until the context is cancelled. The control loop ending at the
// daily cutoff does not stop the server; operators can still replay the feed
// after hours.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting copilot",
		slog.String("ticker", a.cfg.Swarm.Ticker),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	loc := a.cfg.Location()

	ctl := loop.New(loop.Config{
		Interval:     a.cfg.Loop.Interval.Duration,
		Backoff:      a.cfg.Loop.Backoff.Duration,
		CutoffHour:   a.cfg.Loop.CutoffHour,
		CutoffMinute: a.cfg.Loop.CutoffMinute,
		FullEvery:    a.cfg.Loop.FullEvery,
		Location:     loc,
	}, deps.Stream, deps.Control, deps.Resolver, deps.Swarm, deps.Notifier, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ctl.Run(ctx); err != nil {
			return fmt.Errorf("app: control loop: %w", err)
		}
		a.logger.Info("control loop finished for the day")
		return nil
	})

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.Stream, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})

		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, server.Handlers{
			Health:  handler.NewHealthHandler(deps.Cache, a.logger),
			Events:  handler.NewEventsHandler(deps.Stream, a.logger),
			State:   handler.NewStateHandler(deps.Resolver, a.logger),
			Control: handler.NewControlHandler(deps.Control, a.logger),
			Usage:   handler.NewUsageHandler(deps.Usage, loc, a.logger),
		}, hub, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down copilot")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
