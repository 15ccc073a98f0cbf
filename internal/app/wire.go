package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantfold/zerodte/internal/cache/redis"
	"github.com/quantfold/zerodte/internal/config"
	"github.com/quantfold/zerodte/internal/domain"
	"github.com/quantfold/zerodte/internal/notify"
	"github.com/quantfold/zerodte/internal/platform/agentd"
	"github.com/quantfold/zerodte/internal/platform/twelvedata"
	"github.com/quantfold/zerodte/internal/store/postgres"
	"github.com/quantfold/zerodte/internal/swarm"
	"github.com/quantfold/zerodte/internal/trade"
)

// Dependencies bundles every component the running copilot needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Cache    *redis.Client
	Stream   domain.EventStream
	Control  domain.ControlStore
	Usage    domain.UsageStore
	Archive  domain.UsageArchive // nil when Postgres is not configured
	Resolver *trade.Resolver
	Swarm    *swarm.Swarm
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	loc := cfg.Location()

	// Redis backs the feed, control plane, and token cache. Unreachable
	// Redis is fatal at startup.
	cache, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = cache.Close() })
	deps.Cache = cache

	stream := redis.NewEventStream(cache, redis.EventStreamConfig{
		MaxHistory: cfg.Events.MaxHistory,
		HistoryTTL: cfg.Events.TTL.Duration,
	})
	deps.Stream = stream
	deps.Control = redis.NewControlStore(cache)
	deps.Usage = redis.NewUsageStore(cache)

	// Every process start is a fresh session: prior feed history is
	// discarded and connected clients see a new session id.
	sessionID, err := stream.ResetSession(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: reset session: %w", err)
	}
	logger.InfoContext(ctx, "session started", slog.String("session_id", sessionID))

	// Optional usage archive.
	if cfg.Postgres.DSN != "" {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Archive = postgres.NewUsageStore(pg.Pool())
	}

	// Notifications.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	// Analysis graph. The technicals node is served locally from market
	// data rather than by a remote agent.
	agents := agentd.NewClient(cfg.Agentd.BaseURL, cfg.Agentd.APIKey, cfg.Agentd.Timeout.Duration)
	td := twelvedata.NewClient(cfg.TwelveData.BaseURL, cfg.TwelveData.APIKey)

	tracker := swarm.NewUsageTracker(deps.Usage, deps.Archive, loc)
	workers := swarm.Workers{
		MarketBreadth: agents.Worker("market_breadth"),
		Setup:         agents.Worker("setup"),
		OrderFlow:     agents.Worker("order_flow"),
		OptionsFlow:   agents.Worker("options_flow"),
		FinancialData: agents.Worker("financial_data"),
		Technicals:    swarm.NewSnapshotWorker(td, stream, cfg.Swarm.Ticker, loc, logger),
		Coordinator:   agents.Worker("coordinator"),
	}
	sw, err := swarm.New(swarm.Config{
		Ticker:       cfg.Swarm.Ticker,
		NodeTimeout:  cfg.Swarm.NodeTimeout.Duration,
		SetupTimeout: cfg.Swarm.SetupTimeout.Duration,
		Location:     loc,
	}, workers, tracker, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: swarm: %w", err)
	}
	deps.Swarm = sw

	deps.Resolver = trade.NewResolver(stream, 0)

	return deps, cleanup, nil
}
