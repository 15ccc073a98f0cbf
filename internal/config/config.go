// Package config defines the top-level configuration for the zero-DTE
// copilot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ZERODTE_* environment variables.
type Config struct {
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Events     EventsConfig     `toml:"events"`
	Agentd     AgentdConfig     `toml:"agentd"`
	TwelveData TwelveDataConfig `toml:"twelvedata"`
	Loop       LoopConfig       `toml:"loop"`
	Swarm      SwarmConfig      `toml:"swarm"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds the optional usage archive database. An empty DSN
// disables archival; the copilot runs cache-only.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// EventsConfig bounds the event feed history.
type EventsConfig struct {
	MaxHistory int      `toml:"max_history"`
	TTL        duration `toml:"ttl"`
}

// AgentdConfig holds the agent daemon endpoint.
type AgentdConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Timeout duration `toml:"timeout"`
}

// TwelveDataConfig holds the market data API credentials.
type TwelveDataConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// LoopConfig holds control-loop timing.
type LoopConfig struct {
	Interval     duration `toml:"interval"`
	Backoff      duration `toml:"backoff"`
	CutoffHour   int      `toml:"cutoff_hour"`
	CutoffMinute int      `toml:"cutoff_minute"`
	FullEvery    int      `toml:"full_every"`
	Timezone     string   `toml:"timezone"`
}

// SwarmConfig holds graph assembly parameters.
type SwarmConfig struct {
	Ticker       string   `toml:"ticker"`
	NodeTimeout  duration `toml:"node_timeout"`
	SetupTimeout duration `toml:"setup_timeout"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			DSN:           "",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Events: EventsConfig{
			MaxHistory: 500,
			TTL:        duration{8 * time.Hour},
		},
		Agentd: AgentdConfig{
			BaseURL: "http://localhost:8700",
			Timeout: duration{90 * time.Second},
		},
		TwelveData: TwelveDataConfig{
			BaseURL: "https://api.twelvedata.com",
		},
		Loop: LoopConfig{
			Interval:   duration{60 * time.Second},
			Backoff:    duration{5 * time.Second},
			CutoffHour: 13,
			FullEvery:  5,
			Timezone:   "America/Los_Angeles",
		},
		Swarm: SwarmConfig{
			Ticker:       "SPY",
			NodeTimeout:  duration{60 * time.Second},
			SetupTimeout: duration{30 * time.Second},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Redis backs the feed and control plane; it is not optional.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Postgres.DSN != "" {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Events.MaxHistory < 1 {
		errs = append(errs, "events: max_history must be >= 1")
	}
	if c.Events.TTL.Duration <= 0 {
		errs = append(errs, "events: ttl must be positive")
	}

	if c.Agentd.BaseURL == "" {
		errs = append(errs, "agentd: base_url must not be empty")
	}

	if c.Loop.Interval.Duration <= 0 {
		errs = append(errs, "loop: interval must be positive")
	}
	if c.Loop.CutoffHour < 0 || c.Loop.CutoffHour > 23 {
		errs = append(errs, fmt.Sprintf("loop: cutoff_hour must be 0-23, got %d", c.Loop.CutoffHour))
	}
	if c.Loop.CutoffMinute < 0 || c.Loop.CutoffMinute > 59 {
		errs = append(errs, fmt.Sprintf("loop: cutoff_minute must be 0-59, got %d", c.Loop.CutoffMinute))
	}
	if c.Loop.FullEvery < 1 {
		errs = append(errs, "loop: full_every must be >= 1")
	}
	if _, err := time.LoadLocation(c.Loop.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("loop: unknown timezone %q", c.Loop.Timezone))
	}

	if c.Swarm.Ticker == "" {
		errs = append(errs, "swarm: ticker must not be empty")
	}
	if c.Swarm.NodeTimeout.Duration <= 0 {
		errs = append(errs, "swarm: node_timeout must be positive")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Telegram needs both halves of its credential pair.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location resolves the configured trading timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Loop.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
