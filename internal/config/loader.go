package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// envPrefix is prepended to every environment variable the loader reads.
const envPrefix = "ZERODTE_"

// Load reads configuration with the following precedence (lowest to highest):
//  1. Defaults()
//  2. TOML file at path (skipped if path is empty or the file does not exist)
//  3. ZERODTE_* environment variables (a .env file is loaded first if present)
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	// Best effort; a missing .env is not an error.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "LOG_LEVEL")

	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")

	setStr(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POSTGRES_RUN_MIGRATIONS")

	setInt(&cfg.Events.MaxHistory, "EVENTS_MAX_HISTORY")
	setDuration(&cfg.Events.TTL, "EVENTS_TTL")

	setStr(&cfg.Agentd.BaseURL, "AGENTD_BASE_URL")
	setStr(&cfg.Agentd.APIKey, "AGENTD_API_KEY")
	setDuration(&cfg.Agentd.Timeout, "AGENTD_TIMEOUT")

	setStr(&cfg.TwelveData.BaseURL, "TWELVEDATA_BASE_URL")
	setStr(&cfg.TwelveData.APIKey, "TWELVEDATA_API_KEY")

	setDuration(&cfg.Loop.Interval, "LOOP_INTERVAL")
	setDuration(&cfg.Loop.Backoff, "LOOP_BACKOFF")
	setInt(&cfg.Loop.CutoffHour, "LOOP_CUTOFF_HOUR")
	setInt(&cfg.Loop.CutoffMinute, "LOOP_CUTOFF_MINUTE")
	setInt(&cfg.Loop.FullEvery, "LOOP_FULL_EVERY")
	setStr(&cfg.Loop.Timezone, "LOOP_TIMEZONE")

	setStr(&cfg.Swarm.Ticker, "SWARM_TICKER")
	setDuration(&cfg.Swarm.NodeTimeout, "SWARM_NODE_TIMEOUT")
	setDuration(&cfg.Swarm.SetupTimeout, "SWARM_SETUP_TIMEOUT")

	setBool(&cfg.Server.Enabled, "SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
