package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "SPY", cfg.Swarm.Ticker)
	assert.Equal(t, 13, cfg.Loop.CutoffHour)
	assert.Equal(t, 60*time.Second, cfg.Loop.Interval.Duration)
	assert.Equal(t, 500, cfg.Events.MaxHistory)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Loop.CutoffHour = 26
	cfg.Swarm.Ticker = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "cutoff_hour")
	assert.Contains(t, err.Error(), "swarm: ticker")
}

func TestValidateTelegramPairing(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "tok"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")

	cfg.Notify.TelegramChatID = "123"
	require.NoError(t, cfg.Validate())
}

func TestValidatePostgresPool(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://localhost/zerodte"
	cfg.Postgres.PoolMinConns = 10
	cfg.Postgres.PoolMaxConns = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool_min_conns")
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
log_level = "debug"

[loop]
interval = "30s"
timezone = "America/New_York"

[swarm]
ticker = "QQQ"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	t.Setenv("ZERODTE_SWARM_TICKER", "IWM")
	t.Setenv("ZERODTE_LOOP_CUTOFF_MINUTE", "30")
	t.Setenv("ZERODTE_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Loop.Interval.Duration)
	assert.Equal(t, "America/New_York", cfg.Loop.Timezone)
	// Env beats file.
	assert.Equal(t, "IWM", cfg.Swarm.Ticker)
	assert.Equal(t, 30, cfg.Loop.CutoffMinute)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Swarm.Ticker, cfg.Swarm.Ticker)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Defaults()
	cfg.Loop.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}
