package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "MISPRICER_") || key == "TRADIER_KEY" {
			t.Setenv(key, "")
		}
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.2, cfg.Strategy.Threshold)
	assert.Equal(t, 0.5, cfg.Market.MinBid)
	assert.Equal(t, 0.1, cfg.Market.StrikeWindow)
	assert.Equal(t, 100000.0, cfg.Backtest.StartingCash)
	assert.Equal(t, 1.0, cfg.Backtest.PositionSize)
	assert.Equal(t, 0.04, cfg.Model.Parameters.RiskFreeRate)
	assert.Equal(t, 100, cfg.Model.Parameters.Steps)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "mispricer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[market]
ticker = "SPY"
option_type = "put"
strike_window = 0.05

[model]
kind = "sabr"

[model.parameters]
risk_free_rate = 0.03
steps = 250
alpha = 0.25
beta = 0.7
rho = -0.1
nu = 0.4

[strategy]
threshold = 0.15
parallel = true
workers = 4
`), 0o644))

	t.Setenv("MISPRICER_TICKER", "QQQ")
	t.Setenv("MISPRICER_TRADIER_TOKEN", "secret")
	t.Setenv("MISPRICER_TRADIER_TIMEOUT", "3s")
	t.Setenv("MISPRICER_THRESHOLD", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "QQQ", cfg.Market.Ticker)
	assert.Equal(t, "put", cfg.Market.OptionType)
	assert.Equal(t, 0.05, cfg.Market.StrikeWindow)
	assert.Equal(t, 0.5, cfg.Market.MinBid, "unset keys keep their defaults")
	assert.Equal(t, "sabr", cfg.Model.Kind)
	assert.Equal(t, 250, cfg.Model.Parameters.Steps)
	assert.Equal(t, 0.7, cfg.Model.Parameters.Beta)
	assert.Equal(t, 0.15, cfg.Strategy.Threshold, "unparsable override is ignored")
	assert.True(t, cfg.Strategy.Parallel)
	assert.Equal(t, 4, cfg.Strategy.Workers)
	assert.Equal(t, "secret", cfg.Tradier.Token)
	assert.Equal(t, 3*time.Second, cfg.Tradier.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[market\nticker = "), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLegacyTradierKey(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("TRADIER_KEY", "legacy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Tradier.Token)
	assert.NoError(t, cfg.RequireTradier())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no ticker", func(c *Config) { c.Market.Ticker = "" }, "market.ticker"},
		{"bad expiration", func(c *Config) { c.Market.Expiration = "12/19/2025" }, "market.expiration"},
		{"bad option type", func(c *Config) { c.Market.OptionType = "straddle" }, "market.option_type"},
		{"negative min bid", func(c *Config) { c.Market.MinBid = -1 }, "market.min_bid"},
		{"window too wide", func(c *Config) { c.Market.StrikeWindow = 1 }, "market.strike_window"},
		{"unknown model", func(c *Config) { c.Model.Kind = "heston" }, "model.kind"},
		{"zero steps", func(c *Config) { c.Model.Kind = "binomial"; c.Model.Parameters.Steps = 0 }, "model.parameters"},
		{"bad sabr beta", func(c *Config) { c.Model.Kind = "sabr"; c.Model.Parameters.Beta = 2 }, "model.parameters"},
		{"zero threshold", func(c *Config) { c.Strategy.Threshold = 0 }, "strategy.threshold"},
		{"negative workers", func(c *Config) { c.Strategy.Workers = -2 }, "strategy.workers"},
		{"zero position", func(c *Config) { c.Backtest.PositionSize = 0 }, "backtest.position_size"},
		{"zero timeout", func(c *Config) { c.Tradier.Timeout = 0 }, "tradier.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Market.Ticker = ""
	cfg.Strategy.Threshold = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market.ticker")
	assert.Contains(t, err.Error(), "strategy.threshold")
}

func TestRequireCredentials(t *testing.T) {
	cfg := Defaults()
	assert.Error(t, cfg.RequireTradier())
	assert.Error(t, cfg.RequireSlack())

	cfg.Slack.AppToken = "xapp"
	assert.Error(t, cfg.RequireSlack())
	cfg.Slack.BotToken = "xoxb"
	assert.NoError(t, cfg.RequireSlack())
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
