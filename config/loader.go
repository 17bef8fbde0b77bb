package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path over Defaults, then applies MISPRICER_*
// environment overrides (after loading .env when present). An empty path or a
// missing file leaves the defaults in place. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Tradier.Token, "TRADIER_KEY") // name used by older .env files
	setStr(&cfg.Tradier.Token, "MISPRICER_TRADIER_TOKEN")
	setStr(&cfg.Tradier.BaseURL, "MISPRICER_TRADIER_BASE_URL")
	setDuration(&cfg.Tradier.Timeout, "MISPRICER_TRADIER_TIMEOUT")

	setStr(&cfg.Market.Ticker, "MISPRICER_TICKER")
	setStr(&cfg.Market.Expiration, "MISPRICER_EXPIRATION")
	setStr(&cfg.Market.OptionType, "MISPRICER_OPTION_TYPE")
	setFloat(&cfg.Market.MinBid, "MISPRICER_MIN_BID")
	setFloat(&cfg.Market.StrikeWindow, "MISPRICER_STRIKE_WINDOW")

	setStr(&cfg.Model.Kind, "MISPRICER_MODEL")
	setFloat(&cfg.Model.Parameters.RiskFreeRate, "MISPRICER_RISK_FREE_RATE")
	setInt(&cfg.Model.Parameters.Steps, "MISPRICER_BINOMIAL_STEPS")

	setFloat(&cfg.Strategy.Threshold, "MISPRICER_THRESHOLD")
	setFloat(&cfg.Backtest.StartingCash, "MISPRICER_STARTING_CASH")
	setFloat(&cfg.Backtest.PositionSize, "MISPRICER_POSITION_SIZE")
	setStr(&cfg.Output.Dir, "MISPRICER_OUTPUT_DIR")

	setStr(&cfg.Slack.AppToken, "MISPRICER_SLACK_APP_TOKEN")
	setStr(&cfg.Slack.BotToken, "MISPRICER_SLACK_BOT_TOKEN")

	setStr(&cfg.Log.Level, "MISPRICER_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
