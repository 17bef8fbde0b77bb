package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bcdannyboy/mispricer/backtest"
	"github.com/bcdannyboy/mispricer/models"
)

type Config struct {
	Tradier  TradierConfig  `toml:"tradier"`
	Market   MarketConfig   `toml:"market"`
	Model    ModelConfig    `toml:"model"`
	Strategy StrategyConfig `toml:"strategy"`
	Backtest BacktestConfig `toml:"backtest"`
	Output   OutputConfig   `toml:"output"`
	Slack    SlackConfig    `toml:"slack"`
	Log      LogConfig      `toml:"log"`
}

type TradierConfig struct {
	Token   string        `toml:"token"`
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

type MarketConfig struct {
	Ticker       string  `toml:"ticker"`
	Expiration   string  `toml:"expiration"` // empty selects the nearest expiration
	OptionType   string  `toml:"option_type"`
	MinBid       float64 `toml:"min_bid"`
	StrikeWindow float64 `toml:"strike_window"`
}

type ModelConfig struct {
	Kind       string            `toml:"kind"`
	Parameters models.Parameters `toml:"parameters"`
}

type StrategyConfig struct {
	Threshold float64 `toml:"threshold"`
	Parallel  bool    `toml:"parallel"`
	Workers   int     `toml:"workers"`
}

type BacktestConfig struct {
	StartingCash float64 `toml:"starting_cash"`
	PositionSize float64 `toml:"position_size"`
}

type OutputConfig struct {
	Dir string `toml:"dir"`
}

type SlackConfig struct {
	AppToken string `toml:"app_token"`
	BotToken string `toml:"bot_token"`
	Debug    bool   `toml:"debug"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Defaults mirrors the constants the original driver ran with.
func Defaults() Config {
	return Config{
		Tradier: TradierConfig{
			BaseURL: "https://api.tradier.com",
			Timeout: 15 * time.Second,
		},
		Market: MarketConfig{
			Ticker:       "AAPL",
			OptionType:   string(models.Call),
			MinBid:       0.5,
			StrikeWindow: 0.1,
		},
		Model: ModelConfig{
			Kind:       string(models.KindBlackScholes),
			Parameters: models.DefaultParameters(),
		},
		Strategy: StrategyConfig{
			Threshold: 0.2,
		},
		Backtest: BacktestConfig{
			StartingCash: backtest.DefaultStartingCash,
			PositionSize: backtest.DefaultPositionSize,
		},
		Output: OutputConfig{Dir: "results"},
		Log:    LogConfig{Level: "info", Pretty: true},
	}
}

// Validate checks every field the pipeline depends on and reports all
// problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Market.Ticker == "" {
		errs = append(errs, errors.New("market.ticker is required"))
	}
	if c.Market.Expiration != "" {
		if _, err := time.Parse("2006-01-02", c.Market.Expiration); err != nil {
			errs = append(errs, fmt.Errorf("market.expiration: %w", err))
		}
	}
	if _, err := models.ParseOptionType(c.Market.OptionType); err != nil {
		errs = append(errs, fmt.Errorf("market.option_type: %w", err))
	}
	if c.Market.MinBid < 0 {
		errs = append(errs, errors.New("market.min_bid must be non-negative"))
	}
	if c.Market.StrikeWindow <= 0 || c.Market.StrikeWindow >= 1 {
		errs = append(errs, errors.New("market.strike_window must be in (0, 1)"))
	}
	if kind, err := models.ParseModelKind(c.Model.Kind); err != nil {
		errs = append(errs, fmt.Errorf("model.kind: %w", err))
	} else if _, err := models.NewModel(kind, c.Model.Parameters); err != nil {
		errs = append(errs, fmt.Errorf("model.parameters: %w", err))
	}
	if c.Strategy.Threshold <= 0 {
		errs = append(errs, errors.New("strategy.threshold must be positive"))
	}
	if c.Strategy.Workers < 0 {
		errs = append(errs, errors.New("strategy.workers must be non-negative"))
	}
	if c.Backtest.PositionSize <= 0 {
		errs = append(errs, errors.New("backtest.position_size must be positive"))
	}
	if c.Tradier.Timeout <= 0 {
		errs = append(errs, errors.New("tradier.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// RequireTradier reports a missing API token; only commands that fetch quotes
// call it.
func (c *Config) RequireTradier() error {
	if c.Tradier.Token == "" {
		return errors.New("tradier token is required (set MISPRICER_TRADIER_TOKEN or TRADIER_KEY)")
	}
	return nil
}

func (c *Config) RequireSlack() error {
	if c.Slack.AppToken == "" || c.Slack.BotToken == "" {
		return errors.New("slack app and bot tokens are required (MISPRICER_SLACK_APP_TOKEN, MISPRICER_SLACK_BOT_TOKEN)")
	}
	return nil
}
