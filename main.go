package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bcdannyboy/mispricer/config"
	"github.com/bcdannyboy/mispricer/pipeline"
	mispricerslack "github.com/bcdannyboy/mispricer/slack"
	"github.com/bcdannyboy/mispricer/tradier"
)

var (
	configPath string
	logLevel   string

	flagTicker     string
	flagExpiration string
	flagOptionType string
	flagModel      string
	flagThreshold  float64
	flagParallel   bool
	flagWorkers    int
	flagOutput     string
	flagProgress   bool
)

var rootCmd = &cobra.Command{
	Use:   "mispricer",
	Short: "Option mispricing signals and backtests",
	Long: `mispricer prices a listed option chain with Black-Scholes, a CRR binomial
lattice or SABR, flags contracts whose model price deviates from the market mid
by more than a threshold, and books the signals into a simple backtest ledger.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate signals for one chain and backtest them",
	Long: `Fetch the chain, price every quote with the configured model, emit buy/sell
signals and write trades, summary and diagnostics to the results directory.

Examples:
  mispricer run --ticker SPY
  mispricer run --ticker AAPL --expiration 2025-03-21 --model sabr
  mispricer run --parallel --workers 8 --progress`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *pipeline.Runner) error {
			res, err := r.Backtest(ctx, pipeline.Request{})
			if err != nil {
				return err
			}
			s := res.Artifact.Summary
			fmt.Printf("%s %s: %d trades, PnL %.2f, final cash %.2f\n",
				res.Artifact.Ticker, res.Artifact.Expiration, s.NumTrades, s.TotalPnL, s.FinalCash)
			return nil
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare every pricing model against market mid prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *pipeline.Runner) error {
			res, err := r.Compare(ctx, pipeline.Request{})
			if err != nil {
				return err
			}
			return res.Artifact.Comparison.WriteTable(os.Stdout)
		})
	},
}

var slackCmd = &cobra.Command{
	Use:   "slack",
	Short: "Serve /mispricing, /models and /help over Slack socket mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := cfg.RequireSlack(); err != nil {
			return err
		}
		client := tradier.NewClient(cfg.Tradier.Token, cfg.Tradier.BaseURL, cfg.Tradier.Timeout)
		runner := pipeline.NewRunner(cfg, client, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bot := mispricerslack.NewSlackBot(cfg.Slack.AppToken, cfg.Slack.BotToken, cfg.Slack.Debug, runner, logger)
		logger.Info().Msg("Starting Slack bot")
		if err := bot.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mispricer.toml", "Path to TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	for _, c := range []*cobra.Command{runCmd, compareCmd} {
		c.Flags().StringVar(&flagTicker, "ticker", "", "Underlying symbol")
		c.Flags().StringVar(&flagExpiration, "expiration", "", "Expiration date YYYY-MM-DD (default: nearest)")
		c.Flags().StringVar(&flagOptionType, "type", "", "Option type: call or put")
		c.Flags().StringVar(&flagOutput, "output", "", "Results directory")
	}
	runCmd.Flags().StringVar(&flagModel, "model", "", "Pricing model: black_scholes, binomial, sabr")
	runCmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "Relative mispricing threshold")
	runCmd.Flags().BoolVar(&flagParallel, "parallel", false, "Price quotes with a worker pool")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Worker count for --parallel (default: logical CPUs)")
	runCmd.Flags().BoolVar(&flagProgress, "progress", false, "Show a progress bar while pricing in parallel")

	rootCmd.AddCommand(runCmd, compareCmd, slackCmd)
}

// setup loads configuration, applies flags that were set explicitly and builds
// the logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("ticker") {
		cfg.Market.Ticker = flagTicker
	}
	if flags.Changed("expiration") {
		cfg.Market.Expiration = flagExpiration
	}
	if flags.Changed("type") {
		cfg.Market.OptionType = flagOptionType
	}
	if flags.Changed("output") {
		cfg.Output.Dir = flagOutput
	}
	if flags.Changed("model") {
		cfg.Model.Kind = flagModel
	}
	if flags.Changed("threshold") {
		cfg.Strategy.Threshold = flagThreshold
	}
	if flags.Changed("parallel") {
		cfg.Strategy.Parallel = flagParallel
	}
	if flags.Changed("workers") {
		cfg.Strategy.Workers = flagWorkers
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func newLogger(lc config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	var logger zerolog.Logger
	if lc.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

func withRunner(cmd *cobra.Command, fn func(context.Context, *pipeline.Runner) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireTradier(); err != nil {
		return err
	}

	client := tradier.NewClient(cfg.Tradier.Token, cfg.Tradier.BaseURL, cfg.Tradier.Timeout)
	runner := pipeline.NewRunner(cfg, client, logger)
	if flagProgress {
		runner.Progress = os.Stderr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, runner)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
