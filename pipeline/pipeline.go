package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bcdannyboy/mispricer/backtest"
	"github.com/bcdannyboy/mispricer/config"
	"github.com/bcdannyboy/mispricer/models"
	"github.com/bcdannyboy/mispricer/report"
	"github.com/bcdannyboy/mispricer/signals"
	"github.com/bcdannyboy/mispricer/tradier"
)

const dateLayout = "2006-01-02"

// QuoteSource yields a cleaned chain for one symbol and expiration.
// *tradier.Client satisfies it.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, symbol, expiration string, f tradier.Filter, now time.Time) (*tradier.QuoteSet, error)
}

// Request overrides the configured ticker and expiration for a single run.
// Empty fields fall back to the configuration.
type Request struct {
	Ticker     string
	Expiration string
}

type BacktestResult struct {
	Artifact *report.BacktestArtifact
	Path     string // empty when no output directory is configured
	Dropped  int
}

type CompareResult struct {
	Artifact *report.ComparisonArtifact
	Path     string
	Dropped  int
}

type Runner struct {
	cfg      *config.Config
	source   QuoteSource
	writer   *report.Writer
	logger   zerolog.Logger
	Progress io.Writer // progress bar target for parallel pricing, nil disables it
	Now      func() time.Time
}

func NewRunner(cfg *config.Config, source QuoteSource, logger zerolog.Logger) *Runner {
	var w *report.Writer
	if cfg.Output.Dir != "" {
		w = report.NewWriter(cfg.Output.Dir)
	}
	return &Runner{
		cfg:    cfg,
		source: source,
		writer: w,
		logger: logger,
		Now:    time.Now,
	}
}

type marketData struct {
	ticker     string
	expiration string
	optionType models.OptionType
	set        *tradier.QuoteSet
	mctx       models.MarketContext
}

func (r *Runner) load(ctx context.Context, req Request) (*marketData, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		ticker = r.cfg.Market.Ticker
	}
	expiration := req.Expiration
	if expiration == "" {
		expiration = r.cfg.Market.Expiration
	}
	optionType, err := models.ParseOptionType(r.cfg.Market.OptionType)
	if err != nil {
		return nil, err
	}

	now := r.Now()
	filter := tradier.Filter{
		OptionType:   optionType,
		MinBid:       r.cfg.Market.MinBid,
		StrikeWindow: r.cfg.Market.StrikeWindow,
	}
	set, err := r.source.FetchQuotes(ctx, ticker, expiration, filter, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes for %s: %w", ticker, err)
	}

	r.logger.Info().
		Str("ticker", ticker).
		Str("expiration", set.Expiration.Format(dateLayout)).
		Float64("spot", set.Spot).
		Int("quotes", len(set.Quotes)).
		Int("dropped", set.Dropped).
		Msg("Loaded option chain")

	if len(set.Quotes) == 0 {
		return nil, fmt.Errorf("%s %s: no quotes left after filtering: %w", ticker, set.Expiration.Format(dateLayout), signals.ErrEmptyInput)
	}

	mctx := models.MarketContext{
		Spot:         set.Spot,
		TimeToExpiry: models.TimeToExpiry(set.Expiration, now),
		RiskFreeRate: r.cfg.Model.Parameters.RiskFreeRate,
	}
	return &marketData{
		ticker:     ticker,
		expiration: set.Expiration.Format(dateLayout),
		optionType: optionType,
		set:        set,
		mctx:       mctx,
	}, nil
}

// Backtest runs fetch, price, signal, execute and summarize for one chain.
func (r *Runner) Backtest(ctx context.Context, req Request) (*BacktestResult, error) {
	kind, err := models.ParseModelKind(r.cfg.Model.Kind)
	if err != nil {
		return nil, err
	}
	model, err := models.NewModel(kind, r.cfg.Model.Parameters)
	if err != nil {
		return nil, err
	}

	md, err := r.load(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		sigs  []signals.Signal
		diags []signals.Diagnostic
	)
	if r.cfg.Strategy.Parallel {
		p := signals.NewPricer(r.Progress)
		if r.cfg.Strategy.Workers > 0 {
			p.Workers = r.cfg.Strategy.Workers
		}
		sigs, diags, err = p.GenerateParallel(md.set.Quotes, model, md.mctx, r.cfg.Strategy.Threshold, md.optionType)
	} else {
		sigs, diags, err = signals.Generate(md.set.Quotes, model, md.mctx, r.cfg.Strategy.Threshold, md.optionType)
	}
	if err != nil {
		return nil, err
	}
	r.logDiagnostics(model.Name(), diags)

	ledger := backtest.NewLedger(r.cfg.Backtest.StartingCash, r.cfg.Backtest.PositionSize)
	if err := ledger.ExecuteSignals(sigs); err != nil {
		return nil, err
	}
	summary := ledger.Summary()

	r.logger.Info().
		Str("model", model.Name()).
		Int("signals", len(sigs)).
		Int("skipped", len(diags)).
		Float64("total_pnl", summary.TotalPnL).
		Float64("final_cash", summary.FinalCash).
		Msg("Backtest complete")

	artifact := &report.BacktestArtifact{
		Ticker:      md.ticker,
		Expiration:  md.expiration,
		Model:       model.Name(),
		OptionType:  md.optionType,
		Threshold:   r.cfg.Strategy.Threshold,
		GeneratedAt: r.Now(),
		Market:      md.mctx,
		Signals:     sigs,
		Trades:      ledger.TradeLog(),
		Summary:     summary,
		Diagnostics: report.DiagnosticRecords(diags),
	}
	res := &BacktestResult{Artifact: artifact, Dropped: md.set.Dropped}
	if r.writer != nil {
		if res.Path, err = r.writer.WriteBacktest(artifact); err != nil {
			return nil, err
		}
		r.logger.Info().Str("path", res.Path).Msg("Results written")
	}
	return res, nil
}

// Compare prices the chain with every model and tabulates relative errors.
func (r *Runner) Compare(ctx context.Context, req Request) (*CompareResult, error) {
	all, err := models.NewAllModels(r.cfg.Model.Parameters)
	if err != nil {
		return nil, err
	}

	md, err := r.load(ctx, req)
	if err != nil {
		return nil, err
	}

	cmp, err := report.Compare(md.set.Quotes, md.mctx, md.optionType, all...)
	if err != nil {
		return nil, err
	}
	stats := cmp.Stats()
	for _, s := range stats {
		r.logger.Info().
			Str("model", s.Model).
			Int("priced", s.Priced).
			Int("failed", s.Failed).
			Float64("mean_rel_error", s.MeanRelError).
			Float64("max_rel_error", s.MaxRelError).
			Msg("Model error")
	}

	artifact := &report.ComparisonArtifact{
		Ticker:      md.ticker,
		Expiration:  md.expiration,
		OptionType:  md.optionType,
		GeneratedAt: r.Now(),
		Market:      md.mctx,
		Comparison:  cmp,
		Stats:       stats,
	}
	res := &CompareResult{Artifact: artifact, Dropped: md.set.Dropped}
	if r.writer != nil {
		if res.Path, err = r.writer.WriteComparison(artifact); err != nil {
			return nil, err
		}
		r.logger.Info().Str("path", res.Path).Msg("Results written")
	}
	return res, nil
}

func (r *Runner) logDiagnostics(model string, diags []signals.Diagnostic) {
	for _, d := range diags {
		r.logger.Warn().
			Err(d.Err).
			Str("model", model).
			Int("index", d.Index).
			Float64("strike", d.Strike).
			Msg("Quote skipped")
	}
}
