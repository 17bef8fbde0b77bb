package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xhhuango/json"

	"github.com/bcdannyboy/mispricer/backtest"
	"github.com/bcdannyboy/mispricer/models"
	"github.com/bcdannyboy/mispricer/signals"
)

const fileTimeLayout = "2006-01-02_15-04"

type DiagnosticRecord struct {
	Index  int     `json:"index"`
	Strike float64 `json:"strike"`
	Reason string  `json:"reason"`
}

func DiagnosticRecords(diags []signals.Diagnostic) []DiagnosticRecord {
	out := make([]DiagnosticRecord, len(diags))
	for i, d := range diags {
		out[i] = DiagnosticRecord{Index: d.Index, Strike: d.Strike, Reason: d.Err.Error()}
	}
	return out
}

// BacktestArtifact is everything one signal run hands to the reporting layer.
type BacktestArtifact struct {
	Ticker      string               `json:"ticker"`
	Expiration  string               `json:"expiration"`
	Model       string               `json:"model"`
	OptionType  models.OptionType    `json:"option_type"`
	Threshold   float64              `json:"threshold"`
	GeneratedAt time.Time            `json:"generated_at"`
	Market      models.MarketContext `json:"market"`
	Signals     []signals.Signal     `json:"signals"`
	Trades      []backtest.Trade     `json:"trades"`
	Summary     backtest.Summary     `json:"summary"`
	Diagnostics []DiagnosticRecord   `json:"diagnostics"`
}

type ComparisonArtifact struct {
	Ticker      string               `json:"ticker"`
	Expiration  string               `json:"expiration"`
	OptionType  models.OptionType    `json:"option_type"`
	GeneratedAt time.Time            `json:"generated_at"`
	Market      models.MarketContext `json:"market"`
	Comparison  *Comparison          `json:"comparison"`
	Stats       []ModelStats         `json:"stats"`
}

// Writer writes run artifacts as JSON files under a results directory.
type Writer struct {
	outputDir string
}

func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

func (w *Writer) OutputDir() string {
	return w.outputDir
}

// WriteBacktest writes <TICKER>_signals_<EXPIRATION>_<YYYY-MM-DD_HH-MM>.json
// and returns its path.
func (w *Writer) WriteBacktest(a *BacktestArtifact) (string, error) {
	name := fmt.Sprintf("%s_signals_%s_%s.json", a.Ticker, a.Expiration, a.GeneratedAt.Format(fileTimeLayout))
	return w.write(name, a)
}

// WriteComparison writes <TICKER>_models_<EXPIRATION>_<YYYY-MM-DD_HH-MM>.json
// and returns its path.
func (w *Writer) WriteComparison(a *ComparisonArtifact) (string, error) {
	name := fmt.Sprintf("%s_models_%s_%s.json", a.Ticker, a.Expiration, a.GeneratedAt.Format(fileTimeLayout))
	return w.write(name, a)
}

func (w *Writer) write(name string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
