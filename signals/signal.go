package signals

import (
	"errors"
	"fmt"
	"math"

	"github.com/bcdannyboy/mispricer/models"
)

var (
	ErrZeroMarketPrice  = errors.New("market price is zero, relative error undefined")
	ErrEmptyInput       = errors.New("no quotes to process")
	ErrInvalidThreshold = errors.New("threshold must be a positive finite fraction")
	ErrNilModel         = errors.New("pricing model is nil")
)

type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// Signal is a directional call on one quote. Field names mirror the flat
// record handed to the reporting layer.
type Signal struct {
	Action        Action  `json:"action"`
	Strike        float64 `json:"strike"`
	MarketPrice   float64 `json:"market"`
	ModelPrice    float64 `json:"model"`
	RelativeError float64 `json:"rel_error"`
}

// Diagnostic records a quote that was skipped and why.
type Diagnostic struct {
	Index  int
	Strike float64
	Err    error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("quote %d (strike %.2f): %v", d.Index, d.Strike, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// RelativeError is |model - market| / market.
func RelativeError(modelPrice, marketPrice float64) (float64, error) {
	if marketPrice == 0 {
		return 0, ErrZeroMarketPrice
	}
	return math.Abs(modelPrice-marketPrice) / marketPrice, nil
}

// Decide applies the two-sided band around the market price. Both bounds are
// strict: a model price exactly on a band edge produces no signal.
func Decide(modelPrice, marketPrice, threshold float64) (Action, bool) {
	switch {
	case modelPrice < marketPrice*(1-threshold):
		return Sell, true
	case modelPrice > marketPrice*(1+threshold):
		return Buy, true
	}
	return "", false
}

func validateBatch(quotes []models.Quote, model models.PricingModel, threshold float64) error {
	if len(quotes) == 0 {
		return ErrEmptyInput
	}
	if model == nil {
		return ErrNilModel
	}
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	return nil
}

// evaluate turns one priced quote into a signal, nothing, or a diagnostic.
func evaluate(index int, q models.Quote, r Result, threshold float64) (*Signal, *Diagnostic) {
	if r.Err != nil {
		return nil, &Diagnostic{Index: index, Strike: q.Strike, Err: r.Err}
	}

	market := q.MidPrice()
	relErr, err := RelativeError(r.Price, market)
	if err != nil {
		return nil, &Diagnostic{Index: index, Strike: q.Strike, Err: err}
	}

	action, ok := Decide(r.Price, market, threshold)
	if !ok {
		return nil, nil
	}
	return &Signal{
		Action:        action,
		Strike:        q.Strike,
		MarketPrice:   market,
		ModelPrice:    r.Price,
		RelativeError: relErr,
	}, nil
}

func collect(quotes []models.Quote, results []Result, threshold float64) ([]Signal, []Diagnostic) {
	var out []Signal
	var diags []Diagnostic
	for i, q := range quotes {
		sig, diag := evaluate(i, q, results[i], threshold)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		if sig != nil {
			out = append(out, *sig)
		}
	}
	return out, diags
}

// Generate prices every quote in order and emits a signal for each quote whose
// model price sits outside the threshold band around its mid price. Quotes
// that cannot be priced, or whose mid price is zero, are skipped and reported
// as diagnostics; the rest of the batch is unaffected.
func Generate(quotes []models.Quote, model models.PricingModel, mctx models.MarketContext, threshold float64, optionType models.OptionType) ([]Signal, []Diagnostic, error) {
	if err := validateBatch(quotes, model, threshold); err != nil {
		return nil, nil, err
	}

	results := make([]Result, len(quotes))
	for i, q := range quotes {
		results[i] = priceQuote(i, q, model, mctx, optionType)
	}

	sigs, diags := collect(quotes, results, threshold)
	return sigs, diags, nil
}

// GenerateParallel has the same contract and output order as Generate but
// prices quotes on the pricer's worker pool.
func (p *Pricer) GenerateParallel(quotes []models.Quote, model models.PricingModel, mctx models.MarketContext, threshold float64, optionType models.OptionType) ([]Signal, []Diagnostic, error) {
	if err := validateBatch(quotes, model, threshold); err != nil {
		return nil, nil, err
	}

	results := p.PriceAll(quotes, model, mctx, optionType)
	sigs, diags := collect(quotes, results, threshold)
	return sigs, diags, nil
}
