package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/mispricer/models"
	"github.com/bcdannyboy/mispricer/signals"
)

// Cell is one model's valuation of one quote.
type Cell struct {
	Model         string  `json:"model"`
	Price         float64 `json:"price"`
	RelativeError float64 `json:"rel_error"`
	Err           error   `json:"-"`
	Failure       string  `json:"error,omitempty"`
}

type Row struct {
	Strike      float64 `json:"strike"`
	MarketPrice float64 `json:"market"`
	Cells       []Cell  `json:"models"`
}

type Comparison struct {
	Models []string `json:"model_names"`
	Rows   []Row    `json:"rows"`
}

type ModelStats struct {
	Model        string  `json:"model"`
	Priced       int     `json:"priced"`
	Failed       int     `json:"failed"`
	MeanRelError float64 `json:"mean_rel_error"`
	MaxRelError  float64 `json:"max_rel_error"`
}

// Compare prices every quote under every model and records the relative error
// against the quote's mid price. Nothing here produces a trading decision.
func Compare(quotes []models.Quote, mctx models.MarketContext, optionType models.OptionType, pricingModels ...models.PricingModel) (*Comparison, error) {
	if len(quotes) == 0 {
		return nil, signals.ErrEmptyInput
	}
	if len(pricingModels) == 0 {
		return nil, fmt.Errorf("compare: %w", signals.ErrNilModel)
	}

	c := &Comparison{Models: make([]string, len(pricingModels))}
	for i, m := range pricingModels {
		if m == nil {
			return nil, fmt.Errorf("compare: model %d: %w", i, signals.ErrNilModel)
		}
		c.Models[i] = m.Name()
	}

	for _, q := range quotes {
		market := q.MidPrice()
		row := Row{Strike: q.Strike, MarketPrice: market, Cells: make([]Cell, len(pricingModels))}
		for j, m := range pricingModels {
			cell := Cell{Model: m.Name()}
			price, err := m.Price(mctx.Spot, q.Strike, mctx.TimeToExpiry, q.ImpliedVolatility, optionType)
			if err == nil {
				cell.Price = price
				cell.RelativeError, err = signals.RelativeError(price, market)
			}
			if err != nil {
				cell.Err = err
				cell.Failure = err.Error()
				cell.RelativeError = 0
			}
			row.Cells[j] = cell
		}
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}

// Stats aggregates relative errors per model over the quotes it could price.
func (c *Comparison) Stats() []ModelStats {
	out := make([]ModelStats, len(c.Models))
	for j, name := range c.Models {
		errs := make([]float64, 0, len(c.Rows))
		failed := 0
		for _, row := range c.Rows {
			if row.Cells[j].Err != nil {
				failed++
				continue
			}
			errs = append(errs, row.Cells[j].RelativeError)
		}

		s := ModelStats{Model: name, Priced: len(errs), Failed: failed}
		if len(errs) > 0 {
			s.MeanRelError = stat.Mean(errs, nil)
			s.MaxRelError = floats.Max(errs)
		}
		out[j] = s
	}
	return out
}

// WriteTable renders the per-strike error table followed by the per-model
// aggregates.
func (c *Comparison) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(tw, "strike\tmarket\t")
	for _, name := range c.Models {
		fmt.Fprintf(tw, "%s\t%s_rel_err\t", name, name)
	}
	fmt.Fprintln(tw)

	for _, row := range c.Rows {
		fmt.Fprintf(tw, "%.2f\t%.4f\t", row.Strike, row.MarketPrice)
		for _, cell := range row.Cells {
			if cell.Err != nil {
				fmt.Fprint(tw, "err\t-\t")
				continue
			}
			fmt.Fprintf(tw, "%.4f\t%.4f\t", cell.Price, cell.RelativeError)
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "model\tpriced\tfailed\tmean_rel_err\tmax_rel_err\t")
	for _, s := range c.Stats() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\t\n", s.Model, s.Priced, s.Failed, s.MeanRelError, s.MaxRelError)
	}
	return tw.Flush()
}
