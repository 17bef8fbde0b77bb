package tradier

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bcdannyboy/mispricer/models"
)

// Filter holds the liquidity and moneyness rules a chain row must pass before
// it reaches the pricing core.
type Filter struct {
	OptionType   models.OptionType
	MinBid       float64 // bid must be strictly greater
	StrikeWindow float64 // fraction of spot on either side
}

// QuoteSet is a cleaned chain for one expiration.
type QuoteSet struct {
	Symbol     string
	Expiration time.Time
	Spot       float64
	Quotes     []models.Quote
	Dropped    int
}

// Clean converts chain rows to quotes. Rows are kept in chain order when they
// match the option type, carry bid, ask and a positive implied volatility,
// bid above MinBid, and a strike inside spot*(1±StrikeWindow).
func Clean(options []Option, spot float64, f Filter) ([]models.Quote, int) {
	lo, hi := spot*(1-f.StrikeWindow), spot*(1+f.StrikeWindow)

	var quotes []models.Quote
	dropped := 0
	for _, o := range options {
		if o.OptionType != string(f.OptionType) {
			continue
		}
		iv := impliedVol(o)
		switch {
		case o.Bid == nil || o.Ask == nil || iv == nil,
			*iv <= 0,
			*o.Bid <= f.MinBid,
			o.Strike < lo || o.Strike > hi:
			dropped++
			continue
		}
		quotes = append(quotes, models.Quote{
			Strike:            o.Strike,
			ImpliedVolatility: *iv,
			Bid:               *o.Bid,
			Ask:               *o.Ask,
		})
	}
	return quotes, dropped
}

func impliedVol(o Option) *float64 {
	if o.Greeks == nil {
		return nil
	}
	if o.Greeks.MidIv != nil {
		return o.Greeks.MidIv
	}
	return o.Greeks.SmvVol
}

// FetchQuotes loads spot and the cleaned chain for symbol. An empty
// expiration selects the nearest listed one. Spot and chain are requested
// concurrently.
func (c *Client) FetchQuotes(ctx context.Context, symbol, expiration string, f Filter, now time.Time) (*QuoteSet, error) {
	if expiration == "" {
		dates, err := c.GetExpirations(ctx, symbol)
		if err != nil {
			return nil, err
		}
		expiration = dates[0]
	}
	expDate, err := time.Parse(dateLayout, expiration)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expiration date %q: %w", expiration, err)
	}

	var (
		spot  float64
		chain *OptionChain
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		spot, err = c.LastClose(gctx, symbol, now)
		return err
	})
	g.Go(func() error {
		var err error
		chain, err = c.GetOptionChain(gctx, symbol, expiration)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quotes, dropped := Clean(chain.Options.Option, spot, f)
	return &QuoteSet{
		Symbol:     symbol,
		Expiration: expDate,
		Spot:       spot,
		Quotes:     quotes,
		Dropped:    dropped,
	}, nil
}
