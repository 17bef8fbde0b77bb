package signals

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/mispricer/models"
)

var errStubPricing = errors.New("stub pricing failure")

// stubModel prices each strike from a fixed table.
type stubModel map[float64]float64

func (stubModel) Name() string { return "stub" }

func (s stubModel) Price(_, strike, _, _ float64, _ models.OptionType) (float64, error) {
	p, ok := s[strike]
	if !ok {
		return 0, fmt.Errorf("%w: strike %.2f", errStubPricing, strike)
	}
	return p, nil
}

func quote(strike, bid, ask float64) models.Quote {
	return models.Quote{Strike: strike, ImpliedVolatility: 0.25, Bid: bid, Ask: ask}
}

var testCtx = models.MarketContext{Spot: 100, TimeToExpiry: 0.1, RiskFreeRate: 0.04}

func TestDecideBoundariesAreStrict(t *testing.T) {
	_, ok := Decide(10*1.2, 10, 0.2)
	assert.False(t, ok, "exactly on the upper band edge")

	action, ok := Decide(10*1.2001, 10, 0.2)
	require.True(t, ok)
	assert.Equal(t, Buy, action)

	_, ok = Decide(10*0.8, 10, 0.2)
	assert.False(t, ok, "exactly on the lower band edge")

	action, ok = Decide(10*0.7999, 10, 0.2)
	require.True(t, ok)
	assert.Equal(t, Sell, action)
}

func TestDecideEqualPricesNeverSignal(t *testing.T) {
	for _, threshold := range []float64{1e-9, 0.01, 0.2, 5} {
		_, ok := Decide(4.25, 4.25, threshold)
		assert.False(t, ok, "threshold %v", threshold)
	}
}

func TestRelativeError(t *testing.T) {
	got, err := RelativeError(12, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got, 1e-12)

	got, err = RelativeError(8, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got, 1e-12)

	_, err = RelativeError(1, 0)
	assert.ErrorIs(t, err, ErrZeroMarketPrice)
}

func TestGenerate(t *testing.T) {
	quotes := []models.Quote{
		quote(95, 9, 11),   // market 10, model 13 -> buy
		quote(100, 4, 6),   // market 5, model 5 -> none
		quote(105, 2, 4),   // market 3, model 2 -> sell
		quote(110, 0, 0),   // market 0 -> diagnostic
		quote(115, 1, 1),   // unpriced -> diagnostic
		quote(120, 0.5, 1), // market 0.75, model 1 -> buy
	}
	model := stubModel{95: 13, 100: 5, 105: 2, 110: 0.1, 120: 1}

	sigs, diags, err := Generate(quotes, model, testCtx, 0.2, models.Call)
	require.NoError(t, err)

	require.Len(t, sigs, 3)
	assert.Equal(t, Signal{Action: Buy, Strike: 95, MarketPrice: 10, ModelPrice: 13, RelativeError: 0.3}, roundSignal(sigs[0]))
	assert.Equal(t, Sell, sigs[1].Action)
	assert.Equal(t, 105.0, sigs[1].Strike)
	assert.InDelta(t, 1.0/3, sigs[1].RelativeError, 1e-12)
	assert.Equal(t, Buy, sigs[2].Action)
	assert.Equal(t, 120.0, sigs[2].Strike)

	require.Len(t, diags, 2)
	assert.Equal(t, 3, diags[0].Index)
	assert.ErrorIs(t, diags[0], ErrZeroMarketPrice)
	assert.Equal(t, 4, diags[1].Index)
	assert.ErrorIs(t, diags[1], errStubPricing)
}

func TestGenerateBatchErrors(t *testing.T) {
	model := stubModel{100: 5}

	_, _, err := Generate(nil, model, testCtx, 0.2, models.Call)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, _, err = Generate([]models.Quote{quote(100, 4, 6)}, model, testCtx, 0, models.Call)
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, _, err = Generate([]models.Quote{quote(100, 4, 6)}, nil, testCtx, 0.2, models.Call)
	assert.ErrorIs(t, err, ErrNilModel)
}

func TestGenerateInvalidOptionTypeIsPerQuote(t *testing.T) {
	quotes := []models.Quote{quote(100, 4, 6), quote(105, 2, 3)}

	sigs, diags, err := Generate(quotes, models.NewBlackScholesModel(0.04), testCtx, 0.2, models.OptionType("digital"))
	require.NoError(t, err)
	assert.Empty(t, sigs)
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.ErrorIs(t, d, models.ErrInvalidOptionType)
	}
}

func TestGenerateWithBlackScholes(t *testing.T) {
	bs := models.NewBlackScholesModel(0.04)
	mctx := models.MarketContext{Spot: 100, TimeToExpiry: 30.0 / 365, RiskFreeRate: 0.04}

	fair, err := bs.Price(mctx.Spot, 100, mctx.TimeToExpiry, 0.25, models.Call)
	require.NoError(t, err)

	quotes := []models.Quote{
		{Strike: 100, ImpliedVolatility: 0.25, Bid: fair, Ask: fair},
		{Strike: 100, ImpliedVolatility: 0.25, Bid: fair * 2, Ask: fair * 2},
		{Strike: 100, ImpliedVolatility: 0.25, Bid: fair / 2, Ask: fair / 2},
	}

	sigs, diags, err := Generate(quotes, bs, mctx, 0.2, models.Call)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, sigs, 2)
	assert.Equal(t, Sell, sigs[0].Action)
	assert.Equal(t, Buy, sigs[1].Action)
}

func roundSignal(s Signal) Signal {
	s.RelativeError = float64(int64(s.RelativeError*1e9+0.5)) / 1e9
	return s
}
