package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/mispricer/signals"
)

func TestLedgerBuy(t *testing.T) {
	l := NewLedger(100000, 1)
	l.ExecuteSignals([]signals.Signal{{Action: signals.Buy, Strike: 150, MarketPrice: 10, ModelPrice: 13, RelativeError: 0.3}})

	assert.Equal(t, Summary{NumTrades: 1, TotalPnL: -10, FinalCash: 99990}, l.Summary())
}

func TestLedgerSell(t *testing.T) {
	l := NewLedger(100000, 1)
	l.ExecuteSignals([]signals.Signal{{Action: signals.Sell, Strike: 150, MarketPrice: 10, ModelPrice: 7, RelativeError: 0.3}})

	assert.Equal(t, Summary{NumTrades: 1, TotalPnL: 10, FinalCash: 100010}, l.Summary())
}

func TestLedgerEmpty(t *testing.T) {
	l := NewLedger(25000, 3)
	l.ExecuteSignals(nil)

	assert.Equal(t, Summary{NumTrades: 0, TotalPnL: 0, FinalCash: 25000}, l.Summary())
	assert.Empty(t, l.TradeLog())
}

func TestLedgerTradesCarrySignalFields(t *testing.T) {
	sig := signals.Signal{Action: signals.Sell, Strike: 187.5, MarketPrice: 2.35, ModelPrice: 1.7, RelativeError: 0.2765957}
	l := NewLedger(1000, 2)
	l.ExecuteSignals([]signals.Signal{sig})

	log := l.TradeLog()
	require.Len(t, log, 1)
	assert.Equal(t, sig, log[0].Signal)
	assert.Equal(t, 4.7, log[0].TradeValue)
	assert.Equal(t, 4.7, log[0].PnL)
}

func TestLedgerOrderAndAccumulation(t *testing.T) {
	l := NewLedger(100000, 1)
	batch := []signals.Signal{
		{Action: signals.Buy, Strike: 100, MarketPrice: 0.1},
		{Action: signals.Sell, Strike: 105, MarketPrice: 0.2},
		{Action: signals.Buy, Strike: 110, MarketPrice: 0.3},
	}
	l.ExecuteSignals(batch)
	l.ExecuteSignals(batch[:1])

	log := l.TradeLog()
	require.Len(t, log, 4)
	assert.Equal(t, []float64{100, 105, 110, 100}, []float64{log[0].Strike, log[1].Strike, log[2].Strike, log[3].Strike})

	// -0.1 + 0.2 - 0.3 - 0.1 sums exactly in decimal.
	s := l.Summary()
	assert.Equal(t, 4, s.NumTrades)
	assert.Equal(t, -0.3, s.TotalPnL)
	assert.Equal(t, 99999.7, s.FinalCash)
	assert.Equal(t, s, l.Summary(), "summary is a pure read")
}

func TestLedgerTradeLogIsACopy(t *testing.T) {
	l := NewLedger(100000, 1)
	l.ExecuteSignals([]signals.Signal{{Action: signals.Buy, Strike: 100, MarketPrice: 5}})

	log := l.TradeLog()
	log[0].PnL = 1e9
	log = append(log, Trade{PnL: 42})

	assert.Len(t, l.TradeLog(), 1)
	assert.Equal(t, -5.0, l.Summary().TotalPnL)
}

func TestLedgerSkipsUnknownAction(t *testing.T) {
	l := NewLedger(100000, 1)
	err := l.ExecuteSignals([]signals.Signal{
		{Action: signals.Sell, Strike: 100, MarketPrice: 4},
		{Action: "hold", Strike: 105, MarketPrice: 3},
		{Action: signals.Buy, Strike: 110, MarketPrice: 1},
	})

	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Contains(t, err.Error(), `"hold"`)

	log := l.TradeLog()
	require.Len(t, log, 2)
	assert.Equal(t, 100.0, log[0].Strike)
	assert.Equal(t, 110.0, log[1].Strike)
	assert.Equal(t, Summary{NumTrades: 2, TotalPnL: 3, FinalCash: 100003}, l.Summary())
}
