package backtest

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bcdannyboy/mispricer/signals"
)

const (
	DefaultStartingCash = 100_000
	DefaultPositionSize = 1
)

var ErrUnknownAction = errors.New("unknown signal action")

// Trade is a signal as executed: every signal field plus its economics.
type Trade struct {
	signals.Signal
	TradeValue float64 `json:"trade_value"`
	PnL        float64 `json:"pnl"`
}

type Summary struct {
	NumTrades int     `json:"num_trades"`
	TotalPnL  float64 `json:"total_pnl"`
	FinalCash float64 `json:"final_cash"`
}

// Ledger scores a batch of signals against a cash balance. Positions are
// marked at entry and never closed. Cash is not touched per trade: the entry
// cost or premium of every trade is only netted against StartingCash when
// Summary is computed. A Ledger is owned by one caller and is not safe for
// concurrent use.
type Ledger struct {
	StartingCash float64
	PositionSize float64
	trades       []Trade
}

func NewLedger(startingCash, positionSize float64) *Ledger {
	return &Ledger{StartingCash: startingCash, PositionSize: positionSize}
}

// ExecuteSignals appends one trade per buy or sell signal, in signal order.
// Signals with any other action are not booked; they are reported in the
// returned error and the rest of the batch is still executed.
func (l *Ledger) ExecuteSignals(sigs []signals.Signal) error {
	var errs []error
	size := decimal.NewFromFloat(l.PositionSize)
	for i, s := range sigs {
		value := decimal.NewFromFloat(s.MarketPrice).Mul(size)

		var pnl decimal.Decimal
		switch s.Action {
		case signals.Buy:
			pnl = value.Neg() // cost of entry
		case signals.Sell:
			pnl = value // premium received
		default:
			errs = append(errs, fmt.Errorf("signal %d strike %.2f: %w %q", i, s.Strike, ErrUnknownAction, string(s.Action)))
			continue
		}

		l.trades = append(l.trades, Trade{
			Signal:     s,
			TradeValue: value.InexactFloat64(),
			PnL:        pnl.InexactFloat64(),
		})
	}
	return errors.Join(errs...)
}

// Summary is recomputed from the trade log on every call.
func (l *Ledger) Summary() Summary {
	total := decimal.Zero
	for _, t := range l.trades {
		total = total.Add(decimal.NewFromFloat(t.PnL))
	}
	return Summary{
		NumTrades: len(l.trades),
		TotalPnL:  total.InexactFloat64(),
		FinalCash: decimal.NewFromFloat(l.StartingCash).Add(total).InexactFloat64(),
	}
}

// TradeLog returns a copy of the trades in execution order.
func (l *Ledger) TradeLog() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}
