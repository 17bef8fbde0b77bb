package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidOptionType = errors.New("option type must be call or put")
	ErrInvalidStepCount  = errors.New("binomial steps must be at least 1")
	ErrNegativeExpiry    = errors.New("time to expiry is negative")
	ErrInvalidInput      = errors.New("invalid pricing input")
	ErrNonFinitePrice    = errors.New("model price is not finite")
	ErrDegenerateLattice = errors.New("degenerate binomial lattice")
	ErrInvalidSABRParams = errors.New("invalid SABR parameters")
	ErrUnknownModel      = errors.New("unknown pricing model")
)

type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToLower(strings.TrimSpace(s))) {
	case Call:
		return Call, nil
	case Put:
		return Put, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOptionType, s)
}

func (t OptionType) valid() bool {
	return t == Call || t == Put
}

// PricingModel values a single European option contract. Implementations are
// immutable and safe for concurrent use.
type PricingModel interface {
	Name() string
	Price(spot, strike, timeToExpiry, volatility float64, optionType OptionType) (float64, error)
}

// Quote is one option contract snapshot as delivered by the data source.
type Quote struct {
	Strike            float64 `json:"strike"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
}

// MidPrice is recomputed from bid and ask on every call.
func (q Quote) MidPrice() float64 {
	return (q.Bid + q.Ask) / 2
}

type MarketContext struct {
	Spot         float64 `json:"spot"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
}

// TimeToExpiry returns the whole calendar days between now and expiration
// expressed in years. Same-day and expired contracts yield zero or less.
func TimeToExpiry(expiration, now time.Time) float64 {
	days := math.Floor(expiration.Sub(now).Hours() / 24)
	return days / 365
}

func intrinsic(spot, strike float64, optionType OptionType) float64 {
	if optionType == Call {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func validateInputs(spot, strike, timeToExpiry, volatility float64, optionType OptionType) error {
	if !optionType.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOptionType, string(optionType))
	}
	if !finite(spot, strike, timeToExpiry, volatility) {
		return fmt.Errorf("%w: non-finite argument", ErrInvalidInput)
	}
	if spot <= 0 || strike <= 0 {
		return fmt.Errorf("%w: spot %.4f strike %.4f", ErrInvalidInput, spot, strike)
	}
	if volatility < 0 {
		return fmt.Errorf("%w: volatility %.4f", ErrInvalidInput, volatility)
	}
	if timeToExpiry < 0 {
		return fmt.Errorf("%w: %.6f years", ErrNegativeExpiry, timeToExpiry)
	}
	return nil
}
