package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DenominatorFloor bounds σ√T from below in d1. Contracts whose σ√T falls
// under it (zero volatility, expiry today) are priced with the floored
// denominator, which drives d1 to ±Inf-like magnitudes and collapses the price
// to intrinsic value. This is a known bias of the approximation.
const DenominatorFloor = 1e-10

type BlackScholesModel struct {
	R float64 // Risk-free rate
}

func NewBlackScholesModel(r float64) BlackScholesModel {
	return BlackScholesModel{R: r}
}

func (m BlackScholesModel) Name() string { return string(KindBlackScholes) }

func (m BlackScholesModel) Price(spot, strike, timeToExpiry, volatility float64, optionType OptionType) (float64, error) {
	if err := validateInputs(spot, strike, timeToExpiry, volatility, optionType); err != nil {
		return 0, err
	}

	price := blackScholes(spot, strike, timeToExpiry, volatility, m.R, optionType)
	if !finite(price) {
		return 0, fmt.Errorf("%w: S=%.4f K=%.4f T=%.6f sigma=%.4f", ErrNonFinitePrice, spot, strike, timeToExpiry, volatility)
	}
	return price, nil
}

func blackScholes(S, K, T, sigma, r float64, optionType OptionType) float64 {
	volSqrtT := sigma * math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / math.Max(volSqrtT, DenominatorFloor)
	d2 := d1 - volSqrtT

	if optionType == Call {
		return S*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2)
	}
	return K*math.Exp(-r*T)*normCDF(-d2) - S*normCDF(-d1)
}

func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}
