package models

import (
	"fmt"
	"math"
)

const DefaultBinomialSteps = 100

// BinomialTreeModel is a Cox-Ross-Rubinstein recombining lattice for European
// exercise.
type BinomialTreeModel struct {
	R     float64 // Risk-free rate
	Steps int
}

func NewBinomialTreeModel(r float64, steps int) (BinomialTreeModel, error) {
	if steps < 1 {
		return BinomialTreeModel{}, fmt.Errorf("%w: got %d", ErrInvalidStepCount, steps)
	}
	return BinomialTreeModel{R: r, Steps: steps}, nil
}

func (m BinomialTreeModel) Name() string { return string(KindBinomial) }

func (m BinomialTreeModel) Price(spot, strike, timeToExpiry, volatility float64, optionType OptionType) (float64, error) {
	if m.Steps < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidStepCount, m.Steps)
	}
	if err := validateInputs(spot, strike, timeToExpiry, volatility, optionType); err != nil {
		return 0, err
	}
	if timeToExpiry == 0 {
		return intrinsic(spot, strike, optionType), nil
	}
	if volatility == 0 {
		return 0, fmt.Errorf("%w: zero volatility", ErrDegenerateLattice)
	}

	dt := timeToExpiry / float64(m.Steps)
	u := math.Exp(volatility * math.Sqrt(dt))
	d := 1 / u
	p := (math.Exp(m.R*dt) - d) / (u - d)
	if !finite(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: risk-neutral probability %.6f", ErrDegenerateLattice, p)
	}
	disc := math.Exp(-m.R * dt)

	// Node i at maturity has Steps-i up moves and i down moves.
	values := make([]float64, m.Steps+1)
	for i := range values {
		st := spot * math.Pow(u, float64(m.Steps-i)) * math.Pow(d, float64(i))
		values[i] = intrinsic(st, strike, optionType)
	}

	for step := m.Steps - 1; step >= 0; step-- {
		for i := 0; i <= step; i++ {
			values[i] = disc * (p*values[i] + (1-p)*values[i+1])
		}
	}

	if !finite(values[0]) {
		return 0, fmt.Errorf("%w: lattice root", ErrNonFinitePrice)
	}
	return values[0], nil
}
