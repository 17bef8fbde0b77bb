package models

import (
	"fmt"
	"strings"
)

type ModelKind string

const (
	KindBlackScholes ModelKind = "black_scholes"
	KindBinomial     ModelKind = "binomial"
	KindSABR         ModelKind = "sabr"
)

// Kinds lists every model in comparison-report order.
var Kinds = []ModelKind{KindBlackScholes, KindBinomial, KindSABR}

type Parameters struct {
	RiskFreeRate float64 `toml:"risk_free_rate"`
	Steps        int     `toml:"steps"`
	Alpha        float64 `toml:"alpha"`
	Beta         float64 `toml:"beta"`
	Rho          float64 `toml:"rho"`
	Nu           float64 `toml:"nu"`
}

func DefaultParameters() Parameters {
	return Parameters{
		RiskFreeRate: 0.04,
		Steps:        DefaultBinomialSteps,
		Alpha:        0.3,
		Beta:         0.5,
		Rho:          -0.3,
		Nu:           0.5,
	}
}

func ParseModelKind(s string) (ModelKind, error) {
	k := ModelKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

func NewModel(kind ModelKind, p Parameters) (PricingModel, error) {
	switch kind {
	case KindBlackScholes:
		return NewBlackScholesModel(p.RiskFreeRate), nil
	case KindBinomial:
		m, err := NewBinomialTreeModel(p.RiskFreeRate, p.Steps)
		if err != nil {
			return nil, err
		}
		return m, nil
	case KindSABR:
		m, err := NewSABRModel(p.Alpha, p.Beta, p.Rho, p.Nu, p.RiskFreeRate)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, string(kind))
}

// NewAllModels builds every model kind from the same parameters.
func NewAllModels(p Parameters) ([]PricingModel, error) {
	out := make([]PricingModel, 0, len(Kinds))
	for _, kind := range Kinds {
		m, err := NewModel(kind, p)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", kind, err)
		}
		out = append(out, m)
	}
	return out, nil
}
