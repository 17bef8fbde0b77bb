package models

import (
	"fmt"
	"math"
)

// ZTolerance is the |z| below which z/x(z) is replaced by its limit of 1.
const ZTolerance = 1e-12

// SABRModel prices through the Hagan et al. (2002) lognormal implied
// volatility expansion fed into Black-Scholes with the forward as spot.
type SABRModel struct {
	Alpha float64 // Initial volatility
	Beta  float64 // Elasticity, in [0, 1]
	Rho   float64 // Correlation, in (-1, 1)
	Nu    float64 // Volatility of volatility
	R     float64 // Risk-free rate
}

func NewSABRModel(alpha, beta, rho, nu, r float64) (SABRModel, error) {
	m := SABRModel{Alpha: alpha, Beta: beta, Rho: rho, Nu: nu, R: r}
	if err := m.validate(); err != nil {
		return SABRModel{}, err
	}
	return m, nil
}

func (m SABRModel) validate() error {
	switch {
	case !finite(m.Alpha, m.Beta, m.Rho, m.Nu, m.R):
		return fmt.Errorf("%w: non-finite parameter", ErrInvalidSABRParams)
	case m.Alpha <= 0:
		return fmt.Errorf("%w: alpha %.4f must be positive", ErrInvalidSABRParams, m.Alpha)
	case m.Beta < 0 || m.Beta > 1:
		return fmt.Errorf("%w: beta %.4f outside [0, 1]", ErrInvalidSABRParams, m.Beta)
	case m.Rho <= -1 || m.Rho >= 1:
		return fmt.Errorf("%w: rho %.4f outside (-1, 1)", ErrInvalidSABRParams, m.Rho)
	case m.Nu < 0:
		return fmt.Errorf("%w: nu %.4f must be non-negative", ErrInvalidSABRParams, m.Nu)
	}
	return nil
}

func (m SABRModel) Name() string { return string(KindSABR) }

// ImpliedVol returns the SABR lognormal volatility for forward F and strike K.
func (m SABRModel) ImpliedVol(F, K, T float64) (float64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}
	if !finite(F, K, T) || F <= 0 || K <= 0 {
		return 0, fmt.Errorf("%w: forward %.4f strike %.4f", ErrInvalidInput, F, K)
	}
	if T < 0 {
		return 0, fmt.Errorf("%w: %.6f years", ErrNegativeExpiry, T)
	}

	var vol float64
	if F == K {
		vol = m.atmVol(F, T)
	} else {
		vol = m.generalVol(F, K, T)
	}
	if !finite(vol) || vol <= 0 {
		return 0, fmt.Errorf("%w: SABR volatility %.6f at F=%.4f K=%.4f", ErrNonFinitePrice, vol, F, K)
	}
	return vol, nil
}

// atmVol is the F == K limit; the general expression is 0/0 there.
func (m SABRModel) atmVol(F, T float64) float64 {
	fBeta := math.Pow(F, 1-m.Beta)
	return m.Alpha / fBeta * (1 + m.timeCorrection(fBeta)*T)
}

func (m SABRModel) generalVol(F, K, T float64) float64 {
	oneMinusBeta := 1 - m.Beta
	logFK := math.Log(F / K)
	fkBeta := math.Pow(F*K, oneMinusBeta/2)

	z := m.Nu / m.Alpha * fkBeta * logFK
	zOverX := 1.0
	if math.Abs(z) >= ZTolerance {
		x := m.xOfZ(z)
		if !finite(x) || x == 0 {
			return math.NaN()
		}
		zOverX = z / x
	}

	lf2 := logFK * logFK
	denom := fkBeta * (1 + oneMinusBeta*oneMinusBeta/24*lf2 + math.Pow(oneMinusBeta, 4)/1920*lf2*lf2)

	return m.Alpha / denom * zOverX * (1 + m.timeCorrection(fkBeta)*T)
}

// xOfZ is ln((sqrt(1-2ρz+z²)+z-ρ)/(1-ρ)), rearranged through Log1p so that
// strikes a hair away from the forward do not lose precision.
func (m SABRModel) xOfZ(z float64) float64 {
	root := math.Sqrt(1 - 2*m.Rho*z + z*z)
	return math.Log1p(((z*z-2*m.Rho*z)/(root+1) + z) / (1 - m.Rho))
}

// timeCorrection is the bracketed coefficient of T in Hagan's expansion, with
// fkBeta = (FK)^((1-β)/2).
func (m SABRModel) timeCorrection(fkBeta float64) float64 {
	oneMinusBeta := 1 - m.Beta
	return oneMinusBeta*oneMinusBeta/24*m.Alpha*m.Alpha/(fkBeta*fkBeta) +
		0.25*m.Rho*m.Beta*m.Nu*m.Alpha/fkBeta +
		(2-3*m.Rho*m.Rho)/24*m.Nu*m.Nu
}

// Price ignores the volatility argument: the SABR smile supplies it.
func (m SABRModel) Price(forward, strike, timeToExpiry, _ float64, optionType OptionType) (float64, error) {
	if !optionType.valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOptionType, string(optionType))
	}
	vol, err := m.ImpliedVol(forward, strike, timeToExpiry)
	if err != nil {
		return 0, err
	}
	return NewBlackScholesModel(m.R).Price(forward, strike, timeToExpiry, vol, optionType)
}
