package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestBlackScholesReferencePrices(t *testing.T) {
	m := NewBlackScholesModel(0.05)

	call, err := m.Price(100, 100, 1, 0.2, Call)
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, call, 1e-9)

	put, err := m.Price(100, 100, 1, 0.2, Put)
	require.NoError(t, err)
	assert.InDelta(t, 5.573526022256971, put, 1e-9)
}

func TestBlackScholesPutCallParity(t *testing.T) {
	m := NewBlackScholesModel(0.03)
	S, K, T := 100.0, 105.0, 45.0/365

	call, err := m.Price(S, K, T, 0.25, Call)
	require.NoError(t, err)
	put, err := m.Price(S, K, T, 0.25, Put)
	require.NoError(t, err)

	assert.InDelta(t, S-K*math.Exp(-0.03*T), call-put, 1e-9)
}

func TestBlackScholesNoArbitrageBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(20240601))

	for i := 0; i < 2000; i++ {
		S := 50 + 100*rng.Float64()
		K := 50 + 100*rng.Float64()
		T := 0.01 + 2*rng.Float64()
		sigma := 0.05 + 0.95*rng.Float64()
		r := 0.1 * rng.Float64()

		call, err := NewBlackScholesModel(r).Price(S, K, T, sigma, Call)
		require.NoError(t, err)

		lower := math.Max(0, S-K*math.Exp(-r*T))
		assert.GreaterOrEqual(t, call, lower-1e-9, "S=%v K=%v T=%v sigma=%v r=%v", S, K, T, sigma, r)
		assert.LessOrEqual(t, call, S+1e-9, "S=%v K=%v T=%v sigma=%v r=%v", S, K, T, sigma, r)
	}
}

func TestBlackScholesZeroDenominatorIsFloored(t *testing.T) {
	m := NewBlackScholesModel(0.04)

	t.Run("expiry today collapses to intrinsic", func(t *testing.T) {
		itm, err := m.Price(110, 100, 0, 0.3, Call)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, itm, 1e-12)

		otm, err := m.Price(90, 100, 0, 0.3, Call)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, otm, 1e-12)

		atm, err := m.Price(100, 100, 0, 0.3, Put)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, atm, 1e-12)
	})

	t.Run("zero volatility", func(t *testing.T) {
		price, err := m.Price(110, 100, 0.5, 0, Call)
		require.NoError(t, err)
		assert.InDelta(t, 110-100*math.Exp(-0.04*0.5), price, 1e-9)
	})
}

func TestBlackScholesRejectsBadInput(t *testing.T) {
	m := NewBlackScholesModel(0.04)

	_, err := m.Price(100, 100, 1, 0.2, OptionType("binary"))
	assert.ErrorIs(t, err, ErrInvalidOptionType)

	_, err = m.Price(100, 100, -0.01, 0.2, Call)
	assert.ErrorIs(t, err, ErrNegativeExpiry)

	_, err = m.Price(0, 100, 1, 0.2, Call)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.Price(100, 100, 1, -0.2, Call)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.Price(100, math.NaN(), 1, 0.2, Call)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
