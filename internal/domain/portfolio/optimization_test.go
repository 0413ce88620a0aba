package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/shared/testutil"
)

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func TestMaxSharpeRatio(t *testing.T) {
	t.Run("diagonal covariance without ridge", func(t *testing.T) {
		// inv(cov)·mu = [0.1/0.04, 0.1/0.01] = [2.5, 10]
		w, err := MaxSharpeRatio([]float64{0.1, 0.1}, [][]float64{{0.04, 0}, {0, 0.01}}, 0, 0, 1, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.2, w[0], 1e-9)
		assert.InDelta(t, 0.8, w[1], 1e-9)
	})

	t.Run("weights sum to one within bounds", func(t *testing.T) {
		w, err := MaxSharpeRatio([]float64{0.08, 0.12}, testutil.TwoAssetCovariance(), 0.03, 0, 1, 1.0)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sum(w), 1e-9)
		for _, x := range w {
			assert.GreaterOrEqual(t, x, 0.0)
			assert.LessOrEqual(t, x, 1.0)
		}
	})

	t.Run("negative excess return is clipped", func(t *testing.T) {
		w, err := MaxSharpeRatio([]float64{0.01, 0.2}, [][]float64{{0.04, 0}, {0, 0.04}}, 0.03, 0, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, w[0])
		assert.InDelta(t, 1.0, w[1], 1e-9)
	})

	t.Run("singular covariance uses pseudo-inverse", func(t *testing.T) {
		w, err := MaxSharpeRatio([]float64{0.1, 0.1}, [][]float64{{0.04, 0.04}, {0.04, 0.04}}, 0, 0, 1, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, w[0], 1e-9)
		assert.InDelta(t, 0.5, w[1], 1e-9)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := MaxSharpeRatio(nil, nil, 0, 0, 1, 0)
		assert.Error(t, err)
		_, err = MaxSharpeRatio([]float64{0.1}, [][]float64{{0.1, 0}}, 0, 0, 1, 0)
		assert.Error(t, err)
		_, err = MaxSharpeRatio([]float64{0.1}, [][]float64{{0.1}}, 0, 1, 0, 0)
		assert.Error(t, err)
	})
}

func TestCapReturns(t *testing.T) {
	assert.Equal(t, []float64{0.1, 0.5, -0.2}, CapReturns([]float64{0.1, 0.9, -0.2}, 0.5))
}

func TestPortfolioStats(t *testing.T) {
	ret, vol, err := PortfolioStats([]float64{0.5, 0.5}, []float64{0.1, 0.2}, testutil.TwoAssetCovariance())
	require.NoError(t, err)
	assert.InDelta(t, 0.15, ret, 1e-12)
	// 0.25*0.04 + 0.25*0.09 + 2*0.25*0.006
	assert.InDelta(t, math.Sqrt(0.0355), vol, 1e-12)
}

func TestRandomPortfolios(t *testing.T) {
	mu := []float64{0.08, 0.12}
	points, err := RandomPortfolios(mu, testutil.TwoAssetCovariance(), 50, 0.03, 42)
	require.NoError(t, err)
	require.Len(t, points, 50)

	for _, p := range points {
		assert.InDelta(t, 1.0, sum(p.Weights), 1e-9)
		assert.GreaterOrEqual(t, p.Return, 0.08-1e-12)
		assert.LessOrEqual(t, p.Return, 0.12+1e-12)
		assert.Positive(t, p.Volatility)
	}

	again, err := RandomPortfolios(mu, testutil.TwoAssetCovariance(), 50, 0.03, 42)
	require.NoError(t, err)
	assert.Equal(t, points, again)
}
