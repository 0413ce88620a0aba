package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelation(t *testing.T) {
	data := [][]float64{
		{0.1, 0.2, -0.1},
		{0.05, 0.03, 0.04},
	}
	corr, err := Correlation(data)
	require.NoError(t, err)

	require.Len(t, corr, 2)
	for _, row := range corr {
		assert.Len(t, row, 2)
	}
	assert.InDelta(t, 1.0, corr[0][0], 1e-8)
	assert.InDelta(t, 1.0, corr[1][1], 1e-8)
	assert.Equal(t, corr[0][1], corr[1][0])
	assert.LessOrEqual(t, corr[0][1], 1.0)
	assert.GreaterOrEqual(t, corr[0][1], -1.0)
}

func TestCorrelation_PerfectAndConstant(t *testing.T) {
	corr, err := Correlation([][]float64{
		{1, 2, 3, 4},
		{2, 4, 6, 8},
		{-1, -2, -3, -4},
		{5, 5, 5, 5},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, corr[0][1], 1e-12)
	assert.InDelta(t, -1.0, corr[0][2], 1e-12)
	assert.Equal(t, 0.0, corr[0][3])
	assert.Equal(t, 0.0, corr[3][2])
	assert.Equal(t, 1.0, corr[3][3])
}

func TestCorrelation_Validation(t *testing.T) {
	tests := []struct {
		name   string
		series [][]float64
	}{
		{"no series", nil},
		{"single observation", [][]float64{{1}, {2}}},
		{"ragged", [][]float64{{1, 2, 3}, {1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Correlation(tt.series)
			assert.Error(t, err)
			_, err = Covariance(tt.series)
			assert.Error(t, err)
		})
	}
}

func TestCovariance(t *testing.T) {
	cov, err := Covariance([][]float64{
		{1, 2, 3, 4},
		{2, 4, 6, 8},
	})
	require.NoError(t, err)

	// sample variance of 1..4 is 5/3
	assert.InDelta(t, 5.0/3, cov[0][0], 1e-12)
	assert.InDelta(t, 20.0/3, cov[1][1], 1e-12)
	assert.InDelta(t, 10.0/3, cov[0][1], 1e-12)
	assert.Equal(t, cov[0][1], cov[1][0])
}

func TestNewCorrelationMatrix(t *testing.T) {
	m, err := NewCorrelationMatrix([]string{"AAPL"}, [][]float64{{1, 2, 3}, {3, 1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "series_1"}, m.Instruments)
	assert.Len(t, m.Matrix, 2)
}

func TestPadSeries(t *testing.T) {
	padded := PadSeries([][]float64{{1, 2, 3}, {4}})
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 0, 0}}, padded)
}
