package risk

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "portfolioanalytics/internal/errors"
)

func validateSeries(series [][]float64) (int, error) {
	if len(series) == 0 {
		return 0, apperrors.NewDataValidationError("at least one series is required")
	}
	n := len(series[0])
	if n < 2 {
		return 0, apperrors.NewDataValidationError("series need at least two observations, got %d", n)
	}
	for i, s := range series {
		if len(s) != n {
			return 0, apperrors.NewDataValidationError(
				"series %d has %d observations, expected %d", i, len(s), n)
		}
	}
	return n, nil
}

// Correlation returns the Pearson correlation matrix of series, one series
// per row. A series with zero variance is uncorrelated with every other.
func Correlation(series [][]float64) ([][]float64, error) {
	if _, err := validateSeries(series); err != nil {
		return nil, err
	}

	k := len(series)
	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, k)
		out[i][i] = 1
	}

	stds := make([]float64, k)
	for i, s := range series {
		stds[i] = stat.StdDev(s, nil)
	}

	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			var c float64
			if stds[i] > 0 && stds[j] > 0 {
				c = stat.Correlation(series[i], series[j], nil)
			}
			out[i][j], out[j][i] = c, c
		}
	}
	return out, nil
}

// Covariance returns the sample covariance matrix of series, one series per row
func Covariance(series [][]float64) ([][]float64, error) {
	n, err := validateSeries(series)
	if err != nil {
		return nil, err
	}

	k := len(series)
	obs := mat.NewDense(n, k, nil)
	for j, s := range series {
		obs.SetCol(j, s)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, obs, nil)

	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, k)
		for j := range out[i] {
			out[i][j] = cov.At(i, j)
		}
	}
	return out, nil
}

// NewCorrelationMatrix labels a correlation matrix with instrument names.
// Missing labels are filled with the series index.
func NewCorrelationMatrix(instruments []string, series [][]float64) (CorrelationMatrix, error) {
	m, err := Correlation(series)
	if err != nil {
		return CorrelationMatrix{}, err
	}
	labels := make([]string, len(series))
	for i := range labels {
		if i < len(instruments) && instruments[i] != "" {
			labels[i] = instruments[i]
		} else {
			labels[i] = fmt.Sprintf("series_%d", i)
		}
	}
	return CorrelationMatrix{Instruments: labels, Matrix: m}, nil
}

// PadSeries right-pads every series with zeros to the longest length
func PadSeries(series [][]float64) [][]float64 {
	maxLen := 0
	for _, s := range series {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	out := make([][]float64, len(series))
	for i, s := range series {
		out[i] = make([]float64, maxLen)
		copy(out[i], s)
	}
	return out
}
