package portfolio

import (
	"math"

	apperrors "portfolioanalytics/internal/errors"
)

// ComputeRebalanceTrades returns target minus current, with differences
// smaller than threshold in absolute value set to zero. Positive values
// are buys.
func ComputeRebalanceTrades(current, target []float64, threshold float64) ([]float64, error) {
	if len(current) != len(target) {
		return nil, apperrors.NewDataValidationError(
			"current has %d weights but target has %d", len(current), len(target))
	}
	trades := make([]float64, len(current))
	for i := range current {
		d := target[i] - current[i]
		if math.Abs(d) >= threshold {
			trades[i] = d
		}
	}
	return trades, nil
}

// ApplyRebalance adds trades to current, clips at zero and renormalises
func ApplyRebalance(current, trades []float64) ([]float64, error) {
	if len(current) != len(trades) {
		return nil, apperrors.NewDataValidationError(
			"current has %d weights but trades has %d", len(current), len(trades))
	}
	out := make([]float64, len(current))
	var total float64
	for i := range current {
		out[i] = math.Max(current[i]+trades[i], 0)
		total += out[i]
	}
	if total != 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out, nil
}

// Turnover is half the sum of absolute trades
func Turnover(trades []float64) float64 {
	var sum float64
	for _, t := range trades {
		sum += math.Abs(t)
	}
	return sum / 2
}
