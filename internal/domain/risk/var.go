package risk

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "portfolioanalytics/internal/errors"
)

func validateVaRInput(returns []float64, confidence float64) error {
	if len(returns) == 0 {
		return apperrors.NewDataValidationError("returns series is empty")
	}
	if confidence <= 0 || confidence >= 1 {
		return apperrors.NewDataValidationError("confidence level must be in (0, 1), got %g", confidence)
	}
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return apperrors.NewDataValidationError("non-finite return at index %d", i)
		}
	}
	return nil
}

// HistoricalVaR is the loss at the (1-confidence) empirical quantile of returns
func HistoricalVaR(returns []float64, confidence float64) (float64, error) {
	if err := validateVaRInput(returns, confidence); err != nil {
		return 0, err
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	return math.Max(0, -Quantile(sorted, 1-confidence)), nil
}

// ParametricVaR assumes normally distributed returns with the sample mean
// and standard deviation.
func ParametricVaR(returns []float64, confidence float64) (float64, error) {
	if err := validateVaRInput(returns, confidence); err != nil {
		return 0, err
	}
	mu, sigma := meanStd(returns)
	z := distuv.UnitNormal.Quantile(1 - confidence)
	return math.Max(0, -(mu + z*sigma)), nil
}

// MonteCarloVaR draws simulations normal samples with the series' moments
// and takes their historical VaR. A nil rng uses an unseeded source.
func MonteCarloVaR(returns []float64, confidence float64, simulations int, rng *rand.Rand) (float64, error) {
	if err := validateVaRInput(returns, confidence); err != nil {
		return 0, err
	}
	if simulations <= 0 {
		return 0, apperrors.NewDataValidationError("number of simulations must be positive, got %d", simulations)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	mu, sigma := meanStd(returns)
	samples := make([]float64, simulations)
	for i := range samples {
		samples[i] = mu + sigma*rng.NormFloat64()
	}
	return HistoricalVaR(samples, confidence)
}

// Quantile interpolates linearly between the closest ranks of sorted data,
// the same estimator as numpy's default percentile.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// meanStd returns the mean and sample standard deviation; a single
// observation has zero dispersion.
func meanStd(x []float64) (float64, float64) {
	if len(x) < 2 {
		return x[0], 0
	}
	mu, sigma := stat.MeanStdDev(x, nil)
	return mu, sigma
}

// NewVaRResult runs the named method and wraps the estimate
func NewVaRResult(method string, returns []float64, confidence float64, simulations int, rng *rand.Rand) (VaRResult, error) {
	var (
		v   float64
		err error
	)
	switch method {
	case MethodHistorical:
		v, err = HistoricalVaR(returns, confidence)
	case MethodParametric:
		v, err = ParametricVaR(returns, confidence)
	case MethodMonteCarlo:
		v, err = MonteCarloVaR(returns, confidence, simulations, rng)
	default:
		return VaRResult{}, apperrors.NewDataValidationError("unknown VaR method %q", method)
	}
	if err != nil {
		return VaRResult{}, err
	}
	return VaRResult{ConfidenceLevel: confidence, ValueAtRisk: v, Method: method, Horizon: 1}, nil
}
