package portfolio

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"portfolioanalytics/internal/domain/risk"
	apperrors "portfolioanalytics/internal/errors"
)

// Simulation defaults
const (
	DefaultHorizon     = 252
	DefaultSimulations = 10000
)

// Summary describes a simulated return distribution
type Summary struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Percentile5  float64 `json:"p5"`
	Percentile50 float64 `json:"p50"`
	Percentile95 float64 `json:"p95"`
	Paths        int     `json:"paths"`
}

func cholesky(cov [][]float64, n int) (*mat.TriDense, error) {
	c, err := toDense(cov, n)
	if err != nil {
		return nil, err
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, c.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, apperrors.NewCalculationError("covariance matrix is not positive definite", nil)
	}
	var l mat.TriDense
	chol.LTo(&l)
	return &l, nil
}

// correlatedDraw fills r with mu + L·z for a fresh standard normal vector z
func correlatedDraw(r, z []float64, mu []float64, l *mat.TriDense, rng *rand.Rand) {
	n := len(mu)
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	for i := 0; i < n; i++ {
		v := mu[i]
		for j := 0; j <= i; j++ {
			v += l.At(i, j) * z[j]
		}
		r[i] = v
	}
}

func checkSimulationArgs(mu []float64, horizon, paths int) error {
	if len(mu) == 0 {
		return apperrors.NewDataValidationError("expected returns are empty")
	}
	if horizon <= 0 || paths <= 0 {
		return apperrors.NewDataValidationError("horizon and number of simulations must be positive")
	}
	return nil
}

// SimulatePortfolioReturns draws paths of horizon correlated period
// returns and compounds the weighted portfolio return of each path.
func SimulatePortfolioReturns(w, mu []float64, cov [][]float64, horizon, paths int, rng *rand.Rand) ([]float64, error) {
	if err := checkSimulationArgs(mu, horizon, paths); err != nil {
		return nil, err
	}
	if len(w) != len(mu) {
		return nil, apperrors.NewDataValidationError("weights and returns differ in length")
	}
	l, err := cholesky(cov, len(mu))
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	n := len(mu)
	r := make([]float64, n)
	z := make([]float64, n)
	out := make([]float64, paths)
	for p := 0; p < paths; p++ {
		cum := 1.0
		for t := 0; t < horizon; t++ {
			correlatedDraw(r, z, mu, l, rng)
			var pr float64
			for i := range r {
				pr += w[i] * r[i]
			}
			cum *= 1 + pr
		}
		out[p] = cum - 1
	}
	return out, nil
}

// SimulateAssetPaths returns paths x horizon x assets correlated returns
func SimulateAssetPaths(mu []float64, cov [][]float64, horizon, paths int, rng *rand.Rand) ([][][]float64, error) {
	if err := checkSimulationArgs(mu, horizon, paths); err != nil {
		return nil, err
	}
	l, err := cholesky(cov, len(mu))
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	z := make([]float64, len(mu))
	out := make([][][]float64, paths)
	for p := range out {
		out[p] = make([][]float64, horizon)
		for t := range out[p] {
			row := make([]float64, len(mu))
			correlatedDraw(row, z, mu, l, rng)
			out[p][t] = row
		}
	}
	return out, nil
}

// Summarize reports the moments and 5/50/95 percentiles of results
func Summarize(results []float64) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(results))
	copy(sorted, results)
	sort.Float64s(sorted)

	s := Summary{Paths: len(results)}
	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Percentile5 = risk.Quantile(sorted, 0.05)
	s.Percentile50 = risk.Quantile(sorted, 0.50)
	s.Percentile95 = risk.Quantile(sorted, 0.95)
	return s
}
