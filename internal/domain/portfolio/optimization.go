package portfolio

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	apperrors "portfolioanalytics/internal/errors"
)

// FrontierPoint is one randomly weighted portfolio
type FrontierPoint struct {
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
	Sharpe     float64   `json:"sharpe"`
	Weights    []float64 `json:"weights"`
}

func toDense(cov [][]float64, n int) (*mat.Dense, error) {
	if len(cov) != n {
		return nil, apperrors.NewDataValidationError("covariance has %d rows, expected %d", len(cov), n)
	}
	m := mat.NewDense(n, n, nil)
	for i, row := range cov {
		if len(row) != n {
			return nil, apperrors.NewDataValidationError("covariance row %d has %d columns, expected %d", i, len(row), n)
		}
		m.SetRow(i, row)
	}
	return m, nil
}

// CapReturns limits every expected return to maxReturn
func CapReturns(mu []float64, maxReturn float64) []float64 {
	out := make([]float64, len(mu))
	for i, r := range mu {
		out[i] = math.Min(r, maxReturn)
	}
	return out
}

// pinv computes the Moore-Penrose pseudo-inverse of a square matrix via SVD
func pinv(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, apperrors.NewCalculationError("singular value decomposition failed", nil)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	tol := 1e-15 * s[0] * float64(len(s))
	inv := mat.NewDiagDense(len(s), nil)
	for i, sv := range s {
		if sv > tol {
			inv.SetDiag(i, 1/sv)
		}
	}

	var tmp, out mat.Dense
	tmp.Mul(&v, inv)
	out.Mul(&tmp, u.T())
	return &out, nil
}

// MaxSharpeRatio returns the tangency portfolio weights
// pinv(cov + ridge*I)(mu - rf), normalised to sum to one and clipped to
// [lower, upper].
func MaxSharpeRatio(mu []float64, cov [][]float64, rf, lower, upper, ridge float64) ([]float64, error) {
	n := len(mu)
	if n == 0 {
		return nil, apperrors.NewDataValidationError("expected returns are empty")
	}
	if lower > upper {
		return nil, apperrors.NewDataValidationError("weight bounds are inverted: [%g, %g]", lower, upper)
	}
	c, err := toDense(cov, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		c.Set(i, i, c.At(i, i)+ridge)
	}

	inv, err := pinv(c)
	if err != nil {
		return nil, err
	}

	excess := mat.NewVecDense(n, nil)
	for i, r := range mu {
		excess.SetVec(i, r-rf)
	}
	var raw mat.VecDense
	raw.MulVec(inv, excess)

	w := make([]float64, n)
	sum := mat.Sum(&raw)
	for i := range w {
		w[i] = raw.AtVec(i)
		if sum != 0 {
			w[i] /= sum
		}
	}

	var total float64
	for i := range w {
		w[i] = math.Min(math.Max(w[i], lower), upper)
		total += w[i]
	}
	if total != 0 {
		for i := range w {
			w[i] /= total
		}
	}
	return w, nil
}

// PortfolioStats returns the expected return and volatility of weights
func PortfolioStats(w, mu []float64, cov [][]float64) (float64, float64, error) {
	n := len(w)
	if len(mu) != n {
		return 0, 0, apperrors.NewDataValidationError("weights and returns differ in length")
	}
	c, err := toDense(cov, n)
	if err != nil {
		return 0, 0, err
	}
	wv := mat.NewVecDense(n, w)
	ret := mat.Dot(wv, mat.NewVecDense(n, mu))
	variance := mat.Inner(wv, c, wv)
	return ret, math.Sqrt(math.Max(variance, 0)), nil
}

// RandomPortfolios samples n long-only fully invested portfolios
func RandomPortfolios(mu []float64, cov [][]float64, n int, rf float64, seed uint64) ([]FrontierPoint, error) {
	assets := len(mu)
	if assets == 0 {
		return nil, apperrors.NewDataValidationError("expected returns are empty")
	}
	if _, err := toDense(cov, assets); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([]FrontierPoint, 0, n)
	for k := 0; k < n; k++ {
		w := make([]float64, assets)
		var sum float64
		for i := range w {
			w[i] = rng.Float64()
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
		ret, vol, _ := PortfolioStats(w, mu, cov)
		point := FrontierPoint{Return: ret, Volatility: vol, Weights: w}
		if vol > 0 {
			point.Sharpe = (ret - rf) / vol
		}
		out = append(out, point)
	}
	return out, nil
}
