package fixedincome

import (
	"math"
	"sort"
)

// InterpolateYieldCurve linearly interpolates rates at maturities, holding
// the end rates flat outside the observed tenors. With no points every
// rate is zero. A NaN maturity yields a NaN rate.
func InterpolateYieldCurve(points []YieldCurvePoint, maturities []float64) []float64 {
	out := make([]float64, len(maturities))
	if len(points) == 0 {
		return out
	}
	sorted := BootstrapZeroRates(points)

	for i, m := range maturities {
		switch {
		case math.IsNaN(m):
			out[i] = math.NaN()
		case m <= sorted[0].Tenor:
			out[i] = sorted[0].Rate
		case m >= sorted[len(sorted)-1].Tenor:
			out[i] = sorted[len(sorted)-1].Rate
		default:
			j := sort.Search(len(sorted), func(k int) bool { return sorted[k].Tenor >= m })
			if j <= 0 || j >= len(sorted) {
				out[i] = sorted[len(sorted)-1].Rate
				continue
			}
			a, b := sorted[j-1], sorted[j]
			if b.Tenor == a.Tenor {
				out[i] = b.Rate
				continue
			}
			out[i] = a.Rate + (m-a.Tenor)*(b.Rate-a.Rate)/(b.Tenor-a.Tenor)
		}
	}
	return out
}

// BootstrapZeroRates treats the observed curve as zero rates and returns
// a copy sorted by tenor.
func BootstrapZeroRates(points []YieldCurvePoint) []YieldCurvePoint {
	out := make([]YieldCurvePoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tenor < out[j].Tenor })
	return out
}
