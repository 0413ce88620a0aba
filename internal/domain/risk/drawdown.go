package risk

import (
	"strconv"
	"time"

	apperrors "portfolioanalytics/internal/errors"
)

const dateLayout = "2006-01-02"

// MaxDrawdown computes the deepest decline of the compounded wealth index
// from its running peak. dates may be nil; when given it must match returns
// in length. An empty series has no drawdown and yields nil.
func MaxDrawdown(returns []float64, dates []time.Time) (*DrawdownStats, error) {
	if len(returns) == 0 {
		return nil, nil
	}
	if dates != nil && len(dates) != len(returns) {
		return nil, apperrors.NewDataValidationError(
			"drawdown has %d returns but %d dates", len(returns), len(dates))
	}

	wealth := make([]float64, len(returns))
	w := 1.0
	for i, r := range returns {
		w *= 1 + r
		wealth[i] = w
	}

	peakIdx, trough, troughPeak := 0, 0, 0
	mdd := 0.0
	for i := range wealth {
		if wealth[i] > wealth[peakIdx] {
			peakIdx = i
		}
		dd := wealth[i]/wealth[peakIdx] - 1
		if dd < mdd {
			mdd, trough, troughPeak = dd, i, peakIdx
		}
	}

	stats := &DrawdownStats{MaxDrawdown: mdd}
	if mdd == 0 {
		return stats, nil
	}

	label := func(i int) *string {
		s := strconv.Itoa(i)
		if dates != nil {
			s = dates[i].Format(dateLayout)
		}
		return &s
	}

	stats.StartDate = label(troughPeak)
	stats.EndDate = label(trough)
	for i := trough + 1; i < len(wealth); i++ {
		if wealth[i] >= wealth[troughPeak] {
			stats.RecoveryDate = label(i)
			break
		}
	}
	return stats, nil
}
