package testutil

import (
	"math/rand"
	"time"
)

// NormalReturns draws n returns from N(mean, stdDev) with a fixed seed
func NormalReturns(seed int64, n int, mean, stdDev float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + stdDev*rng.NormFloat64()
	}
	return out
}

// DailyDates returns n consecutive calendar days starting at start
func DailyDates(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// TwoAssetCovariance is a well-conditioned positive-definite matrix
func TwoAssetCovariance() [][]float64 {
	return [][]float64{
		{0.04, 0.006},
		{0.006, 0.09},
	}
}

// ValuationDate is a fixed clock used by fixed-income tests
var ValuationDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
