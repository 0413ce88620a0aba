package equity

import (
	"math"

	"portfolioanalytics/internal/config"
)

const valuationBand = 0.10

// SafeDiv divides when both operands are present and the result is finite
func SafeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// RevenueCAGR is the compound annual growth of revenues given oldest first,
// one observation per year.
func RevenueCAGR(revenues []float64) *float64 {
	if len(revenues) < 2 {
		return nil
	}
	first, last := revenues[0], revenues[len(revenues)-1]
	if first == 0 {
		return nil
	}
	years := float64(len(revenues) - 1)
	v := math.Pow(last/first, 1/years) - 1
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ClassifyLifecycle maps revenue growth to Growth, Mature or Defensive
func ClassifyLifecycle(cagr *float64) string {
	switch {
	case cagr == nil:
		return ""
	case *cagr >= config.GrowthRevenueCAGR:
		return config.ClassGrowth
	case *cagr >= config.MatureRevenueCAGR:
		return config.ClassMature
	default:
		return config.ClassDefensive
	}
}

// SectorClass returns the sector's class, or "" for unknown sectors
func SectorClass(sector string) string {
	return config.SectorClassifications[sector]
}

// ExpectedPE is the sector base multiple scaled by one plus revenue growth.
// Unknown sectors use the Mature multiple.
func ExpectedPE(sector string, cagr *float64) float64 {
	class := SectorClass(sector)
	if class == "" {
		class = config.ClassMature
	}
	base, ok := config.BasePE[class]
	if !ok {
		base = config.BasePE[config.ClassMature]
	}
	adj := 1.0
	if cagr != nil {
		adj += *cagr
	}
	return base * adj
}

// Value builds the valuation from fundamentals and ratios. Without an
// actual P/E every comparison field stays nil.
func Value(f Fundamentals, r Ratios) Valuation {
	v := Valuation{Equity: f.Equity, ActualPE: r.PE}
	if r.PE == nil {
		return v
	}

	expected := ExpectedPE(f.Equity.Sector, f.RevenueCAGR)
	diff := *r.PE - expected
	v.ExpectedPE = &expected
	v.ValuationDifference = &diff

	if expected != 0 {
		switch {
		case *r.PE < expected*(1-valuationBand):
			v.Status = StatusUndervalued
		case *r.PE > expected*(1+valuationBand):
			v.Status = StatusOvervalued
		default:
			v.Status = StatusFair
		}
	}
	return v
}
