package fixedincome

import (
	"math"
	"time"

	apperrors "portfolioanalytics/internal/errors"
)

const daysPerYear = 365.0

// schedule returns the coupon frequency, number of remaining periods,
// per-period yield and per-period coupon.
func schedule(b Bond, ytm float64, asOf time.Time) (n, periods int, y, coupon float64) {
	b = b.WithDefaults()
	n = b.CouponFrequency
	years := math.Max(b.MaturityDate.Sub(asOf).Hours()/24/daysPerYear, 0)
	periods = int(math.Max(math.Round(years*float64(n)), 1))
	y = ytm / float64(n)
	coupon = b.CouponRate * b.FaceValue / float64(n)
	return n, periods, y, coupon
}

// YearsToMaturity is the time from asOf to maturity on an actual/365 basis
func YearsToMaturity(b Bond, asOf time.Time) float64 {
	return math.Max(b.MaturityDate.Sub(asOf).Hours()/24/daysPerYear, 0)
}

// Price is the present value of the remaining coupons and principal
func Price(b Bond, ytm float64, asOf time.Time) float64 {
	_, periods, y, coupon := schedule(b, ytm, asOf)
	face := b.WithDefaults().FaceValue

	var pv float64
	for t := 1; t <= periods; t++ {
		pv += coupon / math.Pow(1+y, float64(t))
	}
	return pv + face/math.Pow(1+y, float64(periods))
}

// MacaulayDuration is the PV weighted average time to cash flow in years
func MacaulayDuration(b Bond, ytm float64, asOf time.Time) float64 {
	price := Price(b, ytm, asOf)
	if price == 0 {
		return 0
	}
	n, periods, y, coupon := schedule(b, ytm, asOf)
	face := b.WithDefaults().FaceValue

	var d float64
	for t := 1; t <= periods; t++ {
		d += float64(t) * coupon / math.Pow(1+y, float64(t))
	}
	d += float64(periods) * face / math.Pow(1+y, float64(periods))
	return d / price / float64(n)
}

// ModifiedDuration is Macaulay duration over (1 + ytm/n)
func ModifiedDuration(b Bond, ytm float64, asOf time.Time) float64 {
	n, _, _, _ := schedule(b, ytm, asOf)
	return MacaulayDuration(b, ytm, asOf) / (1 + ytm/float64(n))
}

// Convexity is the second derivative of price with respect to the annual
// yield, relative to price.
func Convexity(b Bond, ytm float64, asOf time.Time) float64 {
	price := Price(b, ytm, asOf)
	if price == 0 {
		return 0
	}
	n, periods, y, coupon := schedule(b, ytm, asOf)
	face := b.WithDefaults().FaceValue

	var c float64
	for t := 1; t <= periods; t++ {
		ft := float64(t)
		c += ft * (ft + 1) * coupon / math.Pow(1+y, ft+2)
	}
	fp := float64(periods)
	c += fp * (fp + 1) * face / math.Pow(1+y, fp+2)
	return c / price / float64(n*n)
}

// PriceSensitivity approximates the price change for a yield shift dy from
// modified duration and convexity.
func PriceSensitivity(b Bond, ytm, dy float64, asOf time.Time) float64 {
	p := Price(b, ytm, asOf)
	d := ModifiedDuration(b, ytm, asOf)
	c := Convexity(b, ytm, asOf)
	return p * (-d*dy + 0.5*c*dy*dy)
}

// Metrics bundles the duration measures at ytm
func Metrics(b Bond, ytm float64, asOf time.Time) DurationMetrics {
	mac := MacaulayDuration(b, ytm, asOf)
	mod := ModifiedDuration(b, ytm, asOf)
	conv := Convexity(b, ytm, asOf)
	return DurationMetrics{MacaulayDuration: &mac, ModifiedDuration: &mod, Convexity: &conv}
}

// YieldToMaturity solves Price(b, y, asOf) = price for y by bisection
func YieldToMaturity(b Bond, price float64, asOf time.Time) (float64, error) {
	if price <= 0 {
		return 0, apperrors.NewDataValidationError("bond %s: price must be positive", b.ISIN)
	}

	lo, hi := -0.99, 1.0
	for Price(b, hi, asOf) > price && hi < 100 {
		hi *= 2
	}
	if Price(b, lo, asOf) < price || Price(b, hi, asOf) > price {
		return 0, apperrors.NewCalculationError("yield to maturity does not bracket the price", nil).
			WithContext("isin", b.ISIN)
	}

	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if Price(b, mid, asOf) > price {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-12 {
			break
		}
	}
	return (lo + hi) / 2, nil
}
