// Package fixedincome prices fixed coupon bonds and derives duration,
// convexity, yield to maturity and coupon schedules. Every calculation
// takes an explicit valuation date.
package fixedincome

import (
	"strings"
	"time"

	apperrors "portfolioanalytics/internal/errors"
)

// Bond defaults
const (
	DefaultCouponFrequency = 2
	DefaultFaceValue       = 100.0
	DefaultCurrency        = "USD"
)

// Bond is a fixed coupon bullet bond
type Bond struct {
	ISIN            string    `json:"isin" validate:"required"`
	Issuer          string    `json:"issuer,omitempty"`
	CouponRate      float64   `json:"coupon_rate" validate:"gte=0"`
	CouponFrequency int       `json:"coupon_frequency"`
	MaturityDate    time.Time `json:"maturity_date"`
	FaceValue       float64   `json:"face_value"`
	Price           *float64  `json:"price,omitempty"`
	Currency        string    `json:"currency,omitempty"`
}

// WithDefaults fills the coupon frequency, face value and currency
func (b Bond) WithDefaults() Bond {
	if b.CouponFrequency == 0 {
		b.CouponFrequency = DefaultCouponFrequency
	}
	if b.FaceValue == 0 {
		b.FaceValue = DefaultFaceValue
	}
	if b.Currency == "" {
		b.Currency = DefaultCurrency
	}
	b.ISIN = strings.ToUpper(strings.TrimSpace(b.ISIN))
	return b
}

// Validate checks the bond terms after defaults are applied
func (b Bond) Validate() error {
	switch {
	case strings.TrimSpace(b.ISIN) == "":
		return apperrors.NewDataValidationError("bond isin is required")
	case b.CouponRate < 0:
		return apperrors.NewDataValidationError("bond %s: coupon rate must not be negative", b.ISIN)
	case b.CouponFrequency != 1 && b.CouponFrequency != 2 && b.CouponFrequency != 4 && b.CouponFrequency != 12:
		return apperrors.NewDataValidationError("bond %s: coupon frequency must be 1, 2, 4 or 12, got %d", b.ISIN, b.CouponFrequency)
	case b.MaturityDate.IsZero():
		return apperrors.NewDataValidationError("bond %s: maturity date is required", b.ISIN)
	case b.FaceValue <= 0:
		return apperrors.NewDataValidationError("bond %s: face value must be positive", b.ISIN)
	case b.Price != nil && *b.Price <= 0:
		return apperrors.NewDataValidationError("bond %s: price must be positive", b.ISIN)
	}
	return nil
}

// YieldCurvePoint is the yield for a tenor in years
type YieldCurvePoint struct {
	Tenor float64 `json:"tenor"`
	Rate  float64 `json:"rate"`
}

// DurationMetrics holds the interest rate sensitivity measures of a bond
type DurationMetrics struct {
	MacaulayDuration *float64 `json:"macaulay_duration"`
	ModifiedDuration *float64 `json:"modified_duration"`
	Convexity        *float64 `json:"convexity"`
}
