package fixedincome

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlow is a scheduled payment per unit of face value
type CashFlow struct {
	Date      time.Time       `json:"date"`
	Coupon    decimal.Decimal `json:"coupon"`
	Principal decimal.Decimal `json:"principal"`
	Total     decimal.Decimal `json:"total"`
}

// CashFlows lists the coupon dates after asOf, stepping back from maturity
// in 12/n month intervals. The final flow repays the face value.
func CashFlows(b Bond, asOf time.Time) []CashFlow {
	b = b.WithDefaults()
	if !b.MaturityDate.After(asOf) {
		return nil
	}

	months := 12 / b.CouponFrequency
	coupon := decimal.NewFromFloat(b.CouponRate).
		Mul(decimal.NewFromFloat(b.FaceValue)).
		Div(decimal.NewFromInt(int64(b.CouponFrequency))).
		Round(6)
	face := decimal.NewFromFloat(b.FaceValue)

	var dates []time.Time
	for k := 0; ; k++ {
		d := b.MaturityDate.AddDate(0, -k*months, 0)
		if !d.After(asOf) {
			break
		}
		dates = append(dates, d)
	}

	flows := make([]CashFlow, len(dates))
	for i := range dates {
		d := dates[len(dates)-1-i]
		cf := CashFlow{Date: d, Coupon: coupon, Principal: decimal.Zero}
		if i == len(dates)-1 {
			cf.Principal = face
		}
		cf.Total = cf.Coupon.Add(cf.Principal)
		flows[i] = cf
	}
	return flows
}

// TotalCashFlow sums the remaining payments
func TotalCashFlow(flows []CashFlow) decimal.Decimal {
	total := decimal.Zero
	for _, cf := range flows {
		total = total.Add(cf.Total)
	}
	return total
}
