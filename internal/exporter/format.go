package exporter

import (
	"fmt"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// NotAvailable is printed for missing metrics
const NotAvailable = "n/a"

// Money formats an amount in the currency's minor units, e.g. "$1,234.50".
// Unknown currency codes fall back to two decimals followed by the code.
func Money(amount float64, currency string) string {
	return MoneyDecimal(decimal.NewFromFloat(amount), currency)
}

// MoneyDecimal is Money for an exact decimal amount
func MoneyDecimal(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := amount.Mul(factor).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// Percent renders a fraction as a percentage with two decimals
func Percent(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return decimal.NewFromFloat(*v).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// Ratio renders a multiple with two decimals
func Ratio(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return formatFloat(*v)
}

// Cell unwraps an optional metric for spreadsheet output
func Cell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

// formatCell renders a spreadsheet cell for CSV output
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	case int:
		return formatInt(int64(x))
	case int64:
		return formatInt(x)
	case bool:
		return formatBool(x)
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
