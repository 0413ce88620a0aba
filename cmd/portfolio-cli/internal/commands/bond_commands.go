package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"portfolioanalytics/internal/domain/fixedincome"
	"portfolioanalytics/internal/exporter"
)

// BondPricing is the output of bond price
type BondPricing struct {
	Bond            fixedincome.Bond            `json:"bond"`
	AsOf            string                      `json:"as_of"`
	YieldToMaturity float64                     `json:"yield_to_maturity"`
	Price           float64                     `json:"price"`
	YearsToMaturity float64                     `json:"years_to_maturity"`
	Metrics         fixedincome.DurationMetrics `json:"metrics"`
	Shift           float64                     `json:"shift"`
	PriceChange     float64                     `json:"price_change"`
	ShiftedPrice    float64                     `json:"shifted_price"`
	CashFlows       []fixedincome.CashFlow      `json:"cash_flows,omitempty"`
}

func (h *Handler) initBondCommands(root *cobra.Command) {
	bondCmd := &cobra.Command{
		Use:   "bond",
		Short: "Fixed income calculations",
	}

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Price a bond and report duration, convexity and yield sensitivity",
		Example: `  portfolio-cli bond price --coupon 0.05 --maturity 2030-06-15 --ytm 0.045
  portfolio-cli bond price --coupon 0.04 --maturity 2034-01-01 --price 97.5 --cashflows`,
		Args: cobra.NoArgs,
		RunE: h.BondPriceCmd,
	}
	priceCmd.Flags().Float64("coupon", 0, "annual coupon rate as a fraction")
	priceCmd.Flags().Int("frequency", fixedincome.DefaultCouponFrequency, "coupons per year: 1, 2, 4 or 12")
	priceCmd.Flags().String("maturity", "", "maturity date (YYYY-MM-DD)")
	priceCmd.Flags().Float64("face", fixedincome.DefaultFaceValue, "face value")
	priceCmd.Flags().Float64("ytm", 0, "annual yield to maturity as a fraction")
	priceCmd.Flags().Float64("price", 0, "market price; solves the yield when --ytm is not set")
	priceCmd.Flags().Float64("shift", 0.01, "parallel yield shift for the sensitivity estimate")
	priceCmd.Flags().String("as-of", "", "valuation date (YYYY-MM-DD, default today)")
	priceCmd.Flags().Bool("cashflows", false, "list the remaining cash flows")
	_ = priceCmd.MarkFlagRequired("maturity")

	bondCmd.AddCommand(priceCmd)
	root.AddCommand(bondCmd)
}

// BondPriceCmd prices the bond described by the flags
func (h *Handler) BondPriceCmd(cmd *cobra.Command, _ []string) error {
	coupon, _ := cmd.Flags().GetFloat64("coupon")
	frequency, _ := cmd.Flags().GetInt("frequency")
	maturityRaw, _ := cmd.Flags().GetString("maturity")
	face, _ := cmd.Flags().GetFloat64("face")
	ytm, _ := cmd.Flags().GetFloat64("ytm")
	price, _ := cmd.Flags().GetFloat64("price")
	shift, _ := cmd.Flags().GetFloat64("shift")
	asOfRaw, _ := cmd.Flags().GetString("as-of")
	withFlows, _ := cmd.Flags().GetBool("cashflows")

	maturity, err := time.Parse(time.DateOnly, maturityRaw)
	if err != nil {
		return fmt.Errorf("--maturity: %w", err)
	}
	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if asOfRaw != "" {
		if asOf, err = time.Parse(time.DateOnly, asOfRaw); err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
	}

	bond := fixedincome.Bond{
		ISIN:            "CLI",
		CouponRate:      coupon,
		CouponFrequency: frequency,
		MaturityDate:    maturity,
		FaceValue:       face,
	}.WithDefaults()
	if price > 0 {
		bond.Price = &price
	}
	if err := bond.Validate(); err != nil {
		return err
	}

	if !cmd.Flags().Changed("ytm") && bond.Price != nil {
		if ytm, err = fixedincome.YieldToMaturity(bond, *bond.Price, asOf); err != nil {
			return err
		}
	}

	result := PriceBond(bond, ytm, shift, asOf)
	if withFlows {
		result.CashFlows = fixedincome.CashFlows(bond, asOf)
	}
	return h.emit(result, bondMarkdown(result))
}

// PriceBond evaluates bond at ytm on asOf
func PriceBond(bond fixedincome.Bond, ytm, shift float64, asOf time.Time) BondPricing {
	p := fixedincome.Price(bond, ytm, asOf)
	change := fixedincome.PriceSensitivity(bond, ytm, shift, asOf)
	return BondPricing{
		Bond:            bond,
		AsOf:            asOf.Format(time.DateOnly),
		YieldToMaturity: ytm,
		Price:           p,
		YearsToMaturity: fixedincome.YearsToMaturity(bond, asOf),
		Metrics:         fixedincome.Metrics(bond, ytm, asOf),
		Shift:           shift,
		PriceChange:     change,
		ShiftedPrice:    p + change,
	}
}

func bondMarkdown(r BondPricing) string {
	currency := r.Bond.Currency
	rows := [][]string{
		{"Valuation date", r.AsOf},
		{"Maturity", r.Bond.MaturityDate.Format(time.DateOnly)},
		{"Years to maturity", fixed(r.YearsToMaturity, 4)},
		{"Coupon", pct(r.Bond.CouponRate) + fmt.Sprintf(" (%d per year)", r.Bond.CouponFrequency)},
		{"Yield to maturity", pct(r.YieldToMaturity)},
		{"Price", exporter.Money(r.Price, currency)},
		{"Macaulay duration (years)", exporter.Ratio(r.Metrics.MacaulayDuration)},
		{"Modified duration", exporter.Ratio(r.Metrics.ModifiedDuration)},
		{"Convexity", exporter.Ratio(r.Metrics.Convexity)},
		{fmt.Sprintf("Price change for %s shift", pct(r.Shift)), exporter.Money(r.PriceChange, currency)},
		{"Shifted price", exporter.Money(r.ShiftedPrice, currency)},
	}
	sections := []exporter.Section{section("Bond pricing", []string{"Measure", "Value"}, rows)}

	if len(r.CashFlows) > 0 {
		flows := make([][]string, len(r.CashFlows))
		for i, cf := range r.CashFlows {
			flows[i] = []string{
				cf.Date.Format(time.DateOnly),
				exporter.MoneyDecimal(cf.Coupon, currency),
				exporter.MoneyDecimal(cf.Principal, currency),
				exporter.MoneyDecimal(cf.Total, currency),
			}
		}
		flows = append(flows, []string{"Total", "", "",
			exporter.MoneyDecimal(fixedincome.TotalCashFlow(r.CashFlows), currency)})
		sections = append(sections, section("Cash flows", []string{"Date", "Coupon", "Principal", "Total"}, flows))
	}
	return exporter.JoinSections(sections...)
}
