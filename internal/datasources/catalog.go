package datasources

import (
	"context"
	"time"

	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
)

// CatalogName identifies the local bond catalog
const CatalogName = "catalog"

// Catalog serves registered bonds and the stored yield curve
type Catalog struct {
	store BondCatalog
	now   func() time.Time
}

// NewCatalog wraps the bond store
func NewCatalog(store BondCatalog) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// Name returns the source name
func (c *Catalog) Name() string { return CatalogName }

// Bond loads a registered bond
func (c *Catalog) Bond(ctx context.Context, isin string) (fixedincome.Bond, error) {
	return c.store.GetBond(ctx, isin)
}

// YieldCurve returns the stored curve, possibly empty
func (c *Catalog) YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error) {
	return c.store.YieldCurve(ctx)
}

// DurationMetrics evaluates the bond at the yield implied by its market
// price, or at its coupon rate when no price is known
func (c *Catalog) DurationMetrics(_ context.Context, bond fixedincome.Bond) (fixedincome.DurationMetrics, error) {
	bond = bond.WithDefaults()
	if err := bond.Validate(); err != nil {
		return fixedincome.DurationMetrics{}, err
	}

	asOf := c.now()
	ytm := bond.CouponRate
	if bond.Price != nil {
		solved, err := fixedincome.YieldToMaturity(bond, *bond.Price, asOf)
		if err != nil {
			return fixedincome.DurationMetrics{}, err
		}
		ytm = solved
	}
	return fixedincome.Metrics(bond, ytm, asOf), nil
}

// EquityFundamentals is not served by the catalog
func (c *Catalog) EquityFundamentals(context.Context, string) (equity.Fundamentals, error) {
	return equity.Fundamentals{}, errUnsupported(CatalogName, "equity fundamentals")
}

// EquityRatios is not served by the catalog
func (c *Catalog) EquityRatios(context.Context, string) (equity.Ratios, error) {
	return equity.Ratios{}, errUnsupported(CatalogName, "equity ratios")
}

// EquityValuation is not served by the catalog
func (c *Catalog) EquityValuation(context.Context, string) (equity.Valuation, error) {
	return equity.Valuation{}, errUnsupported(CatalogName, "equity valuation")
}
