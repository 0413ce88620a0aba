// Package datasources adapts market data providers to the domain models.
//
// Equity data comes from Yahoo Finance, Alpha Vantage or SEC EDGAR. Bond
// terms and the yield curve come from the local catalog. Composite routes
// each call to the right provider and Cached memoises results in a
// cache.Cache.
package datasources

import (
	"context"

	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
)

// DataSource retrieves equity and fixed income data. Providers that cannot
// serve an operation return an unsupported error.
type DataSource interface {
	Name() string
	EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error)
	EquityRatios(ctx context.Context, ticker string) (equity.Ratios, error)
	EquityValuation(ctx context.Context, ticker string) (equity.Valuation, error)
	Bond(ctx context.Context, isin string) (fixedincome.Bond, error)
	YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error)
	DurationMetrics(ctx context.Context, bond fixedincome.Bond) (fixedincome.DurationMetrics, error)
}

// BondCatalog is the storage the catalog source reads from
type BondCatalog interface {
	GetBond(ctx context.Context, isin string) (fixedincome.Bond, error)
	YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error)
}

// unsupported implements the fixed income half of DataSource for equity
// providers
type unsupported struct {
	name string
}

func (u unsupported) Bond(context.Context, string) (fixedincome.Bond, error) {
	return fixedincome.Bond{}, errUnsupported(u.name, "bond data")
}

func (u unsupported) YieldCurve(context.Context) ([]fixedincome.YieldCurvePoint, error) {
	return nil, errUnsupported(u.name, "yield curve")
}

func (u unsupported) DurationMetrics(context.Context, fixedincome.Bond) (fixedincome.DurationMetrics, error) {
	return fixedincome.DurationMetrics{}, errUnsupported(u.name, "duration metrics")
}
