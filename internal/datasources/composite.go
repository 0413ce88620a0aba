package datasources

import (
	"context"
	"log/slog"

	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
)

// Composite sends equity calls to one provider and fixed income calls to
// the catalog. An empty catalog curve falls back to curveFallback when set.
type Composite struct {
	equities      DataSource
	catalog       DataSource
	curveFallback DataSource
	logger        *slog.Logger
}

// NewComposite wires the routing; curveFallback may be nil
func NewComposite(equities, catalog, curveFallback DataSource, logger *slog.Logger) *Composite {
	return &Composite{
		equities:      equities,
		catalog:       catalog,
		curveFallback: curveFallback,
		logger:        logger.With(slog.String("component", "datasource")),
	}
}

// Name returns the equity provider name
func (c *Composite) Name() string { return c.equities.Name() }

func (c *Composite) EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error) {
	return c.equities.EquityFundamentals(ctx, ticker)
}

func (c *Composite) EquityRatios(ctx context.Context, ticker string) (equity.Ratios, error) {
	return c.equities.EquityRatios(ctx, ticker)
}

func (c *Composite) EquityValuation(ctx context.Context, ticker string) (equity.Valuation, error) {
	return c.equities.EquityValuation(ctx, ticker)
}

func (c *Composite) Bond(ctx context.Context, isin string) (fixedincome.Bond, error) {
	return c.catalog.Bond(ctx, isin)
}

func (c *Composite) YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error) {
	points, err := c.catalog.YieldCurve(ctx)
	if err != nil || len(points) > 0 || c.curveFallback == nil {
		return points, err
	}

	c.logger.InfoContext(ctx, "catalog yield curve empty, using fallback",
		slog.String("provider", c.curveFallback.Name()))
	return c.curveFallback.YieldCurve(ctx)
}

func (c *Composite) DurationMetrics(ctx context.Context, bond fixedincome.Bond) (fixedincome.DurationMetrics, error) {
	return c.catalog.DurationMetrics(ctx, bond)
}
