package services

import (
	"context"

	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
)

// EventPublisher fans analysis events out to subscribers
type EventPublisher interface {
	Publish(eventType string, payload any) error
}

// EquitySource provides equity data for one ticker
type EquitySource interface {
	Name() string
	EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error)
	EquityRatios(ctx context.Context, ticker string) (equity.Ratios, error)
	EquityValuation(ctx context.Context, ticker string) (equity.Valuation, error)
}

// BondSource provides bond terms, the yield curve and duration metrics
type BondSource interface {
	Bond(ctx context.Context, isin string) (fixedincome.Bond, error)
	YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error)
	DurationMetrics(ctx context.Context, bond fixedincome.Bond) (fixedincome.DurationMetrics, error)
}

// BondRegistry persists bond terms and the yield curve
type BondRegistry interface {
	SaveBond(ctx context.Context, bond fixedincome.Bond) (fixedincome.Bond, error)
	ListBonds(ctx context.Context) ([]fixedincome.Bond, error)
	DeleteBond(ctx context.Context, isin string) (bool, error)
	SaveYieldCurve(ctx context.Context, points []fixedincome.YieldCurvePoint) error
}

// SnapshotStore keeps the latest analysis documents
type SnapshotStore interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context, key string, out any) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// invalidator is implemented by caching data sources
type invalidator interface {
	Invalidate(ctx context.Context, isins ...string)
}
