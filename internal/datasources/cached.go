package datasources

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"portfolioanalytics/internal/cache"
	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
	"portfolioanalytics/internal/infrastructure"
)

// Cached memoises another source's results for ttl
type Cached struct {
	source  DataSource
	cache   cache.Cache
	ttl     time.Duration
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewCached wraps source; metrics may be nil
func NewCached(source DataSource, c cache.Cache, ttl time.Duration, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Cached {
	return &Cached{
		source:  source,
		cache:   c,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "datasource_cache")),
	}
}

// Name returns the wrapped source name
func (c *Cached) Name() string { return c.source.Name() }

// cached returns the cached value for key or calls load and stores its
// result. Cache failures are logged and never fail the call. A non-positive
// ttl disables caching for every backend.
func cached[T any](ctx context.Context, c *Cached, operation, key string, load func() (T, error)) (T, error) {
	if c.ttl <= 0 {
		value, err := load()
		infrastructure.RecordDataSourceCall(ctx, c.metrics, c.source.Name(), operation, err)
		return value, err
	}
	namespace, _, _ := strings.Cut(key, ":")

	var value T
	hit, err := c.cache.Get(ctx, key, &value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	infrastructure.RecordCacheLookup(ctx, c.metrics, namespace, hit)
	if hit {
		return value, nil
	}

	value, err = load()
	infrastructure.RecordDataSourceCall(ctx, c.metrics, c.source.Name(), operation, err)
	if err != nil {
		return value, err
	}

	if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return value, nil
}

func (c *Cached) EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error) {
	return cached(ctx, c, "fundamentals", "eq_fundamentals:"+ticker, func() (equity.Fundamentals, error) {
		return c.source.EquityFundamentals(ctx, ticker)
	})
}

func (c *Cached) EquityRatios(ctx context.Context, ticker string) (equity.Ratios, error) {
	return cached(ctx, c, "ratios", "eq_ratios:"+ticker, func() (equity.Ratios, error) {
		return c.source.EquityRatios(ctx, ticker)
	})
}

func (c *Cached) EquityValuation(ctx context.Context, ticker string) (equity.Valuation, error) {
	return cached(ctx, c, "valuation", "eq_valuation:"+ticker, func() (equity.Valuation, error) {
		return c.source.EquityValuation(ctx, ticker)
	})
}

func (c *Cached) Bond(ctx context.Context, isin string) (fixedincome.Bond, error) {
	return cached(ctx, c, "bond", "bond:"+isin, func() (fixedincome.Bond, error) {
		return c.source.Bond(ctx, isin)
	})
}

func (c *Cached) YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error) {
	return cached(ctx, c, "yield_curve", "yield_curve", func() ([]fixedincome.YieldCurvePoint, error) {
		return c.source.YieldCurve(ctx)
	})
}

func (c *Cached) DurationMetrics(ctx context.Context, bond fixedincome.Bond) (fixedincome.DurationMetrics, error) {
	return cached(ctx, c, "duration", "duration:"+bond.ISIN, func() (fixedincome.DurationMetrics, error) {
		return c.source.DurationMetrics(ctx, bond)
	})
}

// Invalidate drops cached bond and curve entries after the catalog changes
func (c *Cached) Invalidate(ctx context.Context, isins ...string) {
	keys := []string{"yield_curve"}
	for _, isin := range isins {
		keys = append(keys, "bond:"+isin, "duration:"+isin)
	}
	for _, key := range keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.WarnContext(ctx, "cache invalidation failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}
