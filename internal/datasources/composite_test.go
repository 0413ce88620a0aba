package datasources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/cache"
	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/common"
	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
	"portfolioanalytics/internal/shared/testutil"
)

// fakeSource counts calls and returns canned data
type fakeSource struct {
	name  string
	calls map[string]int
	curve []fixedincome.YieldCurvePoint
	err   error
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, calls: map[string]int{}}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) EquityFundamentals(_ context.Context, ticker string) (equity.Fundamentals, error) {
	f.calls["fundamentals"]++
	cagr := 0.2
	return equity.Fundamentals{
		Equity:      equity.Equity{Instrument: common.Instrument{Symbol: ticker}},
		RevenueCAGR: &cagr,
	}, f.err
}

func (f *fakeSource) EquityRatios(_ context.Context, ticker string) (equity.Ratios, error) {
	f.calls["ratios"]++
	pe := 30.0
	return equity.Ratios{Equity: equity.Equity{Instrument: common.Instrument{Symbol: ticker}}, PE: &pe}, f.err
}

func (f *fakeSource) EquityValuation(_ context.Context, ticker string) (equity.Valuation, error) {
	f.calls["valuation"]++
	return equity.Valuation{Status: equity.StatusFair}, f.err
}

func (f *fakeSource) Bond(_ context.Context, isin string) (fixedincome.Bond, error) {
	f.calls["bond"]++
	return fixedincome.Bond{ISIN: isin}, f.err
}

func (f *fakeSource) YieldCurve(context.Context) ([]fixedincome.YieldCurvePoint, error) {
	f.calls["curve"]++
	return f.curve, f.err
}

func (f *fakeSource) DurationMetrics(context.Context, fixedincome.Bond) (fixedincome.DurationMetrics, error) {
	f.calls["duration"]++
	d := 4.5
	return fixedincome.DurationMetrics{MacaulayDuration: &d}, f.err
}

// fakeCatalog is an in-memory BondCatalog
type fakeCatalog struct {
	bonds map[string]fixedincome.Bond
	curve []fixedincome.YieldCurvePoint
}

func (c *fakeCatalog) GetBond(_ context.Context, isin string) (fixedincome.Bond, error) {
	b, ok := c.bonds[isin]
	if !ok {
		return fixedincome.Bond{}, apperrors.NewDataNotAvailableError("bond "+isin+" is not registered", nil)
	}
	return b, nil
}

func (c *fakeCatalog) YieldCurve(context.Context) ([]fixedincome.YieldCurvePoint, error) {
	return c.curve, nil
}

func TestComposite_Routing(t *testing.T) {
	equities := newFakeSource(config.ProviderYahoo)
	catalog := newFakeSource(CatalogName)
	c := NewComposite(equities, catalog, nil, infrastructure.DiscardLogger())
	ctx := context.Background()

	_, err := c.EquityFundamentals(ctx, "AAPL")
	require.NoError(t, err)
	_, err = c.EquityRatios(ctx, "AAPL")
	require.NoError(t, err)
	_, err = c.EquityValuation(ctx, "AAPL")
	require.NoError(t, err)
	_, err = c.Bond(ctx, "X")
	require.NoError(t, err)
	_, err = c.DurationMetrics(ctx, fixedincome.Bond{ISIN: "X"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"fundamentals": 1, "ratios": 1, "valuation": 1}, equities.calls)
	assert.Equal(t, map[string]int{"bond": 1, "duration": 1}, catalog.calls)
	assert.Equal(t, config.ProviderYahoo, c.Name())
}

func TestComposite_YieldCurveFallback(t *testing.T) {
	stored := []fixedincome.YieldCurvePoint{{Tenor: 1, Rate: 0.05}}
	remote := []fixedincome.YieldCurvePoint{{Tenor: 10, Rate: 0.04}}

	tests := []struct {
		name         string
		catalogCurve []fixedincome.YieldCurvePoint
		fallback     bool
		want         []fixedincome.YieldCurvePoint
	}{
		{"catalog has curve", stored, true, stored},
		{"empty catalog uses fallback", nil, true, remote},
		{"empty catalog without fallback", nil, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newFakeSource(CatalogName)
			catalog.curve = tt.catalogCurve
			var fallback DataSource
			if tt.fallback {
				fb := newFakeSource(config.ProviderAlphaVantage)
				fb.curve = remote
				fallback = fb
			}

			c := NewComposite(newFakeSource(config.ProviderYahoo), catalog, fallback, infrastructure.DiscardLogger())
			got, err := c.YieldCurve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog(t *testing.T) {
	price := 95.0
	maturity := time.Now().AddDate(5, 0, 0)
	store := &fakeCatalog{
		bonds: map[string]fixedincome.Bond{
			"PRICED": {ISIN: "PRICED", CouponRate: 0.04, MaturityDate: maturity, Price: &price},
			"PLAIN":  {ISIN: "PLAIN", CouponRate: 0.04, MaturityDate: maturity},
		},
		curve: []fixedincome.YieldCurvePoint{{Tenor: 2, Rate: 0.03}},
	}
	c := NewCatalog(store)
	c.now = func() time.Time { return testutil.ValuationDate }
	ctx := context.Background()

	plain, err := c.Bond(ctx, "PLAIN")
	require.NoError(t, err)
	priced, err := c.Bond(ctx, "PRICED")
	require.NoError(t, err)

	_, err = c.Bond(ctx, "MISSING")
	assert.ErrorIs(t, err, apperrors.ErrDataNotAvailable)

	curve, err := c.YieldCurve(ctx)
	require.NoError(t, err)
	assert.Len(t, curve, 1)

	atCoupon, err := c.DurationMetrics(ctx, plain)
	require.NoError(t, err)
	atPrice, err := c.DurationMetrics(ctx, priced)
	require.NoError(t, err)

	require.NotNil(t, atCoupon.ModifiedDuration)
	require.NotNil(t, atPrice.ModifiedDuration)
	// a discount price implies a higher yield and a shorter duration
	assert.Less(t, *atPrice.MacaulayDuration, *atCoupon.MacaulayDuration)

	bad := plain
	bad.CouponFrequency = 5
	_, err = c.DurationMetrics(ctx, bad)
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)

	_, err = c.EquityRatios(ctx, "AAPL")
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
}

func TestCached(t *testing.T) {
	source := newFakeSource(config.ProviderYahoo)
	mem := cache.NewMemoryCache(time.Hour, 100)
	defer mem.Close()

	c := NewCached(source, mem, time.Hour, nil, infrastructure.DiscardLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f, err := c.EquityFundamentals(ctx, "AAPL")
		require.NoError(t, err)
		require.NotNil(t, f.RevenueCAGR)
		assert.InDelta(t, 0.2, *f.RevenueCAGR, 1e-12)

		_, err = c.EquityRatios(ctx, "AAPL")
		require.NoError(t, err)
		_, err = c.DurationMetrics(ctx, fixedincome.Bond{ISIN: "B1"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, source.calls["fundamentals"])
	assert.Equal(t, 1, source.calls["ratios"])
	assert.Equal(t, 1, source.calls["duration"])

	stats := mem.Stats()
	assert.Equal(t, int64(6), stats.Hits)
	assert.Equal(t, int64(3), stats.Misses)

	var cached equity.Fundamentals
	hit, err := mem.Get(ctx, "eq_fundamentals:AAPL", &cached)
	require.NoError(t, err)
	assert.True(t, hit)

	c.Invalidate(ctx, "B1")
	_, err = c.DurationMetrics(ctx, fixedincome.Bond{ISIN: "B1"})
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls["duration"])
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	source := newFakeSource(config.ProviderYahoo)
	source.err = errors.New("boom")
	mem := cache.NewMemoryCache(time.Hour, 100)
	defer mem.Close()

	c := NewCached(source, mem, time.Hour, nil, infrastructure.DiscardLogger())
	ctx := context.Background()

	_, err := c.EquityRatios(ctx, "AAPL")
	require.Error(t, err)
	_, err = c.EquityRatios(ctx, "AAPL")
	require.Error(t, err)
	assert.Equal(t, 2, source.calls["ratios"])
	assert.Equal(t, 0, mem.Stats().Entries)
}

func TestNewEquityProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.DataSourcesConfig
		wantName string
		wantErr  bool
	}{
		{name: "default yahoo", cfg: config.DataSourcesConfig{}, wantName: config.ProviderYahoo},
		{name: "edgar", cfg: config.DataSourcesConfig{Provider: config.ProviderEdgar}, wantName: config.ProviderEdgar},
		{name: "alphavantage", cfg: config.DataSourcesConfig{Provider: config.ProviderAlphaVantage, AlphaVantageAPIKey: "k"}, wantName: config.ProviderAlphaVantage},
		{name: "alphavantage without key", cfg: config.DataSourcesConfig{Provider: config.ProviderAlphaVantage}, wantErr: true},
		{name: "unknown", cfg: config.DataSourcesConfig{Provider: "bloomberg"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewEquityProvider(tt.cfg, infrastructure.DiscardLogger())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, src.Name())
		})
	}
}

func TestNew_WiresCatalogAndCache(t *testing.T) {
	mem := cache.NewMemoryCache(time.Hour, 10)
	defer mem.Close()
	store := &fakeCatalog{curve: []fixedincome.YieldCurvePoint{{Tenor: 5, Rate: 0.04}}}

	src, err := New(config.DataSourcesConfig{}, store, mem, time.Minute, nil, infrastructure.DiscardLogger())
	require.NoError(t, err)

	curve, err := src.YieldCurve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.curve, curve)
	assert.Equal(t, 1, mem.Stats().Entries)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Acquire(ctx))

	unlimited := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, unlimited.Acquire(context.Background()))
	}
}

func TestCached_ZeroTTLDisablesCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.DefaultRedisPrefix)
	t.Cleanup(func() { rdb.Close() })
	mem := cache.NewMemoryCache(0, 100)
	t.Cleanup(func() { mem.Close() })

	backends := map[string]cache.Cache{"memory": mem, "redis": rdb}
	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			source := newFakeSource(config.ProviderYahoo)
			c := NewCached(source, backend, 0, nil, infrastructure.DiscardLogger())
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				_, err := c.EquityFundamentals(ctx, "AAPL")
				require.NoError(t, err)
			}
			mr.FastForward(365 * 24 * time.Hour)
			_, err := c.EquityFundamentals(ctx, "AAPL")
			require.NoError(t, err)

			assert.Equal(t, 3, source.calls["fundamentals"])
			var cachedValue equity.Fundamentals
			found, err := backend.Get(ctx, "eq_fundamentals:AAPL", &cachedValue)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}
