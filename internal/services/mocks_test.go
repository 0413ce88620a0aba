package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"portfolioanalytics/internal/domain/common"
	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
	"portfolioanalytics/internal/infrastructure"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger { return infrastructure.DiscardLogger() }

func f64(v float64) *float64 { return &v }

// MockPublisher records published events
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(eventType string, payload any) error {
	return m.Called(eventType, payload).Error(0)
}

// MockEquitySource implements EquitySource
type MockEquitySource struct {
	mock.Mock
}

func (m *MockEquitySource) Name() string { return "mock" }

func (m *MockEquitySource) EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(equity.Fundamentals), args.Error(1)
}

func (m *MockEquitySource) EquityRatios(ctx context.Context, ticker string) (equity.Ratios, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(equity.Ratios), args.Error(1)
}

func (m *MockEquitySource) EquityValuation(ctx context.Context, ticker string) (equity.Valuation, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(equity.Valuation), args.Error(1)
}

// MockBondSource implements BondSource and the cache invalidator
type MockBondSource struct {
	mock.Mock
}

func (m *MockBondSource) Bond(ctx context.Context, isin string) (fixedincome.Bond, error) {
	args := m.Called(ctx, isin)
	return args.Get(0).(fixedincome.Bond), args.Error(1)
}

func (m *MockBondSource) YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error) {
	args := m.Called(ctx)
	points, _ := args.Get(0).([]fixedincome.YieldCurvePoint)
	return points, args.Error(1)
}

func (m *MockBondSource) DurationMetrics(ctx context.Context, bond fixedincome.Bond) (fixedincome.DurationMetrics, error) {
	args := m.Called(ctx, bond)
	return args.Get(0).(fixedincome.DurationMetrics), args.Error(1)
}

func (m *MockBondSource) Invalidate(ctx context.Context, isins ...string) {
	m.Called(ctx, isins)
}

// MockBondRegistry implements BondRegistry
type MockBondRegistry struct {
	mock.Mock
}

func (m *MockBondRegistry) SaveBond(ctx context.Context, bond fixedincome.Bond) (fixedincome.Bond, error) {
	args := m.Called(ctx, bond)
	return args.Get(0).(fixedincome.Bond), args.Error(1)
}

func (m *MockBondRegistry) ListBonds(ctx context.Context) ([]fixedincome.Bond, error) {
	args := m.Called(ctx)
	bonds, _ := args.Get(0).([]fixedincome.Bond)
	return bonds, args.Error(1)
}

func (m *MockBondRegistry) DeleteBond(ctx context.Context, isin string) (bool, error) {
	args := m.Called(ctx, isin)
	return args.Bool(0), args.Error(1)
}

func (m *MockBondRegistry) SaveYieldCurve(ctx context.Context, points []fixedincome.YieldCurvePoint) error {
	return m.Called(ctx, points).Error(0)
}

// MockPDFPrinter implements PDFPrinter
type MockPDFPrinter struct {
	mock.Mock
}

func (m *MockPDFPrinter) Render(ctx context.Context, html string) ([]byte, error) {
	args := m.Called(ctx, html)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func sampleEquity(ticker string) equity.Equity {
	return equity.Equity{
		Instrument: common.Instrument{Symbol: ticker, Name: ticker + " Inc."},
		Sector:     "Technology",
		MarketCap:  f64(2.5e12),
	}
}

func sampleFundamentals(ticker string) equity.Fundamentals {
	return equity.Fundamentals{
		Equity:          sampleEquity(ticker),
		RevenueCAGR:     f64(0.10),
		NetMargin:       f64(0.25),
		OperatingMargin: f64(0.30),
		CFOToNI:         f64(1.2),
		LeverageRatio:   f64(0.5),
		Lifecycle:       "Mature",
	}
}

func sampleRatios(ticker string) equity.Ratios {
	return equity.Ratios{
		Equity:        sampleEquity(ticker),
		PE:            f64(25),
		PB:            f64(5),
		LeverageRatio: f64(2.0),
	}
}

func sampleValuation(ticker string) equity.Valuation {
	return equity.Valuation{
		Equity:              sampleEquity(ticker),
		ExpectedPE:          f64(27.5),
		ActualPE:            f64(25),
		ValuationDifference: f64(-2.5),
		Status:              equity.StatusFair,
	}
}

func expectEquity(src *MockEquitySource, ticker string) {
	src.On("EquityFundamentals", mock.Anything, ticker).Return(sampleFundamentals(ticker), nil)
	src.On("EquityRatios", mock.Anything, ticker).Return(sampleRatios(ticker), nil)
	src.On("EquityValuation", mock.Anything, ticker).Return(sampleValuation(ticker), nil)
}
