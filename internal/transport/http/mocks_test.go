package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/domain/fixedincome"
	"portfolioanalytics/internal/domain/portfolio"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
	"portfolioanalytics/internal/middleware"
	"portfolioanalytics/internal/services"
)

type MockEquityService struct {
	mock.Mock
}

func (m *MockEquityService) Analyse(ctx context.Context, ticker string) (*services.EquityAnalysis, error) {
	args := m.Called(ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EquityAnalysis), args.Error(1)
}

func (m *MockEquityService) AnalyseMany(ctx context.Context, tickers []string) ([]services.EquityResult, error) {
	args := m.Called(tickers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.EquityResult), args.Error(1)
}

func (m *MockEquityService) Latest(ctx context.Context, ticker string) (*services.EquityAnalysis, error) {
	args := m.Called(ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EquityAnalysis), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) RenderEquity(ctx context.Context, format string, analyses ...*services.EquityAnalysis) (*services.Report, error) {
	args := m.Called(format, analyses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Report), args.Error(1)
}

type MockBondService struct {
	mock.Mock
}

func (m *MockBondService) AnalyseMany(ctx context.Context, isins []string) ([]services.BondResult, error) {
	args := m.Called(isins)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.BondResult), args.Error(1)
}

func (m *MockBondService) Register(ctx context.Context, bond fixedincome.Bond) (fixedincome.Bond, error) {
	args := m.Called(bond)
	return args.Get(0).(fixedincome.Bond), args.Error(1)
}

func (m *MockBondService) List(ctx context.Context) ([]fixedincome.Bond, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fixedincome.Bond), args.Error(1)
}

func (m *MockBondService) Delete(ctx context.Context, isin string) error {
	return m.Called(isin).Error(0)
}

func (m *MockBondService) SaveYieldCurve(ctx context.Context, points []fixedincome.YieldCurvePoint) error {
	return m.Called(points).Error(0)
}

func (m *MockBondService) InterpolateCurve(ctx context.Context, maturities []float64) (services.CurveView, error) {
	args := m.Called(maturities)
	return args.Get(0).(services.CurveView), args.Error(1)
}

type MockPortfolioService struct {
	mock.Mock
}

func (m *MockPortfolioService) Analyse(ctx context.Context, p portfolio.Portfolio) (*services.PortfolioAnalysis, error) {
	args := m.Called(p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PortfolioAnalysis), args.Error(1)
}

func (m *MockPortfolioService) Optimise(ctx context.Context, req services.OptimisationRequest) (*services.OptimisationResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OptimisationResult), args.Error(1)
}

func (m *MockPortfolioService) Simulate(ctx context.Context, req services.SimulationRequest) (portfolio.Summary, error) {
	args := m.Called(req)
	return args.Get(0).(portfolio.Summary), args.Error(1)
}

func (m *MockPortfolioService) Rebalance(ctx context.Context, req services.RebalanceRequest) (*services.RebalanceResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RebalanceResult), args.Error(1)
}

type MockRiskService struct {
	mock.Mock
}

func (m *MockRiskService) Analyse(ctx context.Context, req services.RiskRequest) (*services.RiskAnalysis, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RiskAnalysis), args.Error(1)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Detailed(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func testDeps() (*middleware.ValidationMiddleware, *apperrors.ErrorHandler) {
	eh := apperrors.NewErrorHandler(infrastructure.DiscardLogger(), false)
	return middleware.NewValidationMiddleware(infrastructure.DiscardLogger(), eh), eh
}

func doRequest(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
