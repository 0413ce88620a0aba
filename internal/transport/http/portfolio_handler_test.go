package http

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/domain/common"
	"portfolioanalytics/internal/domain/portfolio"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
	"portfolioanalytics/internal/services"
)

func newPortfolioHandler(svc *MockPortfolioService) http.Handler {
	validation, eh := testDeps()
	return NewPortfolioHandler(svc, validation, eh, infrastructure.DiscardLogger()).Routes()
}

func TestPortfolioHandler_Analyse(t *testing.T) {
	want := portfolio.Portfolio{Holdings: []portfolio.Holding{
		{Instrument: common.Instrument{Symbol: "AAPL"}, Quantity: 10},
		{Instrument: common.Instrument{Symbol: "MSFT", Name: "Microsoft"}, Quantity: 30},
	}}

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockPortfolioService)
		wantStatus int
		wantError  string
	}{
		{
			name: "string and object instruments",
			body: `{"holdings":[{"instrument":"AAPL","quantity":10},{"instrument":{"symbol":"MSFT","name":"Microsoft"},"quantity":"30"}]}`,
			setupMock: func(m *MockPortfolioService) {
				m.On("Analyse", want).Return(&services.PortfolioAnalysis{
					Portfolio: want, TotalValue: 40, Weights: []float64{0.25, 0.75},
				}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad quantity",
			body:       `{"holdings":[{"instrument":"AAPL","quantity":"ten"}]}`,
			setupMock:  func(m *MockPortfolioService) {},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid holding format: holding 0: quantity ten is not a number",
		},
		{
			name:       "missing instrument",
			body:       `{"holdings":[{"quantity":1}]}`,
			setupMock:  func(m *MockPortfolioService) {},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid holding format: holding 0: instrument is required",
		},
		{
			name:       "not json",
			body:       `holdings`,
			setupMock:  func(m *MockPortfolioService) {},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid holding format:",
		},
		{
			name: "empty portfolio",
			body: `{"holdings":[]}`,
			setupMock: func(m *MockPortfolioService) {
				m.On("Analyse", portfolio.Portfolio{Holdings: []portfolio.Holding{}}).
					Return(nil, apperrors.NewDataValidationError("portfolio has no holdings"))
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "portfolio has no holdings",
		},
		{
			name: "analysis failure",
			body: `{"holdings":[{"instrument":"AAPL","quantity":10}]}`,
			setupMock: func(m *MockPortfolioService) {
				m.On("Analyse", mock.Anything).Return(nil, errors.New("matrix is singular"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "matrix is singular",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPortfolioService)
			tt.setupMock(svc)
			w := doRequest(newPortfolioHandler(svc), http.MethodPost, "/analyse", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			if tt.wantError != "" {
				msg, _ := body["error"].(string)
				assert.True(t, strings.HasPrefix(msg, tt.wantError) || strings.Contains(msg, tt.wantError), msg)
				return
			}
			result := body["result"].(map[string]any)
			assert.Equal(t, 40.0, result["total_value"])
			assert.Equal(t, []any{0.25, 0.75}, result["weights"])
			svc.AssertExpectations(t)
		})
	}
}

func TestPortfolioHandler_Optimise(t *testing.T) {
	svc := new(MockPortfolioService)
	svc.On("Optimise", mock.MatchedBy(func(r services.OptimisationRequest) bool {
		return r.LowerBound == 0 && r.UpperBound == 1 && r.RiskFreeRate == nil && len(r.ExpectedReturns) == 2
	})).Return(&services.OptimisationResult{Weights: []float64{0.2, 0.8}}, nil).Once()
	svc.On("Optimise", mock.MatchedBy(func(r services.OptimisationRequest) bool {
		return r.LowerBound == 0.1 && r.UpperBound == 0.6
	})).Return(&services.OptimisationResult{Weights: []float64{0.4, 0.6}}, nil).Once()
	routes := newPortfolioHandler(svc)

	w := doRequest(routes, http.MethodPost, "/optimise",
		`{"expected_returns":[0.08,0.12],"covariance":[[0.04,0.006],[0.006,0.09]]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{0.2, 0.8}, decodeBody(t, w)["result"].(map[string]any)["weights"])

	w = doRequest(routes, http.MethodPost, "/optimise",
		`{"expected_returns":[0.08,0.12],"covariance":[[0.04,0.006],[0.006,0.09]],"bounds":{"lower":0.1,"upper":0.6}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{0.4, 0.6}, decodeBody(t, w)["result"].(map[string]any)["weights"])

	w = doRequest(routes, http.MethodPost, "/optimise",
		`{"expected_returns":[0.08],"covariance":[[0.04]],"bounds":{"lower":0.7,"upper":0.6}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestPortfolioHandler_SimulateAndRebalance(t *testing.T) {
	seed := uint64(7)
	svc := new(MockPortfolioService)
	svc.On("Simulate", services.SimulationRequest{
		Weights: []float64{1}, ExpectedReturns: []float64{0.0005}, Covariance: [][]float64{{0.0004}},
		Horizon: 10, Paths: 100, Seed: &seed,
	}).Return(portfolio.Summary{Mean: 0.01}, nil)
	svc.On("Rebalance", services.RebalanceRequest{Current: []float64{0.5, 0.5}, Target: []float64{0.4, 0.6}, Threshold: 0.05}).
		Return(&services.RebalanceResult{Trades: []float64{-0.1, 0.1}, NewWeights: []float64{0.4, 0.6}, Turnover: 0.1}, nil)
	svc.On("Rebalance", mock.Anything).Return(nil, apperrors.NewDataValidationError("length mismatch"))
	routes := newPortfolioHandler(svc)

	w := doRequest(routes, http.MethodPost, "/simulate",
		`{"weights":[1],"expected_returns":[0.0005],"covariance":[[0.0004]],"horizon":10,"paths":100,"seed":7}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.01, decodeBody(t, w)["result"].(map[string]any)["mean"])

	w = doRequest(routes, http.MethodPost, "/rebalance", `{"current":[0.5,0.5],"target":[0.4,0.6],"threshold":0.05}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.1, decodeBody(t, w)["result"].(map[string]any)["turnover"])

	w = doRequest(routes, http.MethodPost, "/rebalance", `{"current":[0.5,0.5],"target":[1]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
