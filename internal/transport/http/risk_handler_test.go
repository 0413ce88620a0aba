package http

import (
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/domain/risk"
	"portfolioanalytics/internal/infrastructure"
	"portfolioanalytics/internal/services"
)

func TestRiskHandler_Analyse(t *testing.T) {
	svc := new(MockRiskService)
	svc.On("Analyse", services.RiskRequest{
		Series:     [][]float64{{-0.05, -0.02, 0.01, 0.03, 0.04}},
		Labels:     []string{"fund"},
		Confidence: 0.8,
	}).Return(&services.RiskAnalysis{
		Confidence:  0.8,
		Simulations: 5000,
		Series: []services.SeriesRisk{{
			Label:      "fund",
			Historical: risk.VaRResult{ValueAtRisk: 0.026},
			Parametric: risk.VaRResult{ValueAtRisk: math.NaN()},
		}},
	}, nil)

	validation, eh := testDeps()
	routes := NewRiskHandler(svc, validation, eh, infrastructure.DiscardLogger()).Routes()

	w := doRequest(routes, http.MethodPost, "/analyse",
		`{"series":[[-0.05,-0.02,0.01,0.03,0.04]],"labels":["fund"],"confidence":0.8}`)
	require.Equal(t, http.StatusOK, w.Code)

	result := decodeBody(t, w)["result"].(map[string]any)
	series := result["series"].([]any)[0].(map[string]any)
	assert.Equal(t, "fund", series["label"])
	assert.Equal(t, 0.026, series["historical_var"].(map[string]any)["value_at_risk"])
	assert.Nil(t, series["parametric_var"].(map[string]any)["value_at_risk"], "NaN is sent as null")

	for _, body := range []string{`{"series":[]}`, `{"series":[[0.01]],"confidence":1.5}`, `{}`} {
		w = doRequest(routes, http.MethodPost, "/analyse", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	svc.AssertNumberOfCalls(t, "Analyse", 1)
	svc.AssertCalled(t, "Analyse", mock.Anything)
}
