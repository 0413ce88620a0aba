package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
	"portfolioanalytics/internal/services"
)

func TestHealthHandler(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := new(MockHealthService)
	svc.On("HealthCheck").Return(services.HealthStatus{Status: services.StatusOK, Timestamp: now, Version: "3.0.0"})
	svc.On("Detailed").Return(services.HealthStatus{
		Status: services.StatusOK, Timestamp: now, Version: "3.0.0",
		Components: map[string]services.ServiceHealth{"cache": {Status: services.StatusReady}},
	})
	svc.On("ReadinessCheck").Return(services.HealthStatus{
		Status:     services.StatusDegraded,
		Components: map[string]services.ServiceHealth{"repository": {Status: services.StatusNotReady, Message: "disk"}},
	})
	h := NewHealthHandler(svc, infrastructure.DiscardLogger())

	t.Run("liveness body", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Liveness(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("detailed", func(t *testing.T) {
		w := doRequest(h.Routes(), http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "3.0.0", body["version"])
		assert.Equal(t, "2024-01-02T03:04:05Z", body["timestamp"])
		assert.Contains(t, body["components"], "cache")
	})

	t.Run("degraded readiness", func(t *testing.T) {
		w := doRequest(h.Routes(), http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, services.StatusDegraded, decodeBody(t, w)["status"])
	})

	t.Run("version", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Version(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"version":"3.0.0"`)
	})
}

func TestMetricsHandler(t *testing.T) {
	eh := apperrors.NewErrorHandler(infrastructure.DiscardLogger(), false)

	w := httptest.NewRecorder()
	NewMetricsHandler(nil, eh).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP analysis_executions_total\n"))
	})
	w = httptest.NewRecorder()
	NewMetricsHandler(exporter, eh).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "analysis_executions_total")
}
