package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "wrapped context cancellation",
			err:        fmt.Errorf("fetch quote: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "api error",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "data validation error",
			err:        NewDataValidationError("returns series is empty"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDataInvalid,
			wantTitle:  "Invalid Data",
		},
		{
			name:       "wrapped data not available error",
			err:        fmt.Errorf("analyse AAPL: %w", NewDataNotAvailableError("no income statements", nil)),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDataNotAvailable,
			wantTitle:  "Data Not Available",
		},
		{
			name:       "unsupported provider operation",
			err:        NewUnsupportedError("edgar", "ratios"),
			wantStatus: http.StatusNotImplemented,
			wantType:   TypeUnsupported,
			wantTitle:  "Not Supported",
		},
		{
			name:       "upstream failure",
			err:        NewUpstreamError("yahoo", "unexpected status 502", nil),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeUpstream,
			wantTitle:  "Upstream Data Source Error",
		},
		{
			name:       "upstream throttling",
			err:        NewRateLimitError("alphavantage", "call frequency exceeded"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
			wantTitle:  "Rate Limit Exceeded",
		},
		{
			name:       "generic error",
			err:        fmt.Errorf("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/equity/analyse", nil)

			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

			var problem ProblemDetails
			require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, tt.wantTitle, problem.Title)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, "/api/equity/analyse", problem.Instance)

			assert.True(t, logHandler.ContainsMessage("request failed"))
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		logger, logHandler := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)
		w := httptest.NewRecorder()

		handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

		assert.Zero(t, w.Body.Len())
		assert.Zero(t, logHandler.Count())
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		logger, logHandler := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)

		handler.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

		testutil.AssertLogContains(t, logHandler, slog.LevelError, "request failed")
	})
}

func TestErrorHandler_ProblemExtensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/bond/analyse", nil)
	handler.HandleError(w, r, NewUpstreamError("alphavantage", "bad payload", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UPSTREAM", body["error_code"])
	assert.Equal(t, "alphavantage", body["provider"])
	assert.Contains(t, body, "trace_id")
	assert.NotContains(t, body, "stack")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandlePanic(w, httptest.NewRequest(http.MethodPost, "/api/risk/analyse", nil), "index out of range")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "index out of range", body["panic"])
	assert.Contains(t, body, "stack")
	testutil.AssertLogContains(t, logHandler, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "Method DELETE is not allowed")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "", "/x").
		WithExtension("field", "tickers").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "tickers", body["field"])
	// standard members are not overridden by extensions
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
	assert.NotContains(t, body, "detail")
}
