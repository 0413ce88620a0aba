package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"portfolioanalytics/internal/infrastructure"
	"portfolioanalytics/internal/shared/testutil"
)

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })

	tests := []struct {
		name     string
		keys     []string
		header   string
		wantCode int
	}{
		{"no keys configured", nil, "", http.StatusCreated},
		{"blank keys ignored", []string{""}, "", http.StatusCreated},
		{"valid key", []string{"k1", "k2"}, "k2", http.StatusCreated},
		{"wrong key", []string{"k1"}, "k9", http.StatusUnauthorized},
		{"missing key", []string{"k1"}, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(tt.keys, testErrorHandler(), infrastructure.DiscardLogger())(ok)
			req := httptest.NewRequest(http.MethodPost, "/api/bond", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestAuditLog(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := AuditLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/bond", nil))
	assert.Zero(t, logs.Count())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/bond/US1", nil))
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "catalog mutation")
	testutil.AssertLogAttr(t, logs, "status", int64(http.StatusNoContent))
	testutil.AssertLogAttr(t, logs, "component", "audit")
}
