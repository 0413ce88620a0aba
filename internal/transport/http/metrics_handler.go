package http

import (
	"net/http"

	apperrors "portfolioanalytics/internal/errors"
)

// MetricsHandler serves the Prometheus exposition of the meter provider
type MetricsHandler struct {
	exporter     http.Handler
	errorHandler *apperrors.ErrorHandler
}

// NewMetricsHandler wraps the exporter's HTTP handler. A nil exporter
// answers 503, which happens when metrics are disabled.
func NewMetricsHandler(exporter http.Handler, errorHandler *apperrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, errorHandler: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.errorHandler.HandleError(w, r, apperrors.ErrServiceUnavailable)
		return
	}
	h.exporter.ServeHTTP(w, r)
}
