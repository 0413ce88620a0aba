package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"portfolioanalytics/internal/services"
	"portfolioanalytics/pkg/contracts"
	v1 "portfolioanalytics/pkg/contracts/api/v1"
)

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service HealthChecker
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// Routes returns the /api/health routes
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Detailed)
	r.Get("/ready", h.ReadinessCheck)
	r.Get("/live", h.Liveness)
	return r
}

// Liveness handles GET /health
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	status := h.service.HealthCheck(r.Context())
	render.JSON(w, r, v1.HealthResponse{Status: status.Status})
}

// ReadinessCheck handles GET /api/health/ready; a degraded component
// answers 503
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.ReadinessCheck(r.Context())
	code := http.StatusOK
	if status.Status != services.StatusOK {
		code = http.StatusServiceUnavailable
	}
	respond(w, r, code, status)
}

// Detailed handles GET /api/health
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, h.service.Detailed(r.Context()))
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
