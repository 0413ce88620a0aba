package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/middleware"
	"portfolioanalytics/internal/services"
	v1 "portfolioanalytics/pkg/contracts/api/v1"
)

// RiskHandler serves VaR, drawdown and correlation of return series
type RiskHandler struct {
	service      RiskAnalyzer
	validation   *middleware.ValidationMiddleware
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewRiskHandler creates the handler
func NewRiskHandler(service RiskAnalyzer, validation *middleware.ValidationMiddleware, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "risk_handler")),
	}
}

// Routes returns the /api/risk routes
func (h *RiskHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/analyse", h.Analyse)
	return r
}

// Analyse handles POST /api/risk/analyse
func (h *RiskHandler) Analyse(w http.ResponseWriter, r *http.Request) {
	var req v1.RiskAnalysisRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx, span := startSpan(r, "risk.analyse",
		attribute.Int("series", len(req.Series)),
		attribute.Float64("confidence", req.Confidence))
	result, err := h.service.Analyse(ctx, services.RiskRequest{
		Series:      req.Series,
		Labels:      req.Labels,
		Confidence:  req.Confidence,
		Simulations: req.Simulations,
	})
	endSpan(span, err)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v1.ResultResponse{Result: result})
}
