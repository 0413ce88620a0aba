package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"

	"portfolioanalytics/internal/domain/common"
	"portfolioanalytics/internal/domain/portfolio"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/middleware"
	"portfolioanalytics/internal/services"
	v1 "portfolioanalytics/pkg/contracts/api/v1"
)

// PortfolioHandler serves portfolio analysis and construction
type PortfolioHandler struct {
	service      PortfolioAnalyzer
	validation   *middleware.ValidationMiddleware
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewPortfolioHandler creates the handler
func NewPortfolioHandler(service PortfolioAnalyzer, validation *middleware.ValidationMiddleware, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service:      service,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "portfolio_handler")),
	}
}

// Routes returns the /api/portfolio routes
func (h *PortfolioHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/analyse", h.Analyse)
	r.Post("/optimise", h.Optimise)
	r.Post("/simulate", h.Simulate)
	r.Post("/rebalance", h.Rebalance)
	return r
}

// plainError writes the {"error": "..."} body used by Analyse
func plainError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, v1.ErrorResponse{Error: msg})
}

// Analyse handles POST /api/portfolio/analyse. Malformed holdings are 400
// and analysis failures 500, both with a plain error body.
func (h *PortfolioHandler) Analyse(w http.ResponseWriter, r *http.Request) {
	var req v1.PortfolioAnalysisRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		plainError(w, r, http.StatusBadRequest, "invalid holding format: "+err.Error())
		return
	}

	p := portfolio.Portfolio{Holdings: make([]portfolio.Holding, 0, len(req.Holdings))}
	for i, hr := range req.Holdings {
		ref, qty, err := hr.Resolve()
		if err != nil {
			plainError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid holding format: holding %d: %s", i, err))
			return
		}
		p.Holdings = append(p.Holdings, portfolio.Holding{
			Instrument: common.Instrument{Symbol: ref.Symbol, Name: ref.Name},
			Quantity:   qty,
		})
	}

	ctx, span := startSpan(r, "portfolio.analyse", attribute.Int("holdings", len(p.Holdings)))
	result, err := h.service.Analyse(ctx, p)
	endSpan(span, err)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrDataValidation) {
			status = http.StatusBadRequest
		}
		h.logger.WarnContext(ctx, "portfolio analysis failed",
			slog.String("error", err.Error()),
			slog.Int("status", status))
		plainError(w, r, status, err.Error())
		return
	}
	respond(w, r, http.StatusOK, v1.ResultResponse{Result: result})
}

// Optimise handles POST /api/portfolio/optimise
func (h *PortfolioHandler) Optimise(w http.ResponseWriter, r *http.Request) {
	var req v1.OptimisationRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	in := services.OptimisationRequest{
		Symbols:         req.Symbols,
		ExpectedReturns: req.ExpectedReturns,
		Covariance:      req.Covariance,
		RiskFreeRate:    req.RiskFreeRate,
		LowerBound:      0,
		UpperBound:      1,
		Samples:         req.Samples,
	}
	if req.Bounds != nil {
		in.LowerBound, in.UpperBound = req.Bounds.Lower, req.Bounds.Upper
	}

	ctx, span := startSpan(r, "portfolio.optimise", attribute.Int("assets", len(req.ExpectedReturns)))
	result, err := h.service.Optimise(ctx, in)
	endSpan(span, err)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v1.ResultResponse{Result: result})
}

// Simulate handles POST /api/portfolio/simulate
func (h *PortfolioHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req v1.SimulationRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx, span := startSpan(r, "portfolio.simulate",
		attribute.Int("horizon", req.Horizon),
		attribute.Int("paths", req.Paths))
	summary, err := h.service.Simulate(ctx, services.SimulationRequest{
		Weights:         req.Weights,
		ExpectedReturns: req.ExpectedReturns,
		Covariance:      req.Covariance,
		Horizon:         req.Horizon,
		Paths:           req.Paths,
		Seed:            req.Seed,
	})
	endSpan(span, err)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v1.ResultResponse{Result: summary})
}

// Rebalance handles POST /api/portfolio/rebalance
func (h *PortfolioHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	var req v1.RebalanceRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Rebalance(r.Context(), services.RebalanceRequest{
		Current:   req.Current,
		Target:    req.Target,
		Threshold: req.Threshold,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v1.ResultResponse{Result: result})
}
