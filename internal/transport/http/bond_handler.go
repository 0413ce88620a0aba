package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"portfolioanalytics/internal/domain/fixedincome"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/middleware"
	v1 "portfolioanalytics/pkg/contracts/api/v1"
)

// BondHandler serves bond analyses, the bond catalog and the yield curve
type BondHandler struct {
	service      BondAnalyzer
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	errorHandler *apperrors.ErrorHandler
	catalogGuard func(http.Handler) http.Handler
	logger       *slog.Logger
}

// NewBondHandler creates the handler. Catalog writes pass through an API
// key check when apiKeys is not empty.
func NewBondHandler(service BondAnalyzer, validation *middleware.ValidationMiddleware, errorHandler *apperrors.ErrorHandler, apiKeys []string, logger *slog.Logger) *BondHandler {
	return &BondHandler{
		service:      service,
		validation:   validation,
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		catalogGuard: middleware.APIKeyAuth(apiKeys, errorHandler, logger),
		logger:       logger.With(slog.String("component", "bond_handler")),
	}
}

// Routes returns the /api/bond routes
func (h *BondHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/analyse", h.Analyse)
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(h.catalogGuard, middleware.AuditLog(h.logger))
		r.Post("/", h.Register)
		r.Delete("/{isin}", h.Delete)
	})
	return r
}

// CurveRoutes returns the /api/yield-curve routes
func (h *BondHandler) CurveRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetCurve)
	r.With(h.catalogGuard, middleware.AuditLog(h.logger)).Put("/", h.PutCurve)
	return r
}

// Analyse handles POST /api/bond/analyse
func (h *BondHandler) Analyse(w http.ResponseWriter, r *http.Request) {
	var req v1.BondAnalysisRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx, span := startSpan(r, "bond.analyse", attribute.Int("isins", len(req.ISINs)))
	results, err := h.service.AnalyseMany(ctx, req.ISINs)
	endSpan(span, err)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v1.ResultsResponse{Results: results})
}

// Register handles POST /api/bond
func (h *BondHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req v1.BondRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	bond, err := bondFromRequest(req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	saved, err := h.service.Register(r.Context(), bond)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/bond/"+saved.ISIN)
	respond(w, r, http.StatusCreated, v1.ResultResponse{Result: saved})
}

// List handles GET /api/bond
func (h *BondHandler) List(w http.ResponseWriter, r *http.Request) {
	bonds, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if bonds == nil {
		bonds = []fixedincome.Bond{}
	}
	respond(w, r, http.StatusOK, v1.ResultsResponse{Results: bonds})
}

// Delete handles DELETE /api/bond/{isin}
func (h *BondHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "isin")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCurve handles GET /api/yield-curve?maturities=1,2,5
func (h *BondHandler) GetCurve(w http.ResponseWriter, r *http.Request) {
	maturities, ok := h.query.ValidateFloats(w, r, "maturities")
	if !ok {
		return
	}
	view, err := h.service.InterpolateCurve(r.Context(), maturities)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v1.ResultResponse{Result: view})
}

// PutCurve handles PUT /api/yield-curve
func (h *BondHandler) PutCurve(w http.ResponseWriter, r *http.Request) {
	var req v1.YieldCurveRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	points := make([]fixedincome.YieldCurvePoint, len(req.Points))
	for i, p := range req.Points {
		points[i] = fixedincome.YieldCurvePoint{Tenor: p.Tenor, Rate: p.Rate}
	}

	if err := h.service.SaveYieldCurve(r.Context(), points); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bondFromRequest(req v1.BondRequest) (fixedincome.Bond, error) {
	maturity, err := time.Parse(time.DateOnly, req.MaturityDate)
	if err != nil {
		return fixedincome.Bond{}, apperrors.ErrValidation("maturity_date", "maturity_date must be a date in the form YYYY-MM-DD")
	}
	return fixedincome.Bond{
		ISIN:            strings.ToUpper(strings.TrimSpace(req.ISIN)),
		Issuer:          req.Issuer,
		CouponRate:      req.CouponRate,
		CouponFrequency: req.CouponFrequency,
		MaturityDate:    maturity,
		FaceValue:       req.FaceValue,
		Price:           req.Price,
		Currency:        strings.ToUpper(req.Currency),
	}, nil
}
