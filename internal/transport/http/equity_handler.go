package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/middleware"
	"portfolioanalytics/internal/services"
	v1 "portfolioanalytics/pkg/contracts/api/v1"
)

var reportFormats = []string{services.FormatHTML, services.FormatXLSX, services.FormatPDF, services.FormatCSV}

// EquityHandler serves equity analyses and reports
type EquityHandler struct {
	service      EquityAnalyzer
	reports      ReportRenderer
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewEquityHandler creates the handler. reports may be nil, which disables
// the report route.
func NewEquityHandler(service EquityAnalyzer, reports ReportRenderer, validation *middleware.ValidationMiddleware, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *EquityHandler {
	return &EquityHandler{
		service:      service,
		reports:      reports,
		validation:   validation,
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "equity_handler")),
	}
}

// Routes returns the equity routes
func (h *EquityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/analyse", h.Analyse)
	r.Route("/{ticker}", func(r chi.Router) {
		r.Use(h.TickerCtx)
		r.Get("/latest", h.Latest)
		r.Get("/report", h.Report)
	})
	return r
}

// TickerCtx rejects malformed ticker path parameters
func (h *EquityHandler) TickerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticker := chi.URLParam(r, "ticker")
		if err := h.validation.ValidateStruct(struct {
			Ticker string `json:"ticker" validate:"required,ticker"`
		}{ticker}); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Analyse handles POST /api/equity/analyse. Failed tickers are reported
// per item; the response is 200 whenever the body was valid.
func (h *EquityHandler) Analyse(w http.ResponseWriter, r *http.Request) {
	var req v1.EquityAnalysisRequest
	if err := h.validation.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx, span := startSpan(r, "equity.analyse", attribute.Int("tickers", len(req.Tickers)))
	results, err := h.service.AnalyseMany(ctx, req.Tickers)
	endSpan(span, err)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, v1.ResultsResponse{Results: results})
}

// Latest handles GET /api/equity/{ticker}/latest
func (h *EquityHandler) Latest(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	analysis, err := h.service.Latest(r.Context(), ticker)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, v1.ResultResponse{Result: analysis})
}

// Report handles GET /api/equity/{ticker}/report?format=html|xlsx|pdf|csv.
// The ticker is analysed afresh and the document is sent as an attachment,
// except HTML which is shown inline.
func (h *EquityHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.errorHandler.HandleError(w, r, apperrors.ErrServiceUnavailable)
		return
	}
	format, ok := h.query.ValidateEnum(w, r, "format", reportFormats, services.FormatHTML)
	if !ok {
		return
	}
	ticker := chi.URLParam(r, "ticker")

	ctx, span := startSpan(r, "equity.report",
		attribute.String("ticker", ticker),
		attribute.String("format", format))
	var err error
	defer func() { endSpan(span, err) }()

	analysis, err := h.service.Analyse(ctx, ticker)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	report, err := h.reports.RenderEquity(ctx, format, analysis)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	disposition := "attachment"
	if report.Format == services.FormatHTML {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, report.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report.Body); err != nil {
		h.logger.WarnContext(ctx, "failed to write report",
			slog.String("report_id", report.ID),
			slog.String("error", err.Error()))
	}
}
