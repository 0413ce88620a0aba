package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"portfolioanalytics/internal/domain/fixedincome"
	"portfolioanalytics/internal/domain/portfolio"
	"portfolioanalytics/internal/services"
	"portfolioanalytics/internal/shared/sanitize"
)

const tracerName = "portfolioanalytics/transport/http"

// EquityAnalyzer is the equity service as seen by EquityHandler
type EquityAnalyzer interface {
	Analyse(ctx context.Context, ticker string) (*services.EquityAnalysis, error)
	AnalyseMany(ctx context.Context, tickers []string) ([]services.EquityResult, error)
	Latest(ctx context.Context, ticker string) (*services.EquityAnalysis, error)
}

// ReportRenderer renders equity analyses as documents
type ReportRenderer interface {
	RenderEquity(ctx context.Context, format string, analyses ...*services.EquityAnalysis) (*services.Report, error)
}

// BondAnalyzer is the bond service as seen by BondHandler
type BondAnalyzer interface {
	AnalyseMany(ctx context.Context, isins []string) ([]services.BondResult, error)
	Register(ctx context.Context, bond fixedincome.Bond) (fixedincome.Bond, error)
	List(ctx context.Context) ([]fixedincome.Bond, error)
	Delete(ctx context.Context, isin string) error
	SaveYieldCurve(ctx context.Context, points []fixedincome.YieldCurvePoint) error
	InterpolateCurve(ctx context.Context, maturities []float64) (services.CurveView, error)
}

// PortfolioAnalyzer is the portfolio service as seen by PortfolioHandler
type PortfolioAnalyzer interface {
	Analyse(ctx context.Context, p portfolio.Portfolio) (*services.PortfolioAnalysis, error)
	Optimise(ctx context.Context, req services.OptimisationRequest) (*services.OptimisationResult, error)
	Simulate(ctx context.Context, req services.SimulationRequest) (portfolio.Summary, error)
	Rebalance(ctx context.Context, req services.RebalanceRequest) (*services.RebalanceResult, error)
}

// RiskAnalyzer is the risk service as seen by RiskHandler
type RiskAnalyzer interface {
	Analyse(ctx context.Context, req services.RiskRequest) (*services.RiskAnalysis, error)
}

// HealthChecker is the health service as seen by HealthHandler
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	Detailed(ctx context.Context) services.HealthStatus
}

// respond writes v as JSON with non-finite floats replaced by null
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, sanitize.ToSerializable(v))
}

func startSpan(r *http.Request, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("http.method", r.Method),
		attribute.String("request_id", middleware.GetReqID(r.Context())))
	return otel.Tracer(tracerName).Start(r.Context(), name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
