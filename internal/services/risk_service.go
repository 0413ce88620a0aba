package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/risk"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

// RiskRequest holds return series to analyse, one series per entry
type RiskRequest struct {
	Series      [][]float64
	Labels      []string
	Confidence  float64
	Simulations int
}

// SeriesRisk is the risk profile of one return series
type SeriesRisk struct {
	Label      string              `json:"label"`
	Historical risk.VaRResult      `json:"historical_var"`
	Parametric risk.VaRResult      `json:"parametric_var"`
	MonteCarlo risk.VaRResult      `json:"monte_carlo_var"`
	Drawdown   *risk.DrawdownStats `json:"drawdown"`
}

// RiskAnalysis is the result of RiskService.Analyse
type RiskAnalysis struct {
	Confidence  float64                 `json:"confidence"`
	Simulations int                     `json:"simulations"`
	Series      []SeriesRisk            `json:"series"`
	Correlation *risk.CorrelationMatrix `json:"correlation,omitempty"`
}

// RiskService computes VaR, drawdown and correlation of return series
type RiskService struct {
	analytics config.AnalyticsConfig
	events    notifier
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewRiskService creates the service
func NewRiskService(analytics config.AnalyticsConfig, publisher EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *RiskService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "risk_service"))
	return &RiskService{
		analytics: analytics,
		events:    notifier{publisher: publisher, logger: logger},
		metrics:   metrics,
		logger:    logger,
	}
}

// Analyse estimates historical, parametric and Monte Carlo VaR and the
// maximum drawdown per series. With more than one series the correlation
// matrix is added; shorter series are zero padded for it.
func (s *RiskService) Analyse(ctx context.Context, req RiskRequest) (result *RiskAnalysis, err error) {
	if len(req.Series) == 0 {
		return nil, apperrors.NewDataValidationError("at least one return series is required")
	}
	confidence := req.Confidence
	if confidence == 0 {
		confidence = s.analytics.ConfidenceLevel
	}
	simulations := req.Simulations
	if simulations == 0 {
		simulations = s.analytics.Simulations
	}

	start := time.Now()
	defer func() {
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, KindRisk, time.Since(start), err)
	}()

	seed := uint64(s.analytics.Seed)
	rng := rand.New(rand.NewPCG(seed, seed))

	result = &RiskAnalysis{Confidence: confidence, Simulations: simulations}
	labels := make([]string, len(req.Series))
	for i, series := range req.Series {
		labels[i] = fmt.Sprintf("series_%d", i)
		if i < len(req.Labels) && req.Labels[i] != "" {
			labels[i] = req.Labels[i]
		}

		sr := SeriesRisk{Label: labels[i]}
		if sr.Historical, err = risk.NewVaRResult(risk.MethodHistorical, series, confidence, 0, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", labels[i], err)
		}
		if sr.Parametric, err = risk.NewVaRResult(risk.MethodParametric, series, confidence, 0, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", labels[i], err)
		}
		if sr.MonteCarlo, err = risk.NewVaRResult(risk.MethodMonteCarlo, series, confidence, simulations, rng); err != nil {
			return nil, fmt.Errorf("%s: %w", labels[i], err)
		}
		if sr.Drawdown, err = risk.MaxDrawdown(series, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", labels[i], err)
		}
		result.Series = append(result.Series, sr)
	}

	if len(req.Series) > 1 {
		corr, err := risk.NewCorrelationMatrix(labels, risk.PadSeries(req.Series))
		if err != nil {
			return nil, fmt.Errorf("correlation: %w", err)
		}
		result.Correlation = &corr
	}

	if s.metrics != nil {
		s.metrics.SimulationPaths.Add(ctx, int64(simulations*len(req.Series)))
	}
	s.events.completed(ctx, KindRisk, fmt.Sprintf("%d series", len(req.Series)), result)
	return result, nil
}
