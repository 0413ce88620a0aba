package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/portfolio"
	"portfolioanalytics/internal/domain/risk"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

// Synthetic return model used until price history is wired in
const (
	SyntheticDailyMean  = 0.0005
	SyntheticDailyStdev = 0.02
)

// PortfolioAnalysis holds weights and risk metrics of a portfolio
type PortfolioAnalysis struct {
	Portfolio         portfolio.Portfolio `json:"portfolio"`
	TotalValue        float64             `json:"total_value"`
	Weights           []float64           `json:"weights"`
	VaR95             *float64            `json:"var95,omitempty"`
	MaxDrawdown       *float64            `json:"max_drawdown,omitempty"`
	DrawdownStart     *string             `json:"drawdown_start,omitempty"`
	DrawdownEnd       *string             `json:"drawdown_end,omitempty"`
	DrawdownRecovery  *string             `json:"drawdown_recovery,omitempty"`
	CorrelationMatrix [][]float64         `json:"correlation_matrix,omitempty"`
	Error             string              `json:"error,omitempty"`
}

// OptimisationRequest describes the asset universe to optimise
type OptimisationRequest struct {
	Symbols         []string
	ExpectedReturns []float64
	Covariance      [][]float64
	RiskFreeRate    *float64
	LowerBound      float64
	UpperBound      float64
	Samples         int
}

// OptimisationResult is the tangency portfolio and a random frontier sample
type OptimisationResult struct {
	Symbols        []string                  `json:"symbols,omitempty"`
	Weights        []float64                 `json:"weights"`
	ExpectedReturn float64                   `json:"expected_return"`
	Volatility     float64                   `json:"volatility"`
	Sharpe         *float64                  `json:"sharpe"`
	RiskFreeRate   float64                   `json:"risk_free_rate"`
	CappedReturns  []float64                 `json:"capped_returns"`
	Frontier       []portfolio.FrontierPoint `json:"frontier,omitempty"`
}

// SimulationRequest configures a Monte Carlo run
type SimulationRequest struct {
	Weights         []float64
	ExpectedReturns []float64
	Covariance      [][]float64
	Horizon         int
	Paths           int
	Seed            *uint64
}

// RebalanceRequest compares current and target weights
type RebalanceRequest struct {
	Current   []float64
	Target    []float64
	Threshold float64
}

// RebalanceResult lists the trades and resulting weights
type RebalanceResult struct {
	Trades     []float64 `json:"trades"`
	NewWeights []float64 `json:"new_weights"`
	Turnover   float64   `json:"turnover"`
}

// PortfolioService analyses and optimises portfolios
type PortfolioService struct {
	analytics config.AnalyticsConfig
	events    notifier
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewPortfolioService creates the service
func NewPortfolioService(analytics config.AnalyticsConfig, publisher EventPublisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *PortfolioService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "portfolio_service"))
	return &PortfolioService{
		analytics: analytics,
		events:    notifier{publisher: publisher, logger: logger},
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *PortfolioService) rng(seed *uint64) *rand.Rand {
	v := uint64(s.analytics.Seed)
	if seed != nil {
		v = *seed
	}
	return rand.New(rand.NewPCG(v, v))
}

// syntheticReturns draws horizon x assets normal daily returns
func syntheticReturns(rng *rand.Rand, horizon, assets int) [][]float64 {
	rows := make([][]float64, horizon)
	for t := range rows {
		rows[t] = make([]float64, assets)
		for i := range rows[t] {
			rows[t][i] = SyntheticDailyMean + SyntheticDailyStdev*rng.NormFloat64()
		}
	}
	return rows
}

// Analyse computes weights and risk metrics. Risk metrics come from a
// seeded synthetic return panel; if they fail, Error is set and the weights
// are still returned.
func (s *PortfolioService) Analyse(ctx context.Context, p portfolio.Portfolio) (result *PortfolioAnalysis, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, KindPortfolio, time.Since(start), err)
	}()

	weights := p.Weights()
	result = &PortfolioAnalysis{
		Portfolio:  p,
		TotalValue: p.TotalValue(),
		Weights:    weights,
	}

	if err := s.riskMetrics(result, weights); err != nil {
		s.logger.WarnContext(ctx, "Risk analytics failed", slog.String("error", err.Error()))
		result.Error = "risk analytics failed: " + err.Error()
	}

	s.events.completed(ctx, KindPortfolio, fmt.Sprintf("%d holdings", len(p.Holdings)), result)
	return result, nil
}

func (s *PortfolioService) riskMetrics(result *PortfolioAnalysis, weights []float64) error {
	panel := syntheticReturns(s.rng(nil), config.TradingDaysPerYear, len(weights))

	portfolioReturns := make([]float64, len(panel))
	for t, row := range panel {
		for i, r := range row {
			portfolioReturns[t] += r * weights[i]
		}
	}

	v, err := risk.ParametricVaR(portfolioReturns, risk.DefaultConfidence)
	if err != nil {
		return err
	}
	dd, err := risk.MaxDrawdown(portfolioReturns, nil)
	if err != nil {
		return err
	}

	series := make([][]float64, len(weights))
	for i := range series {
		series[i] = make([]float64, len(panel))
		for t := range panel {
			series[i][t] = panel[t][i]
		}
	}
	corr, err := risk.Correlation(series)
	if err != nil {
		return err
	}

	result.VaR95 = &v
	if dd != nil {
		result.MaxDrawdown = &dd.MaxDrawdown
		result.DrawdownStart = dd.StartDate
		result.DrawdownEnd = dd.EndDate
		result.DrawdownRecovery = dd.RecoveryDate
	}
	result.CorrelationMatrix = corr
	return nil
}

// Optimise caps expected returns, solves the maximum Sharpe allocation and
// samples random portfolios for the frontier plot.
func (s *PortfolioService) Optimise(ctx context.Context, req OptimisationRequest) (result *OptimisationResult, err error) {
	start := time.Now()
	defer func() {
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, "optimisation", time.Since(start), err)
	}()

	if len(req.Symbols) > 0 && len(req.Symbols) != len(req.ExpectedReturns) {
		return nil, apperrors.NewDataValidationError("%d symbols given for %d assets", len(req.Symbols), len(req.ExpectedReturns))
	}
	rf := s.analytics.RiskFreeRate
	if req.RiskFreeRate != nil {
		rf = *req.RiskFreeRate
	}
	lower, upper := req.LowerBound, req.UpperBound
	if lower == 0 && upper == 0 {
		upper = 1
	}

	mu := portfolio.CapReturns(req.ExpectedReturns, s.analytics.MaxExpectedReturn)
	w, err := portfolio.MaxSharpeRatio(mu, req.Covariance, rf, lower, upper, s.analytics.RidgeAlpha)
	if err != nil {
		return nil, err
	}
	ret, vol, err := portfolio.PortfolioStats(w, mu, req.Covariance)
	if err != nil {
		return nil, err
	}

	result = &OptimisationResult{
		Symbols:        req.Symbols,
		Weights:        w,
		ExpectedReturn: ret,
		Volatility:     vol,
		RiskFreeRate:   rf,
		CappedReturns:  mu,
	}
	if vol > 0 {
		sharpe := (ret - rf) / vol
		result.Sharpe = &sharpe
	}
	if req.Samples > 0 {
		if result.Frontier, err = portfolio.RandomPortfolios(mu, req.Covariance, req.Samples, rf, uint64(s.analytics.Seed)); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Optimisation completed",
		slog.Int("assets", len(w)),
		slog.Float64("expected_return", ret),
		slog.Float64("volatility", vol))
	return result, nil
}

// Simulate runs a Monte Carlo simulation of compounded portfolio returns
func (s *PortfolioService) Simulate(ctx context.Context, req SimulationRequest) (summary portfolio.Summary, err error) {
	start := time.Now()
	defer func() {
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, "simulation", time.Since(start), err)
	}()

	horizon, paths := req.Horizon, req.Paths
	if horizon == 0 {
		horizon = portfolio.DefaultHorizon
	}
	if paths == 0 {
		paths = portfolio.DefaultSimulations
	}

	results, err := portfolio.SimulatePortfolioReturns(req.Weights, req.ExpectedReturns, req.Covariance, horizon, paths, s.rng(req.Seed))
	if err != nil {
		return portfolio.Summary{}, err
	}
	if s.metrics != nil {
		s.metrics.SimulationPaths.Add(ctx, int64(paths))
	}
	return portfolio.Summarize(results), nil
}

// Rebalance computes threshold trades toward target and the new weights
func (s *PortfolioService) Rebalance(_ context.Context, req RebalanceRequest) (*RebalanceResult, error) {
	if req.Threshold < 0 {
		return nil, apperrors.NewDataValidationError("threshold must not be negative")
	}
	trades, err := portfolio.ComputeRebalanceTrades(req.Current, req.Target, req.Threshold)
	if err != nil {
		return nil, err
	}
	weights, err := portfolio.ApplyRebalance(req.Current, trades)
	if err != nil {
		return nil, err
	}
	return &RebalanceResult{Trades: trades, NewWeights: weights, Turnover: portfolio.Turnover(trades)}, nil
}
