package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"portfolioanalytics/internal/domain/equity"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

// EquitySnapshotPrefix namespaces stored equity analyses
const EquitySnapshotPrefix = "equity/"

// EquityAnalysis is the combined result for one ticker
type EquityAnalysis struct {
	Ticker       string              `json:"ticker"`
	Source       string              `json:"source,omitempty"`
	Fundamentals equity.Fundamentals `json:"fundamentals"`
	Ratios       equity.Ratios       `json:"ratios"`
	Valuation    equity.Valuation    `json:"valuation"`
	AnalysedAt   time.Time           `json:"analysed_at"`
	// sections the provider does not offer, left empty
	Unavailable []string `json:"unavailable,omitempty"`
}

// Equity analysis sections a provider may not support
const (
	SectionRatios    = "ratios"
	SectionValuation = "valuation"
)

// EquityResult is one slot of a batch: the analysis or the error
type EquityResult struct {
	*EquityAnalysis
	Ticker string `json:"ticker"`
	Error  string `json:"error,omitempty"`
}

// EquityService runs equity analyses
type EquityService struct {
	source      EquitySource
	snapshots   SnapshotStore
	events      notifier
	metrics     *infrastructure.BusinessMetrics
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// EquityOption customises an EquityService
type EquityOption func(*EquityService)

// WithEquityConcurrency bounds AnalyseMany
func WithEquityConcurrency(n int) EquityOption {
	return func(s *EquityService) { s.concurrency = n }
}

// WithEquityMetrics records analysis metrics
func WithEquityMetrics(m *infrastructure.BusinessMetrics) EquityOption {
	return func(s *EquityService) { s.metrics = m }
}

// NewEquityService creates the service. snapshots and publisher may be nil.
func NewEquityService(source EquitySource, snapshots SnapshotStore, publisher EventPublisher, logger *slog.Logger, opts ...EquityOption) *EquityService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "equity_service"))
	s := &EquityService{
		source:      source,
		snapshots:   snapshots,
		events:      notifier{publisher: publisher, logger: logger},
		concurrency: DefaultConcurrency,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeTicker trims and upper-cases a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// SnapshotKey is the repository key of a ticker's latest analysis
func SnapshotKey(ticker string) string {
	return EquitySnapshotPrefix + NormalizeTicker(ticker)
}

// Analyse fetches fundamentals, ratios and valuation for ticker. Ratios
// take leverage and quality from the fundamentals when available.
func (s *EquityService) Analyse(ctx context.Context, ticker string) (result *EquityAnalysis, err error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, apperrors.NewDataValidationError("ticker is required")
	}

	start := time.Now()
	defer func() {
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, KindEquity, time.Since(start), err)
		if err != nil {
			s.events.failed(ctx, KindEquity, ticker, err)
		}
	}()

	s.logger.InfoContext(ctx, "Starting equity analysis", slog.String("ticker", ticker))

	var (
		fundamentals       equity.Fundamentals
		ratios             equity.Ratios
		valuation          equity.Valuation
		noRatios, noValues bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fundamentals, err = s.source.EquityFundamentals(gctx, ticker)
		if err != nil {
			return fmt.Errorf("fundamentals for %s: %w", ticker, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		ratios, err = s.source.EquityRatios(gctx, ticker)
		if errors.Is(err, apperrors.ErrUnsupported) {
			noRatios, ratios = true, equity.Ratios{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("ratios for %s: %w", ticker, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		valuation, err = s.source.EquityValuation(gctx, ticker)
		if errors.Is(err, apperrors.ErrUnsupported) {
			noValues, valuation = true, equity.Valuation{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("valuation for %s: %w", ticker, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Equity analysis failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()))
		return nil, err
	}

	result = &EquityAnalysis{
		Ticker:       ticker,
		Source:       s.source.Name(),
		Fundamentals: fundamentals,
		Ratios:       ratios.WithFundamentalOverrides(fundamentals),
		Valuation:    valuation,
		AnalysedAt:   s.now().UTC(),
	}
	if noRatios {
		result.Unavailable = append(result.Unavailable, SectionRatios)
	}
	if noValues {
		result.Unavailable = append(result.Unavailable, SectionValuation)
	}
	if len(result.Unavailable) > 0 {
		s.logger.InfoContext(ctx, "Provider omits equity sections",
			slog.String("ticker", ticker),
			slog.String("source", result.Source),
			slog.Any("sections", result.Unavailable))
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, SnapshotKey(ticker), result); err != nil {
			// the analysis is still returned; only history is lost
			s.logger.WarnContext(ctx, "Failed to store equity snapshot",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()))
		}
	}
	s.events.completed(ctx, KindEquity, ticker, result)

	s.logger.InfoContext(ctx, "Equity analysis completed",
		slog.String("ticker", ticker),
		slog.String("status", valuation.Status),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// AnalyseMany analyses tickers concurrently. Failures are reported per
// ticker and the input order is preserved.
func (s *EquityService) AnalyseMany(ctx context.Context, tickers []string) ([]EquityResult, error) {
	if len(tickers) == 0 {
		return nil, apperrors.NewDataValidationError("at least one ticker is required")
	}
	analyses, errs := runBatch(ctx, s.concurrency, tickers, s.Analyse)

	out := make([]EquityResult, len(tickers))
	for i, t := range tickers {
		out[i] = EquityResult{EquityAnalysis: analyses[i], Ticker: NormalizeTicker(t)}
		if errs[i] != nil {
			out[i].Error = errs[i].Error()
		}
	}
	return out, nil
}

// Latest returns the stored analysis of ticker
func (s *EquityService) Latest(ctx context.Context, ticker string) (*EquityAnalysis, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, apperrors.NewDataValidationError("ticker is required")
	}
	if s.snapshots == nil {
		return nil, apperrors.NewDataNotAvailableError("analysis history is disabled", ErrNoHistory)
	}

	var analysis EquityAnalysis
	found, err := s.snapshots.Load(ctx, SnapshotKey(ticker), &analysis)
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", ticker, err)
	}
	if !found {
		return nil, apperrors.NewDataNotAvailableError("no stored analysis for "+ticker, ErrNoHistory).
			WithContext("ticker", ticker)
	}
	return &analysis, nil
}

// History lists the tickers that have a stored analysis
func (s *EquityService) History(ctx context.Context) ([]string, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	keys, err := s.snapshots.List(ctx, EquitySnapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	tickers := make([]string, 0, len(keys))
	for _, k := range keys {
		tickers = append(tickers, strings.TrimPrefix(strings.TrimPrefix(k, EquitySnapshotPrefix), "equity_"))
	}
	return tickers, nil
}
