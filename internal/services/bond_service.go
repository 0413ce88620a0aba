package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"portfolioanalytics/internal/domain/fixedincome"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

// BondAnalysis is the pricing and risk profile of a bond at a valuation date
type BondAnalysis struct {
	ISIN            string                      `json:"isin"`
	Bond            fixedincome.Bond            `json:"bond"`
	Duration        fixedincome.DurationMetrics `json:"duration"`
	Price           float64                     `json:"price"`
	YieldToMaturity float64                     `json:"yield_to_maturity"`
	CashFlows       []fixedincome.CashFlow      `json:"cash_flows"`
	AsOf            time.Time                   `json:"as_of"`
}

// BondResult is one slot of a batch: the analysis or the error
type BondResult struct {
	*BondAnalysis
	ISIN  string `json:"isin"`
	Error string `json:"error,omitempty"`
}

// CurveView is the stored curve and, when requested, interpolated rates
type CurveView struct {
	Points       []fixedincome.YieldCurvePoint `json:"points"`
	Maturities   []float64                     `json:"maturities,omitempty"`
	Interpolated []float64                     `json:"interpolated,omitempty"`
}

// BondService runs bond analyses and maintains the bond catalog
type BondService struct {
	source      BondSource
	registry    BondRegistry
	events      notifier
	metrics     *infrastructure.BusinessMetrics
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// NewBondService creates the service. registry may be nil for read-only use.
func NewBondService(source BondSource, registry BondRegistry, publisher EventPublisher, metrics *infrastructure.BusinessMetrics, concurrency int, logger *slog.Logger) *BondService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "bond_service"))
	return &BondService{
		source:      source,
		registry:    registry,
		events:      notifier{publisher: publisher, logger: logger},
		metrics:     metrics,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

// Analyse loads a registered bond and evaluates it at its market yield:
// solved from the price when known, otherwise the coupon rate.
func (s *BondService) Analyse(ctx context.Context, isin string) (result *BondAnalysis, err error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	if isin == "" {
		return nil, apperrors.NewDataValidationError("isin is required")
	}

	start := time.Now()
	defer func() {
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, KindBond, time.Since(start), err)
		if err != nil {
			s.events.failed(ctx, KindBond, isin, err)
		}
	}()

	bond, err := s.source.Bond(ctx, isin)
	if err != nil {
		return nil, fmt.Errorf("bond %s: %w", isin, err)
	}
	duration, err := s.source.DurationMetrics(ctx, bond)
	if err != nil {
		return nil, fmt.Errorf("duration metrics for %s: %w", isin, err)
	}

	bond = bond.WithDefaults()
	asOf := s.now().UTC()
	ytm := bond.CouponRate
	if bond.Price != nil {
		if ytm, err = fixedincome.YieldToMaturity(bond, *bond.Price, asOf); err != nil {
			return nil, fmt.Errorf("yield for %s: %w", isin, err)
		}
	}

	result = &BondAnalysis{
		ISIN:            isin,
		Bond:            bond,
		Duration:        duration,
		Price:           fixedincome.Price(bond, ytm, asOf),
		YieldToMaturity: ytm,
		CashFlows:       fixedincome.CashFlows(bond, asOf),
		AsOf:            asOf,
	}
	s.events.completed(ctx, KindBond, isin, result)
	s.logger.InfoContext(ctx, "Bond analysis completed",
		slog.String("isin", isin),
		slog.Float64("ytm", ytm))
	return result, nil
}

// AnalyseMany analyses ISINs concurrently in input order
func (s *BondService) AnalyseMany(ctx context.Context, isins []string) ([]BondResult, error) {
	if len(isins) == 0 {
		return nil, apperrors.NewDataValidationError("at least one isin is required")
	}
	analyses, errs := runBatch(ctx, s.concurrency, isins, s.Analyse)

	out := make([]BondResult, len(isins))
	for i, isin := range isins {
		out[i] = BondResult{BondAnalysis: analyses[i], ISIN: strings.ToUpper(strings.TrimSpace(isin))}
		if errs[i] != nil {
			out[i].Error = errs[i].Error()
		}
	}
	return out, nil
}

func (s *BondService) requireRegistry() error {
	if s.registry == nil {
		return apperrors.NewConfigError("bond catalog storage is not configured", nil)
	}
	return nil
}

// Register validates and stores bond terms
func (s *BondService) Register(ctx context.Context, bond fixedincome.Bond) (fixedincome.Bond, error) {
	if err := s.requireRegistry(); err != nil {
		return fixedincome.Bond{}, err
	}
	bond = bond.WithDefaults()
	if err := bond.Validate(); err != nil {
		return fixedincome.Bond{}, err
	}
	saved, err := s.registry.SaveBond(ctx, bond)
	if err != nil {
		return fixedincome.Bond{}, fmt.Errorf("register bond %s: %w", bond.ISIN, err)
	}
	s.invalidate(ctx, saved.ISIN)
	s.events.catalogUpdated(ctx, saved.ISIN)
	s.logger.InfoContext(ctx, "Bond registered", slog.String("isin", saved.ISIN))
	return saved, nil
}

// List returns every registered bond
func (s *BondService) List(ctx context.Context) ([]fixedincome.Bond, error) {
	if err := s.requireRegistry(); err != nil {
		return nil, err
	}
	return s.registry.ListBonds(ctx)
}

// Delete removes a bond; missing bonds are reported as not available
func (s *BondService) Delete(ctx context.Context, isin string) error {
	if err := s.requireRegistry(); err != nil {
		return err
	}
	isin = strings.ToUpper(strings.TrimSpace(isin))
	deleted, err := s.registry.DeleteBond(ctx, isin)
	if err != nil {
		return fmt.Errorf("delete bond %s: %w", isin, err)
	}
	if !deleted {
		return apperrors.NewDataNotAvailableError("bond "+isin+" is not registered", nil).WithContext("isin", isin)
	}
	s.invalidate(ctx, isin)
	s.events.catalogUpdated(ctx, isin)
	return nil
}

// YieldCurve returns the current curve sorted by tenor
func (s *BondService) YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error) {
	points, err := s.source.YieldCurve(ctx)
	if err != nil {
		return nil, fmt.Errorf("yield curve: %w", err)
	}
	return fixedincome.BootstrapZeroRates(points), nil
}

// SaveYieldCurve replaces the stored curve
func (s *BondService) SaveYieldCurve(ctx context.Context, points []fixedincome.YieldCurvePoint) error {
	if err := s.requireRegistry(); err != nil {
		return err
	}
	if len(points) == 0 {
		return apperrors.NewDataValidationError("yield curve needs at least one point")
	}
	if err := s.registry.SaveYieldCurve(ctx, points); err != nil {
		return fmt.Errorf("save yield curve: %w", err)
	}
	s.invalidate(ctx)
	s.events.catalogUpdated(ctx, "yield_curve")
	return nil
}

// InterpolateCurve returns the curve with rates interpolated at maturities,
// in the order given
func (s *BondService) InterpolateCurve(ctx context.Context, maturities []float64) (CurveView, error) {
	for _, m := range maturities {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return CurveView{}, apperrors.NewDataValidationError("maturity must be finite, got %g", m)
		}
		if m < 0 {
			return CurveView{}, apperrors.NewDataValidationError("maturity must not be negative, got %g", m)
		}
	}
	points, err := s.YieldCurve(ctx)
	if err != nil {
		return CurveView{}, err
	}
	view := CurveView{Points: points}
	if len(maturities) > 0 {
		view.Maturities = append([]float64(nil), maturities...)
		view.Interpolated = fixedincome.InterpolateYieldCurve(points, view.Maturities)
	}
	return view, nil
}

// PriceScenario prices a bond at ytm and at ytm+shift. It needs no stored data.
func PriceScenario(bond fixedincome.Bond, ytm, shift float64, asOf time.Time) (BondScenario, error) {
	bond = bond.WithDefaults()
	if bond.ISIN == "" {
		bond.ISIN = "ADHOC"
	}
	if err := bond.Validate(); err != nil {
		return BondScenario{}, err
	}
	price := fixedincome.Price(bond, ytm, asOf)
	return BondScenario{
		Price:           price,
		Metrics:         fixedincome.Metrics(bond, ytm, asOf),
		Shift:           shift,
		PriceChange:     fixedincome.PriceSensitivity(bond, ytm, shift, asOf),
		RepricedAtShift: fixedincome.Price(bond, ytm+shift, asOf),
		YearsToMaturity: fixedincome.YearsToMaturity(bond, asOf),
		TotalCashFlow:   fixedincome.TotalCashFlow(fixedincome.CashFlows(bond, asOf)).InexactFloat64(),
	}, nil
}

// BondScenario is the output of PriceScenario
type BondScenario struct {
	Price           float64                     `json:"price"`
	Metrics         fixedincome.DurationMetrics `json:"metrics"`
	Shift           float64                     `json:"shift"`
	PriceChange     float64                     `json:"price_change"`
	RepricedAtShift float64                     `json:"repriced_at_shift"`
	YearsToMaturity float64                     `json:"years_to_maturity"`
	TotalCashFlow   float64                     `json:"total_cash_flow"`
}

func (s *BondService) invalidate(ctx context.Context, isins ...string) {
	if inv, ok := s.source.(invalidator); ok {
		inv.Invalidate(ctx, isins...)
	}
}
