package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/domain/equity"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/persistence"
	ws "portfolioanalytics/internal/websocket"
)

func newEquityService(t *testing.T, src EquitySource, pub EventPublisher) (*EquityService, *persistence.FileRepository) {
	t.Helper()
	repo, err := persistence.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	s := NewEquityService(src, repo, pub, testLogger(), WithEquityConcurrency(2))
	s.now = func() time.Time { return fixedNow }
	return s, repo
}

func TestEquityService_Analyse(t *testing.T) {
	src := new(MockEquitySource)
	expectEquity(src, "AAPL")
	pub := new(MockPublisher)
	pub.On("Publish", ws.TypeAnalysisCompleted, mock.AnythingOfType("events.AnalysisData")).Return(nil).Once()

	s, _ := newEquityService(t, src, pub)
	got, err := s.Analyse(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, "mock", got.Source)
	assert.Equal(t, fixedNow, got.AnalysedAt)
	assert.InDelta(t, 0.5, *got.Ratios.LeverageRatio, 1e-12, "leverage comes from fundamentals")
	assert.InDelta(t, 1.2, *got.Ratios.Quality, 1e-12, "quality is CFO/NI")
	assert.Equal(t, equity.StatusFair, got.Valuation.Status)

	latest, err := s.Latest(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, got.Ticker, latest.Ticker)
	assert.Equal(t, got.AnalysedAt, latest.AnalysedAt)
	assert.InDelta(t, 25, *latest.Ratios.PE, 1e-12)

	history, err := s.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, history)

	src.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestEquityService_AnalyseFailure(t *testing.T) {
	src := new(MockEquitySource)
	src.On("EquityFundamentals", mock.Anything, "BAD").
		Return(equity.Fundamentals{}, apperrors.NewDataNotAvailableError("unknown ticker", nil))
	src.On("EquityRatios", mock.Anything, "BAD").Return(equity.Ratios{}, nil).Maybe()
	src.On("EquityValuation", mock.Anything, "BAD").Return(equity.Valuation{}, nil).Maybe()
	pub := new(MockPublisher)
	pub.On("Publish", ws.TypeAnalysisFailed, mock.Anything).Return(errors.New("hub stopped")).Once()

	s, _ := newEquityService(t, src, pub)
	_, err := s.Analyse(context.Background(), "BAD")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDataNotAvailable)
	assert.Contains(t, err.Error(), "fundamentals for BAD")

	_, err = s.Latest(context.Background(), "BAD")
	assert.ErrorIs(t, err, apperrors.ErrDataNotAvailable)
	assert.ErrorIs(t, err, ErrNoHistory)
	pub.AssertExpectations(t)
}

func TestEquityService_AnalyseWithoutMarketPrices(t *testing.T) {
	src := new(MockEquitySource)
	src.On("EquityFundamentals", mock.Anything, "AAPL").Return(sampleFundamentals("AAPL"), nil)
	src.On("EquityRatios", mock.Anything, "AAPL").
		Return(equity.Ratios{}, apperrors.NewUnsupportedError("edgar", "equity ratios"))
	src.On("EquityValuation", mock.Anything, "AAPL").
		Return(equity.Valuation{}, apperrors.NewUnsupportedError("edgar", "equity valuation"))

	s, _ := newEquityService(t, src, nil)
	got, err := s.Analyse(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, []string{SectionRatios, SectionValuation}, got.Unavailable)
	assert.Equal(t, sampleFundamentals("AAPL"), got.Fundamentals)
	assert.Nil(t, got.Ratios.PE)
	assert.InDelta(t, 0.5, *got.Ratios.LeverageRatio, 1e-12)
	assert.Empty(t, got.Valuation.Status)
}

func TestEquityService_AnalyseRatiosUpstreamError(t *testing.T) {
	src := new(MockEquitySource)
	src.On("EquityFundamentals", mock.Anything, "AAPL").Return(sampleFundamentals("AAPL"), nil).Maybe()
	src.On("EquityRatios", mock.Anything, "AAPL").
		Return(equity.Ratios{}, apperrors.NewDataNotAvailableError("quote missing", nil))
	src.On("EquityValuation", mock.Anything, "AAPL").Return(sampleValuation("AAPL"), nil).Maybe()

	s, _ := newEquityService(t, src, nil)
	_, err := s.Analyse(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratios for AAPL")
}

func TestEquityService_Validation(t *testing.T) {
	s, _ := newEquityService(t, new(MockEquitySource), nil)

	_, err := s.Analyse(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)

	_, err = s.AnalyseMany(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)

	_, err = s.Latest(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)
}

func TestEquityService_AnalyseMany(t *testing.T) {
	src := new(MockEquitySource)
	for _, tk := range []string{"AAPL", "MSFT", "GOOG"} {
		expectEquity(src, tk)
	}
	src.On("EquityFundamentals", mock.Anything, "NOPE").
		Return(equity.Fundamentals{}, apperrors.NewUpstreamError("mock", "boom", nil))
	src.On("EquityRatios", mock.Anything, "NOPE").Return(equity.Ratios{}, nil).Maybe()
	src.On("EquityValuation", mock.Anything, "NOPE").Return(equity.Valuation{}, nil).Maybe()

	s, _ := newEquityService(t, src, nil)
	results, err := s.AnalyseMany(context.Background(), []string{"msft", "NOPE", "AAPL", "goog"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	wantOrder := []string{"MSFT", "NOPE", "AAPL", "GOOG"}
	for i, r := range results {
		assert.Equal(t, wantOrder[i], r.Ticker)
	}
	assert.NotEmpty(t, results[1].Error)
	assert.Nil(t, results[1].EquityAnalysis)
	for _, i := range []int{0, 2, 3} {
		assert.Empty(t, results[i].Error)
		require.NotNil(t, results[i].EquityAnalysis)
	}
}

func TestEquityService_LatestWithoutStore(t *testing.T) {
	s := NewEquityService(new(MockEquitySource), nil, nil, nil)
	_, err := s.Latest(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrNoHistory)

	history, err := s.History(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, history)
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "equity/AAPL", SnapshotKey(" aapl"))
}
