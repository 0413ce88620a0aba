package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/domain/fixedincome"
	apperrors "portfolioanalytics/internal/errors"
	ws "portfolioanalytics/internal/websocket"
)

func sampleBond(isin string) fixedincome.Bond {
	return fixedincome.Bond{
		ISIN:         isin,
		Issuer:       "Treasury",
		CouponRate:   0.05,
		MaturityDate: fixedNow.AddDate(5, 0, 0),
	}.WithDefaults()
}

func newBondService(src BondSource, reg BondRegistry, pub EventPublisher) *BondService {
	s := NewBondService(src, reg, pub, nil, 2, testLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestBondService_Analyse(t *testing.T) {
	bond := sampleBond("US0000000001")
	src := new(MockBondSource)
	src.On("Bond", mock.Anything, "US0000000001").Return(bond, nil)
	src.On("DurationMetrics", mock.Anything, bond).Return(fixedincome.Metrics(bond, 0.05, fixedNow), nil)
	pub := new(MockPublisher)
	pub.On("Publish", ws.TypeAnalysisCompleted, mock.Anything).Return(nil).Once()

	got, err := newBondService(src, nil, pub).Analyse(context.Background(), "us0000000001")
	require.NoError(t, err)

	assert.Equal(t, "US0000000001", got.ISIN)
	assert.InDelta(t, 0.05, got.YieldToMaturity, 1e-12, "coupon rate without a price")
	assert.InDelta(t, 100, got.Price, 1e-9, "par bond")
	assert.Len(t, got.CashFlows, 10)
	assert.Equal(t, fixedNow, got.AsOf)
	require.NotNil(t, got.Duration.MacaulayDuration)
	pub.AssertExpectations(t)
}

func TestBondService_AnalyseFromPrice(t *testing.T) {
	bond := sampleBond("XS1")
	bond.Price = f64(fixedincome.Price(bond, 0.06, fixedNow))
	src := new(MockBondSource)
	src.On("Bond", mock.Anything, "XS1").Return(bond, nil)
	src.On("DurationMetrics", mock.Anything, bond).Return(fixedincome.DurationMetrics{}, nil)

	got, err := newBondService(src, nil, nil).Analyse(context.Background(), "XS1")
	require.NoError(t, err)
	assert.InDelta(t, 0.06, got.YieldToMaturity, 1e-8)
	assert.InDelta(t, *bond.Price, got.Price, 1e-6)
}

func TestBondService_AnalyseMany(t *testing.T) {
	good := sampleBond("A1")
	src := new(MockBondSource)
	src.On("Bond", mock.Anything, "A1").Return(good, nil)
	src.On("Bond", mock.Anything, "MISSING").
		Return(fixedincome.Bond{}, apperrors.NewDataNotAvailableError("bond MISSING not found", nil))
	src.On("DurationMetrics", mock.Anything, good).Return(fixedincome.DurationMetrics{}, nil)

	results, err := newBondService(src, nil, nil).AnalyseMany(context.Background(), []string{"missing", "a1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "MISSING", results[0].ISIN)
	assert.Contains(t, results[0].Error, "not found")
	assert.Nil(t, results[0].BondAnalysis)
	assert.Equal(t, "A1", results[1].ISIN)
	assert.Empty(t, results[1].Error)

	_, err = newBondService(src, nil, nil).AnalyseMany(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)
}

func TestBondService_Register(t *testing.T) {
	bond := sampleBond("US1")
	src := new(MockBondSource)
	src.On("Invalidate", mock.Anything, []string{"US1"}).Return().Once()
	reg := new(MockBondRegistry)
	reg.On("SaveBond", mock.Anything, bond).Return(bond, nil).Once()
	pub := new(MockPublisher)
	pub.On("Publish", ws.TypeCatalogUpdated, mock.Anything).Return(nil).Once()

	s := newBondService(src, reg, pub)
	saved, err := s.Register(context.Background(), fixedincome.Bond{
		ISIN: "us1", Issuer: "Treasury", CouponRate: 0.05, MaturityDate: bond.MaturityDate,
	})
	require.NoError(t, err)
	assert.Equal(t, bond, saved)

	_, err = s.Register(context.Background(), fixedincome.Bond{ISIN: "X", CouponFrequency: 3, MaturityDate: bond.MaturityDate})
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)

	src.AssertExpectations(t)
	reg.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestBondService_Delete(t *testing.T) {
	src := new(MockBondSource)
	src.On("Invalidate", mock.Anything, []string{"US1"}).Return().Once()
	reg := new(MockBondRegistry)
	reg.On("DeleteBond", mock.Anything, "US1").Return(true, nil).Once()
	reg.On("DeleteBond", mock.Anything, "US2").Return(false, nil).Once()
	reg.On("DeleteBond", mock.Anything, "US3").Return(false, errors.New("db down")).Once()

	s := newBondService(src, reg, nil)
	assert.NoError(t, s.Delete(context.Background(), "us1"))
	assert.ErrorIs(t, s.Delete(context.Background(), "us2"), apperrors.ErrDataNotAvailable)
	assert.ErrorContains(t, s.Delete(context.Background(), "us3"), "db down")
}

func TestBondService_WithoutRegistry(t *testing.T) {
	s := newBondService(new(MockBondSource), nil, nil)

	_, err := s.Register(context.Background(), sampleBond("A"))
	kind, ok := apperrors.TypeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrTypeConfig, kind)

	_, err = s.List(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.SaveYieldCurve(context.Background(), []fixedincome.YieldCurvePoint{{Tenor: 1, Rate: 0.04}}))
}

func TestBondService_YieldCurve(t *testing.T) {
	curve := []fixedincome.YieldCurvePoint{{Tenor: 10, Rate: 0.045}, {Tenor: 1, Rate: 0.04}, {Tenor: 5, Rate: 0.042}}
	src := new(MockBondSource)
	src.On("YieldCurve", mock.Anything).Return(curve, nil)
	src.On("Invalidate", mock.Anything, []string(nil)).Return().Once()
	reg := new(MockBondRegistry)
	reg.On("SaveYieldCurve", mock.Anything, curve).Return(nil).Once()

	s := newBondService(src, reg, nil)
	require.NoError(t, s.SaveYieldCurve(context.Background(), curve))
	assert.ErrorIs(t, s.SaveYieldCurve(context.Background(), nil), apperrors.ErrDataValidation)

	view, err := s.InterpolateCurve(context.Background(), []float64{20, 3, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 5, 10}, []float64{view.Points[0].Tenor, view.Points[1].Tenor, view.Points[2].Tenor})
	assert.Equal(t, []float64{20, 3, 0.5}, view.Maturities, "request order is kept")
	require.Len(t, view.Interpolated, 3)
	assert.InDelta(t, 0.045, view.Interpolated[0], 1e-12, "clamped at the long end")
	assert.InDelta(t, 0.041, view.Interpolated[1], 1e-12)
	assert.InDelta(t, 0.04, view.Interpolated[2], 1e-12, "clamped at the short end")

	for _, bad := range [][]float64{{-1}, {math.NaN()}, {1, math.Inf(1)}, {math.Inf(-1)}} {
		_, err = s.InterpolateCurve(context.Background(), bad)
		assert.ErrorIs(t, err, apperrors.ErrDataValidation)
	}
	reg.AssertExpectations(t)
}

func TestPriceScenario(t *testing.T) {
	bond := fixedincome.Bond{CouponRate: 0.05, MaturityDate: fixedNow.AddDate(10, 0, 0)}

	sc, err := PriceScenario(bond, 0.05, 0.01, fixedNow)
	require.NoError(t, err)
	assert.InDelta(t, 100, sc.Price, 1e-9)
	assert.Less(t, sc.PriceChange, 0.0)
	assert.Less(t, sc.RepricedAtShift, sc.Price)
	assert.InDelta(t, sc.Price+sc.PriceChange, sc.RepricedAtShift, 0.5, "second order approximation")
	assert.InDelta(t, 150, sc.TotalCashFlow, 1e-6)

	_, err = PriceScenario(fixedincome.Bond{CouponRate: 0.05}, 0.05, 0, fixedNow)
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)
}
