package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portfolioanalytics/internal/errors"
)

func TestInstrumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		inst    Instrument
		wantErr bool
	}{
		{"symbol only", Instrument{Symbol: "AAPL"}, false},
		{"symbol and name", Instrument{Symbol: "MSFT", Name: "Microsoft"}, false},
		{"blank symbol", Instrument{Symbol: "  "}, true},
		{"empty", Instrument{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inst.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrDataValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTimeSeries(t *testing.T) {
	t.Run("latest of empty series", func(t *testing.T) {
		_, ok := TimeSeries{}.Latest()
		assert.False(t, ok)
	})

	t.Run("latest value", func(t *testing.T) {
		d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		ts, err := NewTimeSeries([]time.Time{d, d.AddDate(0, 0, 1)}, []float64{1, 2.5})
		require.NoError(t, err)

		v, ok := ts.Latest()
		assert.True(t, ok)
		assert.Equal(t, 2.5, v)
		assert.Equal(t, 2, ts.Len())
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewTimeSeries([]time.Time{time.Now()}, nil)
		assert.Error(t, err)
	})
}

func TestReturns(t *testing.T) {
	got, err := Returns([]float64{100, 110, 99})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)

	_, err = Returns([]float64{100})
	assert.Error(t, err)

	_, err = Returns([]float64{0, 1})
	assert.Error(t, err)
}
