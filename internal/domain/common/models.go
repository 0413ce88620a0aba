// Package common holds the instrument and time series types shared by the
// equity, fixed income, portfolio and risk domains.
package common

import (
	"strings"
	"time"

	apperrors "portfolioanalytics/internal/errors"
)

// Instrument is any tradable security identified by a symbol
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
}

// Validate checks that the symbol is present
func (i Instrument) Validate() error {
	if strings.TrimSpace(i.Symbol) == "" {
		return apperrors.NewDataValidationError("instrument symbol is required")
	}
	return nil
}

// TimeSeries is a dated sequence of observations
type TimeSeries struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// NewTimeSeries pairs dates with values
func NewTimeSeries(dates []time.Time, values []float64) (TimeSeries, error) {
	if len(dates) != len(values) {
		return TimeSeries{}, apperrors.NewDataValidationError(
			"time series has %d dates but %d values", len(dates), len(values))
	}
	return TimeSeries{Dates: dates, Values: values}, nil
}

// Latest returns the most recent value, or false when the series is empty
func (ts TimeSeries) Latest() (float64, bool) {
	if len(ts.Values) == 0 {
		return 0, false
	}
	return ts.Values[len(ts.Values)-1], true
}

// Len returns the number of observations
func (ts TimeSeries) Len() int {
	return len(ts.Values)
}

// Returns converts a price series to simple period returns. A zero price
// makes the following return undefined, so it is reported as an error.
func Returns(prices []float64) ([]float64, error) {
	if len(prices) < 2 {
		return nil, apperrors.NewDataValidationError("at least two prices are required, got %d", len(prices))
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			return nil, apperrors.NewDataValidationError("zero price at index %d", i-1)
		}
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out, nil
}
