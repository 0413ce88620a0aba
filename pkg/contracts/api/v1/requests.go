// Package api contains the request and response bodies of the v1 HTTP API.
package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EquityAnalysisRequest analyses a list of tickers
type EquityAnalysisRequest struct {
	Tickers []string `json:"tickers" validate:"required,min=1,max=50,dive,ticker"`
}

// BondAnalysisRequest analyses a list of registered bonds
type BondAnalysisRequest struct {
	ISINs []string `json:"isins" validate:"required,min=1,max=50,dive,required,max=32"`
}

// BondRequest registers bond terms. MaturityDate is YYYY-MM-DD.
type BondRequest struct {
	ISIN            string   `json:"isin" validate:"required,max=32"`
	Issuer          string   `json:"issuer,omitempty" validate:"max=128"`
	CouponRate      float64  `json:"coupon_rate" validate:"gte=0,lte=1"`
	CouponFrequency int      `json:"coupon_frequency,omitempty" validate:"omitempty,oneof=1 2 4 12"`
	MaturityDate    string   `json:"maturity_date" validate:"required,datetime=2006-01-02"`
	FaceValue       float64  `json:"face_value,omitempty" validate:"gte=0"`
	Price           *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	Currency        string   `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// YieldCurvePointRequest is one tenor of a yield curve
type YieldCurvePointRequest struct {
	Tenor float64 `json:"tenor" validate:"gte=0"`
	Rate  float64 `json:"rate" validate:"gte=-1,lte=1"`
}

// YieldCurveRequest replaces the stored yield curve
type YieldCurveRequest struct {
	Points []YieldCurvePointRequest `json:"points" validate:"required,min=1,dive"`
}

// HoldingRequest is one position. Instrument is a bare symbol string or an
// object with symbol and name.
type HoldingRequest struct {
	Instrument json.RawMessage `json:"instrument"`
	Quantity   json.RawMessage `json:"quantity,omitempty"`
}

// InstrumentRef is the object form of a holding's instrument
type InstrumentRef struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
}

// Resolve decodes the instrument and quantity of a holding. A missing
// quantity is zero.
func (h HoldingRequest) Resolve() (InstrumentRef, float64, error) {
	var ref InstrumentRef
	raw := strings.TrimSpace(string(h.Instrument))
	switch {
	case raw == "" || raw == "null":
		return ref, 0, fmt.Errorf("instrument is required")
	case strings.HasPrefix(raw, "{"):
		if err := json.Unmarshal(h.Instrument, &ref); err != nil {
			return ref, 0, fmt.Errorf("instrument: %w", err)
		}
	default:
		if err := json.Unmarshal(h.Instrument, &ref.Symbol); err != nil {
			return ref, 0, fmt.Errorf("instrument must be a symbol or an object: %w", err)
		}
	}
	ref.Symbol = strings.TrimSpace(ref.Symbol)
	if ref.Symbol == "" {
		return ref, 0, fmt.Errorf("instrument symbol is required")
	}

	qty, err := parseQuantity(h.Quantity)
	if err != nil {
		return ref, 0, err
	}
	return ref, qty, nil
}

// parseQuantity accepts a JSON number or a numeric string
func parseQuantity(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("quantity: %w", err)
		}
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %s is not a number", s)
	}
	return qty, nil
}

// WeightBounds constrains every optimised weight
type WeightBounds struct {
	Lower float64 `json:"lower" validate:"gte=0,lte=1"`
	Upper float64 `json:"upper" validate:"gte=0,lte=1,gtefield=Lower"`
}

// PortfolioAnalysisRequest analyses a portfolio of holdings
type PortfolioAnalysisRequest struct {
	Holdings []HoldingRequest `json:"holdings" validate:"required,min=1"`
}

// OptimisationRequest solves the maximum Sharpe allocation
type OptimisationRequest struct {
	Symbols         []string      `json:"symbols,omitempty"`
	ExpectedReturns []float64     `json:"expected_returns" validate:"required,min=1"`
	Covariance      [][]float64   `json:"covariance" validate:"required,min=1"`
	RiskFreeRate    *float64      `json:"risk_free_rate,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Bounds          *WeightBounds `json:"bounds,omitempty"`
	Samples         int           `json:"samples,omitempty" validate:"gte=0,lte=100000"`
}

// SimulationRequest runs a Monte Carlo simulation of portfolio returns
type SimulationRequest struct {
	Weights         []float64   `json:"weights" validate:"required,min=1"`
	ExpectedReturns []float64   `json:"expected_returns" validate:"required,min=1"`
	Covariance      [][]float64 `json:"covariance" validate:"required,min=1"`
	Horizon         int         `json:"horizon,omitempty" validate:"gte=0,lte=10000"`
	Paths           int         `json:"paths,omitempty" validate:"gte=0,lte=1000000"`
	Seed            *uint64     `json:"seed,omitempty"`
}

// RebalanceRequest computes trades from current to target weights
type RebalanceRequest struct {
	Current   []float64 `json:"current" validate:"required,min=1"`
	Target    []float64 `json:"target" validate:"required,min=1"`
	Threshold float64   `json:"threshold,omitempty" validate:"gte=0"`
}

// RiskAnalysisRequest estimates VaR, drawdown and correlation of return series
type RiskAnalysisRequest struct {
	Series      [][]float64 `json:"series" validate:"required,min=1"`
	Labels      []string    `json:"labels,omitempty"`
	Confidence  float64     `json:"confidence,omitempty" validate:"omitempty,gt=0,lt=1"`
	Simulations int         `json:"simulations,omitempty" validate:"gte=0,lte=1000000"`
}
