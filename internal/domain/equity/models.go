// Package equity holds equity models and the provider-independent
// calculations applied to them: revenue growth, lifecycle stage and a
// sector-relative P/E valuation.
package equity

import (
	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/common"
)

// Valuation statuses
const (
	StatusUndervalued = "Undervalued"
	StatusFair        = "Fair"
	StatusOvervalued  = "Overvalued"
)

// Equity is a listed company
type Equity struct {
	common.Instrument
	Sector    string   `json:"sector,omitempty"`
	Industry  string   `json:"industry,omitempty"`
	Country   string   `json:"country,omitempty"`
	MarketCap *float64 `json:"market_cap"`
}

// MarketCapBucket classifies the market capitalisation; empty when unknown
func (e Equity) MarketCapBucket() string {
	if e.MarketCap == nil {
		return ""
	}
	return config.ClassifyMarketCap(*e.MarketCap)
}

// Fundamentals are statement-derived metrics over the reporting history
type Fundamentals struct {
	Equity          Equity   `json:"equity"`
	RevenueCAGR     *float64 `json:"revenue_cagr"`
	NetMargin       *float64 `json:"net_margin"`
	OperatingMargin *float64 `json:"operating_margin"`
	CFOToNI         *float64 `json:"cfo_to_ni"`
	LeverageRatio   *float64 `json:"leverage_ratio"`
	Lifecycle       string   `json:"lifecycle,omitempty"`
}

// Ratios are market-based multiples and returns
type Ratios struct {
	Equity        Equity   `json:"equity"`
	PE            *float64 `json:"pe_ratio"`
	PB            *float64 `json:"pb_ratio"`
	PS            *float64 `json:"ps_ratio"`
	EVToEBITDA    *float64 `json:"ev_to_ebitda"`
	FCFYield      *float64 `json:"fcf_yield"`
	ROE           *float64 `json:"roe"`
	ROA           *float64 `json:"roa"`
	ROIC          *float64 `json:"roic"`
	LeverageRatio *float64 `json:"leverage_ratio"`
	Quality       *float64 `json:"quality"`
}

// Valuation compares the actual P/E with a sector and growth adjusted one
type Valuation struct {
	Equity              Equity   `json:"equity"`
	ExpectedPE          *float64 `json:"expected_pe"`
	ActualPE            *float64 `json:"actual_pe"`
	ValuationDifference *float64 `json:"valuation_difference"`
	Status              string   `json:"status,omitempty"`
}

// WithFundamentalOverrides replaces leverage with the statement-derived
// figure and sets quality to CFO/NI when the fundamentals carry them.
func (r Ratios) WithFundamentalOverrides(f Fundamentals) Ratios {
	if f.LeverageRatio != nil {
		r.LeverageRatio = f.LeverageRatio
	}
	if f.CFOToNI != nil {
		r.Quality = f.CFOToNI
	}
	return r
}
