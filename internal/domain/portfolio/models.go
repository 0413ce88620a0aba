// Package portfolio implements portfolio construction analytics: weights
// from holdings, the maximum Sharpe ratio allocation, random frontier
// sampling, Monte Carlo return simulation and threshold rebalancing.
package portfolio

import (
	"portfolioanalytics/internal/domain/common"
	apperrors "portfolioanalytics/internal/errors"
)

// WeightConstraint is the constraint name that bounds every asset weight
const WeightConstraint = "weight"

// Constraint bounds a portfolio quantity such as a weight
type Constraint struct {
	Name       string  `json:"name"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// NewConstraint returns a constraint with the default [0, 1] bounds
func NewConstraint(name string) Constraint {
	return Constraint{Name: name, LowerBound: 0, UpperBound: 1}
}

// Holding is a position in a single instrument
type Holding struct {
	Instrument common.Instrument `json:"instrument"`
	Quantity   float64           `json:"quantity"`
	Weight     *float64          `json:"weight,omitempty"`
}

// Portfolio is a set of holdings with optional constraints
type Portfolio struct {
	Holdings    []Holding    `json:"holdings"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// Validate rejects empty portfolios, blank symbols and negative quantities
func (p Portfolio) Validate() error {
	if len(p.Holdings) == 0 {
		return apperrors.NewDataValidationError("portfolio has no holdings")
	}
	for i, h := range p.Holdings {
		if h.Instrument.Validate() != nil {
			return apperrors.NewDataValidationError("holding %d: instrument symbol is required", i)
		}
		if h.Quantity < 0 {
			return apperrors.NewDataValidationError("holding %d (%s): quantity must not be negative", i, h.Instrument.Symbol)
		}
	}
	return nil
}

// TotalValue is the sum of holding quantities
func (p Portfolio) TotalValue() float64 {
	var total float64
	for _, h := range p.Holdings {
		total += h.Quantity
	}
	return total
}

// Weights returns quantity over total value for each holding, or zeros
// when the portfolio has no value.
func (p Portfolio) Weights() []float64 {
	w := make([]float64, len(p.Holdings))
	total := p.TotalValue()
	if total == 0 {
		return w
	}
	for i, h := range p.Holdings {
		w[i] = h.Quantity / total
	}
	return w
}

// Symbols lists the holding symbols in order
func (p Portfolio) Symbols() []string {
	out := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		out[i] = h.Instrument.Symbol
	}
	return out
}

// Bounds returns the weight bounds from the "weight" constraint, or [0, 1]
func (p Portfolio) Bounds() (float64, float64) {
	for _, c := range p.Constraints {
		if c.Name == WeightConstraint {
			return c.LowerBound, c.UpperBound
		}
	}
	return 0, 1
}
