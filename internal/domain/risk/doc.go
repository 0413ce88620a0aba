// Package risk implements the risk analytics used by the portfolio and risk
// services: Value at Risk (historical, parametric and Monte Carlo), maximum
// drawdown, and correlation and covariance matrices.
//
// Returns are simple period returns expressed as decimals. VaR is reported
// as a non-negative loss fraction for a one period horizon.
package risk
