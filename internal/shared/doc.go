// Package shared groups helpers used across the portfolio analytics
// codebase that belong to no single domain.
//
// # Structure
//
//   - sanitize: converts analysis results into JSON-safe values, replacing
//     NaN and infinite floats with null and rendering times as RFC 3339
//   - testutil: slog capture handler and deterministic return fixtures
//
// It should NOT contain business logic or import domain packages, so any
// package can depend on it without cycles.
package shared
