// Package services implements the application layer. Each service
// coordinates data sources, persistence and domain calculations for one
// kind of analysis and is shared by the HTTP API and the CLI.
//
// # Available Services
//
//	- EquityService: fundamentals, ratios and valuation per ticker
//	- BondService: bond catalog, duration metrics and the yield curve
//	- PortfolioService: risk of holdings, optimisation, simulation, rebalancing
//	- RiskService: VaR, drawdown and correlation of return series
//	- ReportService: HTML, XLSX and PDF reports
//	- HealthService: component checks for the health endpoint
//
// Batch operations fan out with errgroup and keep the input order. A
// failed item is reported in its slot instead of failing the batch.
//
// Completed analyses are announced through an EventPublisher, normally the
// websocket hub. A nil publisher disables events.
package services
