package config

import (
	"math"
	"time"
)

// Application constants
const (
	AppName = "Portfolio Analytics"

	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"

	// Data providers
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
	ProviderEdgar        = "edgar"

	YahooBaseURL          = "https://query2.finance.yahoo.com"
	AlphaVantageBaseURL   = "https://www.alphavantage.co/query"
	EdgarBaseURL          = "https://data.sec.gov"
	EdgarTickersURL       = "https://www.sec.gov/files/company_tickers.json"
	DefaultEdgarUserAgent = "portfolio-analytics admin@example.com"

	// Upstream call budgets (calls per window)
	YahooCallsPerWindow        = 50
	YahooWindow                = 60 * time.Second
	AlphaVantageCallsPerWindow = 5
	AlphaVantageWindow         = 60 * time.Second
	EdgarCallsPerWindow        = 10
	EdgarWindow                = time.Second

	CacheBackendMemory     = "memory"
	CacheBackendRedis      = "redis"
	StorageBackendFile     = "file"
	StorageBackendDatabase = "database"
	DBTypeSQLite           = "sqlite"
	DBTypePostgres         = "postgres"

	// Rate Limiting
	DefaultRateLimit = 50
	DefaultBurstSize = 100

	// Network Timeouts
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultAnalysisTimeout = 2 * time.Minute
	WebSocketPingPeriod    = 30 * time.Second
	WebSocketPongWait      = 60 * time.Second

	// Log Settings
	MaxLogFileSizeMB  = 100
	MaxLogFileAge     = 30 // days
	MaxLogFileBackups = 10

	// Simulation defaults
	TradingDaysPerYear     = 252
	DefaultSimulationPaths = 10000
	DefaultRebalanceBand   = 0.01

	// API Endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)

// Sector classes used for lifecycle-aware valuation
const (
	ClassGrowth    = "Growth"
	ClassMature    = "Mature"
	ClassDefensive = "Defensive"
	ClassCyclic    = "Cyclic"
)

// MarketCapBucket is a half-open [Lower, Upper) capitalisation range in USD
type MarketCapBucket struct {
	Name  string
	Lower float64
	Upper float64
}

// MarketCapBuckets is ordered from smallest to largest
var MarketCapBuckets = []MarketCapBucket{
	{Name: "Micro", Lower: 0, Upper: 300e6},
	{Name: "Small", Lower: 300e6, Upper: 2e9},
	{Name: "Mid", Lower: 2e9, Upper: 10e9},
	{Name: "Large", Lower: 10e9, Upper: 50e9},
	{Name: "Mega", Lower: 50e9, Upper: math.Inf(1)},
}

// Lifecycle thresholds expressed as decimals
const (
	GrowthRevenueCAGR  = 0.15
	MatureRevenueCAGR  = 0.05
	HealthyNetMargin   = 0.10
	QualityCFOToNIRate = 1.0
)

// SectorClassifications maps GICS-style sector names to a sector class
var SectorClassifications = map[string]string{
	"Technology":             ClassGrowth,
	"Consumer Discretionary": ClassGrowth,
	"Healthcare":             ClassDefensive,
	"Utilities":              ClassDefensive,
	"Energy":                 ClassCyclic,
	"Materials":              ClassCyclic,
	"Industrial":             ClassCyclic,
	"Consumer Staples":       ClassDefensive,
	"Financial":              ClassMature,
	"Real Estate":            ClassMature,
	"Communication Services": ClassGrowth,
}

// BasePE is the baseline price/earnings multiple for each sector class
var BasePE = map[string]float64{
	ClassGrowth:    25,
	ClassMature:    15,
	ClassDefensive: 12,
	ClassCyclic:    10,
}

// ClassifyMarketCap returns the bucket name for a capitalisation in USD
func ClassifyMarketCap(marketCap float64) string {
	for _, b := range MarketCapBuckets {
		if marketCap >= b.Lower && marketCap < b.Upper {
			return b.Name
		}
	}
	return ""
}
