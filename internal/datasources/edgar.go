package datasources

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/common"
	"portfolioanalytics/internal/domain/equity"
	apperrors "portfolioanalytics/internal/errors"
)

// XBRL concepts read from company facts, in order of preference
var (
	edgarRevenueConcepts = []string{"Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax", "SalesRevenueNet"}
	edgarNetIncome       = []string{"NetIncomeLoss"}
	edgarOperatingIncome = []string{"OperatingIncomeLoss"}
	edgarOperatingCash   = []string{"NetCashProvidedByUsedInOperatingActivities"}
	edgarLongTermDebt    = []string{"LongTermDebt", "LongTermDebtNoncurrent"}
	edgarEquity          = []string{"StockholdersEquity"}
)

// Edgar reads annual 10-K facts from the SEC XBRL API
type Edgar struct {
	unsupported
	baseURL    string
	tickersURL string
	http       *httpClient
	logger     *slog.Logger

	mu   sync.Mutex
	ciks map[string]edgarCompany
}

type edgarCompany struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

type edgarFact struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
}

type edgarCompanyFacts struct {
	CIK        int    `json:"cik"`
	EntityName string `json:"entityName"`
	Facts      map[string]map[string]struct {
		Units map[string][]edgarFact `json:"units"`
	} `json:"facts"`
}

// NewEdgar creates the adapter. The SEC allows ten requests per second and
// requires a descriptive User-Agent.
func NewEdgar(cfg config.DataSourcesConfig, logger *slog.Logger) *Edgar {
	base := cfg.EdgarBaseURL
	if base == "" {
		base = config.EdgarBaseURL
	}
	tickers := cfg.EdgarTickersURL
	if tickers == "" {
		tickers = config.EdgarTickersURL
	}
	client := newHTTPClient(config.ProviderEdgar, cfg.HTTPTimeout,
		NewRateLimiter(config.EdgarCallsPerWindow, config.EdgarWindow))
	client.userAgent = cfg.EdgarUserAgent
	if client.userAgent == "" {
		client.userAgent = config.DefaultEdgarUserAgent
	}

	return &Edgar{
		unsupported: unsupported{name: config.ProviderEdgar},
		baseURL:     strings.TrimRight(base, "/"),
		tickersURL:  tickers,
		http:        client,
		logger:      logger.With(slog.String("component", "edgar")),
	}
}

// Name returns the provider name
func (e *Edgar) Name() string { return config.ProviderEdgar }

// lookup resolves a ticker, loading the SEC ticker map on first use
func (e *Edgar) lookup(ctx context.Context, ticker string) (edgarCompany, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ciks == nil {
		var raw map[string]edgarCompany
		if err := e.http.getJSON(ctx, e.tickersURL, &raw); err != nil {
			return edgarCompany{}, err
		}
		ciks := make(map[string]edgarCompany, len(raw))
		for _, c := range raw {
			ciks[strings.ToUpper(c.Ticker)] = c
		}
		e.ciks = ciks
		e.logger.InfoContext(ctx, "ticker map loaded", slog.Int("companies", len(ciks)))
	}

	company, ok := e.ciks[ticker]
	if !ok {
		return edgarCompany{}, apperrors.NewDataNotAvailableError("no SEC CIK for ticker "+ticker, nil).
			WithContext("ticker", ticker)
	}
	return company, nil
}

// annual returns one value per fiscal year end from 10-K FY facts, oldest
// first. Later filings restate earlier ones, so the latest filing wins.
func (cf *edgarCompanyFacts) annual(concepts []string) []float64 {
	var best []float64
	for _, concept := range concepts {
		fact, ok := cf.Facts["us-gaap"][concept]
		if !ok {
			continue
		}
		byEnd := map[string]edgarFact{}
		for _, f := range fact.Units["USD"] {
			if f.Form != "10-K" || f.FP != "FY" || !fullYear(f) {
				continue
			}
			if prev, ok := byEnd[f.End]; !ok || f.Filed > prev.Filed {
				byEnd[f.End] = f
			}
		}
		ends := make([]string, 0, len(byEnd))
		for end := range byEnd {
			ends = append(ends, end)
		}
		sort.Strings(ends)

		values := make([]float64, len(ends))
		for i, end := range ends {
			values[i] = byEnd[end].Val
		}
		if len(values) > len(best) {
			best = values
		}
	}
	return best
}

// fullYear accepts instant facts and durations of roughly twelve months
func fullYear(f edgarFact) bool {
	if f.Start == "" {
		return true
	}
	start, err1 := time.Parse("2006-01-02", f.Start)
	end, err2 := time.Parse("2006-01-02", f.End)
	if err1 != nil || err2 != nil {
		return false
	}
	days := end.Sub(start).Hours() / 24
	return days >= 350 && days <= 380
}

// EquityFundamentals derives growth, margins and leverage from 10-K facts
func (e *Edgar) EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return equity.Fundamentals{}, apperrors.NewDataValidationError("ticker is required")
	}

	company, err := e.lookup(ctx, ticker)
	if err != nil {
		return equity.Fundamentals{}, err
	}

	var facts edgarCompanyFacts
	endpoint := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%010d.json", e.baseURL, company.CIK)
	if err := e.http.getJSON(ctx, endpoint, &facts); err != nil {
		return equity.Fundamentals{}, err
	}

	revenues := facts.annual(edgarRevenueConcepts)
	netIncome := facts.annual(edgarNetIncome)
	opIncome := facts.annual(edgarOperatingIncome)
	cfo := facts.annual(edgarOperatingCash)

	name := facts.EntityName
	if name == "" {
		name = company.Title
	}
	f := equity.Fundamentals{
		Equity:          equity.Equity{Instrument: common.Instrument{Symbol: ticker, Name: name}},
		RevenueCAGR:     equity.RevenueCAGR(revenues),
		NetMargin:       equity.SafeDiv(last(netIncome), last(revenues)),
		OperatingMargin: equity.SafeDiv(last(opIncome), last(revenues)),
		CFOToNI:         equity.SafeDiv(last(cfo), last(netIncome)),
		LeverageRatio:   equity.SafeDiv(last(facts.annual(edgarLongTermDebt)), last(facts.annual(edgarEquity))),
	}
	f.Lifecycle = equity.ClassifyLifecycle(f.RevenueCAGR)
	return f, nil
}

// EquityRatios needs market prices, which EDGAR does not publish
func (e *Edgar) EquityRatios(context.Context, string) (equity.Ratios, error) {
	return equity.Ratios{}, errUnsupported(e.Name(), "equity ratios")
}

// EquityValuation needs market prices, which EDGAR does not publish
func (e *Edgar) EquityValuation(context.Context, string) (equity.Valuation, error) {
	return equity.Valuation{}, errUnsupported(e.Name(), "equity valuation")
}
