package datasources

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/common"
	"portfolioanalytics/internal/domain/equity"
	"portfolioanalytics/internal/domain/fixedincome"
	apperrors "portfolioanalytics/internal/errors"
)

// treasuryTenors maps TREASURY_YIELD maturities to years
var treasuryTenors = []struct {
	maturity string
	years    float64
}{
	{"3month", 0.25},
	{"2year", 2},
	{"5year", 5},
	{"7year", 7},
	{"10year", 10},
	{"30year", 30},
}

// recentTTL bounds how long fetched fundamentals are reused by valuation
const recentTTL = 5 * time.Minute

// avSnapshot is the last fundamentals fetch of a ticker together with the
// overview it was built from
type avSnapshot struct {
	fundamentals equity.Fundamentals
	overview     avOverview
	fetchedAt    time.Time
}

// AlphaVantage uses the free tier endpoints of the Alpha Vantage query API
type AlphaVantage struct {
	baseURL string
	apiKey  string
	http    *httpClient
	logger  *slog.Logger

	mu     sync.Mutex
	recent map[string]avSnapshot
	now    func() time.Time
}

// NewAlphaVantage creates the adapter with the free tier budget of five
// calls per minute
func NewAlphaVantage(cfg config.DataSourcesConfig, logger *slog.Logger) *AlphaVantage {
	base := cfg.AlphaVantageURL
	if base == "" {
		base = config.AlphaVantageBaseURL
	}
	return &AlphaVantage{
		baseURL: base,
		apiKey:  cfg.AlphaVantageAPIKey,
		http: newHTTPClient(config.ProviderAlphaVantage, cfg.HTTPTimeout,
			NewRateLimiter(config.AlphaVantageCallsPerWindow, config.AlphaVantageWindow)),
		logger: logger.With(slog.String("component", "alphavantage")),
		recent: make(map[string]avSnapshot),
		now:    time.Now,
	}
}

// Name returns the provider name
func (a *AlphaVantage) Name() string { return config.ProviderAlphaVantage }

// avNumber decodes Alpha Vantage's quoted numbers; "None", "-" and empty
// strings become nil
type avNumber struct {
	Value *float64
}

func (n *avNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return nil
		}
		n.Value = &f
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		n.Value = nil
		return nil
	}
	n.Value = &f
	return nil
}

type avOverview struct {
	Symbol               string   `json:"Symbol"`
	Name                 string   `json:"Name"`
	Sector               string   `json:"Sector"`
	Industry             string   `json:"Industry"`
	Country              string   `json:"Country"`
	MarketCapitalization avNumber `json:"MarketCapitalization"`
	PERatio              avNumber `json:"PERatio"`
	PriceToBookRatio     avNumber `json:"PriceToBookRatio"`
	PriceToSalesRatioTTM avNumber `json:"PriceToSalesRatioTTM"`
	EVToEBITDA           avNumber `json:"EVToEBITDA"`
	ReturnOnEquityTTM    avNumber `json:"ReturnOnEquityTTM"`
	ReturnOnAssetsTTM    avNumber `json:"ReturnOnAssetsTTM"`
	EPS                  avNumber `json:"EPS"`
}

type avReport struct {
	FiscalDateEnding       string   `json:"fiscalDateEnding"`
	TotalRevenue           avNumber `json:"totalRevenue"`
	NetIncome              avNumber `json:"netIncome"`
	OperatingIncome        avNumber `json:"operatingIncome"`
	OperatingCashflow      avNumber `json:"operatingCashflow"`
	TotalShareholderEquity avNumber `json:"totalShareholderEquity"`
	ShortLongTermDebtTotal avNumber `json:"shortLongTermDebtTotal"`
	LongTermDebt           avNumber `json:"longTermDebt"`
	ShortTermDebt          avNumber `json:"shortTermDebt"`
}

type avStatements struct {
	AnnualReports []avReport `json:"annualReports"`
}

type avSeries struct {
	Data []struct {
		Date  string   `json:"date"`
		Value avNumber `json:"value"`
	} `json:"data"`
}

// query calls one function. The API answers 200 even for throttling and
// bad symbols, so the payload is inspected before decoding.
func (a *AlphaVantage) query(ctx context.Context, params url.Values, out any) error {
	if a.apiKey == "" {
		return apperrors.NewConfigError("Alpha Vantage API key not configured", nil)
	}
	params.Set("apikey", a.apiKey)

	var raw map[string]json.RawMessage
	if err := a.http.getJSON(ctx, a.baseURL+"?"+params.Encode(), &raw); err != nil {
		return err
	}

	for _, key := range []string{"Note", "Information"} {
		if msg, ok := raw[key]; ok {
			return apperrors.NewRateLimitError(config.ProviderAlphaVantage, unquote(msg))
		}
	}
	if msg, ok := raw["Error Message"]; ok {
		return apperrors.NewUpstreamError(config.ProviderAlphaVantage, unquote(msg), nil).
			WithContext("function", params.Get("function"))
	}
	if len(raw) == 0 {
		return apperrors.NewDataNotAvailableError("empty Alpha Vantage response for "+params.Get("function"), nil)
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return apperrors.NewParsingError("alphavantage payload", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperrors.NewParsingError("alphavantage "+params.Get("function"), err)
	}
	return nil
}

func unquote(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return string(msg)
	}
	return s
}

func symbolQuery(function, ticker string) url.Values {
	return url.Values{"function": {function}, "symbol": {strings.ToUpper(strings.TrimSpace(ticker))}}
}

func (a *AlphaVantage) overview(ctx context.Context, ticker string) (avOverview, error) {
	var ov avOverview
	err := a.query(ctx, symbolQuery("OVERVIEW", ticker), &ov)
	return ov, err
}

func (ov avOverview) equity(ticker string) equity.Equity {
	return equity.Equity{
		Instrument: common.Instrument{Symbol: strings.ToUpper(ticker), Name: ov.Name},
		Sector:     titleCase(ov.Sector),
		Industry:   ov.Industry,
		Country:    ov.Country,
		MarketCap:  ov.MarketCapitalization.Value,
	}
}

// titleCase turns "TECHNOLOGY" into "Technology" so sectors match the
// classification table
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func reportValues(reports []avReport, field func(avReport) *float64) []float64 {
	var out []float64
	for i := len(reports) - 1; i >= 0; i-- {
		if v := field(reports[i]); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// EquityFundamentals combines the income, balance sheet and cash flow
// statements with the company overview
func (a *AlphaVantage) EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error) {
	snap, err := a.fetchFundamentals(ctx, ticker)
	return snap.fundamentals, err
}

// snapshot returns the fundamentals fetched for ticker within recentTTL
func (a *AlphaVantage) snapshot(ticker string) (avSnapshot, bool) {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	a.mu.Lock()
	defer a.mu.Unlock()
	snap, ok := a.recent[key]
	if !ok {
		return avSnapshot{}, false
	}
	if a.now().Sub(snap.fetchedAt) > recentTTL {
		delete(a.recent, key)
		return avSnapshot{}, false
	}
	return snap, true
}

func (a *AlphaVantage) fetchFundamentals(ctx context.Context, ticker string) (avSnapshot, error) {
	ov, err := a.overview(ctx, ticker)
	if err != nil {
		return avSnapshot{}, err
	}

	var income, balance, cash avStatements
	if err := a.query(ctx, symbolQuery("INCOME_STATEMENT", ticker), &income); err != nil {
		return avSnapshot{}, err
	}
	if err := a.query(ctx, symbolQuery("BALANCE_SHEET", ticker), &balance); err != nil {
		return avSnapshot{}, err
	}
	if err := a.query(ctx, symbolQuery("CASH_FLOW", ticker), &cash); err != nil {
		return avSnapshot{}, err
	}

	revenues := reportValues(income.AnnualReports, func(r avReport) *float64 { return r.TotalRevenue.Value })
	netIncome := reportValues(income.AnnualReports, func(r avReport) *float64 { return r.NetIncome.Value })
	opIncome := reportValues(income.AnnualReports, func(r avReport) *float64 { return r.OperatingIncome.Value })
	cfo := reportValues(cash.AnnualReports, func(r avReport) *float64 { return r.OperatingCashflow.Value })

	f := equity.Fundamentals{
		Equity:          ov.equity(ticker),
		RevenueCAGR:     equity.RevenueCAGR(revenues),
		NetMargin:       equity.SafeDiv(last(netIncome), last(revenues)),
		OperatingMargin: equity.SafeDiv(last(opIncome), last(revenues)),
		CFOToNI:         equity.SafeDiv(last(cfo), last(netIncome)),
	}

	if len(balance.AnnualReports) > 0 {
		latest := balance.AnnualReports[0]
		debt := latest.ShortLongTermDebtTotal.Value
		if debt == nil && latest.LongTermDebt.Value != nil && latest.ShortTermDebt.Value != nil {
			debt = float(*latest.LongTermDebt.Value + *latest.ShortTermDebt.Value)
		}
		f.LeverageRatio = equity.SafeDiv(debt, latest.TotalShareholderEquity.Value)
	}
	f.Lifecycle = equity.ClassifyLifecycle(f.RevenueCAGR)

	a.logger.DebugContext(ctx, "fundamentals fetched",
		slog.String("ticker", ticker), slog.Int("years", len(revenues)))

	snap := avSnapshot{fundamentals: f, overview: ov, fetchedAt: a.now()}
	a.mu.Lock()
	a.recent[strings.ToUpper(strings.TrimSpace(ticker))] = snap
	a.mu.Unlock()
	return snap, nil
}

func (ov avOverview) ratios(ticker string) equity.Ratios {
	return equity.Ratios{
		Equity:     ov.equity(ticker),
		PE:         ov.PERatio.Value,
		PB:         ov.PriceToBookRatio.Value,
		PS:         ov.PriceToSalesRatioTTM.Value,
		EVToEBITDA: ov.EVToEBITDA.Value,
		ROE:        ov.ReturnOnEquityTTM.Value,
		ROA:        ov.ReturnOnAssetsTTM.Value,
	}
}

// EquityRatios reads the multiples published in the company overview
func (a *AlphaVantage) EquityRatios(ctx context.Context, ticker string) (equity.Ratios, error) {
	ov, err := a.overview(ctx, ticker)
	if err != nil {
		return equity.Ratios{}, err
	}
	return ov.ratios(ticker), nil
}

// EquityValuation compares the overview P/E with the sector expectation.
// Fundamentals fetched for the ticker within recentTTL are reused.
func (a *AlphaVantage) EquityValuation(ctx context.Context, ticker string) (equity.Valuation, error) {
	snap, ok := a.snapshot(ticker)
	if !ok {
		var err error
		if snap, err = a.fetchFundamentals(ctx, ticker); err != nil {
			return equity.Valuation{}, err
		}
	}
	return equity.Value(snap.fundamentals, snap.overview.ratios(ticker)), nil
}

// YieldCurve takes the latest daily treasury yield of each maturity.
// Rates are returned as decimals.
func (a *AlphaVantage) YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error) {
	points := make([]fixedincome.YieldCurvePoint, 0, len(treasuryTenors))
	for _, tenor := range treasuryTenors {
		var series avSeries
		params := url.Values{"function": {"TREASURY_YIELD"}, "interval": {"daily"}, "maturity": {tenor.maturity}}
		if err := a.query(ctx, params, &series); err != nil {
			return nil, err
		}
		for _, obs := range series.Data {
			if obs.Value.Value != nil {
				points = append(points, fixedincome.YieldCurvePoint{Tenor: tenor.years, Rate: *obs.Value.Value / 100})
				break
			}
		}
	}
	if len(points) == 0 {
		return nil, apperrors.NewDataNotAvailableError("no treasury yields returned", nil)
	}
	return points, nil
}

// Bond is not offered by Alpha Vantage
func (a *AlphaVantage) Bond(context.Context, string) (fixedincome.Bond, error) {
	return fixedincome.Bond{}, errUnsupported(a.Name(), "bond data")
}

// DurationMetrics is not offered by Alpha Vantage
func (a *AlphaVantage) DurationMetrics(context.Context, fixedincome.Bond) (fixedincome.DurationMetrics, error) {
	return fixedincome.DurationMetrics{}, errUnsupported(a.Name(), "duration metrics")
}
