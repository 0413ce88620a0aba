package datasources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/common"
	"portfolioanalytics/internal/domain/equity"
	apperrors "portfolioanalytics/internal/errors"
)

const yahooModules = "price,summaryProfile,financialData,defaultKeyStatistics," +
	"incomeStatementHistory,balanceSheetHistory,cashflowStatementHistory"

// Yahoo reads the quoteSummary endpoint of Yahoo Finance
type Yahoo struct {
	unsupported
	baseURL string
	http    *httpClient
	logger  *slog.Logger
}

// NewYahoo creates the adapter with the default 50 calls per minute budget
func NewYahoo(cfg config.DataSourcesConfig, logger *slog.Logger) *Yahoo {
	base := cfg.YahooBaseURL
	if base == "" {
		base = config.YahooBaseURL
	}
	return &Yahoo{
		unsupported: unsupported{name: config.ProviderYahoo},
		baseURL:     strings.TrimRight(base, "/"),
		http: newHTTPClient(config.ProviderYahoo, cfg.HTTPTimeout,
			NewRateLimiter(config.YahooCallsPerWindow, config.YahooWindow)),
		logger: logger.With(slog.String("component", "yahoo")),
	}
}

// Name returns the provider name
func (y *Yahoo) Name() string { return config.ProviderYahoo }

// yahooValue is Yahoo's {"raw": 1.0, "fmt": "1.00"} wrapper
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type yahooStatement struct {
	EndDate                          yahooValue `json:"endDate"`
	TotalRevenue                     yahooValue `json:"totalRevenue"`
	NetIncome                        yahooValue `json:"netIncome"`
	OperatingIncome                  yahooValue `json:"operatingIncome"`
	TotalDebt                        yahooValue `json:"totalDebt"`
	LongTermDebt                     yahooValue `json:"longTermDebt"`
	ShortLongTermDebt                yahooValue `json:"shortLongTermDebt"`
	TotalStockholderEquity           yahooValue `json:"totalStockholderEquity"`
	TotalAssets                      yahooValue `json:"totalAssets"`
	TotalCashFromOperatingActivities yahooValue `json:"totalCashFromOperatingActivities"`
}

type yahooSummary struct {
	Price struct {
		ShortName                  string     `json:"shortName"`
		LongName                   string     `json:"longName"`
		RegularMarketPrice         yahooValue `json:"regularMarketPrice"`
		RegularMarketPreviousClose yahooValue `json:"regularMarketPreviousClose"`
		MarketCap                  yahooValue `json:"marketCap"`
	} `json:"price"`
	SummaryProfile struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
		Country  string `json:"country"`
	} `json:"summaryProfile"`
	FinancialData struct {
		CurrentPrice yahooValue `json:"currentPrice"`
		TotalRevenue yahooValue `json:"totalRevenue"`
		EBITDA       yahooValue `json:"ebitda"`
		FreeCashflow yahooValue `json:"freeCashflow"`
		TotalDebt    yahooValue `json:"totalDebt"`
	} `json:"financialData"`
	DefaultKeyStatistics struct {
		TrailingEPS       yahooValue `json:"trailingEps"`
		BookValue         yahooValue `json:"bookValue"`
		EnterpriseValue   yahooValue `json:"enterpriseValue"`
		NetIncomeToCommon yahooValue `json:"netIncomeToCommon"`
	} `json:"defaultKeyStatistics"`
	IncomeStatementHistory struct {
		Statements []yahooStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
	BalanceSheetHistory struct {
		Statements []yahooStatement `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistory"`
	CashflowStatementHistory struct {
		Statements []yahooStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`
}

type yahooResponse struct {
	QuoteSummary struct {
		Result []yahooSummary `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (y *Yahoo) summary(ctx context.Context, ticker string) (*yahooSummary, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, apperrors.NewDataValidationError("ticker is required")
	}

	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(ticker), url.QueryEscape(yahooModules))

	var resp yahooResponse
	if err := y.http.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if e := resp.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, apperrors.NewDataNotAvailableError("no Yahoo data for "+ticker, nil).WithContext("ticker", ticker)
		}
		return nil, apperrors.NewUpstreamError(config.ProviderYahoo, e.Code+": "+e.Description, nil)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, apperrors.NewDataNotAvailableError("no Yahoo data for "+ticker, nil).WithContext("ticker", ticker)
	}

	y.logger.DebugContext(ctx, "quote summary fetched", slog.String("ticker", ticker))
	return &resp.QuoteSummary.Result[0], nil
}

func (s *yahooSummary) equity(ticker string) equity.Equity {
	name := s.Price.ShortName
	if name == "" {
		name = s.Price.LongName
	}
	return equity.Equity{
		Instrument: common.Instrument{Symbol: strings.ToUpper(ticker), Name: name},
		Sector:     s.SummaryProfile.Sector,
		Industry:   s.SummaryProfile.Industry,
		Country:    s.SummaryProfile.Country,
		MarketCap:  s.Price.MarketCap.Raw,
	}
}

// chronological returns the non-missing values oldest first; Yahoo lists
// statements newest first.
func chronological(statements []yahooStatement, field func(yahooStatement) *float64) []float64 {
	var out []float64
	for i := len(statements) - 1; i >= 0; i-- {
		if v := field(statements[i]); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	return float(values[len(values)-1])
}

func (s *yahooSummary) fundamentals(ticker string) equity.Fundamentals {
	income := s.IncomeStatementHistory.Statements
	revenues := chronological(income, func(st yahooStatement) *float64 { return st.TotalRevenue.Raw })
	netIncome := chronological(income, func(st yahooStatement) *float64 { return st.NetIncome.Raw })
	opIncome := chronological(income, func(st yahooStatement) *float64 { return st.OperatingIncome.Raw })
	cfo := chronological(s.CashflowStatementHistory.Statements, func(st yahooStatement) *float64 {
		return st.TotalCashFromOperatingActivities.Raw
	})

	f := equity.Fundamentals{
		Equity:          s.equity(ticker),
		RevenueCAGR:     equity.RevenueCAGR(revenues),
		NetMargin:       equity.SafeDiv(last(netIncome), last(revenues)),
		OperatingMargin: equity.SafeDiv(last(opIncome), last(revenues)),
		CFOToNI:         equity.SafeDiv(last(cfo), last(netIncome)),
	}

	if sheets := s.BalanceSheetHistory.Statements; len(sheets) > 0 {
		latest := sheets[0]
		debt := latest.TotalDebt.Raw
		if debt == nil && latest.LongTermDebt.Raw != nil && latest.ShortLongTermDebt.Raw != nil {
			debt = float(*latest.LongTermDebt.Raw + *latest.ShortLongTermDebt.Raw)
		}
		f.LeverageRatio = equity.SafeDiv(debt, latest.TotalStockholderEquity.Raw)
	}

	f.Lifecycle = equity.ClassifyLifecycle(f.RevenueCAGR)
	return f
}

func (s *yahooSummary) ratios(ticker string) equity.Ratios {
	eq := s.equity(ticker)

	price := s.Price.RegularMarketPrice.Raw
	if price == nil {
		price = s.Price.RegularMarketPreviousClose.Raw
	}
	if price == nil {
		price = s.FinancialData.CurrentPrice.Raw
	}

	var totalEquity, totalAssets *float64
	if sheets := s.BalanceSheetHistory.Statements; len(sheets) > 0 {
		totalEquity = sheets[0].TotalStockholderEquity.Raw
		totalAssets = sheets[0].TotalAssets.Raw
	}
	netIncome := s.DefaultKeyStatistics.NetIncomeToCommon.Raw
	if netIncome == nil && len(s.IncomeStatementHistory.Statements) > 0 {
		netIncome = s.IncomeStatementHistory.Statements[0].NetIncome.Raw
	}
	debt := s.FinancialData.TotalDebt.Raw

	return equity.Ratios{
		Equity:        eq,
		PE:            equity.SafeDiv(price, s.DefaultKeyStatistics.TrailingEPS.Raw),
		PB:            equity.SafeDiv(price, s.DefaultKeyStatistics.BookValue.Raw),
		PS:            equity.SafeDiv(eq.MarketCap, s.FinancialData.TotalRevenue.Raw),
		EVToEBITDA:    equity.SafeDiv(s.DefaultKeyStatistics.EnterpriseValue.Raw, s.FinancialData.EBITDA.Raw),
		FCFYield:      equity.SafeDiv(s.FinancialData.FreeCashflow.Raw, eq.MarketCap),
		ROE:           equity.SafeDiv(netIncome, totalEquity),
		ROA:           equity.SafeDiv(netIncome, totalAssets),
		LeverageRatio: equity.SafeDiv(debt, totalEquity),
	}
}

// EquityFundamentals derives growth, margins and leverage from the annual
// statements
func (y *Yahoo) EquityFundamentals(ctx context.Context, ticker string) (equity.Fundamentals, error) {
	s, err := y.summary(ctx, ticker)
	if err != nil {
		return equity.Fundamentals{}, err
	}
	return s.fundamentals(ticker), nil
}

// EquityRatios derives market multiples from the quote and key statistics
func (y *Yahoo) EquityRatios(ctx context.Context, ticker string) (equity.Ratios, error) {
	s, err := y.summary(ctx, ticker)
	if err != nil {
		return equity.Ratios{}, err
	}
	return s.ratios(ticker), nil
}

// EquityValuation compares the trailing P/E with the sector expectation
func (y *Yahoo) EquityValuation(ctx context.Context, ticker string) (equity.Valuation, error) {
	s, err := y.summary(ctx, ticker)
	if err != nil {
		return equity.Valuation{}, err
	}
	return equity.Value(s.fundamentals(ticker), s.ratios(ticker)), nil
}
