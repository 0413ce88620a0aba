package datasources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/domain/equity"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

const yahooFixture = `{
  "quoteSummary": {
    "result": [{
      "price": {
        "shortName": "Apple Inc.",
        "regularMarketPrice": {"raw": 150, "fmt": "150.00"},
        "marketCap": {"raw": 2000}
      },
      "summaryProfile": {"sector": "Technology", "industry": "Consumer Electronics", "country": "United States"},
      "financialData": {
        "totalRevenue": {"raw": 400},
        "ebitda": {"raw": 110},
        "freeCashflow": {"raw": 100},
        "totalDebt": {"raw": 50}
      },
      "defaultKeyStatistics": {
        "trailingEps": {"raw": 6},
        "bookValue": {"raw": 30},
        "enterpriseValue": {"raw": 2200},
        "netIncomeToCommon": {"raw": 20}
      },
      "incomeStatementHistory": {"incomeStatementHistory": [
        {"endDate": {"raw": 1695945600}, "totalRevenue": {"raw": 133.1}, "netIncome": {"raw": 13.31}, "operatingIncome": {"raw": 26.62}},
        {"endDate": {"raw": 1664409600}, "totalRevenue": {"raw": 121}, "netIncome": {"raw": 12}, "operatingIncome": {"raw": 24}},
        {"endDate": {"raw": 1632873600}, "totalRevenue": {"raw": 110}, "netIncome": {"raw": 11}, "operatingIncome": {}}
      ]},
      "balanceSheetHistory": {"balanceSheetStatements": [
        {"longTermDebt": {"raw": 40}, "shortLongTermDebt": {"raw": 10}, "totalStockholderEquity": {"raw": 100}, "totalAssets": {"raw": 400}}
      ]},
      "cashflowStatementHistory": {"cashflowStatements": [
        {"totalCashFromOperatingActivities": {"raw": 15.972}}
      ]}
    }],
    "error": null
  }
}`

func newYahooServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/"))
		assert.Contains(t, r.URL.Query().Get("modules"), "incomeStatementHistory")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestYahoo(url string) *Yahoo {
	return NewYahoo(config.DataSourcesConfig{YahooBaseURL: url}, infrastructure.DiscardLogger())
}

func TestYahoo_Fundamentals(t *testing.T) {
	srv, _ := newYahooServer(t, http.StatusOK, yahooFixture)
	y := newTestYahoo(srv.URL)

	f, err := y.EquityFundamentals(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", f.Equity.Symbol)
	assert.Equal(t, "Apple Inc.", f.Equity.Name)
	assert.Equal(t, "Technology", f.Equity.Sector)
	require.NotNil(t, f.RevenueCAGR)
	assert.InDelta(t, 0.10, *f.RevenueCAGR, 1e-9)
	assert.InDelta(t, 0.10, *f.NetMargin, 1e-9)
	assert.InDelta(t, 0.20, *f.OperatingMargin, 1e-9)
	assert.InDelta(t, 1.20, *f.CFOToNI, 1e-9)
	assert.InDelta(t, 0.50, *f.LeverageRatio, 1e-9)
	assert.Equal(t, config.ClassMature, f.Lifecycle)
}

func TestYahoo_RatiosAndValuation(t *testing.T) {
	srv, _ := newYahooServer(t, http.StatusOK, yahooFixture)
	y := newTestYahoo(srv.URL)
	ctx := context.Background()

	r, err := y.EquityRatios(ctx, "AAPL")
	require.NoError(t, err)

	tests := []struct {
		name string
		got  *float64
		want float64
	}{
		{"pe", r.PE, 25},
		{"pb", r.PB, 5},
		{"ps", r.PS, 5},
		{"ev/ebitda", r.EVToEBITDA, 20},
		{"fcf yield", r.FCFYield, 0.05},
		{"roe", r.ROE, 0.2},
		{"roa", r.ROA, 0.05},
		{"leverage", r.LeverageRatio, 0.5},
	}
	for _, tt := range tests {
		require.NotNil(t, tt.got, tt.name)
		assert.InDelta(t, tt.want, *tt.got, 1e-9, tt.name)
	}
	assert.Nil(t, r.ROIC)

	v, err := y.EquityValuation(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, v.ExpectedPE)
	assert.InDelta(t, 27.5, *v.ExpectedPE, 1e-9)
	assert.InDelta(t, -2.5, *v.ValuationDifference, 1e-9)
	assert.Equal(t, equity.StatusFair, v.Status)
}

func TestYahoo_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found payload", http.StatusOK, `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"No fundamentals data found"}}}`, apperrors.ErrDataNotAvailable},
		{"empty result", http.StatusOK, `{"quoteSummary":{"result":[],"error":null}}`, apperrors.ErrDataNotAvailable},
		{"http 404", http.StatusNotFound, `{}`, apperrors.ErrDataNotAvailable},
		{"throttled", http.StatusTooManyRequests, `Too Many Requests`, apperrors.ErrRateLimited},
		{"server error", http.StatusBadGateway, `bad gateway`, apperrors.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newYahooServer(t, tt.status, tt.body)
			_, err := newTestYahoo(srv.URL).EquityFundamentals(context.Background(), "ZZZZ")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		srv, _ := newYahooServer(t, http.StatusOK, `{not json`)
		_, err := newTestYahoo(srv.URL).EquityRatios(context.Background(), "AAPL")
		kind, ok := apperrors.TypeOf(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrTypeParsing, kind)
	})
}

func TestYahoo_FixedIncomeUnsupported(t *testing.T) {
	y := newTestYahoo("http://127.0.0.1:0")
	ctx := context.Background()

	_, err := y.Bond(ctx, "US912828ZQ64")
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
	_, err = y.YieldCurve(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
	_, err = y.EquityFundamentals(ctx, "  ")
	assert.ErrorIs(t, err, apperrors.ErrDataValidation)
}
