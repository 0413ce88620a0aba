package datasources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioanalytics/internal/config"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

const edgarTickers = `{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."},"1":{"cik_str":789019,"ticker":"MSFT","title":"MICROSOFT CORP"}}`

// Revenue has a restated 2022 value and a quarterly fact that must be ignored
const edgarFacts = `{"cik":320193,"entityName":"Apple Inc.","facts":{"us-gaap":{
  "Revenues":{"units":{"USD":[
    {"start":"2020-10-01","end":"2021-09-30","val":100,"fy":2021,"fp":"FY","form":"10-K","filed":"2021-10-29"},
    {"start":"2021-10-01","end":"2022-09-30","val":110,"fy":2022,"fp":"FY","form":"10-K","filed":"2022-10-28"},
    {"start":"2021-10-01","end":"2022-09-30","val":120,"fy":2023,"fp":"FY","form":"10-K","filed":"2023-11-03"},
    {"start":"2023-07-01","end":"2023-09-30","val":30,"fy":2023,"fp":"Q4","form":"10-Q","filed":"2023-11-03"},
    {"start":"2022-10-01","end":"2023-09-30","val":144,"fy":2023,"fp":"FY","form":"10-K","filed":"2023-11-03"}
  ]}},
  "NetIncomeLoss":{"units":{"USD":[
    {"start":"2022-10-01","end":"2023-09-30","val":36,"fy":2023,"fp":"FY","form":"10-K","filed":"2023-11-03"}
  ]}},
  "OperatingIncomeLoss":{"units":{"USD":[
    {"start":"2022-10-01","end":"2023-09-30","val":43.2,"fy":2023,"fp":"FY","form":"10-K","filed":"2023-11-03"}
  ]}},
  "NetCashProvidedByUsedInOperatingActivities":{"units":{"USD":[
    {"start":"2022-10-01","end":"2023-09-30","val":45,"fy":2023,"fp":"FY","form":"10-K","filed":"2023-11-03"}
  ]}},
  "LongTermDebt":{"units":{"USD":[
    {"end":"2023-09-30","val":90,"fy":2023,"fp":"FY","form":"10-K","filed":"2023-11-03"}
  ]}},
  "StockholdersEquity":{"units":{"USD":[
    {"end":"2023-09-30","val":60,"fy":2023,"fp":"FY","form":"10-K","filed":"2023-11-03"}
  ]}}
}}}`

func newTestEdgar(t *testing.T) (*Edgar, *int32) {
	t.Helper()
	var tickerCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tickerCalls, 1)
		assert.Equal(t, "test-agent ops@example.com", r.Header.Get("User-Agent"))
		w.Write([]byte(edgarTickers))
	})
	mux.HandleFunc("/api/xbrl/companyfacts/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(edgarFacts))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	e := NewEdgar(config.DataSourcesConfig{
		EdgarBaseURL:    srv.URL,
		EdgarTickersURL: srv.URL + "/files/company_tickers.json",
		EdgarUserAgent:  "test-agent ops@example.com",
	}, infrastructure.DiscardLogger())
	return e, &tickerCalls
}

func TestEdgar_Fundamentals(t *testing.T) {
	e, tickerCalls := newTestEdgar(t)
	ctx := context.Background()

	f, err := e.EquityFundamentals(ctx, "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", f.Equity.Symbol)
	assert.Equal(t, "Apple Inc.", f.Equity.Name)
	require.NotNil(t, f.RevenueCAGR)
	// 100 -> 120 (restated) -> 144
	assert.InDelta(t, 0.2, *f.RevenueCAGR, 1e-9)
	assert.InDelta(t, 0.25, *f.NetMargin, 1e-9)
	assert.InDelta(t, 0.30, *f.OperatingMargin, 1e-9)
	assert.InDelta(t, 1.25, *f.CFOToNI, 1e-9)
	assert.InDelta(t, 1.5, *f.LeverageRatio, 1e-9)
	assert.Equal(t, config.ClassGrowth, f.Lifecycle)

	// the ticker map is fetched once
	_, err = e.EquityFundamentals(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(tickerCalls))
}

func TestEdgar_Errors(t *testing.T) {
	e, _ := newTestEdgar(t)
	ctx := context.Background()

	_, err := e.EquityFundamentals(ctx, "NOPE")
	assert.ErrorIs(t, err, apperrors.ErrDataNotAvailable)

	// MSFT resolves but has no facts on the test server
	_, err = e.EquityFundamentals(ctx, "MSFT")
	assert.ErrorIs(t, err, apperrors.ErrDataNotAvailable)

	_, err = e.EquityRatios(ctx, "AAPL")
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
	_, err = e.EquityValuation(ctx, "AAPL")
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
	_, err = e.YieldCurve(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
}
