package datasources

import (
	"fmt"
	"log/slog"
	"time"

	"portfolioanalytics/internal/cache"
	"portfolioanalytics/internal/config"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/infrastructure"
)

// NewEquityProvider builds the configured equity provider
func NewEquityProvider(cfg config.DataSourcesConfig, logger *slog.Logger) (DataSource, error) {
	switch cfg.Provider {
	case config.ProviderYahoo, "":
		return NewYahoo(cfg, logger), nil
	case config.ProviderAlphaVantage:
		if cfg.AlphaVantageAPIKey == "" {
			return nil, apperrors.NewConfigError("alphavantage provider needs ALPHAVANTAGE_API_KEY", nil)
		}
		return NewAlphaVantage(cfg, logger), nil
	case config.ProviderEdgar:
		return NewEdgar(cfg, logger), nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown data source %q", cfg.Provider), nil)
	}
}

// New assembles the cached composite source used by the services
func New(cfg config.DataSourcesConfig, store BondCatalog, c cache.Cache, ttl time.Duration,
	metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*Cached, error) {
	equities, err := NewEquityProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	var curveFallback DataSource
	if cfg.AlphaVantageAPIKey != "" {
		curveFallback = NewAlphaVantage(cfg, logger)
	}

	composite := NewComposite(equities, NewCatalog(store), curveFallback, logger)
	logger.Info("data sources configured",
		slog.String("equity_provider", equities.Name()),
		slog.Bool("yield_curve_fallback", curveFallback != nil))
	return NewCached(composite, c, ttl, metrics, logger), nil
}
