package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"portfolioanalytics/internal/cache"
	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/datasources"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/exporter"
	"portfolioanalytics/internal/infrastructure"
	customMiddleware "portfolioanalytics/internal/middleware"
	"portfolioanalytics/internal/persistence"
	"portfolioanalytics/internal/services"
	handlers "portfolioanalytics/internal/transport/http"
	"portfolioanalytics/internal/validation"
	ws "portfolioanalytics/internal/websocket"
	"portfolioanalytics/pkg/contracts"
)

// AppName is reported in startup logs
const AppName = "portfolio-analytics"

// Application represents the main application
type Application struct {
	Config        *config.Config
	Router        chi.Router
	Server        *http.Server
	WebSocketHub  *ws.Hub
	HealthService *services.HealthService
	Logger        *slog.Logger
	Services      *Services
	OTelProviders *infrastructure.OTelProviders

	metrics      *infrastructure.BusinessMetrics
	errorHandler *apperrors.ErrorHandler
	validation   *customMiddleware.ValidationMiddleware
	cache        cache.Cache
	db           *gorm.DB
	snapshots    persistence.Repository
	dataSource   *datasources.Cached
}

// Services holds the analysis services behind the HTTP handlers
type Services struct {
	Equity    *services.EquityService
	Bond      *services.BondService
	Portfolio *services.PortfolioService
	Risk      *services.RiskService
	Report    *services.ReportService
}

// NewApplication wires every component from cfg. A nil cfg loads the
// configuration from file and environment.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("environment", cfg.App.Env))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(cfg.App.Env), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	errorHandler := apperrors.NewErrorHandler(logger, !cfg.IsProduction())

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		metrics:       metrics,
		errorHandler:  errorHandler,
		validation:    customMiddleware.NewValidationMiddleware(logger, errorHandler),
	}

	if err := app.initializeServices(); err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds storage, data sources and services in
// dependency order
func (a *Application) initializeServices() error {
	cfg := a.Config

	c, err := cache.New(cfg.Cache, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	a.cache = c

	// the bond catalog always lives in the database; snapshots only when
	// the database backend is selected
	db, err := persistence.NewDBConnection(cfg.Storage.Database)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	a.db = db

	snapshots, err := persistence.NewRepository(cfg.Storage, db)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	a.snapshots = snapshots
	bonds := persistence.NewBondStore(db)

	source, err := datasources.New(cfg.DataSources, bonds, c, cfg.Cache.TTL(), a.metrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create data sources: %w", err)
	}
	a.dataSource = source

	a.WebSocketHub = ws.NewHub(cfg.WebSocket, a.Logger)
	publisher := services.EventPublisher(a.WebSocketHub)

	var pdf services.PDFPrinter
	if cfg.Reports.ChromePath != "" {
		pdf = exporter.NewPDFRenderer(cfg.Reports.ChromePath, exporter.DefaultPDFTimeout, a.Logger)
	}

	workers := cfg.Server.AnalysisWorkers
	a.Services = &Services{
		Equity: services.NewEquityService(source, snapshots, publisher, a.Logger,
			services.WithEquityConcurrency(workers),
			services.WithEquityMetrics(a.metrics)),
		Bond:      services.NewBondService(source, bonds, publisher, a.metrics, workers, a.Logger),
		Portfolio: services.NewPortfolioService(cfg.Analytics, publisher, a.metrics, a.Logger),
		Risk:      services.NewRiskService(cfg.Analytics, publisher, a.metrics, a.Logger),
		Report:    services.NewReportService(pdf, cfg.Reports.Currency, a.metrics, a.Logger),
	}

	a.HealthService = services.NewHealthService(contracts.Version, cfg.DataSources.Provider,
		c, snapshots, a.WebSocketHub, a.Logger)

	a.Logger.Info("Services initialized",
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("database", cfg.Storage.Database.Type),
		slog.Bool("pdf_reports", pdf != nil))
	return nil
}

// setupRouter configures the HTTP router
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	// websocket upgrades bypass the timeout and logging wrappers, which
	// would hide the underlying hijacker
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Get("/ws", ws.Handler(a.WebSocketHub, a.Config.Security.AllowedOrigins, a.Logger))

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Group(func(r chi.Router) {
		if otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.metrics); err == nil {
			r.Use(otelMiddleware.Handler)
		} else {
			a.Logger.Warn("OpenTelemetry middleware disabled", slog.String("error", err.Error()))
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.errorHandler, a.Logger).Handler)
		}

		r.Get("/health", healthHandler.Liveness)
		r.Route("/api", func(r chi.Router) {
			a.setupAPIRoutes(r, healthHandler)
		})
		r.Method(http.MethodGet, "/metrics",
			handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.errorHandler))
	})

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes mounts the analysis handlers under /api
func (a *Application) setupAPIRoutes(r chi.Router, health *handlers.HealthHandler) {
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.errorHandler))
	r.Use(customMiddleware.ContentTypeValidator("application/json"))
	r.Use(a.validation.ValidateRequest)

	bondHandler := handlers.NewBondHandler(a.Services.Bond, a.validation, a.errorHandler,
		a.Config.Security.CatalogAPIKeys, a.Logger)

	r.Mount("/health", health.Routes())
	r.Get("/version", health.Version)
	r.Mount("/equity", handlers.NewEquityHandler(a.Services.Equity, a.Services.Report,
		a.validation, a.errorHandler, a.Logger).Routes())
	r.Mount("/bond", bondHandler.Routes())
	r.Mount("/yield-curve", bondHandler.CurveRoutes())
	r.Mount("/portfolio", handlers.NewPortfolioHandler(a.Services.Portfolio, a.validation,
		a.errorHandler, a.Logger).Routes())
	r.Mount("/risk", handlers.NewRiskHandler(a.Services.Risk, a.validation,
		a.errorHandler, a.Logger).Routes())
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		Logger:         a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the hub and the HTTP listener. A listener failure cancels
// ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("data_source", a.Config.DataSources.Provider))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Server.Addr))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()
	a.closeStores()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

func (a *Application) closeStores() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Logger.Error("Error closing cache", slog.String("error", err.Error()))
		}
		a.cache = nil
	}
	if a.db != nil {
		if err := persistence.CloseDB(a.db); err != nil {
			a.Logger.Error("Error closing database", slog.String("error", err.Error()))
		}
		a.db = nil
	}
}

// Run runs the application until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the database answers and the
// configured directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	if a.db != nil {
		if err := persistence.PingDB(a.db); err != nil {
			warnings = append(warnings, "database: "+err.Error())
		}
	}

	directories := map[string]string{
		"Reports": a.Config.Reports.Dir,
	}
	if a.Config.Storage.Backend == config.StorageBackendFile {
		directories["Data"] = a.Config.Storage.DataDir
	}
	files := validation.NewFileValidator(a.Logger)
	for name, dir := range directories {
		if dir == "" {
			continue
		}
		if err := files.ValidateOutputDirectory(dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not available: %s", name, dir))
		}
	}
	if n, err := files.CountReports(a.Config.Reports.Dir); err == nil && n > 0 {
		a.Logger.InfoContext(ctx, "Existing reports found",
			slog.String("directory", a.Config.Reports.Dir),
			slog.Int("count", n))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
