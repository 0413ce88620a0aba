package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load. Each field
// can also be set through its bare name (for example API_PORT), which
// envconfig consults when the prefixed variable is absent.
const EnvPrefix = "PA"

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `yaml:"app" envconfig:"APP"`
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Security    SecurityConfig    `yaml:"security" envconfig:"SECURITY"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	DataSources DataSourcesConfig `yaml:"data_sources" envconfig:"DATA_SOURCES"`
	Cache       CacheConfig       `yaml:"cache" envconfig:"CACHE"`
	Storage     StorageConfig     `yaml:"storage" envconfig:"STORAGE"`
	Analytics   AnalyticsConfig   `yaml:"analytics" envconfig:"ANALYTICS"`
	Reports     ReportsConfig     `yaml:"reports" envconfig:"REPORTS"`
	WebSocket   WebSocketConfig   `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// AppConfig identifies the runtime environment
type AppConfig struct {
	Env string `yaml:"env" envconfig:"APP_ENV"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"API_HOST"`
	Port            int           `yaml:"port" envconfig:"API_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	AnalysisWorkers int           `yaml:"analysis_workers" envconfig:"ANALYSIS_WORKERS"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	// CatalogAPIKeys guards bond catalog and yield curve writes; empty
	// leaves them open
	CatalogAPIKeys []string `yaml:"catalog_api_keys" envconfig:"CATALOG_API_KEYS"`
}

// RateLimitConfig contains inbound rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"RATE_LIMIT_ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RATE_LIMIT_RPS"`
	Burst   int     `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format     string `yaml:"format" envconfig:"LOG_FORMAT"`
	Output     string `yaml:"output" envconfig:"LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" envconfig:"LOG_FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"LOG_MAX_AGE_DAYS"`
}

// DataSourcesConfig holds credentials and endpoints of market data providers
type DataSourcesConfig struct {
	Provider           string        `yaml:"provider" envconfig:"DATA_SOURCE"`
	AlphaVantageAPIKey string        `yaml:"alphavantage_api_key" envconfig:"ALPHAVANTAGE_API_KEY"`
	EdgarAPIKey        string        `yaml:"edgar_api_key" envconfig:"EDGAR_API_KEY"`
	EdgarUserAgent     string        `yaml:"edgar_user_agent" envconfig:"EDGAR_USER_AGENT"`
	YahooBaseURL       string        `yaml:"yahoo_base_url" envconfig:"YAHOO_BASE_URL"`
	AlphaVantageURL    string        `yaml:"alphavantage_base_url" envconfig:"ALPHAVANTAGE_BASE_URL"`
	EdgarBaseURL       string        `yaml:"edgar_base_url" envconfig:"EDGAR_BASE_URL"`
	EdgarTickersURL    string        `yaml:"edgar_tickers_url" envconfig:"EDGAR_TICKERS_URL"`
	HTTPTimeout        time.Duration `yaml:"http_timeout" envconfig:"DATA_SOURCE_TIMEOUT"`
}

// CacheConfig configures the data-source response cache
type CacheConfig struct {
	Dir        string `yaml:"dir" envconfig:"CACHE_DIR"`
	TTLSeconds int    `yaml:"ttl" envconfig:"CACHE_TTL"`
	Backend    string `yaml:"backend" envconfig:"CACHE_BACKEND"`
	MaxEntries int    `yaml:"max_entries" envconfig:"CACHE_MAX_ENTRIES"`
	RedisAddr  string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisDB    int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	RedisPass  string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
}

// TTL returns the cache lifetime as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// StorageConfig selects where analysis snapshots and bond records live
type StorageConfig struct {
	Backend  string         `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	DataDir  string         `yaml:"data_dir" envconfig:"DATA_DIR"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
}

// DatabaseConfig configures the gorm connection
type DatabaseConfig struct {
	Type string `yaml:"type" envconfig:"DB_TYPE"`
	DSN  string `yaml:"dsn" envconfig:"DB_DSN"`
	Name string `yaml:"name" envconfig:"DB_NAME"`
}

// AnalyticsConfig carries risk and valuation parameters
type AnalyticsConfig struct {
	RiskFreeRate      float64 `yaml:"risk_free_rate" envconfig:"RISK_FREE_RATE"`
	MaxExpectedReturn float64 `yaml:"max_expected_return" envconfig:"MAX_EXPECTED_RETURN"`
	RidgeAlpha        float64 `yaml:"ridge_alpha" envconfig:"RIDGE_ALPHA"`
	ConfidenceLevel   float64 `yaml:"confidence_level" envconfig:"CONFIDENCE_LEVEL"`
	Simulations       int     `yaml:"simulations" envconfig:"SIMULATIONS"`
	Seed              int64   `yaml:"seed" envconfig:"RANDOM_SEED"`
}

// ReportsConfig configures report export
type ReportsConfig struct {
	Dir        string `yaml:"dir" envconfig:"REPORTS_DIR"`
	ChromePath string `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	Currency   string `yaml:"currency" envconfig:"REPORT_CURRENCY"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"WS_READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WS_WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"WS_PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"WS_PONG_WAIT"`
}

// Address returns host:port for the HTTP listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	c.Storage.Database.Type = strings.ToLower(c.Storage.Database.Type)
	c.DataSources.Provider = strings.ToLower(c.DataSources.Provider)
}

// Validate checks that every value is within its accepted range
func (c *Config) Validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("invalid app environment: %q", c.App.Env)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "plain" {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	switch c.DataSources.Provider {
	case ProviderYahoo, ProviderAlphaVantage, ProviderEdgar:
	default:
		return fmt.Errorf("invalid data source: %q", c.DataSources.Provider)
	}

	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Cache.Backend != CacheBackendMemory && c.Cache.Backend != CacheBackendRedis {
		return fmt.Errorf("invalid cache backend: %q", c.Cache.Backend)
	}

	if c.Storage.Backend != StorageBackendFile && c.Storage.Backend != StorageBackendDatabase {
		return fmt.Errorf("invalid storage backend: %q", c.Storage.Backend)
	}
	if c.Storage.Database.Type != DBTypeSQLite && c.Storage.Database.Type != DBTypePostgres {
		return fmt.Errorf("invalid database type: %q", c.Storage.Database.Type)
	}

	if c.Analytics.RiskFreeRate < -1 || c.Analytics.RiskFreeRate > 1 {
		return fmt.Errorf("risk free rate out of range: %v", c.Analytics.RiskFreeRate)
	}
	if c.Analytics.MaxExpectedReturn <= 0 {
		return fmt.Errorf("max expected return must be positive")
	}
	if c.Analytics.RidgeAlpha < 0 {
		return fmt.Errorf("ridge alpha must not be negative")
	}
	if c.Analytics.ConfidenceLevel <= 0 || c.Analytics.ConfidenceLevel >= 1 {
		return fmt.Errorf("confidence level must be in (0, 1)")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		App: AppConfig{Env: EnvDevelopment},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultAnalysisTimeout,
			AnalysisWorkers: 4,
		},
		Security: SecurityConfig{
			EnableCORS:     true,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			Format:     "json",
			Output:     "console",
			FilePath:   "logs/app.log",
			MaxSizeMB:  MaxLogFileSizeMB,
			MaxBackups: MaxLogFileBackups,
			MaxAgeDays: MaxLogFileAge,
		},
		DataSources: DataSourcesConfig{
			Provider:        ProviderYahoo,
			EdgarUserAgent:  DefaultEdgarUserAgent,
			YahooBaseURL:    YahooBaseURL,
			AlphaVantageURL: AlphaVantageBaseURL,
			EdgarBaseURL:    EdgarBaseURL,
			EdgarTickersURL: EdgarTickersURL,
			HTTPTimeout:     DefaultHTTPTimeout,
		},
		Cache: CacheConfig{
			Dir:        "./cache",
			TTLSeconds: 86400,
			Backend:    CacheBackendMemory,
			MaxEntries: 10000,
			RedisAddr:  "localhost:6379",
		},
		Storage: StorageConfig{
			Backend: StorageBackendFile,
			DataDir: "./data",
			Database: DatabaseConfig{
				Type: "sqlite",
				DSN:  "data/portfolio.db",
				Name: "portfolio",
			},
		},
		Analytics: AnalyticsConfig{
			RiskFreeRate:      0.03,
			MaxExpectedReturn: 0.50,
			RidgeAlpha:        1.0,
			ConfidenceLevel:   0.95,
			Simulations:       5000,
			Seed:              42,
		},
		Reports: ReportsConfig{
			Dir:      "./reports",
			Currency: "USD",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
