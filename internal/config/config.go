package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvCI          Environment = "ci"
	EnvProduction  Environment = "production"
)

// Healing store backends
const (
	HealingBackendMemory   = "memory"
	HealingBackendPostgres = "postgres"
)

// Config holds all suite configuration read from the environment.
// Values that the properties file also carries (browser, url, credentials)
// override the file when set.
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool        `envconfig:"DEBUG" default:"false"`

	// Suite
	Suite SuiteConfig

	// Browser
	Browser BrowserConfig

	// Timeouts
	Timeouts TimeoutConfig

	// Self-healing
	Healing HealingConfig

	// Database (locator history)
	Database DatabaseConfig

	// Redis (locator history cache)
	Redis RedisConfig

	// S3/MinIO (screenshot uploads)
	Storage StorageConfig

	// Temporal
	Temporal TemporalConfig

	// Metrics
	Metrics MetricsConfig

	// Demo application
	Fixture FixtureConfig
}

// SuiteConfig holds file locations and overrides for a suite run
type SuiteConfig struct {
	PropertiesPath string `envconfig:"SUITE_PROPERTIES_PATH" default:"resources/config.properties"`
	ScreenshotDir  string `envconfig:"SUITE_SCREENSHOT_DIR" default:"screenshots"`
	Browser        string `envconfig:"SUITE_BROWSER" default:""`
	URL            string `envconfig:"SUITE_URL" default:""`
	ProductsURL    string `envconfig:"SUITE_PRODUCTS_URL" default:""`
	Username       string `envconfig:"SUITE_USERNAME" default:""`
	Password       string `envconfig:"SUITE_PASSWORD" default:""`
}

// BrowserConfig holds browser launch settings
type BrowserConfig struct {
	Headless      bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMo        time.Duration `envconfig:"BROWSER_SLOW_MO" default:"0s"`
	ChromeChannel string        `envconfig:"BROWSER_CHROME_CHANNEL" default:""`
	WindowWidth   int           `envconfig:"BROWSER_WINDOW_WIDTH" default:"1920"`
	WindowHeight  int           `envconfig:"BROWSER_WINDOW_HEIGHT" default:"1080"`
	Install       bool          `envconfig:"BROWSER_INSTALL" default:"false"`
}

// TimeoutConfig holds wait and page-load timeouts
type TimeoutConfig struct {
	Short    time.Duration `envconfig:"TIMEOUT_SHORT" default:"5s"`
	Medium   time.Duration `envconfig:"TIMEOUT_MEDIUM" default:"10s"`
	Long     time.Duration `envconfig:"TIMEOUT_LONG" default:"20s"`
	PageLoad time.Duration `envconfig:"TIMEOUT_PAGE_LOAD" default:"30s"`
	Implicit time.Duration `envconfig:"TIMEOUT_IMPLICIT" default:"5s"`
	Poll     time.Duration `envconfig:"TIMEOUT_POLL" default:"250ms"`
}

// HealingConfig holds self-healing settings.
// Enabled is resolved once at startup from HEALING_ENABLED or, when unset,
// from the healing properties file.
type HealingConfig struct {
	Enabled        *bool   `envconfig:"HEALING_ENABLED"`
	PropertiesPath string  `envconfig:"HEALING_PROPERTIES_PATH" default:"resources/healing.properties"`
	Backend        string  `envconfig:"HEALING_BACKEND" default:"memory"`
	CacheEnabled   bool    `envconfig:"HEALING_CACHE_ENABLED" default:"false"`
	Learn          bool    `envconfig:"HEALING_LEARN" default:"true"`
	MinScore       float64 `envconfig:"HEALING_MIN_SCORE" default:"0.5"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"pomsuite"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Database        string        `envconfig:"DB_NAME" default:"pomsuite"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"1s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"1s"`
	TTL          time.Duration `envconfig:"REDIS_TTL" default:"24h"`
}

// Addr returns Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds object storage settings for screenshot uploads
type StorageConfig struct {
	Enabled   bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint  string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"pomsuite"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
	Prefix    string `envconfig:"STORAGE_SCREENSHOT_PREFIX" default:"screenshots"`
}

// TemporalConfig holds Temporal settings
type TemporalConfig struct {
	Host      string `envconfig:"TEMPORAL_HOST" default:"localhost"`
	Port      int    `envconfig:"TEMPORAL_PORT" default:"7233"`
	Namespace string `envconfig:"TEMPORAL_NAMESPACE" default:"default"`
	TaskQueue string `envconfig:"TEMPORAL_TASK_QUEUE" default:"pomsuite-suite"`
}

// Address returns Temporal address
func (c TemporalConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Addr      string `envconfig:"METRICS_ADDR" default:":9102"`
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"pomsuite"`
}

// FixtureConfig holds settings for the bundled demo application
type FixtureConfig struct {
	Addr     string `envconfig:"FIXTURE_ADDR" default:"127.0.0.1:8089"`
	Username string `envconfig:"FIXTURE_USERNAME" default:"tomsmith"`
	Password string `envconfig:"FIXTURE_PASSWORD" default:"SuperSecretPassword!"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config without validation (for CLI tools)
func LoadWithDefaults() (*Config, error) {
	var cfg Config

	// Try to load from env, but don't fail on validation
	if err := envconfig.Process("", &cfg); err != nil {
		return &cfg, fmt.Errorf("processing config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	switch c.Healing.Backend {
	case HealingBackendMemory, HealingBackendPostgres:
	default:
		errors = append(errors, fmt.Sprintf("HEALING_BACKEND must be %q or %q, got %q",
			HealingBackendMemory, HealingBackendPostgres, c.Healing.Backend))
	}

	if c.Healing.MinScore < 0 || c.Healing.MinScore > 1 {
		errors = append(errors, "HEALING_MIN_SCORE must be between 0 and 1")
	}

	if c.Timeouts.Poll <= 0 {
		errors = append(errors, "TIMEOUT_POLL must be positive")
	}

	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		errors = append(errors, "BROWSER_WINDOW_WIDTH and BROWSER_WINDOW_HEIGHT must be positive")
	}

	if c.Env == EnvProduction && c.Healing.Backend == HealingBackendPostgres && c.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required for the postgres healing backend in production")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GetLogLevel returns the appropriate zap log level
func (c *Config) GetLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
