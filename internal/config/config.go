package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the refrank API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Search   SearchConfig   `yaml:"search"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the key-value store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// GeocoderConfig holds the upstream geocoding service settings.
type GeocoderConfig struct {
	BaseURL       string       `yaml:"base_url"`
	UserAgent     string       `yaml:"user_agent"`
	TimeoutSec    int          `yaml:"timeout_sec"`     // whole-resolution cap (default: 10)
	MinIntervalMS int          `yaml:"min_interval_ms"` // minimum delay between upstream calls (default: 1000)
	MaxAttempts   int          `yaml:"max_attempts"`    // bounded retry count for transient failures (default: 3)
	Budget        BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds geocoding call budget settings.
type BudgetConfig struct {
	DailyCallLimit   int64  `yaml:"daily_call_limit"`   // 0 = unlimited
	MonthlyCallLimit int64  `yaml:"monthly_call_limit"` // 0 = unlimited
	Action           string `yaml:"action"`             // "reject" | "warn" (default)
}

// DatasetConfig holds the provider dataset settings.
type DatasetConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // parquet, csv (default: inferred from extension)
}

// SearchConfig holds default ranking parameters for requests that omit them.
type SearchConfig struct {
	MaxRadiusMiles    float64 `yaml:"max_radius_miles"`
	MinReferrals      int     `yaml:"min_referrals"`
	RecencyWindowDays int     `yaml:"recency_window_days"`
	DefaultLimit      int     `yaml:"default_limit"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	TTLSec      int `yaml:"ttl_sec"`      // idle sessions past this age are purged
	MaxSessions int `yaml:"max_sessions"` // upper bound on tracked sessions
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = "refrank/dev"
	}
	if c.Geocoder.TimeoutSec <= 0 {
		c.Geocoder.TimeoutSec = 10
	}
	if c.Geocoder.MinIntervalMS <= 0 {
		// Nominatim usage policy: at most one request per second.
		c.Geocoder.MinIntervalMS = 1000
	}
	if c.Geocoder.MaxAttempts <= 0 {
		c.Geocoder.MaxAttempts = 3
	}
	if c.Search.MaxRadiusMiles <= 0 {
		c.Search.MaxRadiusMiles = 25
	}
	if c.Search.RecencyWindowDays <= 0 {
		c.Search.RecencyWindowDays = 365
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Session.TTLSec <= 0 {
		c.Session.TTLSec = 1800
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = 1000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "refrank:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "memory":
		// no connection settings
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	switch c.Geocoder.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"geocoder.budget.action must be \"warn\" or \"reject\", got %q",
			c.Geocoder.Budget.Action,
		)
	}
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	switch c.Dataset.Format {
	case "", "parquet", "csv":
		// ok ("" = inferred from extension)
	default:
		return fmt.Errorf("dataset.format must be \"parquet\" or \"csv\", got %q", c.Dataset.Format)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
