package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the staffdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	Records   RecordsConfig   `yaml:"records"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// TenantKey maps an API key to a tenant and a caller role.
type TenantKey struct {
	Key      string `yaml:"key"`
	TenantID string `yaml:"tenant_id"`
	Role     string `yaml:"role"` // member (default) or admin
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Keys []TenantKey `yaml:"keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds cache store (Redis/Valkey) connection settings.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RecordsConfig holds the employee record source (Postgres) settings.
type RecordsConfig struct {
	DSN             string `yaml:"dsn"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_sec"`
	RetryBackoffMs  int    `yaml:"retry_backoff_ms"`
}

// SearchConfig holds matching and ranking defaults.
type SearchConfig struct {
	MaxQueryLength      int     `yaml:"max_query_length"`
	DefaultPageSize     int     `yaml:"default_page_size"`
	MaxPageSize         int     `yaml:"max_page_size"`
	FuzzyThreshold      float64 `yaml:"fuzzy_threshold"`
	SuggestionFloor     float64 `yaml:"suggestion_floor"`
	LowResultsThreshold int     `yaml:"low_results_threshold"`
	ExactWeight         float64 `yaml:"exact_weight"`
	FuzzyWeight         float64 `yaml:"fuzzy_weight"`
	PartialWeight       float64 `yaml:"partial_weight"`
}

// RateLimitConfig holds the per-tenant fixed-window limiter settings.
type RateLimitConfig struct {
	RequestsPerWindow int `yaml:"requests_per_window"` // 0 = disabled
	WindowSec         int `yaml:"window_sec"`
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

// CacheTTL returns the search cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// FetchTimeout returns the record source fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Records.FetchTimeoutSec) * time.Second
}

// RetryBackoff returns the record source retry backoff as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Records.RetryBackoffMs) * time.Millisecond
}

// RateWindow returns the rate limit window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSec) * time.Second
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "staffdex:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Records.FetchTimeoutSec <= 0 {
		c.Records.FetchTimeoutSec = 4
	}
	if c.Records.RetryBackoffMs <= 0 {
		c.Records.RetryBackoffMs = 200
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 200
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.FuzzyThreshold <= 0 {
		c.Search.FuzzyThreshold = 0.3
	}
	if c.Search.SuggestionFloor <= 0 {
		c.Search.SuggestionFloor = 0.25
	}
	if c.Search.LowResultsThreshold <= 0 {
		c.Search.LowResultsThreshold = 2
	}
	if c.Search.ExactWeight <= 0 {
		c.Search.ExactWeight = 1.0
	}
	if c.Search.FuzzyWeight <= 0 {
		c.Search.FuzzyWeight = 0.6
	}
	if c.Search.PartialWeight <= 0 {
		c.Search.PartialWeight = 0.3
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required")
	}
	if c.Records.DSN == "" {
		return fmt.Errorf("records.dsn is required")
	}
	if c.Search.FuzzyThreshold > 1 {
		return fmt.Errorf("search.fuzzy_threshold must be at most 1, got %v", c.Search.FuzzyThreshold)
	}
	if c.Search.SuggestionFloor > 1 {
		return fmt.Errorf("search.suggestion_floor must be at most 1, got %v", c.Search.SuggestionFloor)
	}
	for i, k := range c.Auth.Keys {
		if k.Key == "" {
			return fmt.Errorf("auth.keys[%d].key is required", i)
		}
		if k.TenantID == "" {
			return fmt.Errorf("auth.keys[%d].tenant_id is required", i)
		}
		switch k.Role {
		case "", "member", "admin":
			// ok
		default:
			return fmt.Errorf(
				"auth.keys[%d].role must be \"member\" or \"admin\", got %q", i, k.Role,
			)
		}
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
