// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WATCHDOG_"

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	API     APIConfig         `yaml:"api"`
	Storage StorageConfig     `yaml:"storage"`
	Session SessionConfig     `yaml:"session"`
	Lists   ListsConfig       `yaml:"lists"`
	Search  SearchConfig      `yaml:"search"`
	Logging LoggingConfig     `yaml:"logging"`
	Metrics MetricsConfig     `yaml:"metrics"`
	Meta    map[string]string `yaml:"meta"` // emitted as <meta property> tags, fallback for api_url
}

// ServerConfig configures the web admin's HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig configures the Feed Watchdog REST API.
type APIConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// StorageConfig configures the CLI token database.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// SessionConfig configures web admin sessions.
type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// ListsConfig configures the list screens.
type ListsConfig struct {
	PageSize int `yaml:"page_size"`
}

// SearchConfig configures the source and receiver pickers.
type SearchConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	PageSize  int           `yaml:"page_size"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level        string        `yaml:"level"`  // "debug", "info", "warn", "error"
	Format       string        `yaml:"format"` // "json" or "console"
	File         string        `yaml:"file,omitempty"`
	MaxAge       time.Duration `yaml:"max_age,omitempty"`
	RotationTime time.Duration `yaml:"rotation_time,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML bytes, then applies environment
// overrides and defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	WATCHDOG_API_URL          - REST API base URL (required)
//	WATCHDOG_API_TIMEOUT      - REST API request timeout (default: 10s)
//	WATCHDOG_SERVER_HOST      - Web admin host (default: 127.0.0.1)
//	WATCHDOG_SERVER_PORT      - Web admin port (default: 8090)
//	WATCHDOG_STORAGE_DSN      - CLI token database (default: watchdog-admin.db)
//	WATCHDOG_SESSION_TTL      - Web session lifetime (default: 12h)
//	WATCHDOG_SECURE_COOKIE    - Mark session cookies Secure (default: false)
//	WATCHDOG_PAGE_SIZE        - Default list page size (default: 25)
//	WATCHDOG_SEARCH_DEBOUNCE  - Picker quiet period (default: 500ms)
//	WATCHDOG_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	WATCHDOG_LOG_FORMAT       - Log format: json or console (default: console)
//	WATCHDOG_LOG_FILE         - Rotated log file pattern (default: none)
//	WATCHDOG_METRICS_ENABLED  - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set %sAPI_URL", EnvPrefix)
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv(EnvPrefix+"API_URL") != ""
}

// Lookup resolves a setting by key: the WATCHDOG_<KEY> environment variable
// first, then the matching file setting, then the meta map.
func (c *Config) Lookup(key string) string {
	if v := os.Getenv(EnvPrefix + strings.ToUpper(key)); v != "" {
		return v
	}
	if key == "api_url" && c.API.BaseURL != "" {
		return c.API.BaseURL
	}
	return c.Meta[key]
}

// applyEnvOverrides applies WATCHDOG_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv(EnvPrefix + "SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv(EnvPrefix + "SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	setDuration(&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")

	// API configuration
	if v := os.Getenv(EnvPrefix + "API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	setDuration(&cfg.API.Timeout, "API_TIMEOUT")

	if v := os.Getenv(EnvPrefix + "STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}

	// Sessions
	setDuration(&cfg.Session.TTL, "SESSION_TTL")
	if v := os.Getenv(EnvPrefix + "SECURE_COOKIE"); v != "" {
		cfg.Session.SecureCookie = parseBool(v)
	}

	// Lists and search
	if v := os.Getenv(EnvPrefix + "PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lists.PageSize = n
		}
	}
	setDuration(&cfg.Search.Debounce, "SEARCH_DEBOUNCE")

	// Logging configuration
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	// Metrics configuration
	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = cfg.Meta["api_url"]
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "watchdog-admin.db"
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 12 * time.Hour
	}

	if cfg.Lists.PageSize == 0 {
		cfg.Lists.PageSize = 25
	}

	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = 500 * time.Millisecond
	}
	if cfg.Search.PageSize == 0 {
		cfg.Search.PageSize = 10
	}
	if cfg.Search.CacheSize == 0 {
		cfg.Search.CacheSize = 128
	}
	if cfg.Search.CacheTTL == 0 {
		cfg.Search.CacheTTL = 10 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.File != "" {
		if cfg.Logging.MaxAge == 0 {
			cfg.Logging.MaxAge = 7 * 24 * time.Hour
		}
		if cfg.Logging.RotationTime == 0 {
			cfg.Logging.RotationTime = 24 * time.Hour
		}
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", cfg.API.BaseURL)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Lists.PageSize < 1 || cfg.Lists.PageSize > 500 {
		return fmt.Errorf("lists.page_size must be between 1 and 500, got %d", cfg.Lists.PageSize)
	}
	if cfg.Search.PageSize < 1 || cfg.Search.CacheSize < 1 {
		return fmt.Errorf("search.page_size and search.cache_size must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}
