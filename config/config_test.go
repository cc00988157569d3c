package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/feedwatchdog/admin/config"
	"github.com/google/go-cmp/cmp"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "0.0.0.0"
  port: 9090

api:
  base_url: "http://localhost:8000"
  timeout: 15s
  headers:
    X-Tenant: news

storage:
  dsn: ":memory:"

lists:
  page_size: 50

search:
  debounce: 250ms

meta:
  og:title: Feed Watchdog
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr = %s, want 0.0.0.0:9090", cfg.Server.Addr())
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("API.BaseURL = %s, want http://localhost:8000", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
	}
	if cfg.API.Headers["X-Tenant"] != "news" {
		t.Errorf("API.Headers = %v", cfg.API.Headers)
	}
	if cfg.Storage.DSN != ":memory:" {
		t.Errorf("Storage.DSN = %s, want :memory:", cfg.Storage.DSN)
	}
	if cfg.Lists.PageSize != 50 {
		t.Errorf("Lists.PageSize = %d, want 50", cfg.Lists.PageSize)
	}
	if cfg.Search.Debounce != 250*time.Millisecond {
		t.Errorf("Search.Debounce = %v, want 250ms", cfg.Search.Debounce)
	}
	if cfg.Meta["og:title"] != "Feed Watchdog" {
		t.Errorf("Meta = %v", cfg.Meta)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, `
api:
  base_url: "https://watchdog.example.com/api"
`)

	want := config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API:     config.APIConfig{BaseURL: "https://watchdog.example.com/api", Timeout: 10 * time.Second},
		Storage: config.StorageConfig{DSN: "watchdog-admin.db"},
		Session: config.SessionConfig{TTL: 12 * time.Hour},
		Lists:   config.ListsConfig{PageSize: 25},
		Search: config.SearchConfig{
			Debounce:  500 * time.Millisecond,
			PageSize:  10,
			CacheSize: 128,
			CacheTTL:  10 * time.Minute,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "console"},
		Metrics: config.MetricsConfig{Path: "/metrics"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_LogFileDefaults(t *testing.T) {
	cfg := writeAndLoad(t, `
api:
  base_url: "http://localhost:8000"
logging:
  file: /var/log/watchdog-admin.%Y%m%d.log
`)
	if cfg.Logging.MaxAge != 7*24*time.Hour || cfg.Logging.RotationTime != 24*time.Hour {
		t.Errorf("rotation defaults = %v / %v", cfg.Logging.MaxAge, cfg.Logging.RotationTime)
	}
}

func TestLoad_BaseURLFromMeta(t *testing.T) {
	cfg := writeAndLoad(t, `
meta:
  api_url: "http://backend:8000"
`)
	if cfg.API.BaseURL != "http://backend:8000" {
		t.Errorf("API.BaseURL = %s, want http://backend:8000", cfg.API.BaseURL)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BACKEND", "http://expanded:8000")

	cfg := writeAndLoad(t, `
api:
  base_url: "${TEST_BACKEND}"
`)
	if cfg.API.BaseURL != "http://expanded:8000" {
		t.Errorf("API.BaseURL = %s, want http://expanded:8000", cfg.API.BaseURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing base url", "server:\n  port: 8090\n", "api.base_url is required"},
		{"relative base url", "api:\n  base_url: /api\n", "absolute http(s) URL"},
		{"bad scheme", "api:\n  base_url: ftp://host\n", "absolute http(s) URL"},
		{"bad port", "api:\n  base_url: http://h\nserver:\n  port: 70000\n", "server.port"},
		{"page size", "api:\n  base_url: http://h\nlists:\n  page_size: 501\n", "lists.page_size"},
		{"log level", "api:\n  base_url: http://h\nlogging:\n  level: trace\n", "logging.level"},
		{"log format", "api:\n  base_url: http://h\nlogging:\n  format: xml\n", "logging.format"},
		{"yaml", "api: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("WATCHDOG_API_URL", "http://from-env:8000")
	t.Setenv("WATCHDOG_SERVER_PORT", "9191")
	t.Setenv("WATCHDOG_API_TIMEOUT", "3s")
	t.Setenv("WATCHDOG_SESSION_TTL", "1h")
	t.Setenv("WATCHDOG_SECURE_COOKIE", "yes")
	t.Setenv("WATCHDOG_PAGE_SIZE", "40")
	t.Setenv("WATCHDOG_SEARCH_DEBOUNCE", "100ms")
	t.Setenv("WATCHDOG_LOG_LEVEL", "debug")
	t.Setenv("WATCHDOG_LOG_FORMAT", "json")
	t.Setenv("WATCHDOG_METRICS_ENABLED", "1")

	cfg := writeAndLoad(t, `
api:
  base_url: "http://from-file:8000"
server:
  port: 8090
`)

	if cfg.API.BaseURL != "http://from-env:8000" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.Server.Port != 9191 || cfg.API.Timeout != 3*time.Second {
		t.Errorf("Port = %d, Timeout = %v", cfg.Server.Port, cfg.API.Timeout)
	}
	if cfg.Session.TTL != time.Hour || !cfg.Session.SecureCookie {
		t.Errorf("Session = %+v", cfg.Session)
	}
	if cfg.Lists.PageSize != 40 || cfg.Search.Debounce != 100*time.Millisecond {
		t.Errorf("Lists = %+v, Search = %+v", cfg.Lists, cfg.Search)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || !cfg.Metrics.Enabled {
		t.Errorf("Logging = %+v, Metrics = %+v", cfg.Logging, cfg.Metrics)
	}
}

func TestEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("WATCHDOG_SERVER_PORT", "not-a-number")
	t.Setenv("WATCHDOG_API_TIMEOUT", "soon")

	cfg := writeAndLoad(t, "api:\n  base_url: http://h\n")
	if cfg.Server.Port != 8090 || cfg.API.Timeout != 10*time.Second {
		t.Errorf("Port = %d, Timeout = %v; want defaults", cfg.Server.Port, cfg.API.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WATCHDOG_API_URL", "http://env-only:8000")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.API.BaseURL != "http://env-only:8000" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
}

func TestLoadFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("WATCHDOG_API_URL", "")
	if _, err := config.LoadFromEnv(); err == nil {
		t.Error("expected error without WATCHDOG_API_URL")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		t.Setenv("WATCHDOG_API_URL", "")
		path := writeConfig(t, validConfig())
		cfg, err := config.LoadWithFallback(path)
		if err != nil {
			t.Fatalf("LoadWithFallback error: %v", err)
		}
		if cfg.API.BaseURL != "http://localhost:8000" {
			t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("WATCHDOG_API_URL", "http://env:8000")
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("LoadWithFallback error: %v", err)
		}
		if cfg.API.BaseURL != "http://env:8000" {
			t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
		}
		if !config.HasEnvConfig() {
			t.Error("HasEnvConfig = false")
		}
	})

	t.Run("none", func(t *testing.T) {
		t.Setenv("WATCHDOG_API_URL", "")
		if _, err := config.LoadWithFallback(""); err == nil {
			t.Error("expected error without any configuration")
		}
	})
}

func TestConfig_Lookup(t *testing.T) {
	cfg := writeAndLoad(t, `
api:
  base_url: "http://file:8000"
meta:
  api_url: "http://meta:8000"
  og:site_name: Watchdog
`)

	t.Setenv("WATCHDOG_API_URL", "")
	if got := cfg.Lookup("api_url"); got != "http://file:8000" {
		t.Errorf("Lookup(api_url) = %s, want the file setting", got)
	}
	if got := cfg.Lookup("og:site_name"); got != "Watchdog" {
		t.Errorf("Lookup(og:site_name) = %s", got)
	}

	t.Setenv("WATCHDOG_API_URL", "http://env:8000")
	if got := cfg.Lookup("api_url"); got != "http://env:8000" {
		t.Errorf("Lookup(api_url) = %s, want the env setting", got)
	}

	cfg.API.BaseURL = ""
	t.Setenv("WATCHDOG_API_URL", "")
	if got := cfg.Lookup("api_url"); got != "http://meta:8000" {
		t.Errorf("Lookup(api_url) = %s, want the meta setting", got)
	}
}

// Helpers

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}
