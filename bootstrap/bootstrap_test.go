package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/feedwatchdog/admin/bootstrap"
	"github.com/feedwatchdog/admin/config"
	"github.com/feedwatchdog/admin/ports"
	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func restoreLevel(t *testing.T) {
	level := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(level) })
}

// =============================================================================
// Logger
// =============================================================================

func TestNewLogger_JSON(t *testing.T) {
	restoreLevel(t)

	var buf bytes.Buffer
	logger, closer, err := bootstrap.NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer closer.Close()

	logger.Info().Str("k", "v").Msg("hello")
	logger.Debug().Msg("hidden")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", buf.String())
	}
	if entry["message"] != "hello" || entry["k"] != "v" {
		t.Errorf("entry = %v", entry)
	}
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug entry written at info level")
	}
}

func TestNewLogger_Console(t *testing.T) {
	restoreLevel(t)

	var buf bytes.Buffer
	logger, closer, err := bootstrap.NewLogger(config.LoggingConfig{Level: "debug", Format: "console"}, &buf)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer closer.Close()

	logger.Debug().Msg("hello")
	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestNewLogger_File(t *testing.T) {
	restoreLevel(t)

	path := filepath.Join(t.TempDir(), "admin.log")
	var buf bytes.Buffer
	logger, closer, err := bootstrap.NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		File:   path,
	}, &buf)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info().Msg("to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files, _ := filepath.Glob(path + ".*")
	if len(files) != 1 {
		t.Fatalf("rotated files = %v, want 1", files)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("log file = %q", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Error("entry missing from the primary output")
	}
}

func TestSetLogLevel(t *testing.T) {
	restoreLevel(t)

	tests := []struct {
		name string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		bootstrap.SetLogLevel(tt.name)
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("SetLogLevel(%q) level = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// =============================================================================
// Web admin
// =============================================================================

func newApp(t *testing.T, content string) *bootstrap.App {
	t.Helper()
	restoreLevel(t)

	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: writeConfig(t, content),
		Version:    "test",
		LogOutput:  &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func TestNew_ServesAdmin(t *testing.T) {
	a := newApp(t, `
api:
  base_url: "http://localhost:8000"
server:
  port: 8091
metrics:
  enabled: true
`)

	if a.Holder == nil {
		t.Error("Holder should be set for a config file")
	}
	if a.HTTPServer.Addr != "127.0.0.1:8091" {
		t.Errorf("Addr = %q, want 127.0.0.1:8091", a.HTTPServer.Addr)
	}

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /login = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Login | Feed Watchdog Admin") {
		t.Error("login page title missing")
	}

	rec = httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "watchdog_admin_http_requests_total") {
		t.Error("http request metric missing")
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	a := newApp(t, `
api:
  base_url: "http://localhost:8000"
`)

	if a.Metrics != nil {
		t.Error("Metrics should be nil when disabled")
	}

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code == http.StatusOK {
		t.Error("/metrics served while disabled")
	}
}

func TestNew_Reload(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "http://localhost:8000"
lists:
  page_size: 25
logging:
  level: info
`)
	restoreLevel(t)

	a, err := bootstrap.New(bootstrap.Options{ConfigPath: path, LogOutput: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Shutdown()

	err = os.WriteFile(path, []byte(`
api:
  base_url: "http://localhost:9000"
lists:
  page_size: 50
logging:
  level: debug
meta:
  og:site_name: "Watchdog"
`), 0644)
	if err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := a.Holder.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	cfg := a.Config()
	if cfg.Lists.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.Lists.PageSize)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q, want the value the process started with", cfg.API.BaseURL)
	}
	if cfg.Meta["og:site_name"] != "Watchdog" {
		t.Errorf("Meta = %v", cfg.Meta)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestNew_EnvOnly(t *testing.T) {
	restoreLevel(t)
	t.Setenv("WATCHDOG_API_URL", "http://localhost:8000")

	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		LogOutput:  &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Shutdown()

	if a.Holder != nil {
		t.Error("Holder should be nil without a config file")
	}
	if a.Config().API.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", a.Config().API.BaseURL)
	}
}

func TestNew_NoConfig(t *testing.T) {
	t.Setenv("WATCHDOG_API_URL", "")

	_, err := bootstrap.New(bootstrap.Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("New() should fail without any configuration")
	}
}

// =============================================================================
// CLI
// =============================================================================

func TestNewCLI(t *testing.T) {
	restoreLevel(t)
	dsn := filepath.Join(t.TempDir(), "tokens", "cli.db")
	path := writeConfig(t, `
api:
  base_url: "http://localhost:8000"
storage:
  dsn: "`+dsn+`"
`)

	cli, err := bootstrap.NewCLI(path, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewCLI() error = %v", err)
	}

	ctx := context.Background()
	if err := cli.Tokens.Set(ctx, ports.AccessTokenKey, "access-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cli.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// The token survives a new process.
	cli, err = bootstrap.NewCLI(path, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewCLI() again error = %v", err)
	}
	defer cli.Close()

	got, err := cli.Tokens.Get(ctx, ports.AccessTokenKey)
	if err != nil || got != "access-1" {
		t.Errorf("Get() = %q, %v, want access-1", got, err)
	}
	if cli.Client.BaseURL() != "http://localhost:8000" {
		t.Errorf("BaseURL() = %q", cli.Client.BaseURL())
	}
}
