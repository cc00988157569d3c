// Package bootstrap wires all dependencies and starts the web admin.
// Configuration comes from a YAML file, hot reloaded, or from WATCHDOG_*
// environment variables alone.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/feedwatchdog/admin/adapters/clock"
	"github.com/feedwatchdog/admin/adapters/idgen"
	"github.com/feedwatchdog/admin/adapters/metrics"
	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/config"
	"github.com/feedwatchdog/admin/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options selects where configuration comes from.
type Options struct {
	// ConfigPath is the YAML file. When it does not exist the environment
	// is used and hot reload is off.
	ConfigPath string

	Version string

	// LogOutput receives console or JSON logs. Defaults to stdout.
	LogOutput io.Writer
}

// App represents the running web admin.
type App struct {
	Logger     zerolog.Logger
	Holder     *config.Holder // nil without a config file
	Metrics    *metrics.Collector
	Client     *remote.Client
	Schemas    *app.SchemaCatalog
	Sessions   *web.Sessions
	HTTPServer *http.Server

	initial   *config.Config
	live      atomic.Pointer[config.Config]
	logCloser io.Closer
}

// New creates and initializes the web admin.
func New(opts Options) (*App, error) {
	cfg, holder, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, closer, err := NewLogger(cfg.Logging, opts.LogOutput)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("api", cfg.API.BaseURL).Msg("initializing watchdog admin")

	a := &App{
		Logger:    logger,
		Holder:    holder,
		initial:   cfg,
		logCloser: closer,
	}
	a.live.Store(cfg)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = metrics.NewWithRegistry(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	a.Client = remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Headers: cfg.API.Headers,
		IDs:     idgen.Prefixed{Prefix: "req_"},
		Clock:   clock.Real{},
		Metrics: a.Metrics,
		Logger:  logger.With().Str("component", "remote").Logger(),
	})
	a.Schemas = app.NewSchemaCatalog(remote.NewProcessors(a.Client), logger)

	sources := remote.NewSources(a.Client)
	a.Sessions = web.NewSessions(web.SessionDeps{
		Sources:   sources,
		Receivers: remote.NewReceivers(a.Client),
		Streams:   remote.NewStreams(a.Client),
		Schemas:   a.Schemas,
		Search:    a.searchOptions,
		IDs:       idgen.UUID{},
		TTL:       cfg.Session.TTL,
		Metrics:   a.Metrics,
		Logger:    logger,
	})

	handler, err := web.NewHandler(web.Deps{
		Auth:     remote.NewAuth(a.Client),
		Sessions: a.Sessions,
		Schemas:  a.Schemas,
		Settings: web.Settings{
			SecureCookie: cfg.Session.SecureCookie,
			Version:      opts.Version,
			PageSize:     func() int { return a.live.Load().Lists.PageSize },
			Meta:         func() map[string]string { return a.live.Load().Meta },
		},
		Metrics:        a.Metrics,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
	})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("init web: %w", err)
	}

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if holder != nil {
		holder.OnChange(a.apply)
		holder.ObserveReloads(a.Metrics.ObserveReload)
	}

	return a, nil
}

// loadConfig prefers a hot-reloadable file and falls back to the environment.
func loadConfig(path string) (*config.Config, *config.Holder, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			holder, err := config.NewHolder(path, zerolog.Nop())
			if err != nil {
				return nil, nil, err
			}
			return holder.Get(), holder, nil
		}
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	return a.live.Load()
}

// apply takes over the reloadable settings of a new configuration. Search
// timings reach sessions created after the change.
func (a *App) apply(cfg *config.Config) {
	a.live.Store(cfg)
	SetLogLevel(cfg.Logging.Level)
}

func (a *App) searchOptions() app.SearchOptions {
	s := a.live.Load().Search
	return app.SearchOptions{
		Debounce:  s.Debounce,
		PageSize:  s.PageSize,
		CacheSize: uint64(s.CacheSize),
		CacheTTL:  s.CacheTTL,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	a.Sessions.Start()

	if a.Holder != nil {
		a.Holder.SetLogger(a.Logger.With().Str("component", "config").Logger())
		if err := a.Holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.Holder.WatchSignals()
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	timeout := a.initial.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.Holder != nil {
		a.Holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Sessions != nil {
		a.Sessions.Stop()
	}

	a.Logger.Info().Msg("shutdown complete")

	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
	}
	return nil
}
