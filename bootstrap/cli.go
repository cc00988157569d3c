package bootstrap

import (
	"fmt"
	"io"

	"github.com/feedwatchdog/admin/adapters/clock"
	"github.com/feedwatchdog/admin/adapters/idgen"
	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/adapters/sqlite"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/config"
	"github.com/rs/zerolog"
)

// CLI holds what the command line client needs: the API surfaces and a
// token store that keeps the session between runs.
type CLI struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *sqlite.DB
	Tokens *sqlite.TokenStore

	Client     *remote.Client
	Auth       *remote.Auth
	Sources    *remote.Sources
	Receivers  *remote.Receivers
	Streams    *remote.Streams
	Processors *remote.Processors
	Schemas    *app.SchemaCatalog

	// Chrome collects server failures for the whole process.
	Chrome *app.Chrome

	logCloser io.Closer
}

// NewCLI loads configuration and opens the token database. Tokens are kept
// per API base URL, so one database serves several servers.
func NewCLI(configPath string, logOutput io.Writer) (*CLI, error) {
	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return nil, err
	}

	logger, closer, err := NewLogger(cfg.Logging, logOutput)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Storage.DSN)
	if err != nil {
		closer.Close()
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		closer.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Debug().Str("dsn", cfg.Storage.DSN).Msg("token database ready")

	tokens := sqlite.NewTokenStore(db, cfg.API.BaseURL)
	client := remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Headers: cfg.API.Headers,
		Tokens:  tokens,
		IDs:     idgen.Prefixed{Prefix: "cli_"},
		Clock:   clock.Real{},
		Logger:  logger.With().Str("component", "remote").Logger(),
	})
	processors := remote.NewProcessors(client)

	return &CLI{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Tokens:     tokens,
		Client:     client,
		Auth:       remote.NewAuth(client),
		Sources:    remote.NewSources(client),
		Receivers:  remote.NewReceivers(client),
		Streams:    remote.NewStreams(client),
		Processors: processors,
		Schemas:    app.NewSchemaCatalog(processors, logger),
		Chrome:     app.NewChrome(),
		logCloser:  closer,
	}, nil
}

// Close releases the database and the log file.
func (c *CLI) Close() error {
	if err := c.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return c.logCloser.Close()
}
