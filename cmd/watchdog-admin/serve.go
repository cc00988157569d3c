package main

import (
	"github.com/feedwatchdog/admin/bootstrap"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web admin",
	Long: `Start the Feed Watchdog web admin.

The server will:
  - Load configuration from watchdog-admin.yaml (or --config)
  - Or load configuration from WATCHDOG_* environment variables
  - Serve the admin pages, proxying every change to the REST API
  - Reload log level, page size and search timings when the file changes

Environment variables (for Docker deployments):
  WATCHDOG_API_URL          - REST API base URL (required)
  WATCHDOG_SERVER_PORT      - Server port (default: 8090)
  WATCHDOG_LOG_LEVEL        - Log level: debug, info, warn, error
  WATCHDOG_METRICS_ENABLED  - Expose Prometheus metrics

Examples:
  watchdog-admin serve
  watchdog-admin serve --config /etc/watchdog/admin.yaml

  # Docker (env vars only):
  WATCHDOG_API_URL=https://watchdog.example.com/api watchdog-admin serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	})
	if err != nil {
		return err
	}

	// Run (blocks until shutdown)
	return a.Run()
}
