package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/feedwatchdog/admin/adapters/sqlite"
	"github.com/feedwatchdog/admin/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the watchdog-admin configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - REST API is reachable (optional)
  - Token database is writable (optional)

Examples:
  watchdog-admin validate
  watchdog-admin validate --config /etc/watchdog/admin.yaml`,
	RunE: runValidate,
}

var (
	validateCheckAPI      bool
	validateCheckDatabase bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckAPI, "check-api", false, "check if the REST API is reachable")
	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if the token database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)

	// Show config summary
	fmt.Fprintf(out, "  %s API: %s\n", checkMark, cfg.API.BaseURL)
	fmt.Fprintf(out, "  %s Web admin: %s\n", checkMark, cfg.Server.Addr())
	fmt.Fprintf(out, "  %s Token database: %s\n", checkMark, cfg.Storage.DSN)
	fmt.Fprintf(out, "  %s Page size: %d\n", checkMark, cfg.Lists.PageSize)
	fmt.Fprintf(out, "      Reloaded live: %s\n", strings.Join(config.ReloadableFields(), ", "))
	fmt.Fprintf(out, "      Need restart:  %s\n", strings.Join(config.NonReloadableFields(), ", "))

	if validateCheckAPI {
		if err := checkAPIReachable(cfg.API.BaseURL); err != nil {
			fmt.Fprintf(out, "  %s API reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s API reachable\n", checkMark)
		}
	}

	if validateCheckDatabase {
		if err := checkDatabaseWritable(cfg.Storage.DSN); err != nil {
			fmt.Fprintf(out, "  %s Token database writable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Token database writable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

// checkAPIReachable treats any HTTP answer as reachable; only transport
// failures count.
func checkAPIReachable(baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func checkDatabaseWritable(dsn string) error {
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Migrate()
}
