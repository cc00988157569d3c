package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/bootstrap"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "watchdog-admin",
	Short: "Administration for Feed Watchdog sources, receivers and streams",
	Long: `watchdog-admin manages a Feed Watchdog server.

It runs the web admin, or talks to the REST API directly from the
command line. Sessions are kept in a local token database between runs.

Quick start:
  watchdog-admin serve           # Start the web admin
  watchdog-admin login           # Open a command line session

Management:
  watchdog-admin sources         # Manage sources
  watchdog-admin receivers       # Manage receivers
  watchdog-admin streams         # Manage streams
  watchdog-admin schemas         # Show processor option schemas
  watchdog-admin validate        # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "watchdog-admin.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

// errSessionExpired replaces remote.ErrSessionExpired in command output.
var errSessionExpired = errors.New("session expired, run `watchdog-admin login`")

// openCLI loads configuration and the token database. Logs go to the
// command's error stream.
func openCLI(cmd *cobra.Command) (*bootstrap.CLI, error) {
	return bootstrap.NewCLI(cfgFile, cmd.ErrOrStderr())
}

// apiError turns a failed API call into the error a command returns.
// Server failures go through the process chrome so they read the same way
// the web admin's dialog does.
func apiError(cli *bootstrap.CLI, action string, err error) error {
	if errors.Is(err, remote.ErrSessionExpired) {
		return errSessionExpired
	}
	if cli.Chrome.Escalate(err) {
		d := cli.Chrome.Dialog.Snapshot()
		cli.Chrome.Dialog.Close()
		return fmt.Errorf("%s: %s: %s", action, d.Title, d.Text)
	}
	return fmt.Errorf("%s: %w", action, err)
}
