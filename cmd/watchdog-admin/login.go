package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/app"
	"github.com/feedwatchdog/admin/domain/validation"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open a command line session",
	Long: `Log in to the Feed Watchdog API and keep the session in the token
database. Missing credentials are prompted for.

Examples:
  watchdog-admin login
  watchdog-admin login --email=admin@example.com`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Close the command line session",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted when empty)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(loginEmail)
	password := loginPassword

	var err error
	if email == "" {
		if email, err = prompter.Input("Email:", validation.Required(), validation.Email()); err != nil {
			return err
		}
		email = strings.TrimSpace(email)
	}
	if password == "" {
		if password, err = prompter.Password("Password:", validation.Required()); err != nil {
			return err
		}
	}

	var fields validation.Fields
	fields.Add("email", email, validation.Required(), validation.Email())
	fields.Add("password", password, validation.Required())
	if errs := fields.Validate(); len(errs) > 0 {
		return errors.Join(asErrors(errs)...)
	}

	cli, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := cli.Auth.Login(context.Background(), email, password); err != nil {
		if remote.IsServerError(err) {
			return apiError(cli, "login", err)
		}
		return fmt.Errorf("login failed: %w", errors.Join(asErrors(app.NormalizeErrors(err))...))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in to %s as %s\n", checkMark, cli.Client.BaseURL(), email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cli, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := cli.Auth.Logout(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out of %s\n", checkMark, cli.Client.BaseURL())
	return nil
}
