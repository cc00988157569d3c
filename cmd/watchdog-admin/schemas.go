package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/spf13/cobra"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas <handler> [type]",
	Short: "Show processor option schemas",
	Long: `Show the option forms published by the API.

Handlers: fetchers, parsers, receivers, modifiers.

Examples:
  watchdog-admin schemas fetchers        # list fetcher types
  watchdog-admin schemas fetchers rss    # list the options of one type`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: remote.Handlers,
	RunE:      runSchemas,
}

func init() {
	rootCmd.AddCommand(schemasCmd)
}

func runSchemas(cmd *cobra.Command, args []string) error {
	out, err := newPrinter(cmd.OutOrStdout(), outputFormat)
	if err != nil {
		return err
	}

	cli, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer cli.Close()

	ctx := context.Background()
	handler := args[0]
	table, err := cli.Schemas.Table(ctx, handler)
	if err != nil {
		return apiError(cli, "load schemas", err)
	}

	if len(args) == 1 {
		records := make([]*record, 0, table.Len())
		for _, typ := range table.Types() {
			v, _ := table.Variant(typ)
			records = append(records, newRecord().
				set("type", v.Type).
				set("title", v.Title).
				set("fields", len(v.Fields)))
		}
		n := len(records)
		return out.list(records, []string{"type", "title", "fields"}, pageInfo{Count: n, Page: 1, Pages: 1})
	}

	v, ok := table.Variant(args[1])
	if !ok {
		return fmt.Errorf("unknown %s type %q (known: %s)", handler, args[1], strings.Join(table.Types(), ", "))
	}
	records := make([]*record, len(v.Fields))
	for i, f := range v.Fields {
		records[i] = newRecord().
			set("name", f.Name).
			set("kind", string(f.Kind)).
			set("required", f.Required).
			set("default", f.Default).
			set("enum", f.Enum).
			set("help", f.Help)
	}
	n := len(records)
	return out.list(records, []string{"name", "kind", "required", "default", "enum"}, pageInfo{Count: n, Page: 1, Pages: 1})
}
