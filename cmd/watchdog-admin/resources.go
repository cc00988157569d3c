package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/feedwatchdog/admin/adapters/remote"
	"github.com/feedwatchdog/admin/bootstrap"
	"github.com/feedwatchdog/admin/domain/resource"
	"github.com/feedwatchdog/admin/ports"
	"github.com/spf13/cobra"
)

// resourceCommand builds the list, get and delete commands of one kind.
type resourceCommand[T any] struct {
	kind     resource.Kind
	singular string
	api      func(*bootstrap.CLI) ports.ResourceAPI[T]
	record   func(T) *record
	columns  []string
}

func init() {
	rootCmd.AddCommand(resourceCommand[resource.Source]{
		kind:     resource.KindSources,
		singular: "source",
		api:      func(c *bootstrap.CLI) ports.ResourceAPI[resource.Source] { return c.Sources },
		record:   sourceRecord,
		columns:  []string{"slug", "name", "fetcher_type", "parser_type", "tags"},
	}.command())

	rootCmd.AddCommand(resourceCommand[resource.Receiver]{
		kind:     resource.KindReceivers,
		singular: "receiver",
		api:      func(c *bootstrap.CLI) ports.ResourceAPI[resource.Receiver] { return c.Receivers },
		record:   receiverRecord,
		columns:  []string{"slug", "name", "type"},
	}.command())

	rootCmd.AddCommand(resourceCommand[resource.Stream]{
		kind:     resource.KindStreams,
		singular: "stream",
		api:      func(c *bootstrap.CLI) ports.ResourceAPI[resource.Stream] { return c.Streams },
		record:   streamRecord,
		columns:  []string{"slug", "source", "receiver", "intervals", "active"},
	}.command())
}

func (rc resourceCommand[T]) command() *cobra.Command {
	title := strings.ToLower(rc.kind.Title())
	parent := &cobra.Command{
		Use:   string(rc.kind),
		Short: "Manage " + title,
	}

	var (
		query    string
		page     int
		pageSize int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List " + title,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.list(cmd, ports.ListParams{Query: query, Page: page, PageSize: pageSize})
		},
	}
	listCmd.Flags().StringVarP(&query, "query", "q", "", "search text")
	listCmd.Flags().IntVar(&page, "page", 1, "page number")
	listCmd.Flags().IntVar(&pageSize, "page-size", 0, "results per page (default from config)")

	getCmd := &cobra.Command{
		Use:   "get <slug>",
		Short: "Show a " + rc.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.get(cmd, args[0])
		},
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a " + rc.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.delete(cmd, args[0], yes)
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	parent.AddCommand(listCmd, getCmd, deleteCmd)
	return parent
}

func (rc resourceCommand[T]) list(cmd *cobra.Command, p ports.ListParams) error {
	out, err := newPrinter(cmd.OutOrStdout(), outputFormat)
	if err != nil {
		return err
	}

	cli, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer cli.Close()

	if p.PageSize <= 0 {
		p.PageSize = cli.Config.Lists.PageSize
	}

	list, err := rc.api(cli).List(context.Background(), p)
	if err != nil {
		return apiError(cli, "list "+string(rc.kind), err)
	}

	if len(list.Results) == 0 && outputFormat == "table" {
		fmt.Fprintf(cmd.OutOrStdout(), "No %s found.\n", rc.kind)
		return nil
	}

	records := make([]*record, len(list.Results))
	for i, item := range list.Results {
		records[i] = rc.record(item)
	}
	return out.list(records, rc.columns, pageOf(list))
}

func (rc resourceCommand[T]) get(cmd *cobra.Command, slug string) error {
	out, err := newPrinter(cmd.OutOrStdout(), outputFormat)
	if err != nil {
		return err
	}

	cli, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer cli.Close()

	item, err := rc.api(cli).Get(context.Background(), slug)
	if remote.IsNotFound(err) {
		return fmt.Errorf("%s not found: %s", rc.singular, slug)
	}
	if err != nil {
		return apiError(cli, "get "+rc.singular, err)
	}
	return out.record(rc.record(item))
}

func (rc resourceCommand[T]) delete(cmd *cobra.Command, slug string, yes bool) error {
	if !yes {
		ok, err := prompter.Confirm(fmt.Sprintf("Delete %s %q?", rc.singular, slug))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	cli, err := openCLI(cmd)
	if err != nil {
		return err
	}
	defer cli.Close()

	err = rc.api(cli).Delete(context.Background(), slug)
	if remote.IsNotFound(err) {
		return fmt.Errorf("%s not found: %s", rc.singular, slug)
	}
	if err != nil {
		return apiError(cli, "delete "+rc.singular, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s: %s\n", checkMark, rc.singular, slug)
	return nil
}

// -----------------------------------------------------------------------------
// Records
// -----------------------------------------------------------------------------

func sourceRecord(s resource.Source) *record {
	return newRecord().
		set("slug", s.Slug).
		set("name", s.Name).
		set("fetcher_type", s.FetcherType).
		set("fetcher_options", options(s.FetcherOptions)).
		set("parser_type", s.ParserType).
		set("parser_options", options(s.ParserOptions)).
		set("description", s.Description).
		set("tags", s.Tags)
}

func receiverRecord(r resource.Receiver) *record {
	return newRecord().
		set("slug", r.Slug).
		set("name", r.Name).
		set("type", r.Type).
		set("options", options(r.Options)).
		set("options_allowed_to_override", r.OptionsAllowedToOverride)
}

func streamRecord(s resource.Stream) *record {
	modifiers := make([]any, len(s.Modifiers))
	for i, m := range s.Modifiers {
		modifiers[i] = map[string]any{"type": m.Type, "options": options(m.Options)}
	}
	return newRecord().
		set("slug", s.Slug).
		set("source", s.SourceSlug).
		set("receiver", s.ReceiverSlug).
		set("intervals", s.Intervals).
		set("squash", s.Squash).
		set("active", s.Active).
		set("message_template", s.MessageTemplate).
		set("receiver_options_override", options(s.ReceiverOptionsOverride)).
		set("modifiers", modifiers)
}
