package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/feedwatchdog/admin/domain/resource"
	"gopkg.in/yaml.v3"
)

// record is one resource flattened for output. Keys keeps the column order
// of the table format.
type record struct {
	keys   []string
	values map[string]any
}

func newRecord() *record {
	return &record{values: make(map[string]any)}
}

func (r *record) set(key string, value any) *record {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

// text renders a value for the table format.
func (r *record) text(key string) string {
	switch v := r.values[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case map[string]any, []any:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// printer writes records as a table, JSON or YAML.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "table", "json", "yaml":
		return &printer{w: w, format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// list prints a page of records. columns selects the table columns; the
// structured formats always carry every field.
func (p *printer) list(records []*record, columns []string, list pageInfo) error {
	switch p.format {
	case "json":
		return p.json(listDoc(records, list))
	case "yaml":
		return p.yaml(listDoc(records, list))
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	header := make([]string, len(columns))
	rule := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
		rule[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	fmt.Fprintln(w, strings.Join(rule, "\t"))
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = r.text(c)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(p.w, "\nPage %d of %d (%d total)\n", list.Page, max(list.Pages, 1), list.Count)
	return nil
}

// record prints a single record.
func (p *printer) record(r *record) error {
	switch p.format {
	case "json":
		return p.json(r.values)
	case "yaml":
		return p.yaml(r.values)
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, k := range r.keys {
		fmt.Fprintf(w, "%s:\t%s\n", k, r.text(k))
	}
	return w.Flush()
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type pageInfo struct {
	Count int
	Page  int
	Pages int
}

func pageOf[T any](l resource.List[T]) pageInfo {
	return pageInfo{Count: l.Count, Page: l.Page, Pages: l.Pages}
}

func listDoc(records []*record, list pageInfo) map[string]any {
	results := make([]map[string]any, len(records))
	for i, r := range records {
		results[i] = r.values
	}
	return map[string]any{
		"count":   list.Count,
		"page":    list.Page,
		"pages":   list.Pages,
		"results": results,
	}
}

// options keeps JSON options text structured in JSON and YAML output.
// Text that does not parse is kept as a string.
func options(text string) any {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	return v
}

func asErrors(errs []resource.ValidationError) []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}
