package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/clubdesk/internal/export"
	"github.com/alfredjeanlab/clubdesk/internal/screen"
	"github.com/alfredjeanlab/clubdesk/internal/table"
	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

// listOptions are the query flags shared by every list command.
type listOptions struct {
	search   string
	filters  []string
	sort     string
	page     int
	pageSize int
	export   string
}

func (o *listOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.search, "search", "s", "", "case-insensitive text search")
	f.StringArrayVarP(&o.filters, "filter", "f", nil, "filter as key=value; lists are comma separated, date ranges use key_from/key_to")
	f.StringVar(&o.sort, "sort", "", "sort key, prefixed with - for descending")
	f.IntVarP(&o.page, "page", "p", 1, "page number")
	f.IntVar(&o.pageSize, "page-size", 0, "rows per page (default table.page_size)")
	f.StringVar(&o.export, "export", "", "write every matching row as JSONL to a file, s3://bucket/key, or - for stdout")
}

// query assembles the table query the flags describe.
func (o *listOptions) query(descs []table.Descriptor, defaultSize int) (table.Query, error) {
	raw, err := parseFilterArgs(o.filters)
	if err != nil {
		return table.Query{}, err
	}
	filters, err := table.ParseFilters(descs, raw, location)
	if err != nil {
		return table.Query{}, err
	}
	size := o.pageSize
	if size < 1 {
		size = defaultSize
	}
	q := table.NewQuery(size).WithSearch(o.search).WithFilters(filters)
	if o.sort != "" {
		key, dir := parseSort(o.sort)
		q = q.WithSort(key, dir)
	}
	return q.WithPage(o.page), nil
}

// parseFilterArgs splits repeated key=value flags. A key may appear once.
func parseFilterArgs(args []string) (map[string]string, error) {
	raw := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", arg)
		}
		if _, dup := raw[key]; dup {
			return nil, fmt.Errorf("filter %q given more than once; use a comma separated list", key)
		}
		raw[key] = value
	}
	return raw, nil
}

// parseSort reads "key" as ascending and "-key" as descending.
func parseSort(s string) (string, table.Direction) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		return rest, table.Descending
	}
	return strings.TrimPrefix(s, "+"), table.Ascending
}

// tableLayout renders one entity kind.
type tableLayout[T any] struct {
	noun    string
	columns []ui.Column
	row     func(T) []string
}

// runList installs the flag query on s and prints one page, or exports every
// matching row when --export is set.
func runList[T any](cmd *cobra.Command, s *screen.Screen[T], opts *listOptions, layout tableLayout[T]) error {
	q, err := opts.query(s.Descriptors(), cfg.PageSize)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	v, err := s.Apply(ctx, q)
	if err != nil {
		return fmt.Errorf("listing %s: %w", layout.noun, err)
	}
	if opts.export != "" {
		return exportTable(cmd, s, opts.export)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, v)
	}
	if v.Hidden() {
		fmt.Fprintf(out, "No %s match.\n", layout.noun)
		return nil
	}
	if len(v.Items) == 0 {
		fmt.Fprintf(out, "Page %d is past the end; %s has %d page(s).\n", v.Page, layout.noun, v.TotalPages)
		return nil
	}

	rows := make([][]string, len(v.Items))
	for i, item := range v.Items {
		rows[i] = layout.row(item)
	}
	if err := ui.WriteTable(out, layout.columns, rows, s.Query()); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.PageBar(v))
	return nil
}

// exportTable writes the full filtered and sorted result to dest.
func exportTable[T any](cmd *cobra.Command, s *screen.Screen[T], dest string) error {
	ctx := cmd.Context()
	d, err := export.ParseDestination(ctx, dest, export.S3Options{
		Region:   cfg.ExportS3Region,
		Endpoint: cfg.ExportS3Endpoint,
	})
	if err != nil {
		return err
	}
	items, err := s.All(ctx)
	if err != nil {
		return err
	}

	q := s.Query()
	meta := export.Meta{
		Table:   s.Name(),
		Search:  q.Search,
		Filters: table.FormatFilters(s.Descriptors(), q.Filters),
	}
	if q.SortKey != "" {
		meta.Sort = q.SortKey + " " + q.SortDir.String()
	}
	h, err := export.Export(ctx, d, meta, items)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s Exported %d %s to %s (%s)\n",
		ui.RenderSuccess("✓"), h.Count, s.Name(), d, h.ID)
	return nil
}
