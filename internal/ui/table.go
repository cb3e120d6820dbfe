package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/clubdesk/internal/mutation"
	"github.com/alfredjeanlab/clubdesk/internal/table"
)

// Column is one rendered table column.
type Column struct {
	Header string
	Key    string // sort key, empty when the column is not sortable
}

// Truncate shortens s to n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// WriteTable renders rows under cols, marking the column q is sorted by.
func WriteTable(w io.Writer, cols []Column, rows [][]string, q table.Query) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(cols))
	for i, c := range cols {
		h := strings.ToUpper(c.Header)
		if c.Key != "" && c.Key == q.SortKey {
			if q.SortDir == table.Descending {
				h += " v"
			} else {
				h += " ^"
			}
		}
		headers[i] = h
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// PageBar describes the page position of v, e.g.
//
//	Page 4 of 10 (95 items)  1 ... 3 [4] 5 ... 10
//
// It returns "" when the view is empty.
func PageBar[T any](v table.View[T]) string {
	if v.Hidden() {
		return ""
	}
	noun := "items"
	if v.TotalItems == 1 {
		noun = "item"
	}
	bar := fmt.Sprintf("Page %d of %d (%d %s)", v.Page, v.TotalPages, v.TotalItems, noun)
	if v.TotalPages > 1 {
		bar += "  " + table.FormatWindow(v.Window, v.Page)
	}
	return RenderMuted(bar)
}

// Outcome renders a mutation event as one status line.
func Outcome(ev mutation.Event) string {
	subject := ev.Name
	if ev.Target != "" {
		subject += " " + ev.Target
	}
	switch ev.Kind {
	case mutation.EventSuccess:
		return RenderSuccess("✓") + " " + subject
	case mutation.EventRetrying:
		return RenderWarn("↻") + " " + subject + ": " + ev.Message + RenderMuted(fmt.Sprintf(" (attempt %d of %d)", ev.Attempt, ev.MaxAttempts))
	default:
		return RenderFail("✗") + " " + subject + ": " + ev.Message
	}
}
