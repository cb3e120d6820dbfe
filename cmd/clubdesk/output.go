package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// formatDate renders t as a calendar day in the display timezone.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(location).Format(time.DateOnly)
}
