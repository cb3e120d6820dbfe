package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alfredjeanlab/clubdesk/internal/mutation"
	"github.com/alfredjeanlab/clubdesk/internal/table"
)

func init() { ForceNoColor() }

func TestShouldUseColor_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "1")
	if ShouldUseColor() {
		t.Error("NO_COLOR must win over CLICOLOR_FORCE")
	}
}

func TestShouldUseColor_Force(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	if !ShouldUseColor() {
		t.Error("CLICOLOR_FORCE=1 should enable color")
	}
}

func TestTruncate(t *testing.T) {
	for _, tc := range []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer club name", 10, "a longe..."},
		{"Шахматный клуб", 8, "Шахма..."},
	} {
		if got := Truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestWriteTable_SortMarker(t *testing.T) {
	cols := []Column{{Header: "ID"}, {Header: "Name", Key: "name"}, {Header: "City", Key: "city"}}
	rows := [][]string{{"c-1", "Alpha", "Omsk"}, {"c-2", "Knights", "Kazan"}}
	q := table.NewQuery(10).WithSort("name", table.Descending)

	var buf bytes.Buffer
	if err := WriteTable(&buf, cols, rows, q); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "NAME v") {
		t.Errorf("header %q should mark descending name sort", lines[0])
	}
	if strings.Contains(lines[0], "CITY ^") || strings.Contains(lines[0], "CITY v") {
		t.Errorf("header %q marks an unsorted column", lines[0])
	}
	if !strings.HasPrefix(lines[2], "c-2") {
		t.Errorf("row order changed: %q", lines[2])
	}
}

func TestPageBar(t *testing.T) {
	v := table.View[int]{TotalItems: 95, TotalPages: 10, Page: 4, Window: table.PageWindow(4, 10)}
	want := "Page 4 of 10 (95 items)  1 2 3 [4] 5 6 ... 10"
	if got := PageBar(v); got != want {
		t.Errorf("PageBar = %q, want %q", got, want)
	}

	if got := PageBar(table.View[int]{TotalPages: 1, Page: 1}); got != "" {
		t.Errorf("empty view should render no bar, got %q", got)
	}

	single := table.View[int]{TotalItems: 1, TotalPages: 1, Page: 1, Window: table.PageWindow(1, 1)}
	if got := PageBar(single); got != "Page 1 of 1 (1 item)" {
		t.Errorf("PageBar(single) = %q", got)
	}
}

func TestOutcome(t *testing.T) {
	ev := mutation.Event{
		Kind:        mutation.EventRetrying,
		Name:        "club.delete",
		Target:      "c-1",
		Attempt:     2,
		MaxAttempts: 3,
		Message:     "server error: boom",
	}
	got := Outcome(ev)
	if !strings.Contains(got, "club.delete c-1: server error: boom") || !strings.Contains(got, "(attempt 2 of 3)") {
		t.Errorf("Outcome(retrying) = %q", got)
	}

	ev.Kind = mutation.EventSuccess
	if got := Outcome(ev); got != "✓ club.delete c-1" {
		t.Errorf("Outcome(success) = %q", got)
	}
}

func TestTypedConfirmation(t *testing.T) {
	var out bytes.Buffer
	got, err := TypedConfirmation(strings.NewReader("c-42\n"), &out, "Deleting club c-42", "c-42")
	if err != nil {
		t.Fatal(err)
	}
	if got != "c-42" {
		t.Errorf("typed = %q", got)
	}
	if !strings.Contains(out.String(), "Type c-42 to confirm") {
		t.Errorf("prompt = %q", out.String())
	}

	got, err = Prompt(strings.NewReader("no newline"), &out, "? ")
	if err != nil || got != "no newline" {
		t.Errorf("Prompt at EOF = %q, %v", got, err)
	}
	if _, err := Prompt(strings.NewReader(""), &out, "? "); err == nil {
		t.Error("expected error on empty input")
	}
}
