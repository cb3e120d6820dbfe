package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alfredjeanlab/clubdesk/internal/events"
	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/table"
	"github.com/alfredjeanlab/clubdesk/internal/testutil"
)

// fakeAPI is a minimal federation API for end-to-end command tests.
type fakeAPI struct {
	mu          sync.Mutex
	clubs       []model.Club
	tournaments []model.Tournament
	deletes     int
	failDeletes int // 500s returned before a delete succeeds
	lastQuery   url.Values
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /v1/clubs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]any{"clubs": f.clubs})
	})
	mux.HandleFunc("DELETE /v1/clubs/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deletes++
		if f.failDeletes > 0 {
			f.failDeletes--
			writeTestJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error", "message": "database timeout"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /v1/tournaments", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastQuery = r.URL.Query()
		writeTestJSON(w, http.StatusOK, map[string]any{"tournaments": f.tournaments, "total": len(f.tournaments)})
	})
	return mux
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// resetFlags restores every flag to its default so runs do not leak into
// each other through cobra's package-level commands.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command against api with a fast retry policy.
func runCLI(t *testing.T, api *fakeAPI, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	dir := t.TempDir()
	t.Setenv("CLUBDESK_REMOTES", filepath.Join(dir, "remotes.toml"))
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[retry]\ndelay = \"1ms\"\n\n[fetch]\nretry_max = 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	full := []string{"--config", cfgPath}
	if api != nil {
		srv := httptest.NewServer(api.handler())
		t.Cleanup(srv.Close)
		full = append(full, "--server", srv.URL)
	}
	full = append(full, args...)

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(full)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func twoClubs() []model.Club {
	return []model.Club{
		testutil.NewClub("c-1", testutil.ClubName("Alpha Chess"), func(c *model.Club) { c.Members = 12 }),
		testutil.NewClub("c-2", testutil.ClubName("Beta Knights"), testutil.ClubCity("Gomel"), func(c *model.Club) { c.Members = 40 }),
		testutil.NewClub("c-3", testutil.ClubName("Gamma"), testutil.ClubStatus(model.StatusApproved)),
	}
}

func TestParseFilterArgs(t *testing.T) {
	got, err := parseFilterArgs([]string{"status=PENDING", "city=Minsk,Gomel", "created_from=2024-01-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["status"] != "PENDING" || got["city"] != "Minsk,Gomel" || got["created_from"] != "2024-01-01" {
		t.Fatalf("unexpected filters %v", got)
	}

	for _, bad := range [][]string{{"status"}, {"=x"}, {"city=Minsk", "city=Gomel"}} {
		if _, err := parseFilterArgs(bad); err == nil {
			t.Errorf("parseFilterArgs(%q): expected an error", bad)
		}
	}
}

func TestParseSort(t *testing.T) {
	for _, tc := range []struct {
		in   string
		key  string
		desc bool
	}{
		{"name", "name", false},
		{"-members", "members", true},
		{"+created", "created", false},
	} {
		key, dir := parseSort(tc.in)
		if key != tc.key || (dir == table.Descending) != tc.desc {
			t.Errorf("parseSort(%q) = %q, %v", tc.in, key, dir)
		}
	}
}

func TestListOptionsQuery(t *testing.T) {
	schema, err := model.ClubSchema(nil)
	if err != nil {
		t.Fatal(err)
	}
	o := listOptions{
		search:  "chess",
		filters: []string{"city=Minsk,Gomel", "created_to=2024-02-01"},
		sort:    "-members",
		page:    3,
	}
	q, err := o.query(schema.Descriptors(nil), 25)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if q.Page != 3 || q.PageSize != 25 || q.Search != "chess" {
		t.Fatalf("unexpected query %+v", q)
	}
	if q.SortKey != "members" || q.SortDir != table.Descending {
		t.Fatalf("unexpected sort %q %v", q.SortKey, q.SortDir)
	}
	if got := q.Filters["city"].List; len(got) != 2 || got[0] != "Minsk" || got[1] != "Gomel" {
		t.Fatalf("unexpected city filter %v", got)
	}
	if q.Filters["created"].To.IsZero() {
		t.Fatal("expected created_to to populate the range")
	}

	o.filters = []string{"colour=red"}
	if _, err := o.query(schema.Descriptors(nil), 25); err == nil {
		t.Fatal("expected an unknown filter key to be rejected")
	}
}

func TestClubsList(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	out, _, err := runCLI(t, api, "clubs", "list", "--filter", "status=PENDING", "--sort", "-members", "--page-size", "1")
	if err != nil {
		t.Fatalf("clubs list: %v", err)
	}
	if !strings.Contains(out, "MEMBERS v") {
		t.Errorf("expected the sorted column to be marked, got:\n%s", out)
	}
	if !strings.Contains(out, "Beta Knights") || strings.Contains(out, "Alpha Chess") {
		t.Errorf("expected only the largest pending club on page 1, got:\n%s", out)
	}
	if !strings.Contains(out, "Page 1 of 2 (2 items)") {
		t.Errorf("expected a page bar, got:\n%s", out)
	}
}

func TestClubsList_NoMatches(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	out, _, err := runCLI(t, api, "clubs", "list", "--search", "zzz")
	if err != nil {
		t.Fatalf("clubs list: %v", err)
	}
	if strings.TrimSpace(out) != "No clubs match." {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestClubsList_PastLastPage(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	out, _, err := runCLI(t, api, "clubs", "list", "--page", "9")
	if err != nil {
		t.Fatalf("clubs list: %v", err)
	}
	if !strings.Contains(out, "Page 9 is past the end") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestClubsList_JSON(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	out, _, err := runCLI(t, api, "--json", "clubs", "list", "--filter", "city=Gomel")
	if err != nil {
		t.Fatalf("clubs list: %v", err)
	}
	var v table.View[model.Club]
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if v.TotalItems != 1 || len(v.Items) != 1 || v.Items[0].ID != "c-2" {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestClubsList_UnknownSortKey(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	if _, _, err := runCLI(t, api, "clubs", "list", "--sort", "colour"); err == nil {
		t.Fatal("expected an unknown sort key to fail")
	}
}

func TestClubsList_Export(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	dest := filepath.Join(t.TempDir(), "clubs.jsonl")
	_, stderr, err := runCLI(t, api, "clubs", "list", "--filter", "status=PENDING", "--sort", "name", "--page-size", "1", "--export", dest)
	if err != nil {
		t.Fatalf("clubs list --export: %v", err)
	}
	if !strings.Contains(stderr, "Exported 2 clubs") {
		t.Errorf("expected an export summary, got %q", stderr)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("bad JSONL line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}
	// Header plus every matching club, not just page 1.
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0]["count"] != float64(2) || lines[0]["sort"] != "name asc" {
		t.Errorf("unexpected header %v", lines[0])
	}
	first := lines[1]["data"].(map[string]any)
	if first["id"] != "c-1" {
		t.Errorf("expected Alpha Chess first, got %v", first)
	}
}

func TestClubsDelete_RequiresConfirmation(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	if _, _, err := runCLI(t, api, "clubs", "delete", "c-1", "--confirm", "c-2"); err == nil {
		t.Fatal("expected a mistyped confirmation to fail")
	}
	if api.deletes != 0 {
		t.Fatalf("expected no DELETE request, got %d", api.deletes)
	}
}

func TestClubsDelete_RetriesServerErrors(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs(), failDeletes: 1}
	_, stderr, err := runCLI(t, api, "clubs", "delete", "c-1", "--confirm", "c-1")
	if err != nil {
		t.Fatalf("clubs delete: %v\n%s", err, stderr)
	}
	if api.deletes != 2 {
		t.Fatalf("expected 2 DELETE requests, got %d", api.deletes)
	}
	if !strings.Contains(stderr, "attempt 2 of 3") || !strings.Contains(stderr, "✓ club.delete c-1") {
		t.Fatalf("expected retry progress and success, got:\n%s", stderr)
	}
}

func TestClubsDelete_GivesUp(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs(), failDeletes: 10}
	out, stderr, err := runCLI(t, api, "--json", "clubs", "delete", "c-1", "--confirm", "c-1")
	if err == nil {
		t.Fatal("expected the delete to fail")
	}
	if api.deletes != 3 {
		t.Fatalf("expected 3 attempts, got %d", api.deletes)
	}
	if !strings.Contains(stderr, "✗ club.delete c-1") {
		t.Errorf("expected a failure line, got:\n%s", stderr)
	}
	var res mutationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding result: %v\n%s", err, out)
	}
	if res.State != "failed-terminal" || res.Category != "transient_server" || res.Attempts != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClubsReject_NeedsReason(t *testing.T) {
	api := &fakeAPI{clubs: twoClubs()}
	_, stderr, err := runCLI(t, api, "clubs", "reject", "c-1")
	if err == nil {
		t.Fatal("expected a missing reason to fail")
	}
	if !strings.Contains(stderr, "✗ club.reject c-1") {
		t.Fatalf("expected a failure line, got:\n%s", stderr)
	}
}

func TestTournamentsList_ForwardsQuery(t *testing.T) {
	api := &fakeAPI{tournaments: []model.Tournament{testutil.NewTournament("t-1", testutil.TournamentType(model.TypeRapid))}}
	out, _, err := runCLI(t, api, "tournaments", "list",
		"--filter", "type=RAPID,BLITZ", "--filter", "start_from=2024-01-01",
		"--sort", "-start", "--page-size", "5")
	if err != nil {
		t.Fatalf("tournaments list: %v", err)
	}
	q := api.lastQuery
	if q.Get("type") != "RAPID,BLITZ" || q.Get("start_from") != "2024-01-01" || q.Get("sort") != "-start" || q.Get("page_size") != "5" {
		t.Fatalf("unexpected server query %v", q)
	}
	if !strings.Contains(out, "Tournament t-1") || !strings.Contains(out, "START v") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestHealth(t *testing.T) {
	out, _, err := runCLI(t, &fakeAPI{}, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if strings.TrimSpace(out) != "Health: ok" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRemoteCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remotes.toml")
	run := func(args ...string) (string, error) {
		t.Helper()
		t.Setenv("CLUBDESK_REMOTES", path)
		resetFlags(rootCmd)
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(args)
		err := rootCmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	if _, err := run("remote", "add", "prod", "https://clubs.example.org", "--token", "tok_0123456789"); err != nil {
		t.Fatalf("remote add: %v", err)
	}
	if _, err := run("remote", "add", "local", "http://localhost:8080"); err != nil {
		t.Fatalf("remote add: %v", err)
	}
	out, err := run("remote", "list")
	if err != nil {
		t.Fatalf("remote list: %v", err)
	}
	if !strings.Contains(out, "* prod") || !strings.Contains(out, "tok_0123**") || strings.Contains(out, "tok_0123456789") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	if _, err := run("remote", "use", "missing"); err == nil {
		t.Fatal("expected using an unknown remote to fail")
	}
	if _, err := run("remote", "use", "local"); err != nil {
		t.Fatalf("remote use: %v", err)
	}
	if _, err := run("remote", "remove", "local"); err != nil {
		t.Fatalf("remote remove: %v", err)
	}
	out, _ = run("remote", "list")
	if strings.Contains(out, "local") || strings.Contains(out, "* prod") {
		t.Fatalf("expected local removed and no active remote, got:\n%s", out)
	}
}

func TestDescribeEvent(t *testing.T) {
	for _, tc := range []struct {
		topic, data, want string
	}{
		{"clubdesk.club.rejected", `{"club":{"id":"c-1","name":"Alpha","status":"REJECTED"},"reason":"no venue"}`, `club c-1 "Alpha" is REJECTED: no venue`},
		{"clubdesk.user.deleted", `{"kind":"user","id":"u-4"}`, "user u-4 deleted"},
		{"clubdesk.mutation.retrying", `{"name":"club.delete","target":"c-1","kind":"retrying","attempt":2,"max_attempts":3,"message":"server error"}`, "club.delete c-1: attempt 2 of 3 (server error)"},
		{"clubdesk.mutation.succeeded", `{"name":"club.approve","target":"c-2","kind":"success","attempt":1}`, "club.approve c-2: success"},
		{"clubdesk.other", `{"x":1}`, `{"x":1}`},
	} {
		got := describeEvent(events.Message{Topic: tc.topic, Data: []byte(tc.data)})
		if got != tc.want {
			t.Errorf("describeEvent(%s) = %q, want %q", tc.topic, got, tc.want)
		}
	}
}
