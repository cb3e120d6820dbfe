package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/mutation"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	rawPath     string // URL-encoded path (for testing PathEscape)
	query       string
	body        string
	contentType string
	auth        string
	calls       atomic.Int32

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls.Add(1)
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, Options{Token: "s3cret"})
	return c, srv
}

// --- Clubs ---

func TestHTTPClient_ListClubs(t *testing.T) {
	h := &testHandler{
		responseBody: `{"clubs": [
			{"id": "c-1", "name": "Alpha Club", "city": "Omsk", "status": "PENDING", "members": 12, "created_at": "2025-06-28T23:00:00Z"},
			{"id": "c-2", "name": "Knights", "city": "Kazan", "status": "APPROVED", "members": 40, "created_at": "2025-01-02T10:00:00Z"}
		]}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	clubs, err := c.ListClubs(context.Background())
	if err != nil {
		t.Fatalf("ListClubs() error = %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/clubs" {
		t.Errorf("request = %s %s, want GET /v1/clubs", h.method, h.path)
	}
	if h.auth != "Bearer s3cret" {
		t.Errorf("Authorization = %q, want %q", h.auth, "Bearer s3cret")
	}
	if len(clubs) != 2 {
		t.Fatalf("len(clubs) = %d, want 2", len(clubs))
	}
	if clubs[0].Status != model.StatusPending {
		t.Errorf("clubs[0].Status = %q, want PENDING", clubs[0].Status)
	}
	want := time.Date(2025, 6, 28, 23, 0, 0, 0, time.UTC)
	if !clubs[0].CreatedAt.Equal(want) {
		t.Errorf("clubs[0].CreatedAt = %v, want %v", clubs[0].CreatedAt, want)
	}
}

func TestHTTPClient_ApproveClub(t *testing.T) {
	h := &testHandler{responseBody: `{"id": "c-1", "name": "Alpha Club", "status": "APPROVED"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	club, err := c.ApproveClub(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("ApproveClub() error = %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/clubs/c-1/approve" {
		t.Errorf("request = %s %s, want POST /v1/clubs/c-1/approve", h.method, h.path)
	}
	if club.Status != model.StatusApproved {
		t.Errorf("club.Status = %q, want APPROVED", club.Status)
	}
}

func TestHTTPClient_RejectClub(t *testing.T) {
	h := &testHandler{responseBody: `{"id": "c-1", "status": "REJECTED", "reject_reason": "duplicate"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	club, err := c.RejectClub(context.Background(), "c-1", "duplicate")
	if err != nil {
		t.Fatalf("RejectClub() error = %v", err)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", h.contentType)
	}
	var body RejectClubRequest
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if body.Reason != "duplicate" {
		t.Errorf("reason = %q, want %q", body.Reason, "duplicate")
	}
	if club.RejectReason != "duplicate" {
		t.Errorf("club.RejectReason = %q, want %q", club.RejectReason, "duplicate")
	}
}

func TestHTTPClient_UpdateClub_OmitsUnsetFields(t *testing.T) {
	h := &testHandler{responseBody: `{"id": "c-1", "name": "Alpha"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	name := "Alpha"
	if _, err := c.UpdateClub(context.Background(), "c-1", model.ClubUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateClub() error = %v", err)
	}
	if h.method != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", h.method)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(h.body), &body); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if body["name"] != "Alpha" {
		t.Errorf("body name = %v, want Alpha", body["name"])
	}
	if _, ok := body["city"]; ok {
		t.Error("request body should not contain 'city' when unset")
	}
}

func TestHTTPClient_DeleteClub_PathEscape(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNoContent}
	c, srv := newTestClient(h)
	defer srv.Close()

	if err := c.DeleteClub(context.Background(), "c/1"); err != nil {
		t.Fatalf("DeleteClub() error = %v", err)
	}
	if h.method != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", h.method)
	}
	if h.rawPath != "/v1/clubs/c%2F1" {
		t.Errorf("rawPath = %q, want /v1/clubs/c%%2F1", h.rawPath)
	}
}

// --- Tournaments ---

func TestHTTPClient_ListTournaments_QueryParams(t *testing.T) {
	h := &testHandler{
		responseBody: `{"tournaments": [{"id": "t-11", "name": "Summer Open", "type": "RAPID", "status": "APPROVED", "start_date": "2025-06-28T09:00:00Z"}], "total": 11, "page": 2, "page_size": 10}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.ListTournaments(context.Background(), &ListTournamentsRequest{
		Search:    "open",
		Status:    "APPROVED",
		Type:      []string{"RAPID", "BLITZ"},
		StartFrom: "2025-06-01",
		StartTo:   "2025-06-30",
		Sort:      "-start",
		Page:      2,
		PageSize:  10,
	})
	if err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}

	q, _ := url.ParseQuery(h.query)
	want := map[string]string{
		"search":     "open",
		"status":     "APPROVED",
		"type":       "RAPID,BLITZ",
		"start_from": "2025-06-01",
		"start_to":   "2025-06-30",
		"sort":       "-start",
		"page":       "2",
		"page_size":  "10",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
	if resp.Total != 11 || len(resp.Tournaments) != 1 {
		t.Errorf("resp = total %d, %d items; want 11, 1", resp.Total, len(resp.Tournaments))
	}
	if resp.Tournaments[0].Type != model.TypeRapid {
		t.Errorf("type = %q, want RAPID", resp.Tournaments[0].Type)
	}
}

func TestHTTPClient_ListTournaments_NoParams(t *testing.T) {
	h := &testHandler{responseBody: `{"tournaments": [], "total": 0}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.ListTournaments(context.Background(), &ListTournamentsRequest{}); err != nil {
		t.Fatalf("ListTournaments() error = %v", err)
	}
	if h.query != "" {
		t.Errorf("query = %q, want empty", h.query)
	}
}

// --- Users ---

func TestHTTPClient_ListUsersAndDelete(t *testing.T) {
	h := &testHandler{responseBody: `{"users": [{"id": "u-1", "username": "anna", "role": "PLAYER", "rating": 1820}]}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Rating != 1820 {
		t.Errorf("users = %+v", users)
	}

	h.statusCode = http.StatusNoContent
	h.responseBody = ""
	if err := c.DeleteUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if h.path != "/v1/users/u-1" || h.method != http.MethodDelete {
		t.Errorf("request = %s %s, want DELETE /v1/users/u-1", h.method, h.path)
	}
}

// --- Errors ---

func TestHTTPClient_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		category mutation.Category
	}{
		{"message field", 500, `{"message": "database unavailable"}`, "database unavailable", mutation.CategoryTransientServer},
		{"error field", 404, `{"error": "club not found"}`, "club not found", mutation.CategoryNotFound},
		{"plain text", 403, `forbidden`, "forbidden", mutation.CategoryAuthorization},
		{"empty body", 401, ``, "Unauthorized", mutation.CategoryAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &testHandler{statusCode: tt.status, responseBody: tt.body}
			c, srv := newTestClient(h)
			defer srv.Close()

			err := c.DeleteClub(context.Background(), "c-1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if got := mutation.Classify(err); got != tt.category {
				t.Errorf("Classify = %q, want %q", got, tt.category)
			}
		})
	}
}

func TestHTTPClient_MutationsAreNotRetriedByTransport(t *testing.T) {
	h := &testHandler{statusCode: 500, responseBody: `{"message": "boom"}`}
	srv := httptest.NewServer(h)
	defer srv.Close()
	c := NewHTTPClient(srv.URL, Options{ReadRetries: 2})

	if err := c.DeleteUser(context.Background(), "u-1"); err == nil {
		t.Fatal("expected error")
	}
	if n := h.calls.Load(); n != 1 {
		t.Errorf("DELETE calls = %d, want 1", n)
	}
}

func TestHTTPClient_ReadsRetryTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"users": []}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, Options{ReadRetries: 2})
	if _, err := c.ListUsers(context.Background()); err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("GET calls = %d, want 2", n)
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewHTTPClient(base, Options{})
	err := c.DeleteClub(context.Background(), "c-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := mutation.Classify(err); got != mutation.CategoryNetworkUnreachable {
		t.Errorf("Classify = %q, want %q (err=%v)", got, mutation.CategoryNetworkUnreachable, err)
	}
}

func TestHTTPClient_RateLimit(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNoContent}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, Options{RatePerSecond: 20})
	start := time.Now()
	for range 3 {
		if err := c.Health(context.Background()); err != nil {
			t.Fatalf("Health() error = %v", err)
		}
	}
	// Burst of one, then 50ms per request.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("3 requests took %v, want >= 100ms of pacing", elapsed)
	}
}
