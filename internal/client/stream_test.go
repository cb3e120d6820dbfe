package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/events"
)

func TestReadStream(t *testing.T) {
	raw := ":keepalive\n\n" +
		"id:1\nevent:clubdesk.club.approved\ndata:{\"id\":\"c-1\"}\n\n" +
		"id:2\nevent:clubdesk.user.deleted\n\n" +
		"id:3\nevent:clubdesk.user.deleted\ndata:{\"id\":\"u-9\"}\n\n"

	ch := make(chan events.Message, 8)
	if err := readStream(context.Background(), strings.NewReader(raw), ch); err != nil {
		t.Fatalf("readStream: %v", err)
	}
	close(ch)

	var got []events.Message
	for m := range ch {
		got = append(got, m)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(got), got)
	}
	if got[0].Topic != events.TopicClubApproved || string(got[0].Data) != `{"id":"c-1"}` {
		t.Fatalf("unexpected first message %+v", got[0])
	}
	if got[1].Topic != events.TopicUserDeleted || string(got[1].Data) != `{"id":"u-9"}` {
		t.Fatalf("unexpected second message %+v", got[1])
	}
}

func TestHTTPClient_StreamEvents(t *testing.T) {
	var query, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("topics")
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "id:1\nevent:clubdesk.club.deleted\ndata:{\"kind\":\"club\",\"id\":\"c-1\"}\n\n")
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, Options{Token: "tok"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := c.StreamEvents(ctx, []string{"clubdesk.club.*", "clubdesk.user.*"})
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	msg, ok := <-ch
	if !ok {
		t.Fatal("stream closed before the first event")
	}
	if msg.Topic != events.TopicClubDeleted {
		t.Fatalf("expected %s, got %s", events.TopicClubDeleted, msg.Topic)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected the channel to close when the server hangs up")
	}
	if query != "clubdesk.club.*,clubdesk.user.*" {
		t.Fatalf("unexpected topics parameter %q", query)
	}
	if auth != "Bearer tok" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
}

func TestHTTPClient_StreamEvents_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, Options{}).StreamEvents(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected a 401 APIError, got %v", err)
	}
}
