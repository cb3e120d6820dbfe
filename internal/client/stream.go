package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/events"
)

// StreamEvents opens the server's SSE stream and delivers each event on the
// returned channel. topics are NATS-style patterns; none means every topic.
// The channel is closed when ctx ends or the server drops the connection.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string) (<-chan events.Message, error) {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// No client timeout: the stream stays open until ctx ends.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	ch := make(chan events.Message, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		if err := readStream(ctx, resp.Body, ch); err != nil && ctx.Err() == nil {
			c.logger.Warn("event stream ended", zap.Error(err))
		}
	}()
	return ch, nil
}

// readStream parses SSE frames from r. Comment lines (keepalives) and
// frames without data are skipped.
func readStream(ctx context.Context, r io.Reader, ch chan<- events.Message) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var topic, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		case line == "":
			if data != "" {
				select {
				case ch <- events.Message{Topic: topic, Data: []byte(data)}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			topic, data = "", ""
		}
	}
	return scanner.Err()
}
