package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// replaySize is how many recent events are kept for clients that
	// reconnect with Last-Event-ID.
	replaySize = 256

	// keepaliveInterval is how often an idle stream gets a comment line.
	keepaliveInterval = 15 * time.Second

	clientBuffer = 64
)

// streamEvent is one change notice as sent on the SSE stream.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// sseHub fans committed changes out to connected watchers and keeps a short
// history for reconnects.
type sseHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
	lastID  uint64
	history []streamEvent // oldest first, at most replaySize long
}

// sseClient is one connected watcher.
type sseClient struct {
	topics  []string
	ch      chan streamEvent
	dropped int
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast records the event and delivers it to every matching client.
// Slow clients lose events rather than block the request that caused them.
func (h *sseHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	evt := streamEvent{ID: h.lastID, Topic: topic, Data: payload}
	if len(h.history) == replaySize {
		h.history = append(h.history[:0], h.history[1:]...)
	}
	h.history = append(h.history, evt)

	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			c.dropped++
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan streamEvent, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// unsubscribe removes c and returns how many events it missed.
func (h *sseHub) unsubscribe(c *sseClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	return c.dropped
}

// since returns the remembered events newer than lastID, oldest first.
func (h *sseHub) since(lastID uint64) []streamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []streamEvent
	for _, evt := range h.history {
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

// wants reports whether topic passes the client's filters. No filters means
// every topic.
func (c *sseClient) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic NATS-style: "*" stands for
// one segment and a trailing ">" for one or more.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

// handleEventStream handles GET /v1/events/stream. The optional topics
// parameter is a comma-separated list of patterns.
func (s *ClubServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.sseHub.subscribe(topics)
	defer func() {
		if n := s.sseHub.unsubscribe(client); n > 0 {
			s.logger.Warn("event stream client fell behind", zap.Int("dropped", n))
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if lastID, err := strconv.ParseUint(v, 10, 64); err == nil {
			for _, evt := range s.sseHub.since(lastID) {
				if client.wants(evt.Topic) {
					writeStreamEvent(w, evt)
				}
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w io.Writer, evt streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
