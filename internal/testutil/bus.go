package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/alfredjeanlab/clubdesk/internal/events"
)

// Published is one event captured by MockPublisher.
type Published struct {
	Topic string
	Data  json.RawMessage
}

// MockPublisher records published events for assertions. It satisfies
// events.Publisher.
type MockPublisher struct {
	mu     sync.Mutex
	events []Published
	closed bool
	// Err, when set, is returned from every Publish.
	Err error
}

var _ events.Publisher = (*MockPublisher)(nil)

// NewMockPublisher returns an empty publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records topic and the JSON form of event.
func (p *MockPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{Topic: topic, Data: data})
	return p.Err
}

// Close marks the publisher closed.
func (p *MockPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Events returns a copy of everything published so far.
func (p *MockPublisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.events...)
}

// Topics returns the published topics in order.
func (p *MockPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Topic
	}
	return out
}

// Closed reports whether Close was called.
func (p *MockPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
