package events

import "context"

// NoopPublisher discards every event. It stands in when events.nats_url is
// unset, so callers never check for a nil Publisher.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
