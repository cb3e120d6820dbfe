package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// dial connects to the bus as "clubdesk". Both sides reconnect forever; a
// console left running in `watch` should survive a bus restart. Extra opts
// are applied after the defaults and may override them.
func dial(url string, opts ...nats.Option) (*nats.Conn, error) {
	all := append([]nats.Option{
		nats.Name("clubdesk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON-encoded events on NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects a publisher to the bus at url.
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := dial(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish encodes event and sends it on topic. A cancelled ctx publishes
// nothing.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", topic, err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending events and disconnects.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber delivers bus messages to `clubdesk watch`.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects a subscriber to the bus at url. Pass
// nats.DisconnectErrHandler / nats.ReconnectHandler to observe the link.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := dial(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscription buffers the messages of one subject pattern. A full buffer
// drops new messages rather than stalling the NATS dispatcher.
type subscription struct {
	ch     chan Message
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- Message{Topic: msg.Subject, Data: msg.Data}:
	default:
	}
}

// cancel unsubscribes, discards anything still buffered and closes ch.
// It is idempotent.
func (s *subscription) cancel() {
	s.once.Do(func() {
		if s.sub != nil {
			_ = s.sub.Unsubscribe()
		}
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		for {
			select {
			case <-s.ch:
			default:
				close(s.ch)
				return
			}
		}
	})
}

// Subscribe follows topic, which may use NATS wildcards ("clubdesk.club.*",
// TopicAll). The subscription is registered on the server before Subscribe
// returns, so events published right after it are not missed.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	sn := &subscription{ch: make(chan Message, 64)}
	sub, err := s.conn.Subscribe(topic, sn.deliver)
	if err != nil {
		sn.cancel()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	sn.sub = sub
	if err := s.conn.Flush(); err != nil {
		sn.cancel()
		return nil, nil, fmt.Errorf("registering %s: %w", topic, err)
	}
	return sn.ch, sn.cancel, nil
}

// Close disconnects. Channels of live subscriptions stay open until their
// cancel functions are called.
func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
