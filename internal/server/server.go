// Package server is the reference federation API the console talks to. It
// serves clubs, tournaments and users over HTTP/JSON and announces every
// committed change on the event bus and the SSE stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/events"
	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/store"
)

// ClubServer implements the federation API on top of a store.
type ClubServer struct {
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	metrics   *Metrics
	logger    *zap.Logger
	loc       *time.Location
}

// Option configures a ClubServer.
type Option func(*ClubServer)

func WithLogger(l *zap.Logger) Option { return func(s *ClubServer) { s.logger = l } }

// WithMetrics records request metrics in m.
func WithMetrics(m *Metrics) Option { return func(s *ClubServer) { s.metrics = m } }

// WithLocation sets the zone calendar-day query parameters are read in.
func WithLocation(loc *time.Location) Option { return func(s *ClubServer) { s.loc = loc } }

// NewClubServer returns a server backed by the given store and publisher.
func NewClubServer(s store.Store, p events.Publisher, opts ...Option) *ClubServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	srv := &ClubServer{
		store:     s,
		publisher: p,
		sseHub:    newSSEHub(),
		logger:    zap.NewNop(),
		loc:       time.UTC,
	}
	for _, o := range opts {
		o(srv)
	}
	return srv
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// publish sends an event to NATS and the SSE stream. Both are best-effort;
// failures are logged but do not fail the request.
func (s *ClubServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), topic, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
	s.broadcastEvent(topic, event)
	if s.metrics != nil {
		s.metrics.events.WithLabelValues(topic).Inc()
	}
}

// --- Clubs ---

// moderateClub moves a PENDING club to status. Only pending clubs can be
// approved or rejected.
func (s *ClubServer) moderateClub(ctx context.Context, id string, status model.Status, reason string) (*model.Club, error) {
	if status == model.StatusRejected {
		if err := model.ValidateRejectReason(reason); err != nil {
			return nil, inputError(err.Error())
		}
	}

	var club *model.Club
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		current, err := tx.GetClub(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != model.StatusPending {
			return fmt.Errorf("club %s is %s, not PENDING: %w", id, current.Status, store.ErrConflict)
		}
		club, err = tx.SetClubStatus(ctx, id, status, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	topic := events.TopicClubApproved
	if status == model.StatusRejected {
		topic = events.TopicClubRejected
	}
	s.publish(ctx, topic, events.ClubChanged{Club: club, Reason: reason})
	return club, nil
}

func (s *ClubServer) updateClub(ctx context.Context, id string, u model.ClubUpdate) (*model.Club, error) {
	if err := model.ValidateClubUpdate(u); err != nil {
		return nil, inputError(err.Error())
	}
	club, err := s.store.UpdateClub(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TopicClubUpdated, events.ClubChanged{Club: club})
	return club, nil
}

// deleteEntity removes one record and announces it.
func (s *ClubServer) deleteEntity(ctx context.Context, kind, id string) error {
	var (
		del   func(context.Context, string) error
		topic string
	)
	switch kind {
	case "club":
		del, topic = s.store.DeleteClub, events.TopicClubDeleted
	case "tournament":
		del, topic = s.store.DeleteTournament, events.TopicTournamentDeleted
	case "user":
		del, topic = s.store.DeleteUser, events.TopicUserDeleted
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	if err := del(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, topic, events.EntityDeleted{Kind: kind, ID: id})
	return nil
}

func (s *ClubServer) broadcastEvent(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event for SSE broadcast", zap.String("topic", topic), zap.Error(err))
		return
	}
	s.sseHub.broadcast(topic, payload)
}

// isNotFound reports whether err means the addressed record is missing.
func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
