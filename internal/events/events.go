// Package events carries clubdesk change notifications over NATS. The server
// publishes entity events after each committed change; the console publishes
// mutation outcomes so other operators can follow along with `clubdesk watch`.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/model"
)

// Event topic constants
const (
	TopicAll = "clubdesk.>"

	TopicClubApproved = "clubdesk.club.approved"
	TopicClubRejected = "clubdesk.club.rejected"
	TopicClubUpdated  = "clubdesk.club.updated"
	TopicClubDeleted  = "clubdesk.club.deleted"

	TopicTournamentDeleted = "clubdesk.tournament.deleted"
	TopicUserDeleted       = "clubdesk.user.deleted"

	// Mutation outcomes, emitted by the console's executor.
	TopicMutationSucceeded = "clubdesk.mutation.succeeded"
	TopicMutationRetrying  = "clubdesk.mutation.retrying"
	TopicMutationFailed    = "clubdesk.mutation.failed"
)

// Event types

type ClubChanged struct {
	Club   *model.Club `json:"club"`
	Reason string      `json:"reason,omitempty"`
}

type EntityDeleted struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// MutationOutcome reports one step of a console mutation.
type MutationOutcome struct {
	MutationID  string    `json:"mutation_id"`
	Name        string    `json:"name"`
	Target      string    `json:"target,omitempty"`
	Kind        string    `json:"kind"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	Category    string    `json:"category,omitempty"`
	Message     string    `json:"message,omitempty"`
	Time        time.Time `json:"time"`
}

// Outcome kinds carried by MutationOutcome.Kind.
const (
	OutcomeSucceeded = "success"
	OutcomeRetrying  = "retrying"
	OutcomeFailed    = "failed"
)

// MutationTopic returns the topic an outcome of kind is published on.
// Unknown kinds are reported as failures.
func MutationTopic(kind string) string {
	switch kind {
	case OutcomeSucceeded:
		return TopicMutationSucceeded
	case OutcomeRetrying:
		return TopicMutationRetrying
	default:
		return TopicMutationFailed
	}
}

// PublishOutcome publishes o on the topic for its kind.
func PublishOutcome(ctx context.Context, p Publisher, o MutationOutcome) error {
	return p.Publish(ctx, MutationTopic(o.Kind), o)
}

// Message is a raw payload received from the bus together with its subject.
type Message struct {
	Topic string
	Data  []byte
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
