// Package store defines the persistence interface behind the reference API.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/model"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a record is not in a state that allows
	// the requested change.
	ErrConflict = errors.New("conflict")
)

// TournamentFilter is the server-side tournament query. Zero fields do not
// constrain the result.
type TournamentFilter struct {
	Search      string
	Status      string
	Types       []string
	StartFrom   time.Time // inclusive
	StartBefore time.Time // inclusive upper instant
	Sort        string    // field key, "-" prefix for descending
	Limit       int
	Offset      int
}

// Store defines the persistence interface for clubs, tournaments and users.
type Store interface {
	// Clubs
	ListClubs(ctx context.Context) ([]model.Club, error)
	GetClub(ctx context.Context, id string) (*model.Club, error)
	SetClubStatus(ctx context.Context, id string, status model.Status, reason string) (*model.Club, error)
	UpdateClub(ctx context.Context, id string, u model.ClubUpdate) (*model.Club, error)
	DeleteClub(ctx context.Context, id string) error

	// Tournaments
	ListTournaments(ctx context.Context, f TournamentFilter) ([]model.Tournament, int, error) // returns page, total count, error
	DeleteTournament(ctx context.Context, id string) error

	// Users
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
