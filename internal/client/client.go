// Package client provides the interface the console uses to talk to the
// federation service and an HTTP/JSON implementation of it.
package client

import (
	"context"

	"github.com/alfredjeanlab/clubdesk/internal/model"
)

// ConsoleClient is the interface that all clubdesk commands use to
// communicate with the federation API. Clubs and users are fetched whole and
// filtered locally; tournaments are paginated by the server.
type ConsoleClient interface {
	// Clubs
	ListClubs(ctx context.Context) ([]model.Club, error)
	GetClub(ctx context.Context, id string) (*model.Club, error)
	ApproveClub(ctx context.Context, id string) (*model.Club, error)
	RejectClub(ctx context.Context, id, reason string) (*model.Club, error)
	UpdateClub(ctx context.Context, id string, u model.ClubUpdate) (*model.Club, error)
	DeleteClub(ctx context.Context, id string) error

	// Tournaments
	ListTournaments(ctx context.Context, req *ListTournamentsRequest) (*ListTournamentsResponse, error)
	DeleteTournament(ctx context.Context, id string) error

	// Users
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error

	Health(ctx context.Context) error
	Close() error
}

// ListTournamentsRequest carries the server-side query for tournaments.
// StartFrom and StartTo are calendar days (YYYY-MM-DD).
type ListTournamentsRequest struct {
	Search    string
	Status    string
	Type      []string
	StartFrom string
	StartTo   string
	Sort      string // field key, "-" prefix for descending
	Page      int
	PageSize  int
}

// ListTournamentsResponse is one server-cut page of tournaments.
type ListTournamentsResponse struct {
	Tournaments []model.Tournament `json:"tournaments"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
}

// ListClubsResponse is the body of GET /v1/clubs.
type ListClubsResponse struct {
	Clubs []model.Club `json:"clubs"`
}

// ListUsersResponse is the body of GET /v1/users.
type ListUsersResponse struct {
	Users []model.User `json:"users"`
}

// RejectClubRequest is the body of POST /v1/clubs/{id}/reject.
type RejectClubRequest struct {
	Reason string `json:"reason"`
}
