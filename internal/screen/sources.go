package screen

import (
	"context"
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/client"
	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/mutation"
	"github.com/alfredjeanlab/clubdesk/internal/table"
)

// Clubs returns a client-mode screen over the club registry.
func Clubs(c client.ConsoleClient, loc *time.Location, pageSize int, opts ...Option) (*Screen[model.Club], error) {
	schema, err := model.ClubSchema(loc)
	if err != nil {
		return nil, err
	}
	return NewLocal("clubs", schema, pageSize, c.ListClubs, opts...), nil
}

// Users returns a client-mode screen over registered users.
func Users(c client.ConsoleClient, loc *time.Location, pageSize int, opts ...Option) (*Screen[model.User], error) {
	schema, err := model.UserSchema(loc)
	if err != nil {
		return nil, err
	}
	return NewLocal("users", schema, pageSize, c.ListUsers, opts...), nil
}

// Tournaments returns a server-mode screen over tournaments.
func Tournaments(c client.ConsoleClient, loc *time.Location, pageSize int, opts ...Option) (*Screen[model.Tournament], error) {
	schema, err := model.TournamentSchema(loc)
	if err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context, q table.Query) ([]model.Tournament, int, error) {
		resp, err := c.ListTournaments(ctx, TournamentRequest(q, schema.Location()))
		if err != nil {
			return nil, 0, err
		}
		return resp.Tournaments, resp.Total, nil
	}
	return NewRemote("tournaments", schema, pageSize, fetch, opts...), nil
}

// TournamentRequest maps a query onto the tournament list parameters. Date
// bounds are sent as calendar days in loc; the server includes the whole
// end day.
func TournamentRequest(q table.Query, loc *time.Location) *client.ListTournamentsRequest {
	req := &client.ListTournamentsRequest{
		Search:   q.Search,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if v, ok := q.Filters[model.KeyStatus]; ok {
		req.Status = v.Scalar
	}
	if v, ok := q.Filters[model.KeyType]; ok {
		req.Type = append([]string(nil), v.List...)
	}
	if v, ok := q.Filters[model.KeyStart]; ok {
		if !v.From.IsZero() {
			req.StartFrom = v.From.In(loc).Format(table.DateLayout)
		}
		if !v.To.IsZero() {
			req.StartTo = v.To.In(loc).Format(table.DateLayout)
		}
	}
	if q.SortKey != "" {
		req.Sort = q.SortKey
		if q.SortDir == table.Descending {
			req.Sort = "-" + q.SortKey
		}
	}
	return req
}

// --- Mutation requests ---

// ApproveClub moves a pending club to APPROVED.
func ApproveClub(c client.ConsoleClient, id string) mutation.Request {
	return mutation.Request{
		Name:   "club.approve",
		Target: id,
		Do: func(ctx context.Context) error {
			_, err := c.ApproveClub(ctx, id)
			return err
		},
	}
}

// RejectClub rejects a club with a mandatory reason.
func RejectClub(c client.ConsoleClient, id, reason string) mutation.Request {
	return mutation.Request{
		Name:      "club.reject",
		Target:    id,
		Preflight: func() error { return model.ValidateRejectReason(reason) },
		Do: func(ctx context.Context) error {
			_, err := c.RejectClub(ctx, id, reason)
			return err
		},
	}
}

// UpdateClub edits a club's descriptive fields.
func UpdateClub(c client.ConsoleClient, id string, u model.ClubUpdate) mutation.Request {
	return mutation.Request{
		Name:      "club.update",
		Target:    id,
		Preflight: func() error { return model.ValidateClubUpdate(u) },
		Do: func(ctx context.Context) error {
			_, err := c.UpdateClub(ctx, id, u)
			return err
		},
	}
}

// DeleteClub deletes a club once confirm matches its ID.
func DeleteClub(c client.ConsoleClient, id, confirm string) mutation.Request {
	return mutation.Request{
		Name:      "club.delete",
		Target:    id,
		Preflight: mutation.ConfirmPhrase(id, confirm),
		Do:        func(ctx context.Context) error { return c.DeleteClub(ctx, id) },
	}
}

// DeleteTournament deletes a tournament once confirm matches its ID.
func DeleteTournament(c client.ConsoleClient, id, confirm string) mutation.Request {
	return mutation.Request{
		Name:      "tournament.delete",
		Target:    id,
		Preflight: mutation.ConfirmPhrase(id, confirm),
		Do:        func(ctx context.Context) error { return c.DeleteTournament(ctx, id) },
	}
}

// DeleteUser deletes a user once confirm matches their ID.
func DeleteUser(c client.ConsoleClient, id, confirm string) mutation.Request {
	return mutation.Request{
		Name:      "user.delete",
		Target:    id,
		Preflight: mutation.ConfirmPhrase(id, confirm),
		Do:        func(ctx context.Context) error { return c.DeleteUser(ctx, id) },
	}
}
