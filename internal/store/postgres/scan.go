package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/clubdesk/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanClub scans a single row into a model.Club.
// The row must contain columns in the order defined by clubColumns.
func scanClub(row scannable) (*model.Club, error) {
	var c model.Club
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.City,
		&c.Description,
		&c.OwnerName,
		&c.Status,
		&c.Members,
		&c.RejectReason,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanTournamentWithTotal scans a row with a leading total_count column
// followed by tournamentColumns.
func scanTournamentWithTotal(row scannable) (*model.Tournament, int, error) {
	var (
		t        model.Tournament
		total    int
		clubID   sql.NullString
		clubName sql.NullString
		endDate  sql.NullTime
	)
	err := row.Scan(
		&total,
		&t.ID,
		&t.Name,
		&t.City,
		&clubID,
		&clubName,
		&t.Type,
		&t.Status,
		&t.StartDate,
		&endDate,
		&t.Participants,
	)
	if err != nil {
		return nil, 0, err
	}
	t.ClubID = clubID.String
	t.ClubName = clubName.String
	if endDate.Valid {
		t.EndDate = endDate.Time
	}
	return &t, total, nil
}

// scanUser scans a row in userColumns order.
func scanUser(row scannable) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.Email,
		&u.Role,
		&u.City,
		&u.Rating,
		&u.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
