package testutil

import (
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/model"
)

// Epoch is the creation time given to fixtures unless overridden.
var Epoch = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// NewClub returns a pending club with sensible defaults, suitable for test
// fixtures. Override individual fields with options.
func NewClub(id string, opts ...func(*model.Club)) model.Club {
	c := model.Club{
		ID:        id,
		Name:      "Club " + id,
		City:      "Minsk",
		OwnerName: "Test Owner",
		Status:    model.StatusPending,
		Members:   10,
		CreatedAt: Epoch,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ClubName sets the club name.
func ClubName(name string) func(*model.Club) {
	return func(c *model.Club) { c.Name = name }
}

// ClubCity sets the club city.
func ClubCity(city string) func(*model.Club) {
	return func(c *model.Club) { c.City = city }
}

// ClubStatus sets the moderation status.
func ClubStatus(s model.Status) func(*model.Club) {
	return func(c *model.Club) { c.Status = s }
}

// NewTournament returns an approved classic tournament starting on Epoch.
func NewTournament(id string, opts ...func(*model.Tournament)) model.Tournament {
	t := model.Tournament{
		ID:           id,
		Name:         "Tournament " + id,
		City:         "Minsk",
		Type:         model.TypeClassic,
		Status:       model.StatusApproved,
		StartDate:    Epoch,
		EndDate:      Epoch.AddDate(0, 0, 2),
		Participants: 16,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// TournamentStart sets the start date and keeps a two-day duration.
func TournamentStart(start time.Time) func(*model.Tournament) {
	return func(t *model.Tournament) {
		t.StartDate = start
		t.EndDate = start.AddDate(0, 0, 2)
	}
}

// TournamentType sets the tournament type.
func TournamentType(tt model.TournamentType) func(*model.Tournament) {
	return func(t *model.Tournament) { t.Type = tt }
}

// NewUser returns a player registered on Epoch.
func NewUser(id string, opts ...func(*model.User)) model.User {
	u := model.User{
		ID:           id,
		Username:     "user-" + id,
		FullName:     "Test User " + id,
		Email:        id + "@example.com",
		Role:         model.RolePlayer,
		City:         "Minsk",
		Rating:       1500,
		RegisteredAt: Epoch,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// UserRole sets the user role.
func UserRole(r model.Role) func(*model.User) {
	return func(u *model.User) { u.Role = r }
}
