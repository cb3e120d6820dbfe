package model

import (
	"time"

	"github.com/alfredjeanlab/clubdesk/internal/table"
)

// Field keys shared by sorting, filtering and the server's query parameters.
const (
	KeyName         = "name"
	KeyCity         = "city"
	KeyDescription  = "description"
	KeyOwner        = "owner"
	KeyStatus       = "status"
	KeyMembers      = "members"
	KeyCreated      = "created"
	KeyClub         = "club"
	KeyType         = "type"
	KeyStart        = "start"
	KeyEnd          = "end"
	KeyParticipants = "participants"
	KeyUsername     = "username"
	KeyEmail        = "email"
	KeyRole         = "role"
	KeyRating       = "rating"
	KeyRegistered   = "registered"
)

// ClubSchema returns the field table for clubs. Calendar-day filters are
// evaluated in loc.
func ClubSchema(loc *time.Location) (*table.Schema[Club], error) {
	return table.NewSchema(table.Config[Club]{
		Fields: []table.Field[Club]{
			table.TextOf(KeyName, func(c Club) string { return c.Name }),
			table.TextOf(KeyCity, func(c Club) string { return c.City }),
			table.TextOf(KeyDescription, func(c Club) string { return c.Description }),
			table.TextOf(KeyOwner, func(c Club) string { return c.OwnerName }),
			table.TextOf(KeyStatus, func(c Club) string { return string(c.Status) }),
			table.NumberOf(KeyMembers, func(c Club) float64 { return float64(c.Members) }),
			table.DateOf(KeyCreated, func(c Club) time.Time { return c.CreatedAt }),
		},
		Searchable: []string{KeyName, KeyCity, KeyOwner, KeyDescription},
		Descriptors: []table.Descriptor{
			{Key: KeyStatus, Kind: table.ExactMatch, Label: "Status", Options: statusOptions(ClubStatuses)},
			{Key: KeyCity, Kind: table.MultiMatch, Label: "City", Dynamic: true},
			{Key: KeyCreated, Kind: table.DateRange, Label: "Created"},
		},
		Location: loc,
	})
}

// TournamentSchema returns the field table for tournaments.
func TournamentSchema(loc *time.Location) (*table.Schema[Tournament], error) {
	types := make([]string, len(TournamentTypes))
	for i, t := range TournamentTypes {
		types[i] = string(t)
	}
	return table.NewSchema(table.Config[Tournament]{
		Fields: []table.Field[Tournament]{
			table.TextOf(KeyName, func(t Tournament) string { return t.Name }),
			table.TextOf(KeyCity, func(t Tournament) string { return t.City }),
			table.TextOf(KeyClub, func(t Tournament) string { return t.ClubName }),
			table.TextOf(KeyType, func(t Tournament) string { return string(t.Type) }),
			table.TextOf(KeyStatus, func(t Tournament) string { return string(t.Status) }),
			table.DateOf(KeyStart, func(t Tournament) time.Time { return t.StartDate }),
			table.DateOf(KeyEnd, func(t Tournament) time.Time { return t.EndDate }),
			table.NumberOf(KeyParticipants, func(t Tournament) float64 { return float64(t.Participants) }),
		},
		Searchable: []string{KeyName, KeyCity, KeyClub},
		Descriptors: []table.Descriptor{
			{Key: KeyStatus, Kind: table.ExactMatch, Label: "Status", Options: statusOptions(TournamentStatuses)},
			{Key: KeyType, Kind: table.MultiMatch, Label: "Type", Options: types},
			{Key: KeyStart, Kind: table.DateRange, Label: "Start date"},
		},
		Location: loc,
	})
}

// UserSchema returns the field table for users.
func UserSchema(loc *time.Location) (*table.Schema[User], error) {
	roles := make([]string, len(Roles))
	for i, r := range Roles {
		roles[i] = string(r)
	}
	return table.NewSchema(table.Config[User]{
		Fields: []table.Field[User]{
			table.TextOf(KeyUsername, func(u User) string { return u.Username }),
			table.TextOf(KeyName, func(u User) string { return u.FullName }),
			table.TextOf(KeyEmail, func(u User) string { return u.Email }),
			table.TextOf(KeyRole, func(u User) string { return string(u.Role) }),
			table.TextOf(KeyCity, func(u User) string { return u.City }),
			table.NumberOf(KeyRating, func(u User) float64 { return float64(u.Rating) }),
			table.DateOf(KeyRegistered, func(u User) time.Time { return u.RegisteredAt }),
		},
		Searchable: []string{KeyUsername, KeyName, KeyEmail},
		Descriptors: []table.Descriptor{
			{Key: KeyRole, Kind: table.ExactMatch, Label: "Role", Options: roles},
			{Key: KeyCity, Kind: table.MultiMatch, Label: "City", Dynamic: true},
			{Key: KeyRegistered, Kind: table.DateRange, Label: "Registered"},
		},
		Location: loc,
	})
}
