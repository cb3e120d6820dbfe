package model

import "time"

// TournamentType is the time control of a tournament.
type TournamentType string

const (
	TypeClassic TournamentType = "CLASSIC"
	TypeRapid   TournamentType = "RAPID"
	TypeBlitz   TournamentType = "BLITZ"
)

// TournamentTypes lists the known tournament types.
var TournamentTypes = []TournamentType{TypeClassic, TypeRapid, TypeBlitz}

// IsValid checks whether the type is a known value.
func (t TournamentType) IsValid() bool {
	switch t {
	case TypeClassic, TypeRapid, TypeBlitz:
		return true
	}
	return false
}

// Tournament is an event organised by a club.
type Tournament struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	City         string         `json:"city"`
	ClubID       string         `json:"club_id,omitempty"`
	ClubName     string         `json:"club_name,omitempty"`
	Type         TournamentType `json:"type"`
	Status       Status         `json:"status"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date,omitzero"`
	Participants int            `json:"participants"`
}
