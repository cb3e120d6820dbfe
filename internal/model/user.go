package model

import "time"

// Role is a user's federation role.
type Role string

const (
	RolePlayer    Role = "PLAYER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// Roles lists the known roles.
var Roles = []Role{RolePlayer, RoleOrganizer, RoleAdmin}

// User is a registered federation account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	City         string    `json:"city,omitempty"`
	Rating       int       `json:"rating"`
	RegisteredAt time.Time `json:"registered_at"`
}
