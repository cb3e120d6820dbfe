// Package model defines the records the console manages and the field
// tables that expose them to the table engine.
package model

import "time"

// Club is a federation member club.
type Club struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
	Description  string    `json:"description,omitempty"`
	OwnerName    string    `json:"owner_name,omitempty"`
	Status       Status    `json:"status"`
	Members      int       `json:"members"`
	RejectReason string    `json:"reject_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClubUpdate carries the editable fields of a club. Nil fields are left
// unchanged.
type ClubUpdate struct {
	Name        *string `json:"name,omitempty"`
	City        *string `json:"city,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply copies the set fields of u onto c.
func (u ClubUpdate) Apply(c *Club) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.City != nil {
		c.City = *u.City
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
}

// Empty reports whether u changes nothing.
func (u ClubUpdate) Empty() bool {
	return u.Name == nil && u.City == nil && u.Description == nil
}
