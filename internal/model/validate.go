package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
	maxReasonLen      = 500
)

// ValidateClubUpdate checks an update before it is sent or applied.
func ValidateClubUpdate(u ClubUpdate) error {
	var ve ValidationError
	if u.Empty() {
		ve.add("update", "no fields to change")
	}
	if u.Name != nil {
		switch n := strings.TrimSpace(*u.Name); {
		case n == "":
			ve.add("name", "must not be empty")
		case utf8.RuneCountInString(n) > maxNameLen:
			ve.add("name", "must be at most %d characters", maxNameLen)
		}
	}
	if u.City != nil && strings.TrimSpace(*u.City) == "" {
		ve.add("city", "must not be empty")
	}
	if u.Description != nil && utf8.RuneCountInString(*u.Description) > maxDescriptionLen {
		ve.add("description", "must be at most %d characters", maxDescriptionLen)
	}
	return ve.orNil()
}

// ValidateRejectReason checks the reason given when rejecting a club.
func ValidateRejectReason(reason string) error {
	var ve ValidationError
	switch r := strings.TrimSpace(reason); {
	case r == "":
		ve.add("reason", "is required")
	case utf8.RuneCountInString(r) > maxReasonLen:
		ve.add("reason", "must be at most %d characters", maxReasonLen)
	}
	return ve.orNil()
}
