// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"
	"strconv"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the IDs clubdesk mints itself. Entity IDs come from the server.
const (
	MutationPrefix = "mut-"
	ExportPrefix   = "exp-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Generate returns a new unique ID with the given prefix.
func Generate(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// New is like Generate but never fails: if the random source is unavailable
// it falls back to a timestamp-derived suffix.
func New(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		return prefix + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return id
}
