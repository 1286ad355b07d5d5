package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Replacement is one completed pronoun→macro rewrite.
type Replacement struct {
	ID        string
	CreatedAt time.Time
	PersonaID string
	Mode      string // "long" or "shorthand"
	Input     string
	Output    string
}
