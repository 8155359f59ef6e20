package repo

import "errors"

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
)
