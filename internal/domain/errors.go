package domain

import "errors"

var (
	// ErrValidation marks input that was rejected before entering the engine.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for notes that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks operations against a note whose current status
	// does not permit them, e.g. replaying a delivered note.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict marks concurrent writers losing an update race.
	ErrConflict = errors.New("conflict")
)
