package domain

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist for a direct-key lookup.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when input fails domain validation.
	ErrValidation = errors.New("validation error")
	// ErrConflict is returned when a state transition is not allowed from the current state.
	ErrConflict = errors.New("conflict")
)
