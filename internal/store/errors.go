package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict covers unique-key violations and conditional writes whose
	// precondition no longer holds.
	ErrConflict = errors.New("conflict")
)
