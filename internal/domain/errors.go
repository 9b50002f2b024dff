package domain

import "errors"

var (
	ErrValidationFailed      = errors.New("validation failed")
	ErrDuplicateObject       = errors.New("duplicate object")
	ErrNotFound              = errors.New("not found")
	ErrInvalidState          = errors.New("invalid state")
	ErrSchemaRejected        = errors.New("schema rejected")
	ErrInvalidEpistemicState = errors.New("invalid epistemic state")
)
