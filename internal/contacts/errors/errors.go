package errors

import "errors"

var (
	ErrNotFound  = errors.New("emergency contact not found")
	ErrInvalidID = errors.New("invalid ID format")
)
