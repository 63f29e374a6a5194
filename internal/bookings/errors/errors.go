package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrVersionConflict = errors.New("booking was modified by another writer")

	ErrDuplicateCode = errors.New("booking code already exists")
)
