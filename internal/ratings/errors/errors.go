package errors

import "errors"

var (
	ErrNotFound = errors.New("rating not found")

	ErrAlreadyRated = errors.New("booking already rated")
)
