package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrInvalidID = errors.New("invalid payment ID format")

	ErrDuplicateTransaction = errors.New("transaction id already exists")

	// ErrAlreadyPaid is returned when a booking already has a paid payment.
	ErrAlreadyPaid = errors.New("booking already has a paid payment")
)
