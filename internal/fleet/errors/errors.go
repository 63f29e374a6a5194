package errors

import "errors"

var (
	ErrDriverNotFound    = errors.New("driver not found")
	ErrAmbulanceNotFound = errors.New("ambulance not found")

	ErrInvalidID = errors.New("invalid ID format")

	ErrDuplicatePlate = errors.New("plate number already registered")
)
