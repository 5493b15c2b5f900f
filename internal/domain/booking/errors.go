package booking

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("resource already booked for an overlapping window")
	ErrNotFound            = errors.New("booking not found")
	ErrResourceUnavailable = errors.New("resource missing or inactive")
	ErrKindMismatch        = errors.New("correlation id already used by another booking kind")
)
