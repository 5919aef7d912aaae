package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a create or update would violate
	// email uniqueness.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrUnavailable is returned when the durable store cannot be reached.
	// It is a routing signal for the directory router, never a user-facing
	// error.
	ErrUnavailable = errors.New("store unavailable")
)
