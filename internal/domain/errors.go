package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a uniqueness constraint is violated
	ErrConflict = errors.New("conflict occurred")

	// ErrUpstream is returned when an external collaborator (media store) fails
	ErrUpstream = errors.New("upstream failure")

	// ErrUnauthenticated is returned when a caller cannot be resolved to a user
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
