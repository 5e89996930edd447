package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLocked marks flows that are temporarily frozen after repeated
	// invalid input.
	ErrLocked = errors.New("locked")
	// ErrNoSession marks chat operations attempted before a session was
	// selected or created on the connection.
	ErrNoSession = errors.New("no active session")
)
