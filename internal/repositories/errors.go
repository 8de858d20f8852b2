package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrTimeout indicates a storage call exceeded its deadline.
	ErrTimeout = errors.New("storage timeout")
	// ErrAlreadyResponded indicates a connection that has left the pending
	// state and can no longer transition.
	ErrAlreadyResponded = errors.New("connection already responded to")
)
