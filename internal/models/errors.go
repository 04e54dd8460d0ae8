package models

import "errors"

// Domain errors shared by services and mapped to HTTP statuses in handlers.
// Services wrap these with context via fmt.Errorf("...: %w", err).
var (
	// ErrNotFound means an unknown user, interest or other entity id.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor is not the authorized party for the
	// action, e.g. responding to someone else's interest.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState means the action is not valid for the current
	// status, e.g. responding twice or revoking a grant that was never set.
	ErrInvalidState = errors.New("invalid state")
)
