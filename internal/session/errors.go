package session

import "errors"

// Errors returned by the session runtime. Grading misuse is never an error;
// it is reported as an Outcome that was not accepted.
var (
	// ErrSessionNotFound is returned when no live session has the given ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when a session has been abandoned.
	ErrSessionClosed = errors.New("session closed")

	// ErrManagerClosed is returned by Start after Close.
	ErrManagerClosed = errors.New("session manager closed")
)
