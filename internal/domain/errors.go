// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidMode is returned when a study mode is not recognised.
	ErrInvalidMode = errors.New("invalid study mode")

	// ErrDeckTooSmall is returned when a deck cannot supply enough cards for a mode.
	ErrDeckTooSmall = errors.New("deck has too few cards for this mode")
)
