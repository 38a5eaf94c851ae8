package service

import (
	"errors"
	"fmt"
)

// Service-level sentinel errors. The API layer maps them to status codes.
var (
	// ErrUsernameRequired is returned when a leaderboard or session request
	// names no learner.
	ErrUsernameRequired = errors.New("username is required")
)

// ServiceError records which operation of which service failed on an
// unexpected error. Expected conditions are returned as sentinels instead.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}
