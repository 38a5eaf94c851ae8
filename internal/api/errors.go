package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/scry-study/internal/api/shared"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/service"
	"github.com/phrazzld/scry-study/internal/session"
	"github.com/phrazzld/scry-study/internal/store"
	"github.com/phrazzld/scry-study/internal/study/flipcard"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so internal
// error types never reach clients.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionClosed):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrDeckTooSmall),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, flipcard.ErrInvalidResult),
		errors.Is(err, service.ErrUsernameRequired),
		errors.Is(err, shared.ErrEmptyBody),
		errors.As(err, &verrs):
		return http.StatusBadRequest

	case errors.Is(err, session.ErrManagerClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return SanitizeValidationError(err)

	case errors.Is(err, store.ErrDeckNotFound):
		return "Deck not found"
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionClosed):
		return "Session not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, store.ErrDeckNameExists):
		return "Deck name already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"

	case errors.Is(err, domain.ErrDeckTooSmall):
		return "Deck has too few cards for this mode"
	case errors.Is(err, domain.ErrInvalidMode):
		return "Invalid study mode"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, flipcard.ErrInvalidResult):
		return "Invalid grade result"
	case errors.Is(err, service.ErrUsernameRequired):
		return "Username is required"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, session.ErrManagerClosed):
		return "Server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator failure into a short message
// naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe.Namespace()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// jsonFieldName converts a validator namespace such as
// "CreateDeckRequest.Cards[0].Front" into "cards[0].front".
func jsonFieldName(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid ID format"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted cause. A non-empty message replaces the generic text of a 500.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	safe := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && message != "" {
		safe = message
	}
	shared.RespondWithErrorAndLog(w, r, status, safe, err)
}
