package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/recallhq/engram-api/internal/api/shared"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/service"
	"github.com/recallhq/engram-api/internal/service/auth"
	"github.com/recallhq/engram-api/internal/service/scheduler"
	"github.com/recallhq/engram-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrLearnerNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, store.ErrMemoryStateNotFound),
		errors.Is(err, scheduler.ErrLearnerNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrStateExists),
		errors.Is(err, scheduler.ErrNoPriorState),
		errors.Is(err, scheduler.ErrConcurrencyConflict):
		return http.StatusConflict

	// Temporary unavailability: a rebuild holds the learner's lock
	case errors.Is(err, scheduler.ErrRebuildInProgress):
		return http.StatusServiceUnavailable

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidRating):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, service.ErrNotOwned):
		return "You do not own this card"

	// Not found errors
	case errors.Is(err, store.ErrLearnerNotFound),
		errors.Is(err, scheduler.ErrLearnerNotFound):
		return "Learner not found"

	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, store.ErrMemoryStateNotFound):
		return "Memory state not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, store.ErrStateExists):
		return "Card already assigned"

	case errors.Is(err, scheduler.ErrNoPriorState):
		return "Card has no initialized memory state"

	case errors.Is(err, scheduler.ErrConcurrencyConflict):
		return "Conflicting review in progress, please retry"

	case errors.Is(err, scheduler.ErrRebuildInProgress):
		return "Schedule rebuild in progress, please retry shortly"

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidRating):
		return "Rating must be between 1 (again) and 4 (easy)"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier format"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error to a status code and safe message, then
// writes the sanitized response while logging the full error. When
// fallbackMessage is non-empty it overrides the mapped message for generic
// server errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	statusCode := MapErrorToStatusCode(err)
	safeMessage := GetSafeErrorMessage(err)

	if statusCode == http.StatusInternalServerError && fallbackMessage != "" {
		safeMessage = fallbackMessage
	}

	shared.RespondWithErrorAndLog(w, r, statusCode, safeMessage, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			// Further split to get just the field validation part
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				// Create a cleaner error message
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier"
	default:
		return "validation failed"
	}
}
