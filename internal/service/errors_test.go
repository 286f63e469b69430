package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("ErrNotOwned", func(t *testing.T) {
		assert.Equal(t, "resource is owned by another learner", ErrNotOwned.Error())
		assert.True(t, errors.Is(ErrNotOwned, ErrNotOwned))
	})

	t.Run("ErrInvalidCredentials", func(t *testing.T) {
		assert.Equal(t, "invalid email or password", ErrInvalidCredentials.Error())
		assert.False(t, errors.Is(ErrInvalidCredentials, ErrNotOwned))
	})
}

func TestAssignmentServiceError_Error(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		message   string
		err       error
		expected  string
	}{
		{
			name:      "with underlying error",
			operation: "assign_cards",
			message:   "failed to save cards",
			err:       errors.New("database connection failed"),
			expected:  "assignment service assign_cards failed: failed to save cards: database connection failed",
		},
		{
			name:      "without underlying error",
			operation: "revoke_card",
			message:   "card not found",
			err:       nil,
			expected:  "assignment service revoke_card failed: card not found",
		},
		{
			name:      "with sentinel error",
			operation: "revoke_card",
			message:   "card not assigned to learner",
			err:       ErrNotOwned,
			expected:  "assignment service revoke_card failed: card not assigned to learner: resource is owned by another learner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceErr := NewAssignmentServiceError(tt.operation, tt.message, tt.err)
			assert.Equal(t, tt.expected, serviceErr.Error())
		})
	}
}

func TestAssignmentServiceError_Unwrap(t *testing.T) {
	tests := []struct {
		name            string
		underlyingError error
	}{
		{
			name:            "with underlying error",
			underlyingError: errors.New("database error"),
		},
		{
			name:            "with sentinel error",
			underlyingError: ErrNotOwned,
		},
		{
			name:            "with nil error",
			underlyingError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceErr := NewAssignmentServiceError("get_card", "lookup failed", tt.underlyingError)
			assert.Equal(t, tt.underlyingError, serviceErr.Unwrap())
		})
	}
}

func TestAssignmentServiceError_ErrorsIs(t *testing.T) {
	underlyingErr := errors.New("database connection failed")
	serviceErr := NewAssignmentServiceError("assign_cards", "failed to save cards", underlyingErr)

	t.Run("errors.Is finds wrapped error", func(t *testing.T) {
		assert.True(t, errors.Is(serviceErr, underlyingErr))
	})

	t.Run("errors.Is finds wrapped sentinel", func(t *testing.T) {
		sentinelErr := NewAssignmentServiceError("revoke_card", "card not assigned to learner", ErrNotOwned)
		assert.True(t, errors.Is(sentinelErr, ErrNotOwned))
	})

	t.Run("errors.Is returns false for different errors", func(t *testing.T) {
		assert.False(t, errors.Is(serviceErr, errors.New("different error")))
	})
}

func TestAssignmentServiceError_ErrorsAs(t *testing.T) {
	originalErr := NewAssignmentServiceError("get_card", "lookup failed", errors.New("inner error"))
	wrappedErr := NewAssignmentServiceError("list_assigned", "listing failed", originalErr)

	t.Run("errors.As finds outermost error", func(t *testing.T) {
		var serviceErr *AssignmentServiceError
		assert.True(t, errors.As(wrappedErr, &serviceErr))
		assert.Equal(t, "list_assigned", serviceErr.Operation)
		assert.Equal(t, "listing failed", serviceErr.Message)
	})

	t.Run("errors.As finds nested error", func(t *testing.T) {
		var serviceErr *AssignmentServiceError
		assert.True(t, errors.As(wrappedErr.Unwrap(), &serviceErr))
		assert.Equal(t, "get_card", serviceErr.Operation)
	})
}

func TestAssignmentServiceError_ChainedErrors(t *testing.T) {
	baseErr := errors.New("database connection lost")
	innerErr := NewAssignmentServiceError("get_card", "lookup failed", baseErr)
	outerErr := NewAssignmentServiceError("revoke_card", "load failed", innerErr)

	t.Run("chained errors maintain unwrapping", func(t *testing.T) {
		assert.True(t, errors.Is(outerErr, baseErr))
		assert.True(t, errors.Is(outerErr, innerErr))
	})

	t.Run("error message includes full context", func(t *testing.T) {
		expected := "assignment service revoke_card failed: load failed: " +
			"assignment service get_card failed: lookup failed: database connection lost"
		assert.Equal(t, expected, outerErr.Error())
	})
}
