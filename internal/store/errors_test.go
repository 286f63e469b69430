package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		isNotFound  bool
		isDuplicate bool
		isInternal  bool
	}{
		{name: "nil error", err: nil},
		{name: "unrelated error", err: errors.New("disk full")},
		{name: "ErrNotFound", err: ErrNotFound, isNotFound: true},
		{
			name:       "wrapped ErrNotFound",
			err:        fmt.Errorf("loading state: %w", ErrNotFound),
			isNotFound: true,
		},
		{name: "ErrLearnerNotFound", err: ErrLearnerNotFound, isNotFound: true},
		{name: "ErrCardNotFound", err: ErrCardNotFound, isNotFound: true},
		{name: "ErrMemoryStateNotFound", err: ErrMemoryStateNotFound, isNotFound: true},
		{name: "ErrParametersNotFound", err: ErrParametersNotFound, isNotFound: true},
		{name: "ErrDuplicate", err: ErrDuplicate, isDuplicate: true},
		{name: "ErrEmailExists", err: ErrEmailExists, isDuplicate: true},
		{
			name:        "wrapped ErrStateExists",
			err:         fmt.Errorf("inserting state row: %w", ErrStateExists),
			isDuplicate: true,
		},
		{name: "ErrInternal", err: ErrInternal, isInternal: true},
		{
			name:       "wrapped ErrInternal",
			err:        fmt.Errorf("scanning row: %w", ErrInternal),
			isInternal: true,
		},
		// Lock contention is its own category, not a not-found or duplicate.
		{name: "ErrLockNotAvailable", err: ErrLockNotAvailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.isNotFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.isDuplicate, IsDuplicateError(tt.err))
			assert.Equal(t, tt.isInternal, IsInternalError(tt.err))
		})
	}
}

func TestEntityErrorsWrapTheirCategory(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ErrMemoryStateNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrParametersNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrStateExists, ErrDuplicate)
	assert.NotErrorIs(t, ErrStateExists, ErrNotFound)
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	t.Run("formats with wrapped error", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("connection reset")
		err := NewStoreError("card_memory_state", "upsert", "write failed", cause)

		assert.Equal(t,
			"upsert operation on card_memory_state failed: write failed: connection reset",
			err.Error())
		assert.ErrorIs(t, err, cause)

		var storeErr *StoreError
		assert.ErrorAs(t, fmt.Errorf("outer: %w", err), &storeErr)
		assert.Equal(t, "upsert", storeErr.Operation)
	})

	t.Run("formats without wrapped error", func(t *testing.T) {
		t.Parallel()
		err := NewStoreError("review_event", "append", "payload too large", nil)

		assert.Equal(t,
			"append operation on review_event failed: payload too large",
			err.Error())
		assert.Nil(t, err.Unwrap())
	})
}
