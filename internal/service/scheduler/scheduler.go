// Package scheduler implements the review scheduling core: recording
// reviews atomically against the history log and state cache, assembling
// practice queues, rebuilding the cache from history, fitting personalized
// model parameters, and selecting confident candidate cards.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
)

// QueueItem is one entry of an assembled practice queue: the card joined
// with its cached memory state, tagged with whether it is new material.
type QueueItem struct {
	Card  *domain.Card            `json:"card"`
	State *domain.CardMemoryState `json:"state"`
	IsNew bool                    `json:"is_new"`
}

// InitialQueue is the pre-interleave form of a practice queue: due and new
// items kept separate so callers can apply their own interleaving or
// enrichment before presenting.
type InitialQueue struct {
	DueItems []*QueueItem `json:"due_items"`
	NewItems []*QueueItem `json:"new_items"`
}

// QueueConfig bounds queue assembly. Zero values fall back to the
// service's configured defaults.
type QueueConfig struct {
	NewCount int `json:"new_count"`
	MaxDue   int `json:"max_due"`
	MinDue   int `json:"min_due"`
}

// OptimizationResult reports the outcome of a parameter optimization run.
// A skipped run is a status, not an error: the learner simply has not
// accumulated enough history yet.
type OptimizationResult struct {
	Skipped      bool      `json:"skipped"`
	TrainingSize int       `json:"training_size"`
	VersionID    uuid.UUID `json:"version_id,omitempty"`
}

// RebuildResult reports how many cache rows a rebuild produced.
type RebuildResult struct {
	RowsRebuilt int `json:"rows_rebuilt"`
}

// Service provides the review scheduling capability interface consumed by
// exercise-specific strategies. The core stays exercise-agnostic: every
// exercise type calls the same operations.
type Service interface {
	// RecordReview processes one review of a card. It updates the cached
	// memory state and appends a history event in a single transaction.
	//
	// Returns:
	//   - (*domain.CardMemoryState, nil): the post-review state
	//   - (nil, ErrNoPriorState): no cache row exists for the pair; the card
	//     was never initialized for this learner and the review is rejected
	//   - (nil, domain.ErrInvalidRating): the rating is outside 1..4
	//   - (nil, ErrRebuildInProgress): a cache rebuild currently holds the
	//     learner's exclusive lock; the caller may retry shortly
	//   - (nil, ErrConcurrencyConflict): lock contention persisted past the
	//     bounded retries
	RecordReview(
		ctx context.Context,
		learnerID, cardID uuid.UUID,
		rating domain.ReviewRating,
		sessionID *uuid.UUID,
	) (*domain.CardMemoryState, error)

	// AssembleQueue builds an ordered practice queue of due and new items,
	// with new items spaced evenly among due items. An empty queue means
	// the learner is done for now.
	AssembleQueue(ctx context.Context, learnerID uuid.UUID, cfg QueueConfig) ([]*QueueItem, error)

	// GetInitialQueue returns the due and new item lists before
	// interleaving, for callers that apply their own ordering.
	GetInitialQueue(ctx context.Context, learnerID uuid.UUID, cfg QueueConfig) (*InitialQueue, error)

	// GetDueCards returns the learner's currently due cards joined with
	// content. Suspended learners get an empty list, never an error.
	GetDueCards(ctx context.Context, learnerID uuid.UUID, limit int) ([]*QueueItem, error)

	// SelectCandidates returns a randomized sample of cards the learner is
	// likely to recall right now, up to the configured cap.
	SelectCandidates(ctx context.Context, learnerID uuid.UUID) ([]*QueueItem, error)

	// RebuildCache deletes and recreates every cache row for the learner by
	// replaying their full review history. Concurrent reviews for the
	// learner are excluded for the duration.
	RebuildCache(ctx context.Context, learnerID uuid.UUID) (*RebuildResult, error)

	// OptimizeParameters fits a personalized weight vector from the
	// learner's review history and activates it. Reading and fitting run
	// outside any transaction; only the final activation writes.
	OptimizeParameters(ctx context.Context, learnerID uuid.UUID) (*OptimizationResult, error)
}

// Common error types for the scheduler service
var (
	// ErrNoPriorState indicates a review arrived for a pair with no cache
	// row. This is an integrity failure and is never auto-healed: silently
	// creating the row would mask an assignment bug.
	ErrNoPriorState = errors.New("no memory state initialized for this card")

	// ErrConcurrencyConflict indicates lock contention that outlasted the
	// bounded retry loop. The operation may be retried by the caller.
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")

	// ErrRebuildInProgress indicates a cache rebuild holds the learner's
	// exclusive lock. Retryable once the rebuild finishes.
	ErrRebuildInProgress = errors.New("cache rebuild in progress for learner")

	// ErrLearnerNotFound indicates the learner does not exist.
	ErrLearnerNotFound = errors.New("learner not found")
)

// ServiceError wraps errors from the scheduler service with the failing
// operation, so consumers can differentiate using errors.As instead of
// string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g. "record_review")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError builds a ServiceError for the given operation.
func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// durationFromDays converts a fractional day count into a duration.
func durationFromDays(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
