package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
)

// MemoryStateStore defines the interface for the derived state cache:
// one row per (learner, card) pair, kept in lockstep with the review log.
type MemoryStateStore interface {
	// Create saves a new memory state row.
	// Returns ErrStateExists if a row for the pair already exists.
	// Returns validation errors from the domain CardMemoryState if data is invalid.
	Create(ctx context.Context, state *domain.CardMemoryState) error

	// Get retrieves the state row for the (learner, card) pair.
	// Returns ErrMemoryStateNotFound if the row does not exist.
	// NOTE: This method does NOT provide any row locking, so it should not
	// be used when you plan to update the row and need concurrency protection.
	Get(ctx context.Context, learnerID, cardID uuid.UUID) (*domain.CardMemoryState, error)

	// GetForUpdate retrieves the state row with a row-level lock using
	// SELECT FOR UPDATE. Must be used within a transaction when the row will
	// be updated, so concurrent reviews of the same pair serialize instead
	// of producing divergent next states.
	// Returns ErrMemoryStateNotFound if the row does not exist.
	GetForUpdate(ctx context.Context, learnerID, cardID uuid.UUID) (*domain.CardMemoryState, error)

	// Update modifies an existing state row.
	// Returns ErrMemoryStateNotFound if the row does not exist.
	// Returns validation errors from the domain CardMemoryState if data is invalid.
	Update(ctx context.Context, state *domain.CardMemoryState) error

	// Delete removes the state row for the (learner, card) pair.
	// Returns ErrMemoryStateNotFound if the row does not exist.
	Delete(ctx context.Context, learnerID, cardID uuid.UUID) error

	// FindDue retrieves up to limit non-new rows due at or before the given
	// time, ordered by due-at ascending. Rows whose card ID appears in
	// exclude are skipped.
	FindDue(
		ctx context.Context,
		learnerID uuid.UUID,
		dueBefore time.Time,
		limit int,
		exclude []uuid.UUID,
	) ([]*domain.CardMemoryState, error)

	// FindNew retrieves up to limit new-stage rows, ordered by the assigned
	// card's introduction position ascending. The ordering is deterministic:
	// repeated calls with an unchanged state set return the same sequence.
	FindNew(ctx context.Context, learnerID uuid.UUID, limit int) ([]*domain.CardMemoryState, error)

	// FindByLearner retrieves every state row for the learner.
	FindByLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.CardMemoryState, error)

	// ReplaceForLearner deletes every state row for the learner and inserts
	// the given rows as one operation. Used by cache rebuilds: delete+recreate
	// rather than upsert, so revoked cards never leave orphaned rows.
	// IMPORTANT: must be run within a transaction via WithTx.
	ReplaceForLearner(ctx context.Context, learnerID uuid.UUID, states []*domain.CardMemoryState) error

	// WithTx returns a new MemoryStateStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) MemoryStateStore
}
