package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
)

// ReviewEventStore defines the interface for the append-only review log.
// Events are never updated or deleted individually; the log is the source
// of truth from which every cache row can be re-derived.
type ReviewEventStore interface {
	// Append persists a new review event.
	// Returns validation errors from the domain ReviewEvent if data is invalid.
	Append(ctx context.Context, event *domain.ReviewEvent) error

	// ListForCard retrieves every event for the (learner, card) pair,
	// ordered by occurred-at ascending. Returns an empty slice if none exist.
	ListForCard(ctx context.Context, learnerID, cardID uuid.UUID) ([]*domain.ReviewEvent, error)

	// ListForLearner retrieves every event for the learner across all cards,
	// ordered by occurred-at ascending. Returns an empty slice if none exist.
	ListForLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.ReviewEvent, error)

	// CountForLearner returns the total number of events for the learner.
	CountForLearner(ctx context.Context, learnerID uuid.UUID) (int, error)

	// WithTx returns a new ReviewEventStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) ReviewEventStore
}
