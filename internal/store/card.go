package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
)

// CardStore defines the interface for card content persistence.
// Card rows also encode the assignment set: the cards assigned to a
// learner are what the cache rebuilder and new-card discovery consult.
type CardStore interface {
	// CreateMultiple saves a batch of cards to the store.
	// IMPORTANT: This method MUST be run within a transaction for atomicity.
	// Use the WithTx method with store.RunInTransaction.
	// Returns validation errors if any card data is invalid.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListByIDs retrieves the cards with the given IDs. Missing IDs are
	// silently skipped; the result order is unspecified.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error)

	// ListAssigned retrieves every card assigned to the learner, ordered
	// by introduction position ascending.
	ListAssigned(ctx context.Context, learnerID uuid.UUID) ([]*domain.Card, error)

	// Delete removes a card. Dependent memory state rows and review events
	// are removed by the schema's cascade rules.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new CardStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) CardStore
}
