package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
)

// LearnerStore defines the interface for learner account persistence.
type LearnerStore interface {
	// Create saves a new learner to the store.
	// The learner's password must already be hashed.
	// Returns ErrEmailExists if a learner with the same email exists.
	Create(ctx context.Context, learner *domain.Learner) error

	// GetByID retrieves a learner by their unique ID.
	// Returns ErrLearnerNotFound if the learner does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Learner, error)

	// GetByEmail retrieves a learner by their email address.
	// Returns ErrLearnerNotFound if the learner does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.Learner, error)

	// UpdateStatus changes a learner's account status.
	// Returns ErrLearnerNotFound if the learner does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LearnerStatus) error

	// WithTx returns a new LearnerStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) LearnerStore
}
