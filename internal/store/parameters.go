package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
)

// ModelParametersStore defines the interface for versioned per-learner
// memory model parameter persistence. The single-active-version invariant
// is enforced here: activation always deactivates the previous version in
// the same statement set.
type ModelParametersStore interface {
	// GetActive retrieves the learner's currently active parameter version.
	// Returns ErrParametersNotFound if the learner has no active version.
	GetActive(ctx context.Context, learnerID uuid.UUID) (*domain.ModelParameters, error)

	// SaveAndActivate persists a new parameter version and flips the active
	// flag from the old version to the new one.
	// IMPORTANT: must be run within a transaction via WithTx so exactly one
	// version is active at any point in time.
	SaveAndActivate(ctx context.Context, params *domain.ModelParameters) error

	// WithTx returns a new ModelParametersStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) ModelParametersStore
}
