package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// PostgresModelParametersStore implements the store.ModelParametersStore
// interface using a PostgreSQL database as the storage backend.
type PostgresModelParametersStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresModelParametersStore creates a new PostgreSQL implementation of
// the ModelParametersStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresModelParametersStore(db store.DBTX, logger *slog.Logger) *PostgresModelParametersStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresModelParametersStore{
		db:     db,
		logger: logger.With(slog.String("component", "model_parameters_store")),
	}
}

// Ensure PostgresModelParametersStore implements store.ModelParametersStore interface
var _ store.ModelParametersStore = (*PostgresModelParametersStore)(nil)

// GetActive implements store.ModelParametersStore.GetActive
// Returns store.ErrParametersNotFound if the learner has no active version.
func (s *PostgresModelParametersStore) GetActive(
	ctx context.Context,
	learnerID uuid.UUID,
) (*domain.ModelParameters, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, learner_id, weights, training_size, is_active, created_at
		FROM model_parameters
		WHERE learner_id = $1 AND is_active
	`

	var params domain.ModelParameters
	var weightsJSON []byte
	err := s.db.QueryRowContext(ctx, query, learnerID).Scan(
		&params.ID,
		&params.LearnerID,
		&weightsJSON,
		&params.TrainingSize,
		&params.IsActive,
		&params.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no active model parameters",
				slog.String("learner_id", learnerID.String()))
			return nil, store.ErrParametersNotFound
		}
		log.Error("failed to get active model parameters",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	if err := json.Unmarshal(weightsJSON, &params.Weights); err != nil {
		log.Error("failed to decode model parameter weights",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to decode weights: %w", err)
	}

	return &params, nil
}

// SaveAndActivate implements store.ModelParametersStore.SaveAndActivate
// Deactivates the current version and inserts the new one as active.
// Must run inside a transaction supplied via WithTx so exactly one version
// is ever active.
func (s *PostgresModelParametersStore) SaveAndActivate(
	ctx context.Context,
	params *domain.ModelParameters,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	deactivate := `
		UPDATE model_parameters
		SET is_active = FALSE
		WHERE learner_id = $1 AND is_active
	`
	if _, err := s.db.ExecContext(ctx, deactivate, params.LearnerID); err != nil {
		log.Error("failed to deactivate previous model parameters",
			slog.String("error", err.Error()),
			slog.String("learner_id", params.LearnerID.String()))
		return err
	}

	weightsJSON, err := json.Marshal(params.Weights)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}

	insert := `
		INSERT INTO model_parameters (id, learner_id, weights, training_size, is_active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
	`
	_, err = s.db.ExecContext(
		ctx,
		insert,
		params.ID,
		params.LearnerID,
		weightsJSON,
		params.TrainingSize,
		params.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: learner with ID %s not found",
				store.ErrInvalidEntity, params.LearnerID)
		}
		log.Error("failed to insert model parameters",
			slog.String("error", err.Error()),
			slog.String("learner_id", params.LearnerID.String()))
		return err
	}

	log.Info("model parameters activated",
		slog.String("learner_id", params.LearnerID.String()),
		slog.String("version_id", params.ID.String()),
		slog.Int("training_size", params.TrainingSize))
	return nil
}

// WithTx implements store.ModelParametersStore.WithTx
func (s *PostgresModelParametersStore) WithTx(tx *sql.Tx) store.ModelParametersStore {
	return &PostgresModelParametersStore{
		db:     tx,
		logger: s.logger,
	}
}
