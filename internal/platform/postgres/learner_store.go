package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// PostgresLearnerStore implements the store.LearnerStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLearnerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearnerStore creates a new PostgreSQL implementation of the LearnerStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresLearnerStore(db store.DBTX, logger *slog.Logger) *PostgresLearnerStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLearnerStore{
		db:     db,
		logger: logger.With(slog.String("component", "learner_store")),
	}
}

// Ensure PostgresLearnerStore implements store.LearnerStore interface
var _ store.LearnerStore = (*PostgresLearnerStore)(nil)

// Create implements store.LearnerStore.Create
// It saves a new learner to the database. The password must already be hashed.
// Returns store.ErrEmailExists if a learner with the same email exists.
func (s *PostgresLearnerStore) Create(ctx context.Context, learner *domain.Learner) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := learner.Validate(); err != nil {
		log.Warn("learner validation failed during create",
			slog.String("error", err.Error()),
			slog.String("learner_id", learner.ID.String()))
		return err
	}

	query := `
		INSERT INTO learners (id, email, hashed_password, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		learner.ID,
		learner.Email,
		learner.HashedPassword,
		learner.Status,
		learner.CreatedAt,
		learner.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate email during learner creation",
				slog.String("learner_id", learner.ID.String()))
			return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
		}

		log.Error("failed to create learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learner.ID.String()))
		return err
	}

	log.Info("learner created successfully",
		slog.String("learner_id", learner.ID.String()))
	return nil
}

// GetByID implements store.LearnerStore.GetByID
// Returns store.ErrLearnerNotFound if the learner does not exist.
func (s *PostgresLearnerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Learner, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, email, hashed_password, status, created_at, updated_at
		FROM learners
		WHERE id = $1
	`

	learner, err := s.scanLearner(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("learner not found", slog.String("learner_id", id.String()))
			return nil, store.ErrLearnerNotFound
		}
		log.Error("failed to get learner by ID",
			slog.String("error", err.Error()),
			slog.String("learner_id", id.String()))
		return nil, err
	}

	return learner, nil
}

// GetByEmail implements store.LearnerStore.GetByEmail
// Returns store.ErrLearnerNotFound if the learner does not exist.
func (s *PostgresLearnerStore) GetByEmail(ctx context.Context, email string) (*domain.Learner, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, email, hashed_password, status, created_at, updated_at
		FROM learners
		WHERE email = $1
	`

	learner, err := s.scanLearner(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("learner not found by email")
			return nil, store.ErrLearnerNotFound
		}
		log.Error("failed to get learner by email",
			slog.String("error", err.Error()))
		return nil, err
	}

	return learner, nil
}

// UpdateStatus implements store.LearnerStore.UpdateStatus
// Returns store.ErrLearnerNotFound if the learner does not exist.
func (s *PostgresLearnerStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.LearnerStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE learners
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update learner status",
			slog.String("error", err.Error()),
			slog.String("learner_id", id.String()),
			slog.String("status", string(status)))
		return err
	}

	if err := CheckRowsAffected(result, "learner"); err != nil {
		log.Debug("learner not found for status update",
			slog.String("learner_id", id.String()))
		return store.ErrLearnerNotFound
	}

	log.Info("learner status updated",
		slog.String("learner_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// WithTx implements store.LearnerStore.WithTx
func (s *PostgresLearnerStore) WithTx(tx *sql.Tx) store.LearnerStore {
	return &PostgresLearnerStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanLearner scans one learner row from the given row scanner.
func (s *PostgresLearnerStore) scanLearner(row *sql.Row) (*domain.Learner, error) {
	var learner domain.Learner
	var status string

	err := row.Scan(
		&learner.ID,
		&learner.Email,
		&learner.HashedPassword,
		&status,
		&learner.CreatedAt,
		&learner.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	learner.Status = domain.LearnerStatus(status)
	return &learner, nil
}
