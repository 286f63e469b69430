package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// CreateMultiple implements store.CardStore.CreateMultiple
// It saves a batch of cards. Must run inside a transaction supplied via WithTx.
// Returns store.ErrInvalidEntity if a card references a missing learner.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("card validation failed during batch create",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO cards (id, learner_id, content, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, card := range cards {
		_, err := s.db.ExecContext(
			ctx,
			query,
			card.ID,
			card.LearnerID,
			card.Content,
			card.Position,
			card.CreatedAt,
			card.UpdatedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				log.Warn("foreign key violation during card creation",
					slog.String("card_id", card.ID.String()),
					slog.String("learner_id", card.LearnerID.String()))
				return fmt.Errorf("%w: learner with ID %s not found",
					store.ErrInvalidEntity, card.LearnerID)
			}

			log.Error("failed to create card",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return err
		}
	}

	log.Info("cards created successfully", slog.Int("count", len(cards)))
	return nil
}

// GetByID implements store.CardStore.GetByID
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, learner_id, content, position, created_at, updated_at
		FROM cards
		WHERE id = $1
	`

	var card domain.Card
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&card.ID,
		&card.LearnerID,
		&card.Content,
		&card.Position,
		&card.CreatedAt,
		&card.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, err
	}

	return &card, nil
}

// ListByIDs implements store.CardStore.ListByIDs
// Missing IDs are silently skipped.
func (s *PostgresCardStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return []*domain.Card{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, learner_id, content, position, created_at, updated_at
		FROM cards
		WHERE id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query cards by IDs",
			slog.String("error", err.Error()),
			slog.Int("id_count", len(ids)))
		return nil, err
	}

	return s.collectCards(rows, log)
}

// ListAssigned implements store.CardStore.ListAssigned
// Cards are ordered by introduction position ascending.
func (s *PostgresCardStore) ListAssigned(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, learner_id, content, position, created_at, updated_at
		FROM cards
		WHERE learner_id = $1
		ORDER BY position ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to query assigned cards",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	return s.collectCards(rows, log)
}

// Delete implements store.CardStore.Delete
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM cards WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return err
	}

	if err := CheckRowsAffected(result, "card"); err != nil {
		log.Debug("card not found for delete", slog.String("card_id", id.String()))
		return store.ErrCardNotFound
	}

	log.Info("card deleted", slog.String("card_id", id.String()))
	return nil
}

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}

// collectCards drains a card result set, checking rows.Err at the end.
func (s *PostgresCardStore) collectCards(rows *sql.Rows, log *slog.Logger) ([]*domain.Card, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var cards []*domain.Card
	for rows.Next() {
		var card domain.Card
		err := rows.Scan(
			&card.ID,
			&card.LearnerID,
			&card.Content,
			&card.Position,
			&card.CreatedAt,
			&card.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan card row", slog.String("error", err.Error()))
			return nil, err
		}
		cards = append(cards, &card)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning card rows", slog.String("error", err.Error()))
		return nil, err
	}

	if cards == nil {
		cards = []*domain.Card{}
	}
	return cards, nil
}
