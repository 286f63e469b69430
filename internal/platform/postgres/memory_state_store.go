package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// PostgresMemoryStateStore implements the store.MemoryStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMemoryStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMemoryStateStore creates a new PostgreSQL implementation of the
// MemoryStateStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMemoryStateStore(db store.DBTX, logger *slog.Logger) *PostgresMemoryStateStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMemoryStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "memory_state_store")),
	}
}

// Ensure PostgresMemoryStateStore implements store.MemoryStateStore interface
var _ store.MemoryStateStore = (*PostgresMemoryStateStore)(nil)

const memoryStateColumns = `
	learner_id, card_id, stability, difficulty, due_at,
	last_reviewed_at, rep_count, lapse_count, stage, created_at, updated_at
`

// Create implements store.MemoryStateStore.Create
// Returns store.ErrStateExists if a row for the pair already exists.
func (s *PostgresMemoryStateStore) Create(ctx context.Context, state *domain.CardMemoryState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("memory state validation failed during create",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("card_id", state.CardID.String()))
		return err
	}

	query := `
		INSERT INTO card_memory_states (` + memoryStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query, s.stateArgs(state)...)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("memory state already exists",
				slog.String("learner_id", state.LearnerID.String()),
				slog.String("card_id", state.CardID.String()))
			return fmt.Errorf("%w: %v", store.ErrStateExists, err)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: learner or card not found", store.ErrInvalidEntity)
		}

		log.Error("failed to create memory state",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("card_id", state.CardID.String()))
		return err
	}

	log.Debug("memory state created",
		slog.String("learner_id", state.LearnerID.String()),
		slog.String("card_id", state.CardID.String()))
	return nil
}

// Get implements store.MemoryStateStore.Get
// Returns store.ErrMemoryStateNotFound if the row does not exist.
func (s *PostgresMemoryStateStore) Get(
	ctx context.Context,
	learnerID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	return s.get(ctx, learnerID, cardID, false)
}

// GetForUpdate implements store.MemoryStateStore.GetForUpdate
// It locks the row with SELECT FOR UPDATE; must run inside a transaction.
// Returns store.ErrMemoryStateNotFound if the row does not exist.
func (s *PostgresMemoryStateStore) GetForUpdate(
	ctx context.Context,
	learnerID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	return s.get(ctx, learnerID, cardID, true)
}

func (s *PostgresMemoryStateStore) get(
	ctx context.Context,
	learnerID, cardID uuid.UUID,
	forUpdate bool,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + memoryStateColumns + `
		FROM card_memory_states
		WHERE learner_id = $1 AND card_id = $2
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	state, err := scanMemoryState(s.db.QueryRowContext(ctx, query, learnerID, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("memory state not found",
				slog.String("learner_id", learnerID.String()),
				slog.String("card_id", cardID.String()))
			return nil, store.ErrMemoryStateNotFound
		}
		log.Error("failed to get memory state",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("card_id", cardID.String()))
		return nil, err
	}

	return state, nil
}

// Update implements store.MemoryStateStore.Update
// Returns store.ErrMemoryStateNotFound if the row does not exist.
func (s *PostgresMemoryStateStore) Update(ctx context.Context, state *domain.CardMemoryState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("memory state validation failed during update",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("card_id", state.CardID.String()))
		return err
	}

	query := `
		UPDATE card_memory_states
		SET stability = $3, difficulty = $4, due_at = $5, last_reviewed_at = $6,
		    rep_count = $7, lapse_count = $8, stage = $9, updated_at = $10
		WHERE learner_id = $1 AND card_id = $2
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		state.LearnerID,
		state.CardID,
		state.Stability,
		state.Difficulty,
		state.DueAt,
		nullableTime(state.LastReviewedAt),
		state.RepCount,
		state.LapseCount,
		string(state.Stage),
		state.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update memory state",
			slog.String("error", err.Error()),
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("card_id", state.CardID.String()))
		return err
	}

	if err := CheckRowsAffected(result, "card memory state"); err != nil {
		log.Debug("memory state not found for update",
			slog.String("learner_id", state.LearnerID.String()),
			slog.String("card_id", state.CardID.String()))
		return store.ErrMemoryStateNotFound
	}

	log.Debug("memory state updated",
		slog.String("learner_id", state.LearnerID.String()),
		slog.String("card_id", state.CardID.String()),
		slog.String("stage", string(state.Stage)))
	return nil
}

// Delete implements store.MemoryStateStore.Delete
// Returns store.ErrMemoryStateNotFound if the row does not exist.
func (s *PostgresMemoryStateStore) Delete(ctx context.Context, learnerID, cardID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM card_memory_states WHERE learner_id = $1 AND card_id = $2`

	result, err := s.db.ExecContext(ctx, query, learnerID, cardID)
	if err != nil {
		log.Error("failed to delete memory state",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("card_id", cardID.String()))
		return err
	}

	if err := CheckRowsAffected(result, "card memory state"); err != nil {
		return store.ErrMemoryStateNotFound
	}

	return nil
}

// FindDue implements store.MemoryStateStore.FindDue
// Non-new rows due at or before dueBefore, ordered by due-at ascending.
func (s *PostgresMemoryStateStore) FindDue(
	ctx context.Context,
	learnerID uuid.UUID,
	dueBefore time.Time,
	limit int,
	exclude []uuid.UUID,
) ([]*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return []*domain.CardMemoryState{}, nil
	}

	args := []any{learnerID, dueBefore, string(domain.StageNew)}
	var excludeClause string
	if len(exclude) > 0 {
		placeholders := make([]string, len(exclude))
		for i, id := range exclude {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		excludeClause = fmt.Sprintf("AND card_id NOT IN (%s)", strings.Join(placeholders, ", "))
	}

	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT `+memoryStateColumns+`
		FROM card_memory_states
		WHERE learner_id = $1 AND due_at <= $2 AND stage <> $3 %s
		ORDER BY due_at ASC, card_id ASC
		LIMIT $%d
	`, excludeClause, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query due memory states",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	return s.collectStates(rows, log)
}

// FindNew implements store.MemoryStateStore.FindNew
// New-stage rows ordered by the card's introduction position: a stable
// curriculum order, never random.
func (s *PostgresMemoryStateStore) FindNew(
	ctx context.Context,
	learnerID uuid.UUID,
	limit int,
) ([]*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return []*domain.CardMemoryState{}, nil
	}

	query := `
		SELECT s.learner_id, s.card_id, s.stability, s.difficulty, s.due_at,
		       s.last_reviewed_at, s.rep_count, s.lapse_count, s.stage,
		       s.created_at, s.updated_at
		FROM card_memory_states s
		JOIN cards c ON c.id = s.card_id
		WHERE s.learner_id = $1 AND s.stage = $2
		ORDER BY c.position ASC, c.created_at ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, string(domain.StageNew), limit)
	if err != nil {
		log.Error("failed to query new memory states",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	return s.collectStates(rows, log)
}

// FindByLearner implements store.MemoryStateStore.FindByLearner
func (s *PostgresMemoryStateStore) FindByLearner(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + memoryStateColumns + `
		FROM card_memory_states
		WHERE learner_id = $1
		ORDER BY card_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to query memory states for learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	return s.collectStates(rows, log)
}

// ReplaceForLearner implements store.MemoryStateStore.ReplaceForLearner
// Delete-then-insert keeps the cache exactly aligned with the freshly
// computed set; revoked cards never leave orphaned rows behind.
// Must run inside a transaction supplied via WithTx.
func (s *PostgresMemoryStateStore) ReplaceForLearner(
	ctx context.Context,
	learnerID uuid.UUID,
	states []*domain.CardMemoryState,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, state := range states {
		if err := state.Validate(); err != nil {
			log.Warn("memory state validation failed during replace",
				slog.String("error", err.Error()),
				slog.String("card_id", state.CardID.String()))
			return err
		}
	}

	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM card_memory_states WHERE learner_id = $1`,
		learnerID,
	); err != nil {
		log.Error("failed to delete memory states for replace",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return err
	}

	insert := `
		INSERT INTO card_memory_states (` + memoryStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, state := range states {
		if _, err := s.db.ExecContext(ctx, insert, s.stateArgs(state)...); err != nil {
			log.Error("failed to insert memory state during replace",
				slog.String("error", err.Error()),
				slog.String("card_id", state.CardID.String()))
			return err
		}
	}

	log.Info("memory states replaced",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(states)))
	return nil
}

// WithTx implements store.MemoryStateStore.WithTx
func (s *PostgresMemoryStateStore) WithTx(tx *sql.Tx) store.MemoryStateStore {
	return &PostgresMemoryStateStore{
		db:     tx,
		logger: s.logger,
	}
}

// stateArgs renders a state row as insert arguments in column order.
func (s *PostgresMemoryStateStore) stateArgs(state *domain.CardMemoryState) []any {
	return []any{
		state.LearnerID,
		state.CardID,
		state.Stability,
		state.Difficulty,
		state.DueAt,
		nullableTime(state.LastReviewedAt),
		state.RepCount,
		state.LapseCount,
		string(state.Stage),
		state.CreatedAt,
		state.UpdatedAt,
	}
}

// collectStates drains a memory state result set, checking rows.Err at the end.
func (s *PostgresMemoryStateStore) collectStates(
	rows *sql.Rows,
	log *slog.Logger,
) ([]*domain.CardMemoryState, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var states []*domain.CardMemoryState
	for rows.Next() {
		state, err := scanMemoryState(rows)
		if err != nil {
			log.Error("failed to scan memory state row", slog.String("error", err.Error()))
			return nil, err
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning memory state rows", slog.String("error", err.Error()))
		return nil, err
	}

	if states == nil {
		states = []*domain.CardMemoryState{}
	}
	return states, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMemoryState scans one memory state row.
func scanMemoryState(row rowScanner) (*domain.CardMemoryState, error) {
	var state domain.CardMemoryState
	var stage string
	var lastReviewed sql.NullTime

	err := row.Scan(
		&state.LearnerID,
		&state.CardID,
		&state.Stability,
		&state.Difficulty,
		&state.DueAt,
		&lastReviewed,
		&state.RepCount,
		&state.LapseCount,
		&stage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Stage = domain.CardStage(stage)
	if lastReviewed.Valid {
		state.LastReviewedAt = lastReviewed.Time
	}

	return &state, nil
}

// nullableTime converts a zero time into a SQL NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
