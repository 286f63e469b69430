package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// PostgresReviewEventStore implements the store.ReviewEventStore interface
// using a PostgreSQL database as the storage backend. The table is
// append-only: no update or delete statements exist here.
type PostgresReviewEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewEventStore creates a new PostgreSQL implementation of the
// ReviewEventStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewEventStore(db store.DBTX, logger *slog.Logger) *PostgresReviewEventStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_event_store")),
	}
}

// Ensure PostgresReviewEventStore implements store.ReviewEventStore interface
var _ store.ReviewEventStore = (*PostgresReviewEventStore)(nil)

const reviewEventColumns = `
	id, learner_id, card_id, rating, occurred_at,
	stability_before, difficulty_before, stage_before, due_at_before,
	session_id, created_at
`

// Append implements store.ReviewEventStore.Append
// Returns store.ErrInvalidEntity if the event references a missing learner or card.
func (s *PostgresReviewEventStore) Append(ctx context.Context, event *domain.ReviewEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		log.Warn("review event validation failed during append",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return err
	}

	query := `
		INSERT INTO review_events (` + reviewEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var sessionID any
	if event.SessionID != nil {
		sessionID = *event.SessionID
	}

	_, err := s.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.LearnerID,
		event.CardID,
		int(event.Rating),
		event.OccurredAt,
		event.StabilityBefore,
		event.DifficultyBefore,
		string(event.StageBefore),
		event.DueAtBefore,
		sessionID,
		event.CreatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during event append",
				slog.String("event_id", event.ID.String()),
				slog.String("learner_id", event.LearnerID.String()),
				slog.String("card_id", event.CardID.String()))
			return fmt.Errorf("%w: learner or card not found", store.ErrInvalidEntity)
		}

		log.Error("failed to append review event",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return err
	}

	log.Debug("review event appended",
		slog.String("event_id", event.ID.String()),
		slog.String("card_id", event.CardID.String()),
		slog.Int("rating", int(event.Rating)))
	return nil
}

// ListForCard implements store.ReviewEventStore.ListForCard
// Events are ordered by occurred-at ascending, created-at as tiebreak.
func (s *PostgresReviewEventStore) ListForCard(
	ctx context.Context,
	learnerID, cardID uuid.UUID,
) ([]*domain.ReviewEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + reviewEventColumns + `
		FROM review_events
		WHERE learner_id = $1 AND card_id = $2
		ORDER BY occurred_at ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, cardID)
	if err != nil {
		log.Error("failed to query review events for card",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("card_id", cardID.String()))
		return nil, err
	}

	return s.collectEvents(rows, log)
}

// ListForLearner implements store.ReviewEventStore.ListForLearner
// Events are ordered by occurred-at ascending across all cards.
func (s *PostgresReviewEventStore) ListForLearner(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.ReviewEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + reviewEventColumns + `
		FROM review_events
		WHERE learner_id = $1
		ORDER BY occurred_at ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to query review events for learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, err
	}

	return s.collectEvents(rows, log)
}

// CountForLearner implements store.ReviewEventStore.CountForLearner
func (s *PostgresReviewEventStore) CountForLearner(
	ctx context.Context,
	learnerID uuid.UUID,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT COUNT(*) FROM review_events WHERE learner_id = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, learnerID).Scan(&count); err != nil {
		log.Error("failed to count review events",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return 0, err
	}

	return count, nil
}

// WithTx implements store.ReviewEventStore.WithTx
func (s *PostgresReviewEventStore) WithTx(tx *sql.Tx) store.ReviewEventStore {
	return &PostgresReviewEventStore{
		db:     tx,
		logger: s.logger,
	}
}

// collectEvents drains a review event result set, checking rows.Err at the end.
func (s *PostgresReviewEventStore) collectEvents(
	rows *sql.Rows,
	log *slog.Logger,
) ([]*domain.ReviewEvent, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var events []*domain.ReviewEvent
	for rows.Next() {
		var event domain.ReviewEvent
		var rating int
		var stage string
		var sessionID uuid.NullUUID

		err := rows.Scan(
			&event.ID,
			&event.LearnerID,
			&event.CardID,
			&rating,
			&event.OccurredAt,
			&event.StabilityBefore,
			&event.DifficultyBefore,
			&stage,
			&event.DueAtBefore,
			&sessionID,
			&event.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan review event row", slog.String("error", err.Error()))
			return nil, err
		}

		event.Rating = domain.ReviewRating(rating)
		event.StageBefore = domain.CardStage(stage)
		if sessionID.Valid {
			id := sessionID.UUID
			event.SessionID = &id
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning review event rows", slog.String("error", err.Error()))
		return nil, err
	}

	if events == nil {
		events = []*domain.ReviewEvent{}
	}
	return events, nil
}
