package postgres

import (
	"context"
	"encoding/binary"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/store"
)

// AdvisoryLocker coordinates cache rebuilds with concurrent review writes
// using PostgreSQL transaction-scoped advisory locks. Rebuilds hold the
// exclusive lock for a learner; review recording holds the shared lock, so
// any number of reviews may proceed concurrently but never during a rebuild.
//
// Locks are transaction-scoped (pg_advisory_xact_lock family), so they are
// released automatically on commit or rollback and cannot leak.
type AdvisoryLocker struct {
	logger *slog.Logger
}

// NewAdvisoryLocker creates a new AdvisoryLocker.
// If logger is nil, a default logger will be used.
func NewAdvisoryLocker(logger *slog.Logger) *AdvisoryLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisoryLocker{
		logger: logger.With(slog.String("component", "advisory_locker")),
	}
}

// learnerLockKey derives a stable 64-bit advisory lock key from a learner ID.
// The first eight bytes of the UUID are enough: collisions across learners
// would only cause spurious lock waits, never correctness issues.
func learnerLockKey(learnerID uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(learnerID[:8]))
}

// AcquireExclusive blocks until the exclusive advisory lock for the learner
// is held by the given transaction. The lock is released when the
// transaction ends.
func (l *AdvisoryLocker) AcquireExclusive(ctx context.Context, tx store.DBTX, learnerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, l.logger)

	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, learnerLockKey(learnerID))
	if err != nil {
		log.Error("failed to acquire exclusive advisory lock",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return err
	}

	log.Debug("exclusive advisory lock acquired",
		slog.String("learner_id", learnerID.String()))
	return nil
}

// TryAcquireShared attempts to take the shared advisory lock for the learner
// without blocking. It returns false when the exclusive lock is held, which
// means a rebuild is in progress.
func (l *AdvisoryLocker) TryAcquireShared(ctx context.Context, tx store.DBTX, learnerID uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	var acquired bool
	err := tx.QueryRowContext(
		ctx,
		`SELECT pg_try_advisory_xact_lock_shared($1)`,
		learnerLockKey(learnerID),
	).Scan(&acquired)
	if err != nil {
		log.Error("failed to try shared advisory lock",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return false, err
	}

	if !acquired {
		log.Debug("shared advisory lock unavailable, rebuild in progress",
			slog.String("learner_id", learnerID.String()))
	}
	return acquired, nil
}
