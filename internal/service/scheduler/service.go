package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/config"
	"github.com/recallhq/engram-api/internal/domain/fsrs"
	"github.com/recallhq/engram-api/internal/events"
	"github.com/recallhq/engram-api/internal/store"
)

// AdvisoryLocker coordinates cache rebuilds with concurrent review writes.
// Implemented by the postgres advisory locker; faked in tests.
type AdvisoryLocker interface {
	// AcquireExclusive blocks until the learner's exclusive lock is held by
	// the given transaction.
	AcquireExclusive(ctx context.Context, tx store.DBTX, learnerID uuid.UUID) error

	// TryAcquireShared takes the learner's shared lock without blocking.
	// Returns false when the exclusive lock is held.
	TryAcquireShared(ctx context.Context, tx store.DBTX, learnerID uuid.UUID) (bool, error)
}

// schedulerService is the standard implementation of the Service interface.
type schedulerService struct {
	txRunner     store.TxRunner
	learnerStore store.LearnerStore
	cardStore    store.CardStore
	eventStore   store.ReviewEventStore
	stateStore   store.MemoryStateStore
	paramsStore  store.ModelParametersStore
	locker       AdvisoryLocker
	cfg          config.SchedulerConfig
	logger       *slog.Logger

	// emitter, when set, is used to request follow-up background work
	// such as the post-optimization cache rebuild.
	emitter events.EventEmitter

	// now is injectable so tests can pin time.
	now func() time.Time

	// shuffle randomizes candidate sampling; injectable for deterministic tests.
	shuffle func(n int, swap func(i, j int))

	// isRetryable classifies transient lock-contention errors for the
	// review retry loop. Wired to the postgres contention check in
	// production; defaults to matching store.ErrLockNotAvailable.
	isRetryable func(error) bool
}

// Option configures optional service behavior.
type Option func(*schedulerService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *schedulerService) {
		s.now = now
	}
}

// WithShuffle overrides the candidate sampling shuffle.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(s *schedulerService) {
		s.shuffle = shuffle
	}
}

// WithRetryClassifier overrides the transient-error classifier used by the
// review retry loop.
func WithRetryClassifier(isRetryable func(error) bool) Option {
	return func(s *schedulerService) {
		s.isRetryable = isRetryable
	}
}

// NewService creates a new scheduler service.
// All dependencies are required; a nil dependency returns an error rather
// than deferring the failure to the first request.
func NewService(
	txRunner store.TxRunner,
	learnerStore store.LearnerStore,
	cardStore store.CardStore,
	eventStore store.ReviewEventStore,
	stateStore store.MemoryStateStore,
	paramsStore store.ModelParametersStore,
	locker AdvisoryLocker,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
	opts ...Option,
) (Service, error) {
	if txRunner == nil {
		return nil, fmt.Errorf("txRunner cannot be nil")
	}
	if learnerStore == nil {
		return nil, fmt.Errorf("learnerStore cannot be nil")
	}
	if cardStore == nil {
		return nil, fmt.Errorf("cardStore cannot be nil")
	}
	if eventStore == nil {
		return nil, fmt.Errorf("eventStore cannot be nil")
	}
	if stateStore == nil {
		return nil, fmt.Errorf("stateStore cannot be nil")
	}
	if paramsStore == nil {
		return nil, fmt.Errorf("paramsStore cannot be nil")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &schedulerService{
		txRunner:     txRunner,
		learnerStore: learnerStore,
		cardStore:    cardStore,
		eventStore:   eventStore,
		stateStore:   stateStore,
		paramsStore:  paramsStore,
		locker:       locker,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "scheduler_service")),
		now:          func() time.Time { return time.Now().UTC() },
		shuffle:      rand.Shuffle,
		isRetryable: func(err error) bool {
			return errors.Is(err, store.ErrLockNotAvailable)
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Ensure schedulerService implements the Service interface
var _ Service = (*schedulerService)(nil)

// modelForLearner builds the memory model from the learner's active
// parameter version, falling back to defaults when none exists. Passing a
// nil tx uses the non-transactional store.
func (s *schedulerService) modelForLearner(
	ctx context.Context,
	tx *sql.Tx,
	learnerID uuid.UUID,
) (fsrs.Model, error) {
	paramsStore := s.paramsStore
	if tx != nil {
		paramsStore = paramsStore.WithTx(tx)
	}

	params, err := paramsStore.GetActive(ctx, learnerID)
	if err != nil {
		if errors.Is(err, store.ErrParametersNotFound) {
			return fsrs.NewDefaultModel(), nil
		}
		return nil, err
	}

	return fsrs.NewModelWithWeights(params.Weights), nil
}

// elapsedDaysSince returns the non-negative day count between the last
// review and now. A zero lastReviewedAt means "never reviewed".
func elapsedDaysSince(lastReviewedAt, now time.Time) float64 {
	if lastReviewedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(lastReviewedAt).Hours() / 24
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
