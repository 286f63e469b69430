package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/service/auth"
	"github.com/recallhq/engram-api/internal/store"
)

// Learner service errors
var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so responses do not leak which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// LearnerService provides learner account operations.
type LearnerService interface {
	// Register creates a new learner account with a hashed password.
	Register(ctx context.Context, email, password string) (*domain.Learner, error)

	// Authenticate verifies the credentials and returns the learner.
	// Returns ErrInvalidCredentials on any mismatch.
	Authenticate(ctx context.Context, email, password string) (*domain.Learner, error)

	// GetLearner retrieves a learner by their ID.
	GetLearner(ctx context.Context, learnerID uuid.UUID) (*domain.Learner, error)

	// SetStatus updates the learner's account standing. Suspended learners
	// stop receiving review queues immediately.
	SetStatus(ctx context.Context, learnerID uuid.UUID, status domain.LearnerStatus) error
}

// learnerServiceImpl implements the LearnerService interface
type learnerServiceImpl struct {
	txRunner     store.TxRunner
	learnerStore store.LearnerStore
	verifier     auth.PasswordVerifier
	bcryptCost   int
	logger       *slog.Logger
}

// NewLearnerService creates a new LearnerService.
// It returns an error if any of the required dependencies are nil.
func NewLearnerService(
	txRunner store.TxRunner,
	learnerStore store.LearnerStore,
	verifier auth.PasswordVerifier,
	bcryptCost int,
	logger *slog.Logger,
) (LearnerService, error) {
	if txRunner == nil {
		return nil, fmt.Errorf("txRunner cannot be nil")
	}
	if learnerStore == nil {
		return nil, fmt.Errorf("learnerStore cannot be nil")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &learnerServiceImpl{
		txRunner:     txRunner,
		learnerStore: learnerStore,
		verifier:     verifier,
		bcryptCost:   bcryptCost,
		logger:       logger.With(slog.String("component", "learner_service")),
	}, nil
}

// Register implements LearnerService.Register
func (s *learnerServiceImpl) Register(
	ctx context.Context,
	email, password string,
) (*domain.Learner, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	learner, err := domain.NewLearner(email, password)
	if err != nil {
		log.Debug("learner registration rejected by validation",
			slog.String("error", err.Error()))
		return nil, err
	}

	hashed, err := auth.HashPassword(learner.Password, s.bcryptCost)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	learner.HashedPassword = hashed
	learner.Password = ""

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.learnerStore.WithTx(tx).Create(ctx, learner)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register with existing email")
			return nil, err
		}
		log.Error("failed to save learner", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save learner: %w", err)
	}

	log.Info("learner registered", slog.String("learner_id", learner.ID.String()))
	return learner, nil
}

// Authenticate implements LearnerService.Authenticate
func (s *learnerServiceImpl) Authenticate(
	ctx context.Context,
	email, password string,
) (*domain.Learner, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	learner, err := s.learnerStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrLearnerNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to load learner by email", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load learner: %w", err)
	}

	if err := s.verifier.Compare(learner.HashedPassword, password); err != nil {
		log.Debug("password mismatch during authentication",
			slog.String("learner_id", learner.ID.String()))
		return nil, ErrInvalidCredentials
	}

	return learner, nil
}

// GetLearner implements LearnerService.GetLearner
func (s *learnerServiceImpl) GetLearner(
	ctx context.Context,
	learnerID uuid.UUID,
) (*domain.Learner, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	learner, err := s.learnerStore.GetByID(ctx, learnerID)
	if err != nil {
		log.Error("failed to retrieve learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, fmt.Errorf("failed to retrieve learner: %w", err)
	}

	return learner, nil
}

// SetStatus implements LearnerService.SetStatus
func (s *learnerServiceImpl) SetStatus(
	ctx context.Context,
	learnerID uuid.UUID,
	status domain.LearnerStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.learnerStore.UpdateStatus(ctx, learnerID, status); err != nil {
		log.Error("failed to update learner status",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("status", string(status)))
		return fmt.Errorf("failed to update learner status: %w", err)
	}

	return nil
}
