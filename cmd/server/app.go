package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/recallhq/engram-api/internal/config"
	"github.com/recallhq/engram-api/internal/events"
	"github.com/recallhq/engram-api/internal/platform/postgres"
	"github.com/recallhq/engram-api/internal/service"
	"github.com/recallhq/engram-api/internal/service/auth"
	"github.com/recallhq/engram-api/internal/service/scheduler"
	"github.com/recallhq/engram-api/internal/store"
	"github.com/recallhq/engram-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	learnerStore store.LearnerStore
	cardStore    store.CardStore
	eventStore   store.ReviewEventStore
	stateStore   store.MemoryStateStore
	paramsStore  store.ModelParametersStore
	taskStore    task.TaskStore

	// Service interfaces
	jwtService        auth.JWTService
	passwordVerifier  auth.PasswordVerifier
	learnerService    service.LearnerService
	assignmentService service.AssignmentService
	schedulerService  scheduler.Service
	jobService        *task.MaintenanceJobService

	// Event system
	eventEmitter events.EventEmitter

	// Task handling
	taskRunner *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize JWT service
	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Initialize password verifier
	app.passwordVerifier = auth.NewBcryptVerifier()

	// Initialize stores
	app.learnerStore = postgres.NewPostgresLearnerStore(db, logger)
	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.eventStore = postgres.NewPostgresReviewEventStore(db, logger)
	app.stateStore = postgres.NewPostgresMemoryStateStore(db, logger)
	app.paramsStore = postgres.NewPostgresModelParametersStore(db, logger)

	txRunner := store.NewDBTxRunner(db)
	locker := postgres.NewAdvisoryLocker(logger)

	// The event emitter is created before the scheduler so the scheduler
	// can request follow-up background work; the handler that consumes
	// those events is registered once the task runner exists.
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Initialize scheduler service
	app.schedulerService, err = scheduler.NewService(
		txRunner,
		app.learnerStore,
		app.cardStore,
		app.eventStore,
		app.stateStore,
		app.paramsStore,
		locker,
		cfg.Scheduler,
		logger,
		scheduler.WithRetryClassifier(postgres.IsLockContention),
		scheduler.WithEventEmitter(app.eventEmitter),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler service: %w", err)
	}

	// Initialize learner service
	app.learnerService, err = service.NewLearnerService(
		txRunner,
		app.learnerStore,
		app.passwordVerifier,
		cfg.Auth.BcryptCost,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create learner service: %w", err)
	}

	// Initialize assignment service
	app.assignmentService, err = service.NewAssignmentService(
		txRunner,
		app.cardStore,
		app.stateStore,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment service: %w", err)
	}

	// Maintenance tasks wrap the scheduler through a narrow adapter; the
	// factory doubles as the rehydrator for tasks recovered after a restart.
	schedulerAdapter := task.NewSchedulerAdapter(app.schedulerService)
	taskFactory := task.NewMaintenanceTaskFactory(schedulerAdapter, schedulerAdapter, logger)

	taskStore := postgres.NewPostgresTaskStore(db, logger, taskFactory)
	app.taskStore = taskStore

	// Initialize and start the task runner
	app.taskRunner = task.NewTaskRunner(taskStore, task.TaskRunnerConfig{
		WorkerCount:            cfg.Task.WorkerCount,
		QueueSize:              cfg.Task.QueueSize,
		StuckTaskAge:           cfg.Task.StuckTaskAge(),
		StuckTaskCheckInterval: cfg.Task.StuckTaskCheckInterval(),
	}, logger)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	// Route task request events (e.g. the post-optimization rebuild) into
	// the runner.
	taskEventHandler := task.NewTaskFactoryEventHandler(taskFactory, app.taskRunner, logger)
	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(taskEventHandler)
	} else {
		return nil, fmt.Errorf("unexpected event emitter type, cannot register task handler")
	}

	// Job service: API-facing submission and status of maintenance jobs
	app.jobService, err = task.NewMaintenanceJobService(
		taskFactory,
		app.taskRunner,
		taskStore,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop task runner
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
