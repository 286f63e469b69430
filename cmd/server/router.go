package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/recallhq/engram-api/internal/api"
	apiMiddleware "github.com/recallhq/engram-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	authHandler := api.NewAuthHandler(app.learnerService, app.jwtService, app.logger)
	cardHandler := api.NewCardHandler(app.assignmentService, app.logger)
	reviewHandler := api.NewReviewHandler(app.schedulerService, app.logger)
	jobHandler := api.NewJobHandler(app.jobService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Card assignment endpoints
			r.Post("/cards", cardHandler.AssignCards)
			r.Get("/cards", cardHandler.ListAssigned)
			r.Get("/cards/due", reviewHandler.GetDueCards)
			r.Get("/cards/candidates", reviewHandler.GetCandidates)
			r.Get("/cards/{id}", cardHandler.GetCard)
			r.Delete("/cards/{id}", cardHandler.RevokeCard)

			// Review endpoints
			r.Post("/cards/{id}/review", reviewHandler.RecordReview)
			r.Get("/queue", reviewHandler.GetQueue)

			// Maintenance job endpoints
			r.Post("/learners/me/rebuild", jobHandler.RequestRebuild)
			r.Post("/learners/me/optimize", jobHandler.RequestOptimization)
			r.Get("/jobs/{id}", jobHandler.GetJobStatus)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
