// Package api provides HTTP router setup.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/evidencecheck/attest/internal/assess"
	"github.com/evidencecheck/attest/internal/config"
	"github.com/evidencecheck/attest/internal/database"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg *config.Config, engine *assess.Engine, store database.Store) http.Handler {
	r := chi.NewRouter()

	handler := NewHandler(engine, store, &cfg.Scoring)

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", handler.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Server.APIToken))
			r.Use(httprate.LimitByIP(cfg.RateLimits.RequestsPerMinute, time.Minute))

			// Evidence submission
			r.Post("/submissions", handler.SubmitEvidence)

			// Assessments
			r.Get("/assessments", handler.ListAssessments)
			r.Get("/assessments/{id}", handler.GetAssessment)

			// Project registry
			r.Put("/projects/{id}", handler.UpsertProject)
			r.Get("/projects/{id}", handler.GetProject)
		})
	})

	return r
}
