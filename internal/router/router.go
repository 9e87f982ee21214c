// Package router sets up all HTTP routes and middleware chains for the
// MailSmithery API. Everything under /api requires a bearer token; routes
// that call an AI model are rate limited per user.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mailsmithery/internal/handlers"
	"mailsmithery/internal/metrics"
	"mailsmithery/internal/middleware"
)

// requestTimeout bounds a request, including collaborator retries.
const requestTimeout = 3 * time.Minute

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter guards the AI-backed routes over the
// given window.
func New(api *handlers.API, auth *middleware.Authenticator, limiter middleware.Limiter, window time.Duration) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Use(chimw.Timeout(requestTimeout))

		aiLimit := middleware.RateLimit(limiter, window)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", api.ListProjects)
			r.Post("/", api.CreateProject)
			r.Get("/{id}", api.GetProject)
			r.Put("/{id}/brand", api.UpdateBrand)
			r.Get("/{id}/templates", api.ListTemplates)
			r.With(aiLimit).Post("/{id}/extract-brand", api.ExtractBrand)
			r.With(aiLimit).Post("/{id}/plan", api.GeneratePlan)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", api.SaveTemplate)
			r.Get("/{id}", api.GetTemplate)
			r.Get("/{id}/versions", api.ListVersions)
			r.Post("/{id}/versions", api.CommitVersion)
			r.Get("/{id}/versions/latest", api.LatestVersion)
			r.With(aiLimit).Post("/{id}/edits", api.EditTemplate)
		})

		r.Route("/versions", func(r chi.Router) {
			r.Get("/{id}", api.GetVersion)
			r.Get("/{id}/export", api.ExportVersion)
			r.Post("/{id}/publish", api.PublishVersion)
		})

		r.Post("/plans/apply", api.ApplyOps)
		r.Post("/compile", api.Compile)
		r.Post("/lint", api.Lint)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
