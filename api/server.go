/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/templates/*    Scheduled template management and projection
  /api/occurrences/*  Whole-book projection and orphan cleanup
  /api/accounts/*     Division aggregates and account removal
  /api/transfers/*    Deferred-debit transfer templates and roll-over
  /api/save, /api/load  Persistence

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Scheduled templates
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Get("/{id}", h.GetTemplate)
			r.Put("/{id}", h.UpdateTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
			r.Get("/{id}/occurrences", h.GetTemplateOccurrences)
		})

		// Whole-book projection
		r.Route("/occurrences", func(r chi.Router) {
			r.Get("/", h.ListOccurrences)
			r.Post("/orphans/delete", h.DeleteOrphans)
		})

		// Division aggregates
		r.Route("/accounts/{account}", func(r chi.Router) {
			r.Get("/divisions", h.ListDivisions)
			r.Post("/divisions/manual", h.SetManualDivision)
			r.Post("/divisions/reset", h.ResetDivisions)
			r.Delete("/", h.RemoveAccount)
		})

		// Deferred-debit transfers
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.CreateTransfer)
			r.Delete("/{id}", h.DeleteTransfer)
			r.Post("/{id}/roll", h.RollTransfer)
		})

		// Persistence
		r.Post("/save", h.Save)
		r.Post("/load", h.Load)
	})

	return r
}
