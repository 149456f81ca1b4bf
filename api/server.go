/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:    Unique ID per request for tracing
  2. Logger:       Request logging
  3. Recoverer:    Panic recovery (500 instead of crash)
  4. CORS:         Cross-origin requests for frontend
  5. RequireActor: Caller resolution (all /api routes except /health)

ROUTE GROUPS:
  /api/types/*       Leave-type catalog
  /api/balances      Entitlement provisioning
  /api/requests/*    Request lifecycle
  /api/team/*        Manager queue and history
  /api/employees/*   Directory and balances
  /api/teams/*       Team membership
  /api/seed          Demo dataset (dev only)

SEE ALSO:
  - handlers.go: Handler implementations
  - identity.go: RequireActor middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", PrincipalHeader},
		AllowCredentials: true,
	}))

	// Health check, no caller required
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Demo data (dev only). Bootstraps the directory, so it cannot
		// sit behind caller resolution.
		r.Post("/seed", h.Seed)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireActor)
			protectedRoutes(r, h)
		})
	})

	return r
}

func protectedRoutes(r chi.Router, h *Handler) {
	// Catalog routes
	r.Route("/types", func(r chi.Router) {
		r.Get("/", h.ListLeaveTypes)
		r.Post("/", h.SaveLeaveType)
		r.Get("/{id}", h.GetLeaveType)
		r.Delete("/{id}", h.DeactivateLeaveType)
	})

	// Balance provisioning
	r.Post("/balances", h.ProvisionBalance)

	// Request lifecycle routes
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", h.ListRequests)
		r.Post("/", h.CreateRequest)
		r.Get("/{id}", h.GetRequest)
		r.Post("/{id}/approve", h.ApproveRequest)
		r.Post("/{id}/reject", h.RejectRequest)
		r.Post("/{id}/cancel", h.CancelRequest)
	})

	// Manager team routes
	r.Route("/team", func(r chi.Router) {
		r.Get("/pending", h.TeamPending)
		r.Get("/history", h.TeamHistory)
	})

	// Directory routes
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.ListEmployees)
		r.Post("/", h.CreateEmployee)
		r.Get("/{id}", h.GetEmployee)
		r.Get("/{id}/balances", h.GetBalances)
	})

	r.Route("/teams", func(r chi.Router) {
		r.Get("/", h.ListTeams)
		r.Post("/", h.SaveTeam)
		r.Get("/{id}", h.GetTeam)
	})
}
