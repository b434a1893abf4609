/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:       Request logging
  2. Recoverer:    Panic recovery (500 instead of crash)
  3. RequestID:    Unique ID per request for tracing
  4. CORS:         Cross-origin requests for frontend
  5. Authenticate: Bearer-token resolution (all /api routes)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the router's non-handler settings.
type RouterConfig struct {
	// AllowedOrigins for CORS; defaults to localhost dev origins.
	AllowedOrigins []string

	// UploadsDir, when set, is served read-only under /uploads/ so stored
	// receipts and transfer proofs resolve in a browser.
	UploadsDir string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Authenticate)

		// Request lifecycle
		r.Route("/requests", func(r chi.Router) {
			r.Post("/cash", h.SubmitCashRequest)
			r.Post("/expenses", h.SubmitExpense)
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/pm-decision", h.PMDecision)
			r.Post("/{id}/gm-decision", h.GMDecision)
			r.Post("/{id}/transfer", h.CompleteTransfer)
		})

		// Employees
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Post("/{id}/activate", h.SetUserActive(true))
			r.Post("/{id}/deactivate", h.SetUserActive(false))
			r.Get("/{id}/totals", h.EmployeeTotals)
			r.Get("/{id}/projects", h.EmployeeProjects)
			r.Get("/{id}/requests", h.EmployeeRequests)
		})

		// Projects
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Post("/{id}/deactivate", h.DeactivateProject)
			r.Get("/{id}/expense-report", h.ProjectExpenseReport)
			r.Get("/{id}/expense-report/export", h.ExportProjectExpenseReport)
		})

		// Memberships
		r.Post("/memberships", h.LinkMembership)

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/organization", h.OrganizationSummary)
			r.Get("/organization/export", h.ExportOrganizationSummary)
		})

		// Artifact uploads (receipts, transfer proofs)
		r.Post("/uploads", h.UploadArtifact)

		// Demo scenarios
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Serve stored artifacts so receipt/proof URLs resolve.
	if cfg.UploadsDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	return r
}
