/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the back-office frontend

ROUTE GROUPS:
  /api/payments/*       Calculation, batch runs, stored payments
  /api/instructors/*    Category resolution and manual overrides
  /api/formulas/*       Formula documents
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. The tenant header is trusted as sent.

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", tenantHeader},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/calculate", h.CalculatePayment)
			r.Post("/batch", h.RunBatch)
		})

		r.Route("/instructors/{id}/categories/{disciplineID}", func(r chi.Router) {
			r.Get("/", h.GetCategory)
			r.Put("/", h.SetCategory)
			r.Delete("/", h.ClearCategory)
		})

		r.Route("/formulas", func(r chi.Router) {
			r.Put("/", h.PutFormula)
			r.Get("/{disciplineID}/{periodID}", h.GetFormula)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "studio-payroll",
			"endpoints": []string{
				"POST /api/payments/calculate",
				"POST /api/payments/batch",
				"GET /api/payments?period_id=",
				"GET|PUT|DELETE /api/instructors/{id}/categories/{disciplineID}",
				"PUT /api/formulas",
				"GET /api/formulas/{disciplineID}/{periodID}",
				"GET /api/scenarios",
				"POST /api/scenarios/load",
			},
		})
	})

	return r
}
