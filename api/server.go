/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/ingredients/*   Raw-material ledger
  /api/products/*      Product formulas
  /api/productions/*   Production workflow and history
  /api/admin/*         Backup operations
  /metrics             Prometheus metrics

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
		// Ingredient routes
		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", h.ListIngredients)
			r.Post("/", h.CreateIngredient)
			r.Get("/{name}", h.GetIngredient)
			r.Put("/{name}", h.UpdateIngredient)
			r.Post("/{name}/restock", h.RestockIngredient)
			r.Delete("/{name}", h.DeleteIngredient)
		})

		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		// Production routes
		r.Route("/productions", func(r chi.Router) {
			r.Get("/", h.ListProductions)
			r.Post("/", h.ConfirmProduction)
			r.Post("/check", h.CheckProduction)
			r.Delete("/{id}", h.ReverseProduction)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/backup", h.BackupDatabase)
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", h.Metrics.HTTPHandler())

	return r
}
