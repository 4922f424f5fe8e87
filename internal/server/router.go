package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the public login/health endpoints and the authenticated
// operator surface.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Get("/accounts", h.balances)
		r.Get("/accounts/{account}/inventory", h.inventory)
		r.Post("/movements", h.registerMovement)
		r.Get("/history", h.history)
	})

	return r
}
