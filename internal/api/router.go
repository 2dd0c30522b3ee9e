// internal/api/router.go
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alegjs044/Gecko-house-sub000/internal/auth"
)

func SetupRouter(h *Handler, authManager *auth.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/api/login", h.HandleLogin)
	r.With(authManager.Middleware).Get("/api/historial/{kind}", h.HandleHistory)
	r.Get("/ws", h.HandleWebSocket)

	return r
}
