package web

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

// SetupRoutes configures the routes of the browser backend.
func SetupRoutes(router chi.Router, tech *Technology, sessionStore sessions.Store, logger *slog.Logger) {
	handlers := NewHandlers(tech, sessionStore, logger)

	router.Get("/", handlers.Index)
	router.Get("/updates", handlers.Updates)
	router.Post("/o/{id}/set", handlers.Set)
	router.Post("/o/{id}/call/{fn}", handlers.Call)
}
