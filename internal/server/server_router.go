package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func buildRouter(s *hookServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Health/info
	r.Get("/healthz", healthzHandler)
	r.Get("/api/v1/server-info", serverInfoHandler)

	// Hook APIs
	r.Post("/api/v1/hooks/{event}", s.hookHandler)
	r.Get("/api/v1/runs", s.listRunsHandler)

	return r
}
