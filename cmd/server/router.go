package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/moodboard-api/internal/api"
	apiMiddleware "github.com/phrazzld/moodboard-api/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	boards, system := app.handlers()
	return newRouter(app.logger, boards, system)
}

func newRouter(logger *slog.Logger, boards *api.BoardHandler, system *api.SystemHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", system.Health)
		r.Get("/system/stats", system.Stats)
		r.Post("/boards/{boardID}/cluster", boards.TriggerClustering)
	})

	return r
}
