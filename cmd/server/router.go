package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entropic-labs/recall-api/internal/api"
	apimiddleware "github.com/entropic-labs/recall-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace)

	videoHandler := api.NewVideoHandler(
		app.videoService,
		app.searchService,
		app.config.Media.UploadDir,
		app.logger,
	)
	searchHandler := api.NewSearchHandler(app.searchService, app.logger)
	jobsHandler := api.NewJobsHandler(app.videoService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/videos", videoHandler.Upload)
		r.Get("/videos", videoHandler.List)
		r.Get("/videos/{id}", videoHandler.Get)
		r.Get("/videos/{id}/clips", videoHandler.Clips)

		r.Get("/clips/{id}/{index}", videoHandler.ServeClip)

		r.Get("/search", searchHandler.Search)

		r.Get("/jobs/failed", jobsHandler.ListFailed)
		r.Post("/jobs/failed/retry", jobsHandler.RetryFailed)
		r.Post("/jobs/failed/{id}/retry", jobsHandler.RetryOne)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
