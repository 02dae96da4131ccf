package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/agentstation/catalogsync/internal/server/handlers"
	"github.com/agentstation/catalogsync/internal/server/middleware"
	"github.com/agentstation/catalogsync/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	h := handlers.New(s.engine, s.logger, s.config.MaxUploadSize, s.ready)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	if s.config.RateLimit > 0 {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(s.config.RateLimit, s.logger)))
	}

	authConfig := middleware.DefaultAuthConfig()
	authConfig.APIKey = s.config.APIKey
	authConfig.HeaderName = s.config.AuthHeader
	r.Use(middleware.Auth(authConfig, s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.Fail(
			"METHOD_NOT_ALLOWED",
			"Method not allowed",
			"Method "+r.Method+" is not supported for this endpoint",
		))
	})

	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	if s.config.MetricsEnabled && s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route(s.config.PathPrefix, func(r chi.Router) {
		r.Route("/vendors/{vendorID}/imports", func(r chi.Router) {
			r.Get("/", h.HandleListRuns)
			r.Post("/flatfile", h.HandleFlatFileImport)
			r.Post("/remote", h.HandleRemoteImport)
			r.Post("/remote/preview", h.HandlePreviewRemote)
		})
		r.Route("/imports", func(r chi.Router) {
			r.Get("/", h.HandleListRuns)
			if s.events != nil {
				r.Get("/events", s.events.ServeHTTP)
			}
			r.Get("/{runID}", h.HandleGetRun)
		})
	})

	return r
}
