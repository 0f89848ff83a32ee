package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus scrape endpoint
	r.Get("/metrics", s.handlePrometheus)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/pool", func(r chi.Router) {
			r.Get("/", s.handlePoolStats)
			r.Get("/connections", s.handlePoolConnections)
		})

		r.Route("/deviations", func(r chi.Router) {
			r.Get("/", s.handleListDeviations)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDeviation)
				r.Post("/transition", s.handleTransitionDeviation)
			})
		})

		r.Get("/gate", s.handleGate)

		r.Route("/parity", func(r chi.Router) {
			r.Get("/", s.handleLastParity)
			r.Post("/run", s.handleRunParity)
		})
	})

	return r
}
