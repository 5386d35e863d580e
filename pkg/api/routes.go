package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts every route of the server on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	// The websocket session hijacks the connection, so it stays outside
	// the compressed group.
	r.With(s.rateLimit).Get("/api/search/ws", s.handleSearchSession)

	r.Group(func(r chi.Router) {
		r.Use(gzipMiddleware)

		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Handle("/metrics", s.metrics.Handler())

		r.With(s.rateLimit).Get("/api/search", s.handleSearch)
		r.Get("/api/profiles/{country}/{username}", s.handleProfile)
		r.Get("/api/profiles/{country}/{username}/vcard", s.handleVCard)

		r.With(s.rateLimit).Get("/search", s.handleSearchPage)
		r.Get("/", s.handleIndex)
		r.Get("/{country}/{username}", s.handleProfilePage)
	})
}
