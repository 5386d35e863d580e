package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/render"
	"github.com/rubiojr/cardex/pkg/search"
	"github.com/rubiojr/cardex/pkg/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Errorf("readiness check failed: %v", err)
		s.writeError(w, r, http.StatusServiceUnavailable, "Storage unavailable", "")
		return
	}
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	})
}

// runSearch executes params and records metrics for the outcome.
func (s *Server) runSearch(ctx context.Context, params search.Params) (*search.Results, error) {
	timer := prometheus.NewTimer(s.metrics.SearchDuration)
	defer timer.ObserveDuration()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.search.Search(ctx, params)
	switch {
	case err == nil:
		s.metrics.observe(OutcomeOK, len(res.Results))
	case core.IsValidation(err):
		s.metrics.observe(OutcomeInvalid, 0)
	case errors.Is(err, context.Canceled):
		s.metrics.observe(OutcomeCanceled, 0)
	default:
		s.metrics.observe(OutcomeError, 0)
	}
	return res, err
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := search.ParseSearchParams(r.URL.Query(), s.search.Limits())

	res, err := s.runSearch(r.Context(), params)
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/search", http.StatusFound)
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	params := search.ParseSearchParams(r.URL.Query(), s.search.Limits())
	data := render.ResultsPageData{Params: params}
	status := http.StatusOK

	if r.URL.Query().Has("q") {
		res, err := s.runSearch(r.Context(), params)
		var ve *core.ValidationError
		switch {
		case errors.As(err, &ve):
			data.Error = ve.Message
			status = http.StatusBadRequest
		case err != nil:
			s.logger.Errorf("search page failed (request %s): %v", requestIDFrom(r.Context()), err)
			data.Error = "Search failed. Please try again."
			status = http.StatusInternalServerError
		default:
			data.Results = res
		}
	}

	s.writeHTML(w, r, status, render.ResultsPage(data))
}

// lookup resolves the profile named by the route parameters. Malformed
// names are not found without reaching storage.
func (s *Server) lookup(r *http.Request) (*core.Profile, error) {
	country := chi.URLParam(r, "country")
	username := chi.URLParam(r, "username")
	if !core.IsValidCountryCode(country) || !core.IsValidUsername(username) {
		return nil, core.ErrNotFound
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()
	return s.store.Lookup(ctx, country, username)
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, "Profile not found", "")
		return
	}
	s.logger.Errorf("profile lookup failed (request %s): %v", requestIDFrom(r.Context()), err)
	s.writeError(w, r, http.StatusInternalServerError, "Lookup failed", "")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.lookup(r)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, ProfileResponse{
		Profile:     p,
		DisplayName: p.DisplayName(),
		ProfileURL:  s.absoluteURL(r, p.Path()),
	})
}

func (s *Server) handleVCard(w http.ResponseWriter, r *http.Request) {
	p, err := s.lookup(r)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+p.VCardFilename()+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(p.VCard(s.absoluteURL(r, p.Path())))); err != nil {
		s.logger.Debugf("writing vcard: %v", err)
	}
}

func (s *Server) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	p, err := s.lookup(r)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.writeHTML(w, r, http.StatusNotFound, render.NotFoundPage(r.URL.Path))
		return
	case err != nil:
		s.logger.Errorf("profile page failed (request %s): %v", requestIDFrom(r.Context()), err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeHTML(w, r, http.StatusOK, render.ProfilePage(p, s.absoluteURL(r, p.Path())))
}

func (s *Server) writeHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		s.logger.Errorf("rendering %s: %v", r.URL.Path, err)
	}
}
