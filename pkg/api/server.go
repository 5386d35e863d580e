package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/log"
	"github.com/rubiojr/cardex/pkg/search"
)

// ProfileStore is the read side of the profile store used outside search.
type ProfileStore interface {
	Lookup(ctx context.Context, country, username string) (*core.Profile, error)
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Store  ProfileStore
	Search *search.Service

	// BaseURL is the public origin used for absolute profile links.
	BaseURL string
	// AllowedOrigins enables CORS for the JSON API. "*" allows any origin.
	AllowedOrigins []string
	// QueryTimeout bounds every storage call made for a request.
	QueryTimeout time.Duration
	// Limiter rate limits the search endpoints when set.
	Limiter *RateLimiter
}

type Server struct {
	store        ProfileStore
	search       *search.Service
	baseURL      string
	origins      []string
	queryTimeout time.Duration
	limiter      *RateLimiter
	metrics      *Metrics
	ids          *idGenerator
	upgrader     websocket.Upgrader
	logger       *log.Logger
}

func NewServer(opts Options) *Server {
	s := &Server{
		store:        opts.Store,
		search:       opts.Search,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		origins:      opts.AllowedOrigins,
		queryTimeout: opts.QueryTimeout,
		limiter:      opts.Limiter,
		metrics:      NewMetrics(),
		ids:          newIDGenerator(),
		logger:       log.ForService("api"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the complete HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
			MaxAge:         300,
		}))
	}
	s.RegisterRoutes(r)
	return r
}

// withTimeout derives the storage context for a request.
func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// absoluteURL prefixes a profile path with the configured base URL.
func (s *Server) absoluteURL(r *http.Request, path string) string {
	if s.baseURL != "" {
		return s.baseURL + path
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, r, status, response)
}

// writeSearchError maps a search failure to its HTTP status. Storage
// details are logged, never returned.
func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		s.writeError(w, r, http.StatusBadRequest, ve.Message, "")
		return
	}
	s.logger.Errorf("search failed (request %s): %v", requestIDFrom(r.Context()), err)
	s.writeError(w, r, http.StatusInternalServerError, "Search failed", "")
}

func gzipMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
