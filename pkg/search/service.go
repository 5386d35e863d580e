package search

import (
	"context"
	"sync/atomic"

	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/log"
	"github.com/rubiojr/cardex/pkg/storage"
)

// Backend runs a storage query. storage.Store satisfies it.
type Backend interface {
	Search(ctx context.Context, q storage.Query) (storage.Page, error)
}

// Results is the response of a search operation.
type Results struct {
	// Results holds one summary per matched profile on this page, in
	// backend order (newest first).
	Results []Summary `json:"results"`

	// Total is the number of matches ignoring limit and offset.
	Total int `json:"total"`

	// Query is the search term exactly as submitted.
	Query string `json:"query"`

	// Filters echoes the effective filters after normalization.
	Filters Filters `json:"filters"`
}

// Service validates search parameters, runs them against a backend and
// shapes the matched profiles into summaries.
type Service struct {
	backend Backend
	limits  atomic.Pointer[Limits]
	logger  *log.Logger
}

// NewService creates a search service on top of backend using the default
// page limits.
func NewService(backend Backend) *Service {
	s := &Service{
		backend: backend,
		logger:  log.ForService("search"),
	}
	s.SetLimits(DefaultLimits)
	return s
}

// SetLimits replaces the page size bounds. It is safe to call while
// searches are running.
func (s *Service) SetLimits(l Limits) {
	l = l.normalize()
	s.limits.Store(&l)
}

// Limits returns the current page size bounds.
func (s *Service) Limits() Limits {
	return *s.limits.Load()
}

// Search executes a search operation with the provided parameters.
//
// Parameters are normalized first (type, limit and offset defaults). A query
// shorter than MinQueryLength fails with *core.ValidationError and the
// backend is not called. Backend failures are returned as
// *core.StorageError with no partial results. Zero matches is a successful
// result with an empty, non-nil Results slice.
func (s *Service) Search(ctx context.Context, params Params) (*Results, error) {
	params = params.Normalize(s.Limits())
	if err := params.Validate(); err != nil {
		return nil, err
	}

	q := params.StorageQuery()
	s.logger.Debugf("searching term=%q type=%q country=%q limit=%d offset=%d",
		q.Term, q.Type, q.Country, q.Limit, q.Offset)

	page, err := s.backend.Search(ctx, q)
	if err != nil {
		return nil, core.NewStorageError("search", err)
	}

	return &Results{
		Results: SummarizeAll(page.Profiles),
		Total:   page.Total,
		Query:   params.Query,
		Filters: params.Filters(),
	}, nil
}
