package client

import (
	"context"
	"errors"
	"sync"

	"github.com/rubiojr/cardex/pkg/search"
)

// ErrSuperseded is returned by Searcher.Search when a newer search started
// before this one completed. Its outcome, success or failure, is dropped.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Searcher runs interactive searches where only the latest request
// matters, such as search-as-you-type. Starting a search cancels the one
// in flight.
type Searcher struct {
	client *Client

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewSearcher(c *Client) *Searcher {
	return &Searcher{client: c}
}

// Search supersedes any search in flight and runs params.
func (s *Searcher) Search(ctx context.Context, params search.Params) (*search.Results, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	res, err := s.client.Search(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return nil, ErrSuperseded
	}
	s.cancel = nil
	return res, err
}
