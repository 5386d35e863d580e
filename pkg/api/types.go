package api

import (
	"time"

	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/search"
)

// ErrorResponse is the body of every non-2xx JSON response. Error is safe to
// show to end users.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse = search.Results

// ProfileResponse is the public view of one profile.
type ProfileResponse struct {
	*core.Profile
	DisplayName string `json:"display_name"`
	ProfileURL  string `json:"profile_url"`
}

// Websocket search session messages.
const (
	MessageResults = "results"
	MessageError   = "error"
)

// SearchRequest is a search submitted over the websocket session. ID is
// chosen by the client and echoed in the reply.
type SearchRequest struct {
	ID      uint64 `json:"id"`
	Query   string `json:"q"`
	Country string `json:"country,omitempty"`
	Type    string `json:"type,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Params converts the request to search parameters.
func (r SearchRequest) Params() search.Params {
	return search.Params{
		Query:   r.Query,
		Country: r.Country,
		Type:    r.Type,
		Limit:   r.Limit,
		Offset:  r.Offset,
	}
}

// SearchMessage is a reply on the websocket session: either search results
// or an error for request ID.
type SearchMessage struct {
	Type  string `json:"type"`
	ID    uint64 `json:"id"`
	Error string `json:"error,omitempty"`
	*search.Results
}
