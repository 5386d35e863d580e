// Package client talks to a cardex server over HTTP.
//
// Searches are validated locally first, so a query that is too short fails
// with *core.ValidationError without a round trip. Server errors map back
// to the same error taxonomy the server uses: 400 becomes
// *core.ValidationError, 404 core.ErrNotFound, 429 ErrRateLimited and any
// other failure *core.StorageError.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/cardex/pkg/api"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/search"
)

// ErrRateLimited is returned when the server rejects a request with 429.
var ErrRateLimited = errors.New("rate limited by server")

type Client struct {
	baseURL string
	http    *http.Client
	limits  search.Limits
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLimits sets the page bounds used to normalize parameters locally.
func WithLimits(l search.Limits) Option {
	return func(c *Client) { c.limits = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		limits:  search.DefaultLimits,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search runs a search on the server.
func (c *Client) Search(ctx context.Context, params search.Params) (*search.Results, error) {
	params = params.Normalize(c.limits)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var res search.Results
	if err := c.get(ctx, "/api/search?"+searchQuery(params).Encode(), "search", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Profile fetches one active profile.
func (c *Client) Profile(ctx context.Context, country, username string) (*api.ProfileResponse, error) {
	if !core.IsValidCountryCode(country) || !core.IsValidUsername(username) {
		return nil, core.ErrNotFound
	}
	var res api.ProfileResponse
	if err := c.get(ctx, "/api/profiles"+core.ProfilePath(country, username), "lookup", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VCard downloads the vCard of one active profile.
func (c *Client) VCard(ctx context.Context, country, username string) (string, error) {
	if !core.IsValidCountryCode(country) || !core.IsValidUsername(username) {
		return "", core.ErrNotFound
	}
	resp, err := c.do(ctx, "/api/profiles"+core.ProfilePath(country, username)+"/vcard", "vcard")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.NewStorageError("vcard", err)
	}
	return string(data), nil
}

func searchQuery(p search.Params) url.Values {
	v := url.Values{}
	v.Set("q", p.Query)
	if p.Country != "" {
		v.Set("country", p.Country)
	}
	v.Set("type", p.Type)
	v.Set("limit", strconv.Itoa(p.Limit))
	v.Set("offset", strconv.Itoa(p.Offset))
	return v
}

func (c *Client) get(ctx context.Context, path, op string, out any) error {
	resp, err := c.do(ctx, path, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.NewStorageError(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// do performs a GET and converts non-2xx responses to errors. The caller
// closes the body of a successful response.
func (c *Client) do(ctx context.Context, path, op string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewStorageError(op, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, responseError(resp, op)
}

func responseError(resp *http.Response, op string) error {
	var body api.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &core.ValidationError{Field: "q", Message: body.Error}
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusTooManyRequests:
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			return fmt.Errorf("%w: retry after %ss", ErrRateLimited, ra)
		}
		return ErrRateLimited
	default:
		return core.NewStorageError(op, fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error))
	}
}
