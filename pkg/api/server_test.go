package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/oklog/ulid/v2"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/search"
	"github.com/rubiojr/cardex/pkg/storage"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// countingStore wraps a store and counts reads.
type countingStore struct {
	storage.Store
	searches atomic.Int32
	lookups  atomic.Int32
	pingErr  error
	failWith error
}

func (c *countingStore) Search(ctx context.Context, q storage.Query) (storage.Page, error) {
	c.searches.Add(1)
	if c.failWith != nil {
		return storage.Page{}, c.failWith
	}
	return c.Store.Search(ctx, q)
}

func (c *countingStore) Lookup(ctx context.Context, country, username string) (*core.Profile, error) {
	c.lookups.Add(1)
	if c.failWith != nil {
		return nil, c.failWith
	}
	return c.Store.Lookup(ctx, country, username)
}

func (c *countingStore) Ping(ctx context.Context) error {
	if c.pingErr != nil {
		return c.pingErr
	}
	return c.Store.Ping(ctx)
}

func seededStore(t *testing.T) *countingStore {
	t.Helper()
	s, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "cardex.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	profiles := []*core.Profile{
		{
			Email: "john@example.com", Username: "johndoe", Type: core.ProfileTypeIndividual,
			CountryCode: "us", FirstName: "John", LastName: "Doe", Bio: "Software Engineer",
			Phone: "+1 555 0100", IsActive: true, CreatedAt: baseTime.Add(-time.Hour),
		},
		{
			Email: "jane@example.com", Username: "janedoe", Type: core.ProfileTypeIndividual,
			CountryCode: "us", FirstName: "Jane", LastName: "Doe", IsActive: false,
			CreatedAt: baseTime.Add(-2 * time.Hour),
		},
		{
			Email: "info@acme.test", Username: "acme", Type: core.ProfileTypeCompany,
			CountryCode: "de", CompanyName: "Acme Doe GmbH", ContactPerson: "Erika Muster",
			BusinessDetails: "Anvils and more", IsActive: true, CreatedAt: baseTime.Add(-3 * time.Hour),
		},
	}
	for _, p := range profiles {
		if err := s.Save(context.Background(), p); err != nil {
			t.Fatalf("Save(%s): %v", p.Username, err)
		}
	}
	return &countingStore{Store: s}
}

func newTestServer(t *testing.T, store *countingStore, opts ...func(*Options)) *Server {
	t.Helper()
	o := Options{
		Store:        store,
		Search:       search.NewService(store),
		BaseURL:      "https://cards.example.com",
		QueryTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return NewServer(o)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return resp
}

func TestSearchEndpoint(t *testing.T) {
	store := seededStore(t)
	h := newTestServer(t, store).Handler()

	rec := get(t, h, "/api/search?q=doe&type=individual")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["total"] != float64(1) || body["query"] != "doe" {
		t.Errorf("unexpected envelope: %v", body)
	}
	wantFilters := map[string]any{"country": nil, "type": "individual", "limit": float64(20), "offset": float64(0)}
	if diff := cmp.Diff(wantFilters, body["filters"]); diff != "" {
		t.Errorf("filters (-want +got):\n%s", diff)
	}

	results := body["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	first := results[0].(map[string]any)
	for key, want := range map[string]any{
		"username":    "johndoe",
		"profileType": "individual",
		"countryCode": "us",
		"displayName": "John Doe",
		"subtitle":    "Software Engineer",
		"profileUrl":  "/us/johndoe",
		"phone":       "+1 555 0100",
	} {
		if first[key] != want {
			t.Errorf("%s = %v, want %v", key, first[key], want)
		}
	}
}

func TestSearchEndpointCompanyFields(t *testing.T) {
	h := newTestServer(t, seededStore(t)).Handler()

	rec := get(t, h, "/api/search?q=erika&country=DE")
	var res search.Results
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Total != 1 || res.Results[0].DisplayName != "Acme Doe GmbH" {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res.Results[0].ContactPerson != "Erika Muster" || res.Results[0].Subtitle != "Anvils and more" {
		t.Errorf("company summary not shaped: %+v", res.Results[0])
	}
	if res.Filters.Country == nil || *res.Filters.Country != "DE" {
		t.Errorf("country should be echoed as given, got %v", res.Filters.Country)
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	store := seededStore(t)
	h := newTestServer(t, store).Handler()

	for _, target := range []string{"/api/search", "/api/search?q=a", "/api/search?q=%20%20x%20"} {
		rec := get(t, h, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", target, rec.Code)
			continue
		}
		if got := decodeError(t, rec).Error; got != "Search query must be at least 2 characters long" {
			t.Errorf("%s: error = %q", target, got)
		}
	}
	if n := store.searches.Load(); n != 0 {
		t.Fatalf("storage searched %d times for invalid queries", n)
	}
}

func TestSearchEndpointStorageFailure(t *testing.T) {
	store := seededStore(t)
	store.failWith = errors.New("dial tcp 10.0.0.1:5432: connection refused")
	h := newTestServer(t, store).Handler()

	rec := get(t, h, "/api/search?q=doe")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "10.0.0.1") {
		t.Errorf("storage details leaked: %s", body)
	}
	if got := decodeError(t, rec).Error; got != "Search failed" {
		t.Errorf("error = %q", got)
	}
}

func TestSearchEndpointNoMatches(t *testing.T) {
	h := newTestServer(t, seededStore(t)).Handler()

	rec := get(t, h, "/api/search?q=zzzz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Errorf("expected an empty results array, got %s", rec.Body)
	}
}

func TestProfileEndpoint(t *testing.T) {
	store := seededStore(t)
	h := newTestServer(t, store).Handler()

	rec := get(t, h, "/api/profiles/US/JohnDoe")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["display_name"] != "John Doe" || body["profile_url"] != "https://cards.example.com/us/johndoe" {
		t.Errorf("unexpected body: %v", body)
	}

	if rec := get(t, h, "/api/profiles/us/janedoe"); rec.Code != http.StatusNotFound {
		t.Errorf("inactive profile: status = %d", rec.Code)
	}

	before := store.lookups.Load()
	for _, target := range []string{"/api/profiles/usa/johndoe", "/api/profiles/us/jo", "/api/profiles/us/john-doe"} {
		if rec := get(t, h, target); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
	}
	if store.lookups.Load() != before {
		t.Error("malformed names must not reach storage")
	}
}

func TestProfileEndpointStorageFailure(t *testing.T) {
	store := seededStore(t)
	store.failWith = errors.New("boom")
	h := newTestServer(t, store).Handler()

	rec := get(t, h, "/api/profiles/us/johndoe")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVCardEndpoint(t *testing.T) {
	h := newTestServer(t, seededStore(t)).Handler()

	rec := get(t, h, "/api/profiles/us/johndoe/vcard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vcard") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="John_Doe.vcf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rec.Body.String()
	for _, want := range []string{"BEGIN:VCARD", "FN:John Doe", "URL:https://cards.example.com/us/johndoe", "END:VCARD"} {
		if !strings.Contains(body, want) {
			t.Errorf("vcard missing %q:\n%s", want, body)
		}
	}
}

func TestProfilePage(t *testing.T) {
	h := newTestServer(t, seededStore(t)).Handler()

	rec := get(t, h, "/de/acme")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Acme Doe GmbH") {
		t.Error("profile page does not show the company name")
	}

	rec = get(t, h, "/us/janedoe")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Profile not found") {
		t.Errorf("inactive profile: status = %d", rec.Code)
	}
}

func TestSearchPage(t *testing.T) {
	h := newTestServer(t, seededStore(t)).Handler()

	rec := get(t, h, "/search")
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), `role="alert"`) {
		t.Errorf("initial page: status = %d", rec.Code)
	}

	rec = get(t, h, "/search?q=doe")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "John <mark>Doe</mark>") {
		t.Errorf("matches are not highlighted:\n%s", rec.Body)
	}

	rec = get(t, h, "/search?q=d")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "at least 2 characters") {
		t.Errorf("short query: status = %d", rec.Code)
	}

	rec = get(t, h, "/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/search" {
		t.Errorf("index: status = %d location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHealthAndReady(t *testing.T) {
	store := seededStore(t)
	h := newTestServer(t, store).Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health: status = %d", rec.Code)
	}
	if rec := get(t, h, "/ready"); rec.Code != http.StatusOK {
		t.Errorf("ready: status = %d", rec.Code)
	}

	store.pingErr = errors.New("database is locked")
	if rec := get(t, h, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with failing storage: status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, seededStore(t)).Handler()

	get(t, h, "/api/search?q=doe")
	get(t, h, "/api/search?q=d")

	body := get(t, h, "/metrics").Body.String()
	for _, want := range []string{
		`cardex_search_requests_total{outcome="ok"} 1`,
		`cardex_search_requests_total{outcome="invalid"} 1`,
		`cardex_search_duration_seconds_count 2`,
		`cardex_search_results_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, seededStore(t)).Handler()

	rec := get(t, h, "/health")
	id := rec.Header().Get(RequestIDHeader)
	if _, err := ulid.ParseStrict(id); err != nil {
		t.Fatalf("generated id %q is not a ULID: %v", id, err)
	}

	incoming := ulid.Make().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("incoming id not reused: got %q want %q", got, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "not-an-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "not-an-id" {
		t.Error("malformed incoming id was reused")
	}
}

func TestRequestIDsAreMonotonic(t *testing.T) {
	g := newIDGenerator()
	now := time.Now()
	prev := g.next(now)
	for i := 0; i < 100; i++ {
		id := g.next(now)
		if id <= prev {
			t.Fatalf("id %s not after %s", id, prev)
		}
		prev = id
	}
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, seededStore(t), func(o *Options) {
		o.AllowedOrigins = []string{"https://app.example.com"}
	}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=doe", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
