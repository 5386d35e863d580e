package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rubiojr/cardex/pkg/core"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cardex.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustSave(t *testing.T, s Store, p *core.Profile) {
	t.Helper()
	if err := s.Save(context.Background(), p); err != nil {
		t.Fatalf("Save(%s): %v", p.Username, err)
	}
}

func individual(username, first, last, country string, age time.Duration, active bool) *core.Profile {
	return &core.Profile{
		Email:       username + "@example.com",
		Username:    username,
		Type:        core.ProfileTypeIndividual,
		CountryCode: country,
		FirstName:   first,
		LastName:    last,
		IsActive:    active,
		CreatedAt:   baseTime.Add(-age),
	}
}

func company(username, name, contact, country string, age time.Duration) *core.Profile {
	return &core.Profile{
		Email:         username + "@example.com",
		Username:      username,
		Type:          core.ProfileTypeCompany,
		CountryCode:   country,
		CompanyName:   name,
		ContactPerson: contact,
		IsActive:      true,
		CreatedAt:     baseTime.Add(-age),
	}
}

func usernames(page Page) []string {
	out := make([]string, 0, len(page.Profiles))
	for _, p := range page.Profiles {
		out = append(out, p.Username)
	}
	return out
}

func TestSearchEndToEndExample(t *testing.T) {
	s := newTestStore(t)
	john := individual("johndoe", "John", "Doe", "us", time.Hour, true)
	john.Bio = "Software Engineer at a small startup"
	mustSave(t, s, john)
	mustSave(t, s, individual("janedoe", "Jane", "Doe", "us", 2*time.Hour, false))

	page, err := s.Search(context.Background(), Query{Term: "doe", Type: core.ProfileTypeIndividual, Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if diff := cmp.Diff([]string{"johndoe"}, usernames(page)); diff != "" {
		t.Fatalf("unexpected results (-want +got):\n%s", diff)
	}
	if page.Total != 1 {
		t.Fatalf("expected total 1, got %d", page.Total)
	}
	if got := page.Profiles[0].Bio; got != john.Bio {
		t.Errorf("bio not round-tripped: %q", got)
	}
}

func TestSearchPagination(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 25; i++ {
		mustSave(t, s, individual(fmt.Sprintf("member_%02d", i), "Member", "Smith", "gb", time.Duration(i)*time.Minute, true))
	}

	ctx := context.Background()
	first, err := s.Search(ctx, Query{Term: "smith", Limit: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(first.Profiles) != 20 || first.Total != 25 {
		t.Fatalf("first page: got %d results, total %d", len(first.Profiles), first.Total)
	}

	second, err := s.Search(ctx, Query{Term: "smith", Limit: 20, Offset: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(second.Profiles) != 5 || second.Total != 25 {
		t.Fatalf("second page: got %d results, total %d", len(second.Profiles), second.Total)
	}

	beyond, err := s.Search(ctx, Query{Term: "smith", Limit: 20, Offset: 40})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(beyond.Profiles) != 0 || beyond.Total != 25 {
		t.Fatalf("past the end: got %d results, total %d", len(beyond.Profiles), beyond.Total)
	}
}

func TestSearchOrdering(t *testing.T) {
	s := newTestStore(t)
	mustSave(t, s, individual("oldest", "Ann", "Lee", "us", 3*time.Hour, true))
	mustSave(t, s, individual("newest", "Bob", "Lee", "us", 0, true))
	// Sub-second timestamps must still order correctly.
	mid := individual("middle", "Cat", "Lee", "us", 0, true)
	mid.CreatedAt = baseTime.Add(-500 * time.Millisecond)
	mustSave(t, s, mid)

	page, err := s.Search(context.Background(), Query{Term: "lee", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if diff := cmp.Diff([]string{"newest", "middle", "oldest"}, usernames(page)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestSearchFilters(t *testing.T) {
	s := newTestStore(t)
	mustSave(t, s, individual("alice_us", "Alice", "Walker", "us", time.Hour, true))
	mustSave(t, s, individual("alice_ca", "Alice", "Walker", "ca", 2*time.Hour, true))
	mustSave(t, s, company("walker_co", "Walker Logistics", "Tom Hanks", "us", 3*time.Hour))
	mustSave(t, s, individual("hidden_walker", "Hidden", "Walker", "us", 4*time.Hour, false))

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"all types", Query{Term: "walker", Limit: 10}, []string{"alice_us", "alice_ca", "walker_co"}},
		{"individuals", Query{Term: "walker", Type: core.ProfileTypeIndividual, Limit: 10}, []string{"alice_us", "alice_ca"}},
		{"companies", Query{Term: "walker", Type: core.ProfileTypeCompany, Limit: 10}, []string{"walker_co"}},
		{"country", Query{Term: "walker", Country: "US", Limit: 10}, []string{"alice_us", "walker_co"}},
		{"country and type", Query{Term: "walker", Country: "ca", Type: core.ProfileTypeIndividual, Limit: 10}, []string{"alice_ca"}},
		{"contact person only matches companies", Query{Term: "hanks", Type: core.ProfileTypeIndividual, Limit: 10}, []string{}},
		{"contact person", Query{Term: "HANKS", Limit: 10}, []string{"walker_co"}},
		{"no matches", Query{Term: "zzz", Limit: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if diff := cmp.Diff(tt.want, usernames(page)); diff != "" {
				t.Fatalf("unexpected results (-want +got):\n%s", diff)
			}
			if page.Total != len(tt.want) {
				t.Fatalf("expected total %d, got %d", len(tt.want), page.Total)
			}
			for _, p := range page.Profiles {
				if !p.IsActive {
					t.Errorf("inactive profile %s returned", p.Username)
				}
				if tt.query.Type != "" && p.Type != tt.query.Type {
					t.Errorf("profile %s has type %s", p.Username, p.Type)
				}
				if tt.query.Country != "" && p.CountryCode != core.NormalizeCountry(tt.query.Country) {
					t.Errorf("profile %s has country %s", p.Username, p.CountryCode)
				}
			}
		})
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	s := newTestStore(t)
	pct := individual("percent", "100%", "Real", "us", time.Hour, true)
	mustSave(t, s, pct)
	mustSave(t, s, individual("plain", "1000", "Real", "us", 2*time.Hour, true))
	mustSave(t, s, individual("under_score", "Under", "Score", "us", 3*time.Hour, true))
	mustSave(t, s, individual("underxscore", "Under", "Xcore", "us", 4*time.Hour, true))

	tests := []struct {
		term string
		want []string
	}{
		{"0%", []string{"percent"}},
		{"r_s", []string{"under_score"}},
		{`\`, []string{}},
		{"' OR 1=1 --", []string{}},
	}
	for _, tt := range tests {
		page, err := s.Search(context.Background(), Query{Term: tt.term, Limit: 10})
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.term, err)
		}
		if diff := cmp.Diff(tt.want, usernames(page)); diff != "" {
			t.Errorf("Search(%q) (-want +got):\n%s", tt.term, diff)
		}
	}
}

func TestSearchFoldsUnicodeCase(t *testing.T) {
	s := newTestStore(t)
	mustSave(t, s, individual("emilie", "Émilie", "Öztürk", "fr", time.Hour, true))
	mustSave(t, s, company("mueller", "Müller Straßenbau", "Jörg Ä", "de", 2*time.Hour))
	mustSave(t, s, individual("plain", "Emilie", "Ozturk", "fr", 3*time.Hour, true))

	tests := []struct {
		term string
		want []string
	}{
		{"émilie", []string{"emilie"}},
		{"ÉMILIE", []string{"emilie"}},
		{"öztürk", []string{"emilie"}},
		{"ÖZTÜRK", []string{"emilie"}},
		{"MÜLLER", []string{"mueller"}},
		{"jörg", []string{"mueller"}},
		{"ozturk", []string{"plain"}},
	}
	for _, tt := range tests {
		page, err := s.Search(context.Background(), Query{Term: tt.term, Limit: 10})
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.term, err)
		}
		if diff := cmp.Diff(tt.want, usernames(page)); diff != "" {
			t.Errorf("Search(%q) (-want +got):\n%s", tt.term, diff)
		}
		if page.Total != len(tt.want) {
			t.Errorf("Search(%q) total = %d, want %d", tt.term, page.Total, len(tt.want))
		}
	}
}

func TestSearchIdempotent(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		// identical timestamps exercise the id tie-break
		mustSave(t, s, individual(fmt.Sprintf("twin_%d", i), "Twin", "Jones", "au", 0, true))
	}

	q := Query{Term: "jones", Limit: 3, Offset: 1}
	first, err := s.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := s.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated search differs (-first +second):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	s := newTestStore(t)
	p := individual("Mike_Chen", "Mike", "Chen", "CA", time.Hour, true)
	p.SocialLinks = core.SocialLinks{"linkedin": "https://linkedin.com/in/mike"}
	mustSave(t, s, p)
	mustSave(t, s, individual("gone", "Gone", "Away", "ca", time.Hour, false))

	ctx := context.Background()
	got, err := s.Lookup(ctx, "ca", "mike_chen")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ID != p.ID || got.CountryCode != "ca" || got.Username != "Mike_Chen" {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if diff := cmp.Diff(p.SocialLinks, got.SocialLinks); diff != "" {
		t.Errorf("social links (-want +got):\n%s", diff)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, p.CreatedAt)
	}

	if _, err := s.Lookup(ctx, "ca", "gone"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("inactive lookup: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Lookup(ctx, "us", "mike_chen"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("wrong country: expected ErrNotFound, got %v", err)
	}
}

func TestSaveInvariants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := individual("unique_one", "Uno", "One", "us", time.Hour, true)
	mustSave(t, s, p)

	dup := individual("UNIQUE_ONE", "Dos", "Two", "us", time.Hour, true)
	if err := s.Save(ctx, dup); !errors.Is(err, core.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	// Same username in another country is fine.
	mustSave(t, s, individual("unique_one", "Tres", "Three", "mx", time.Hour, true))

	p.Type = core.ProfileTypeCompany
	p.CompanyName = "Now A Company"
	if err := s.Save(ctx, p); !core.IsValidation(err) {
		t.Fatalf("expected validation error on type change, got %v", err)
	}

	p.Type = core.ProfileTypeIndividual
	p.Bio = "updated"
	mustSave(t, s, p)
	got, err := s.Lookup(ctx, "us", "unique_one")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Bio != "updated" {
		t.Errorf("update not applied: %+v", got)
	}

	if err := s.Save(ctx, &core.Profile{Username: "x"}); !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSearchClosedStoreIsStorageError(t *testing.T) {
	s := newTestStore(t)
	_ = s.Close()
	_, err := s.Search(context.Background(), Query{Term: "anything", Limit: 10})
	if !core.IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
