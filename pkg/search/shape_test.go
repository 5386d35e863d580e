package search

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/cardex/pkg/core"
)

func TestSummarizeIndividual(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := core.Profile{
		ID:          uuid.MustParse("6f1c2f8e-8a5b-4a55-9d0e-1c2d3e4f5a6b"),
		Username:    "JohnDoe",
		Type:        core.ProfileTypeIndividual,
		CountryCode: "US",
		FirstName:   "John",
		LastName:    "Doe",
		Bio:         "Software Engineer",
		Phone:       "+1 555 0100",
		// ignored for individuals
		ContactPerson: "Someone",
		CreatedAt:     created,
	}

	s := Summarize(&p)
	if s.DisplayName != "John Doe" {
		t.Errorf("DisplayName = %q", s.DisplayName)
	}
	if s.Subtitle != "Software Engineer" {
		t.Errorf("Subtitle = %q", s.Subtitle)
	}
	if s.ContactPerson != "" {
		t.Errorf("ContactPerson must be omitted for individuals, got %q", s.ContactPerson)
	}
	if s.ProfileURL != "/us/johndoe" {
		t.Errorf("ProfileURL = %q", s.ProfileURL)
	}
	if s.ID != p.ID || s.Phone != p.Phone || !s.CreatedAt.Equal(created) {
		t.Errorf("pass-through fields not copied: %+v", s)
	}
}

func TestSummarizeCompany(t *testing.T) {
	p := core.Profile{
		Username:        "acme",
		Type:            core.ProfileTypeCompany,
		CountryCode:     "de",
		CompanyName:     "Acme GmbH",
		ContactPerson:   "Erika Mustermann",
		BusinessDetails: "Tools",
		Bio:             "not used",
	}
	s := Summarize(&p)
	if s.DisplayName != "Acme GmbH" || s.ContactPerson != "Erika Mustermann" || s.Subtitle != "Tools" {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestDisplayNameFallback(t *testing.T) {
	tests := []struct {
		name string
		p    core.Profile
		want string
	}{
		{"individual without names", core.Profile{Type: core.ProfileTypeIndividual, Username: "ghost"}, "ghost"},
		{"individual with blank names", core.Profile{Type: core.ProfileTypeIndividual, Username: "ghost", FirstName: " ", LastName: ""}, "ghost"},
		{"individual first only", core.Profile{Type: core.ProfileTypeIndividual, Username: "ghost", FirstName: "Cher"}, "Cher"},
		{"company without name", core.Profile{Type: core.ProfileTypeCompany, Username: "acme"}, "acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(&tt.p).DisplayName; got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubtitleTruncation(t *testing.T) {
	exact := strings.Repeat("a", 100)
	if got := Subtitle(exact); got != exact {
		t.Errorf("100 characters must not be truncated, got %d chars", len(got))
	}

	long := strings.Repeat("b", 101)
	want := strings.Repeat("b", 100) + "..."
	if got := Subtitle(long); got != want {
		t.Errorf("101 characters: got %q", got)
	}

	// Multi-byte characters count as one.
	wide := strings.Repeat("é", 101)
	if got := Subtitle(wide); got != strings.Repeat("é", 100)+"..." {
		t.Errorf("multi-byte truncation: got %q", got)
	}

	if got := Subtitle(""); got != "" {
		t.Errorf("empty source must give empty subtitle, got %q", got)
	}
}

func TestSummarizeAllKeepsOrder(t *testing.T) {
	profiles := []core.Profile{
		{Username: "first", Type: core.ProfileTypeIndividual, CountryCode: "us"},
		{Username: "second", Type: core.ProfileTypeCompany, CountryCode: "us"},
	}
	out := SummarizeAll(profiles)
	if len(out) != 2 || out[0].Username != "first" || out[1].Username != "second" {
		t.Fatalf("unexpected summaries: %+v", out)
	}
	if got := SummarizeAll(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
