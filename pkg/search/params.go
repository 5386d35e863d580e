package search

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/storage"
)

// MinQueryLength is the minimum number of characters of a trimmed query.
const MinQueryLength = 2

// Type filter values accepted in the type parameter.
const (
	TypeAll        = "all"
	TypeIndividual = string(core.ProfileTypeIndividual)
	TypeCompany    = string(core.ProfileTypeCompany)
)

// CountryAll disables country filtering.
const CountryAll = "all"

// Params represents all parameters for a search operation.
type Params struct {
	// Query is the raw search term as submitted. It is trimmed before
	// matching but echoed back untouched.
	Query string

	// Country restricts results to one country code, compared in lower
	// case. Empty (absent) and "all" disable the filter.
	Country string

	// Type is one of "individual", "company" or "all". Anything else is
	// treated as "all".
	Type string

	// Limit is the maximum number of results per page.
	Limit int

	// Offset is the number of matches skipped before the page starts.
	Offset int
}

// Limits bounds the page size a caller may request.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits apply when no configuration overrides them.
var DefaultLimits = Limits{Default: 20, Max: 100}

func (l Limits) normalize() Limits {
	if l.Default <= 0 {
		l.Default = DefaultLimits.Default
	}
	if l.Max <= 0 {
		l.Max = DefaultLimits.Max
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	return l
}

// ParseSearchParams extracts search parameters from URL query values.
// It never fails: malformed numbers fall back to defaults and are clamped
// to limits. Query validation is left to Validate.
func ParseSearchParams(values map[string][]string, limits Limits) Params {
	params := Params{
		Query:   first(values, "q"),
		Country: strings.TrimSpace(first(values, "country")),
		Type:    first(values, "type"),
	}

	if limit, err := strconv.Atoi(first(values, "limit")); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(first(values, "offset")); err == nil {
		params.Offset = offset
	}

	return params.Normalize(limits)
}

func first(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Normalize applies defaults and bounds: unknown types become "all", a
// non-positive limit becomes the default, limits above the maximum are
// clamped and negative offsets become zero.
func (p Params) Normalize(limits Limits) Params {
	limits = limits.normalize()

	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case TypeIndividual:
		p.Type = TypeIndividual
	case TypeCompany:
		p.Type = TypeCompany
	default:
		p.Type = TypeAll
	}

	if p.Limit <= 0 {
		p.Limit = limits.Default
	}
	if p.Limit > limits.Max {
		p.Limit = limits.Max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Validate reports a *core.ValidationError when the trimmed query is
// shorter than MinQueryLength characters.
func (p Params) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(p.Query)) < MinQueryLength {
		return &core.ValidationError{
			Field:   "q",
			Message: "Search query must be at least 2 characters long",
		}
	}
	return nil
}

// HasCountryFilter reports whether results are restricted to one country.
func (p Params) HasCountryFilter() bool {
	return p.Country != "" && !strings.EqualFold(p.Country, CountryAll)
}

// StorageQuery converts validated parameters to a backend query.
func (p Params) StorageQuery() storage.Query {
	q := storage.Query{
		Term:   strings.TrimSpace(p.Query),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if t := core.ProfileType(p.Type); t.Valid() {
		q.Type = t
	}
	if p.HasCountryFilter() {
		q.Country = core.NormalizeCountry(p.Country)
	}
	return q
}

// Filters echoes the effective filters of a search. Country is null when
// the request did not name one.
type Filters struct {
	Country *string `json:"country"`
	Type    string  `json:"type"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Filters returns the echo of p for responses.
func (p Params) Filters() Filters {
	f := Filters{Type: p.Type, Limit: p.Limit, Offset: p.Offset}
	if p.Country != "" {
		country := p.Country
		f.Country = &country
	}
	return f
}
