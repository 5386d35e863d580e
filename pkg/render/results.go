package render

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/rubiojr/cardex/pkg/search"
)

// ResultsPageData is everything the search page needs. A zero Params.Query
// renders the page in its initial, not yet searched state.
type ResultsPageData struct {
	Params  search.Params
	Results *search.Results
	// Error is a user-facing message shown instead of results.
	Error string
}

// Searched reports whether the page shows the outcome of a search.
func (d ResultsPageData) Searched() bool {
	return d.Params.Query != "" || d.Error != ""
}

type typeOption struct {
	Value    string
	Label    string
	Selected bool
}

type pager struct {
	Prev string
	Next string
}

type resultsView struct {
	ResultsPageData
	Query       string
	Filtered    bool
	Total       int
	Results     []search.Summary
	Pager       *pager
	TypeOptions []typeOption
}

// ResultsPage renders the HTML search page.
func ResultsPage(data ResultsPageData) templ.Component {
	p := data.Params
	v := resultsView{
		ResultsPageData: data,
		Query:           strings.TrimSpace(p.Query),
		Filtered:        p.HasCountryFilter() || p.Type != search.TypeAll,
	}
	for _, opt := range []typeOption{
		{Value: search.TypeAll, Label: "All profiles"},
		{Value: search.TypeIndividual, Label: "Individuals"},
		{Value: search.TypeCompany, Label: "Companies"},
	} {
		opt.Selected = p.Type == opt.Value
		v.TypeOptions = append(v.TypeOptions, opt)
	}
	if data.Results != nil {
		v.Total = data.Results.Total
		v.Results = data.Results.Results
		v.Pager = newPager(p, v.Total)
	}
	return templ.FromGoHTML(resultsTemplate, v)
}

// newPager returns the previous/next links around p, or nil when the
// results fit on one page.
func newPager(p search.Params, total int) *pager {
	hasPrev := p.Offset > 0
	hasNext := p.Limit > 0 && p.Offset < total-p.Limit
	if !hasPrev && !hasNext {
		return nil
	}

	pg := &pager{}
	if hasPrev {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		pg.Prev = pageURL(p, prev)
	}
	if hasNext {
		pg.Next = pageURL(p, p.Offset+p.Limit)
	}
	return pg
}

// pageURL returns the search page URL for p at another offset.
func pageURL(p search.Params, offset int) string {
	v := url.Values{}
	v.Set("q", p.Query)
	if p.Country != "" {
		v.Set("country", p.Country)
	}
	if p.Type != "" && p.Type != search.TypeAll {
		v.Set("type", p.Type)
	}
	v.Set("limit", strconv.Itoa(p.Limit))
	v.Set("offset", strconv.Itoa(offset))
	return "/search?" + v.Encode()
}
