// Package search implements the profile directory search path.
//
// # Overview
//
// A search takes a free-text term plus optional country and profile type
// filters and returns one page of matching active profiles, shaped into
// display-ready summaries, together with the total number of matches.
//
// The package is split in three parts:
//
//   - Params: parsing of HTTP query strings, normalization and validation
//   - Service: runs validated parameters against a storage backend
//   - Summarize / Highlight: pure transforms used by every presentation
//     (JSON API, HTML pages, CLI output)
//
// # Matching
//
// The trimmed term is matched as a case-insensitive literal substring. The
// fields searched depend on the type filter:
//
//	individual: first_name, last_name, username, bio
//	company:    company_name, contact_person, username, business_details
//	all:        all seven fields
//
// Inactive profiles never match. Results are ordered newest first.
//
// # Validation
//
// A term shorter than two characters after trimming is rejected with a
// *core.ValidationError before any storage read:
//
//	svc := search.NewService(store)
//	_, err := svc.Search(ctx, search.Params{Query: " a "})
//	// core.IsValidation(err) == true
//
// # Usage
//
//	params := search.ParseSearchParams(r.URL.Query(), search.DefaultLimits)
//	results, err := svc.Search(r.Context(), params)
//	if err != nil {
//		// *core.ValidationError -> 400, *core.StorageError -> 500
//	}
//
// Highlighting is a pure transform over a result field:
//
//	search.Mark("John Doe", "doe", "<b>", "</b>") // "John <b>Doe</b>"
package search
