// Package storage persists business card profiles and answers the filtered,
// paginated queries the search service issues.
//
// Two backends implement Store: an embedded SQLite database (the default,
// used for local development and tests) and PostgreSQL through a pgx pool.
// Both share the same filter builder so a query means the same thing on
// either backend:
//
//   - only active profiles are ever returned
//   - the term is matched case-insensitively as a substring of the fields
//     selected by the profile type
//   - results are ordered by creation date, newest first, ties broken by id
//   - the total is the number of matches ignoring limit and offset
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/db"
)

// Query is a validated, normalized search request as seen by a backend.
type Query struct {
	// Term is matched as a literal substring; LIKE wildcards are escaped.
	Term string
	// Type restricts matches to one profile type. Empty means all types.
	Type core.ProfileType
	// Country is a lower-cased country code. Empty means no restriction.
	Country string
	Limit   int
	Offset  int
}

// Page is one window of matching profiles plus the total match count.
type Page struct {
	Profiles []core.Profile
	Total    int
}

// Store is the profile persistence interface shared by all backends.
type Store interface {
	// Search returns the active profiles matching q, ordered by
	// created_at descending then id ascending.
	Search(ctx context.Context, q Query) (Page, error)
	// Lookup returns the active profile addressed by country and username.
	// Username comparison is case-insensitive. Returns core.ErrNotFound.
	Lookup(ctx context.Context, country, username string) (*core.Profile, error)
	// Save inserts or updates a profile by id.
	Save(ctx context.Context, p *core.Profile) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver   string // "sqlite" (default) or "postgres"
	Path     string // sqlite database file
	DSN      string // postgres connection string
	MaxConns int32
	// StatementTimeout is passed to postgres as statement_timeout.
	StatementTimeout time.Duration
}

// Open returns the backend selected by opts.Driver with its schema migrated.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch db.Dialect(opts.Driver) {
	case "", db.DialectSQLite:
		return OpenSQLite(opts.Path)
	case db.DialectPostgres:
		return OpenPostgres(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
