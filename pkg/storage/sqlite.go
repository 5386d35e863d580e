package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/ext/unicode"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/db"
	"github.com/rubiojr/cardex/pkg/log"
)

// Every connection gets Unicode aware lower() and LIKE, so matching folds
// case the same way Postgres ILIKE does.
func init() {
	sqlite3.AutoExtension(unicode.Register)
}

// SQLiteStore is the embedded SQLite backend.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenSQLite opens (creating if needed) the database at dbPath and applies
// pending migrations.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite database path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(sqlDB, db.DialectSQLite); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &SQLiteStore{db: sqlDB, logger: log.ForService("storage")}, nil
}

// DB returns the underlying database connection for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Search(ctx context.Context, q Query) (Page, error) {
	pageSQL, pageArgs, countSQL, countArgs := searchSQL(db.DialectSQLite, q)
	s.logger.Debugf("search: %s %v", pageSQL, pageArgs)

	rows, err := s.db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return Page{}, core.NewStorageError("search", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	page := Page{Profiles: []core.Profile{}}
	for rows.Next() {
		p, total, err := scanSQLiteProfile(rows, true)
		if err != nil {
			return Page{}, core.NewStorageError("search", err)
		}
		page.Profiles = append(page.Profiles, p)
		page.Total = total
	}
	if err := rows.Err(); err != nil {
		return Page{}, core.NewStorageError("search", err)
	}

	// The windowed total is only available when the page has rows.
	if len(page.Profiles) == 0 && q.Offset > 0 {
		if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&page.Total); err != nil {
			return Page{}, core.NewStorageError("count", err)
		}
	}
	return page, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, country, username string) (*core.Profile, error) {
	query := "SELECT " + profileColumns + ` FROM profiles
		WHERE country_code = ? AND lower(username) = lower(?) AND is_active = 1 LIMIT 1`

	p, _, err := scanSQLiteProfile(s.db.QueryRowContext(ctx, query, core.NormalizeCountry(country), username), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.NewStorageError("lookup", err)
	}
	return &p, nil
}

func (s *SQLiteStore) Save(ctx context.Context, p *core.Profile) error {
	if err := prepareSave(p); err != nil {
		return err
	}
	args, err := upsertArgs(db.DialectSQLite, p)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, upsertSQL(db.DialectSQLite), args...)
	if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) {
		return core.ErrUsernameTaken
	}
	if err != nil {
		return core.NewStorageError("save", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errTypeChange
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return core.NewStorageError("ping", s.db.PingContext(ctx))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
