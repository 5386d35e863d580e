package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rubiojr/cardex/pkg/db"
)

// OpenMigrationDB opens a plain database handle for the backend selected by
// opts without applying migrations, so their status can be inspected.
func OpenMigrationDB(ctx context.Context, opts Options) (*sql.DB, db.Dialect, error) {
	switch db.Dialect(opts.Driver) {
	case "", db.DialectSQLite:
		if opts.Path == "" {
			return nil, "", fmt.Errorf("sqlite database path is required")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, "", fmt.Errorf("creating database directory: %w", err)
		}
		sqlDB, err := sql.Open("sqlite3", opts.Path)
		if err != nil {
			return nil, "", fmt.Errorf("opening database: %w", err)
		}
		return sqlDB, db.DialectSQLite, nil
	case db.DialectPostgres:
		cfg, err := pgx.ParseConfig(opts.DSN)
		if err != nil {
			return nil, "", fmt.Errorf("parsing postgres dsn: %w", err)
		}
		cfg.RuntimeParams["application_name"] = "cardex-migrate"
		sqlDB := stdlib.OpenDB(*cfg)
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, "", fmt.Errorf("connecting to postgres: %w", err)
		}
		return sqlDB, db.DialectPostgres, nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
