package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/db"
	"github.com/rubiojr/cardex/pkg/log"
)

const pgUniqueViolation = "23505"

// PostgresStore is the PostgreSQL backend built on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// OpenPostgres connects to opts.DSN and applies pending migrations.
func OpenPostgres(ctx context.Context, opts Options) (*PostgresStore, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	// Simple protocol keeps the pool usable behind PgBouncer.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	cfg.ConnConfig.RuntimeParams["application_name"] = "cardex"
	if opts.StatementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	err = db.InitializeDatabase(sqlDB, db.DialectPostgres)
	if cerr := sqlDB.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, logger: log.ForService("storage")}, nil
}

func (s *PostgresStore) Search(ctx context.Context, q Query) (Page, error) {
	pageSQL, pageArgs, countSQL, countArgs := searchSQL(db.DialectPostgres, q)
	s.logger.Debugf("search: %s %v", pageSQL, pageArgs)

	rows, err := s.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return Page{}, core.NewStorageError("search", err)
	}
	defer rows.Close()

	page := Page{Profiles: []core.Profile{}}
	for rows.Next() {
		p, total, err := scanPostgresProfile(rows, true)
		if err != nil {
			return Page{}, core.NewStorageError("search", err)
		}
		page.Profiles = append(page.Profiles, p)
		page.Total = total
	}
	if err := rows.Err(); err != nil {
		return Page{}, core.NewStorageError("search", err)
	}

	if len(page.Profiles) == 0 && q.Offset > 0 {
		if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&page.Total); err != nil {
			return Page{}, core.NewStorageError("count", err)
		}
	}
	return page, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, country, username string) (*core.Profile, error) {
	query := "SELECT " + profileColumns + ` FROM profiles
		WHERE country_code = $1 AND lower(username) = lower($2) AND is_active LIMIT 1`

	p, _, err := scanPostgresProfile(s.pool.QueryRow(ctx, query, core.NormalizeCountry(country), username), false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.NewStorageError("lookup", err)
	}
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *core.Profile) error {
	if err := prepareSave(p); err != nil {
		return err
	}
	args, err := upsertArgs(db.DialectPostgres, p)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, upsertSQL(db.DialectPostgres), args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return core.ErrUsernameTaken
		}
		return core.NewStorageError("save", err)
	}
	if tag.RowsAffected() == 0 {
		return errTypeChange
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return core.NewStorageError("ping", s.pool.Ping(ctx))
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
