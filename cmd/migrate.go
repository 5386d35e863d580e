package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rubiojr/cardex/pkg/config"
	"github.com/rubiojr/cardex/pkg/db"
	"github.com/rubiojr/cardex/pkg/storage"
	"github.com/urfave/cli/v3"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return RunMigrations(ctx, os.Stdout, cfg, false)
		},
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return RunMigrations(ctx, os.Stdout, cfg, true)
				},
			},
		},
	}
}

// RunMigrations applies pending migrations to the configured store, or only
// reports their status when statusOnly is set.
func RunMigrations(ctx context.Context, w io.Writer, cfg *config.Config, statusOnly bool) error {
	sqlDB, dialect, err := storage.OpenMigrationDB(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			fmt.Fprintf(w, "Warning: failed to close database: %v\n", err)
		}
	}()

	manager := db.NewMigrationManager(sqlDB, dialect)
	fmt.Fprintf(w, "=== Storage: %s ===\n", dialect)

	if statusOnly {
		return showMigrationStatus(w, manager)
	}

	applied, err := manager.ApplyPendingMigrations()
	if err != nil {
		return err
	}
	if applied == 0 {
		fmt.Fprintln(w, "Database is up to date")
	} else {
		fmt.Fprintf(w, "Applied %d migrations\n", applied)
	}
	return nil
}

// showMigrationStatus displays the current migration status
func showMigrationStatus(w io.Writer, manager *db.MigrationManager) error {
	status, err := manager.GetMigrationStatus()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Applied migrations: %d\n", len(status.Applied))
	for _, migration := range status.Applied {
		fmt.Fprintf(w, "  ✓ %03d: %s (applied: %s)\n", migration.Version, migration.Name, formatAppliedAt(migration.AppliedAt))
	}

	fmt.Fprintf(w, "Pending migrations: %d\n", len(status.Pending))
	for _, migration := range status.Pending {
		fmt.Fprintf(w, "  • %03d: %s\n", migration.Version, migration.Name)
	}

	if len(status.Pending) == 0 {
		fmt.Fprintln(w, "  (none - database is up to date)")
	}

	return nil
}
