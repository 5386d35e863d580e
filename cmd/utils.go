package cmd

import (
	"context"
	"fmt"

	"github.com/rubiojr/cardex/pkg/config"
	"github.com/rubiojr/cardex/pkg/log"
	"github.com/rubiojr/cardex/pkg/storage"
	"github.com/urfave/cli/v3"
)

// loadConfig loads the configuration named by the global --config flag and
// applies the debug setting.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.SetGlobalDebug(c.Bool("debug") || cfg.Debug)
	return cfg, nil
}

// openStore opens the configured profile store with its schema migrated.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

func closeStore(store storage.Store) {
	if err := store.Close(); err != nil {
		fmt.Printf("Warning: failed to close storage: %v\n", err)
	}
}
