package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rubiojr/cardex/pkg/client"
	"github.com/rubiojr/cardex/pkg/config"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/urfave/cli/v3"
)

// ProfileCommand creates the profile command
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "Show a single active profile",
		ArgsUsage: "COUNTRY USERNAME",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "vcard",
				Usage: "Print the profile as a vCard",
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "Look the profile up on a cardex server at this URL",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 2 {
				return fmt.Errorf("usage: cardex profile COUNTRY USERNAME")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			country, username := c.Args().Get(0), c.Args().Get(1)
			p, err := lookupProfile(ctx, cfg, c.String("remote"), country, username)
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("profile %s not found", core.ProfilePath(country, username))
			}
			if err != nil {
				return err
			}

			url := cfg.ProfileURL(p.Path())
			if c.Bool("vcard") {
				fmt.Print(p.VCard(url))
				return nil
			}
			printProfile(os.Stdout, p, url)
			return nil
		},
	}
}

func lookupProfile(ctx context.Context, cfg *config.Config, remote, country, username string) (*core.Profile, error) {
	if !core.IsValidCountryCode(country) || !core.IsValidUsername(username) {
		return nil, core.ErrNotFound
	}

	if remote != "" {
		cl, err := client.New(remote)
		if err != nil {
			return nil, err
		}
		res, err := cl.Profile(ctx, country, username)
		if err != nil {
			return nil, err
		}
		return res.Profile, nil
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore(store)
	return store.Lookup(ctx, country, username)
}
