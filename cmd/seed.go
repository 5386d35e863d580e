package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/storage"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yaml
var demoFixtures []byte

// profileNamespace derives stable ids for fixture profiles without one, so
// seeding the same file twice updates instead of duplicating.
var profileNamespace = uuid.MustParse("6f1c7c52-8d0e-4b8e-9a57-3c7f4f0b9e21")

type seedFile struct {
	Profiles []seedProfile `yaml:"profiles"`
}

type seedProfile struct {
	core.Profile
}

// UnmarshalYAML defaults is_active to true for fixtures.
func (s *seedProfile) UnmarshalYAML(n *yaml.Node) error {
	type plain core.Profile
	s.IsActive = true
	return n.Decode((*plain)(&s.Profile))
}

// SeedCommand creates the seed command
func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Load profiles from a YAML fixture file",
		ArgsUsage: "FILE.yaml",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Load the built-in demo profiles",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var data []byte
			switch {
			case c.Bool("demo"):
				data = demoFixtures
			case c.Args().Len() == 1:
				b, err := os.ReadFile(c.Args().First())
				if err != nil {
					return fmt.Errorf("reading fixtures: %w", err)
				}
				data = b
			default:
				return fmt.Errorf("usage: cardex seed FILE.yaml | cardex seed --demo")
			}

			profiles, err := parseFixtures(data, time.Now())
			if err != nil {
				return err
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			return seedProfiles(ctx, os.Stdout, store, profiles, cfg.ProfileURL)
		},
	}
}

// parseFixtures decodes a fixture file. Profiles without an id get one
// derived from their address and profiles without a creation time are
// spaced one minute apart from now, in file order.
func parseFixtures(data []byte, now time.Time) ([]*core.Profile, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}

	profiles := make([]*core.Profile, 0, len(f.Profiles))
	for i := range f.Profiles {
		p := &f.Profiles[i].Profile
		if p.ID == uuid.Nil {
			p.ID = uuid.NewSHA1(profileNamespace, []byte(p.Path()))
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now.Add(-time.Duration(i) * time.Minute)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func seedProfiles(ctx context.Context, w io.Writer, store storage.Store, profiles []*core.Profile, profileURL func(string) string) error {
	for _, p := range profiles {
		if err := store.Save(ctx, p); err != nil {
			return fmt.Errorf("saving %s: %w", p.Path(), err)
		}
		fmt.Fprintf(w, "✅ %s - %s (%s)\n", profileURL(p.Path()), p.DisplayName(), p.Type)
	}
	fmt.Fprintf(w, "\nSeeded %d profiles\n", len(profiles))
	return nil
}
