package main

import (
	"context"
	stdlog "log"
	"os"

	"github.com/rubiojr/cardex/cmd"
	"github.com/rubiojr/cardex/pkg/config"
	"github.com/rubiojr/cardex/pkg/log"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		stdlog.Fatalf("Failed to load .env: %v", err)
	}

	app := &cli.Command{
		Name:  "cardex",
		Usage: "A directory of digital business cards",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.ServeCommand(),
			cmd.SearchCommand(),
			cmd.ProfileCommand(),
			cmd.SeedCommand(),
			cmd.MigrateCommand(),
			cmd.VersionCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	log.Flush()
	if err != nil {
		stdlog.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		stdlog.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
