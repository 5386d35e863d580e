package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/cardex/pkg/client"
	"github.com/rubiojr/cardex/pkg/config"
	"github.com/rubiojr/cardex/pkg/search"
	"github.com/urfave/cli/v3"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	matchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("220"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search profiles by name, company, username or description",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "country",
				Usage: "Restrict results to a country code (e.g. us)",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Profile type: individual, company or all",
				Value: search.TypeAll,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of results to skip",
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "Search a cardex server at this URL instead of the local store",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON response",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			params := search.Params{
				Query:   strings.Join(c.Args().Slice(), " "),
				Country: c.String("country"),
				Type:    c.String("type"),
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			res, err := runSearch(ctx, cfg, c.String("remote"), params)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResults(os.Stdout, cfg, res)
			return nil
		},
	}
}

func runSearch(ctx context.Context, cfg *config.Config, remote string, params search.Params) (*search.Results, error) {
	if remote != "" {
		cl, err := client.New(remote, client.WithLimits(cfg.SearchLimits()))
		if err != nil {
			return nil, err
		}
		return cl.Search(ctx, params)
	}

	// Validate before touching storage so a short query never opens it.
	if err := params.Normalize(cfg.SearchLimits()).Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore(store)

	svc := search.NewService(store)
	svc.SetLimits(cfg.SearchLimits())
	return svc.Search(ctx, params)
}

// printResults renders a results page for the terminal, highlighting the
// query in names, usernames and subtitles.
func printResults(w io.Writer, cfg *config.Config, res *search.Results) {
	query := strings.TrimSpace(res.Query)

	if len(res.Results) == 0 {
		fmt.Fprintln(w, noDataStyle.Render(fmt.Sprintf("No profiles found for %q. Try different keywords or fewer filters.", query)))
		return
	}

	for i, s := range res.Results {
		fmt.Fprintf(w, "%s %s\n",
			titleStyle.Render(highlightTerminal(s.DisplayName, query)),
			badgeStyle.Render("["+string(s.ProfileType)+"]"))

		meta := "@" + highlightTerminal(s.Username, query) + " · " + strings.ToUpper(s.CountryCode)
		if s.ContactPerson != "" {
			meta += " · Contact: " + highlightTerminal(s.ContactPerson, query)
		}
		fmt.Fprintln(w, meta)

		if s.Subtitle != "" {
			fmt.Fprintln(w, highlightTerminal(s.Subtitle, query))
		}
		fmt.Fprintln(w, urlStyle.Render(cfg.ProfileURL(s.ProfileURL)))
		if i < len(res.Results)-1 {
			fmt.Fprintln(w)
		}
	}

	f := res.Filters
	first := f.Offset + 1
	last := f.Offset + len(res.Results)
	fmt.Fprintln(w)
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("Showing %d-%d of %s results", first, last, formatNumber(res.Total))))
}

func highlightTerminal(text, query string) string {
	var b strings.Builder
	for _, seg := range search.Highlight(text, query) {
		if seg.Match {
			b.WriteString(matchStyle.Render(seg.Text))
		} else {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}
