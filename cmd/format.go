package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/cardex/pkg/core"
	"github.com/rubiojr/cardex/pkg/render"
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1)

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// formatProfile renders a profile as a bordered card for the terminal.
func formatProfile(p *core.Profile, profileURL string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.DisplayName()))
	b.WriteString(" " + badgeStyle.Render("["+string(p.Type)+"]") + "\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("@%s · %s · joined %s",
		p.Username, strings.ToUpper(p.CountryCode), render.FormatTime(p.CreatedAt))))
	b.WriteString("\n")

	about := p.Bio
	if p.Type == core.ProfileTypeCompany {
		about = p.BusinessDetails
	}
	if about != "" {
		b.WriteString("\n" + about + "\n")
	}

	var rows [][2]string
	if p.Type == core.ProfileTypeCompany && p.ContactPerson != "" {
		rows = append(rows, [2]string{"Contact", p.ContactPerson})
	}
	if p.Email != "" {
		rows = append(rows, [2]string{"Email", p.Email})
	}
	if p.Phone != "" {
		rows = append(rows, [2]string{"Phone", p.Phone})
	}
	if p.Type == core.ProfileTypeIndividual && p.Address != "" {
		rows = append(rows, [2]string{"Address", p.Address})
	}
	platforms := make([]string, 0, len(p.SocialLinks))
	for k := range p.SocialLinks {
		platforms = append(platforms, k)
	}
	sort.Strings(platforms)
	for _, k := range platforms {
		rows = append(rows, [2]string{render.PlatformName(k), p.SocialLinks[k]})
	}

	if len(rows) > 0 {
		b.WriteString("\n")
		for _, row := range rows {
			fmt.Fprintf(&b, "%-10s %s\n", row[0]+":", row[1])
		}
	}
	b.WriteString("\n" + urlStyle.Render(profileURL))

	return cardStyle.Render(b.String())
}

func printProfile(w io.Writer, p *core.Profile, profileURL string) {
	fmt.Fprintln(w, formatProfile(p, profileURL))
}

// formatAppliedAt formats a migration timestamp.
func formatAppliedAt(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}
