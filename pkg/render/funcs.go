package render

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/rubiojr/cardex/pkg/search"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Highlight returns text as HTML with every case-insensitive occurrence of
// query wrapped in <mark>. Text is always escaped; an empty query returns
// the escaped text unchanged.
func Highlight(text, query string) template.HTML {
	var b strings.Builder
	for _, seg := range search.Highlight(text, query) {
		if seg.Match {
			b.WriteString("<mark>")
			b.WriteString(template.HTMLEscapeString(seg.Text))
			b.WriteString("</mark>")
			continue
		}
		b.WriteString(template.HTMLEscapeString(seg.Text))
	}
	return template.HTML(b.String())
}

// FormatTime renders t relative to now for recent times and as a date
// otherwise.
func FormatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		m := int(diff.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case diff < 24*time.Hour:
		h := int(diff.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	case diff < 7*24*time.Hour:
		d := int(diff.Hours() / 24)
		if d == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", d)
	default:
		return t.Format("Jan 2, 2006")
	}
}

// PlatformName turns a social link key into a label ("linkedin" -> "Linkedin").
func PlatformName(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// TemplateFuncs returns the functions available to every page template.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"highlight":    Highlight,
		"formatTime":   FormatTime,
		"platformName": PlatformName,
		"upper":        strings.ToUpper,
		"trim":         strings.TrimSpace,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
