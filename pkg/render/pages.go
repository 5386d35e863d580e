package render

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Each page is its own template set so they can all define "title" and
// "content" for the shared layout.
var (
	resultsTemplate  = parsePage("results.html")
	profileTemplate  = parsePage("profile.html")
	notFoundTemplate = parsePage("notfound.html")
)

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").
		Funcs(TemplateFuncs()).
		ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
}

