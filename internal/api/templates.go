package api

import (
	"embed"
	"html/template"

	"github.com/dustin/go-humanize"

	"github.com/lox/evdash/internal/filter"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"deref": func(f *float64) float64 {
			if f == nil {
				return 0
			}
			return *f
		},
		"derefInt": func(n *int) int {
			if n == nil {
				return 0
			}
			return *n
		},
		"exportURL": func(query string) template.URL {
			if query == "" {
				return "/api/export.csv"
			}
			return template.URL("/api/export.csv?" + query)
		},
		"joinValues": filter.JoinValues,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
