// Package static holds the embedded page templates and assets of the web front end.
package static

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed assets/*
var assetsFS embed.FS

// Templates parses all page templates with funcs available to them.
// Pages are addressed by file name, e.g. "explore.html".
func Templates(funcs template.FuncMap) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded templates: %w", err)
	}
	return t, nil
}

// Assets returns the stylesheet and images served under /static.
func Assets() http.FileSystem {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		// the path is a constant, this only fails if the embed directive is broken
		panic(err)
	}
	return http.FS(sub)
}
