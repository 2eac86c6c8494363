package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the stylesheet and script served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the directory is embedded so this can't fail
		panic(fmt.Errorf("failed to get static fs: %w", err))
	}
	return sub
}

// Renderer renders pages to HTML.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page writes the full HTML document.
func (r *Renderer) Page(w io.Writer, p Page) error {
	return r.execute(w, "page", p)
}

// Fragment writes the live part of the page: the header, the result and the
// house structure. It's what replaces #live on a push.
func (r *Renderer) Fragment(w io.Writer, p Page) error {
	return r.execute(w, "result", p)
}

// FragmentHTML is Fragment into a string.
func (r *Renderer) FragmentHTML(p Page) (string, error) {
	var buf bytes.Buffer
	if err := r.Fragment(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// execute renders into a buffer first so a template error never leaves a
// half-written response.
func (r *Renderer) execute(w io.Writer, name string, p Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
