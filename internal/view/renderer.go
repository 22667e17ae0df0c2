package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// PromptRegion is the only region drawn while the reviewer is blocked
const PromptRegion = "prompt"

// LayoutRegions are the regions of the review layout, top to bottom
var LayoutRegions = []string{
	"header",
	"sidebar",
	"preview_header",
	"preview",
	"comments_header",
	"composer",
	"comments",
}

// Renderer executes the embedded templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render implements echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// RenderRegions draws every region of the page, keyed by region name
func (r *Renderer) RenderRegions(page Page) (map[string]string, error) {
	names := LayoutRegions
	if page.Blocked {
		names = []string{PromptRegion}
	}

	regions := make(map[string]string, len(names))
	var buf bytes.Buffer
	for _, name := range names {
		buf.Reset()
		if err := r.templates.ExecuteTemplate(&buf, name, page); err != nil {
			return nil, fmt.Errorf("failed to render region %s: %w", name, err)
		}
		regions[name] = buf.String()
	}
	return regions, nil
}

// Diff returns the regions of next that differ from prev
func Diff(prev, next map[string]string) map[string]string {
	changed := make(map[string]string)
	for name, html := range next {
		if old, ok := prev[name]; !ok || old != html {
			changed[name] = html
		}
	}
	return changed
}
