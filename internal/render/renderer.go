// Package render turns a frozen draft snapshot into the HTML document
// handed to the rasterizer. Rendering is deterministic: the same snapshot
// always produces byte-identical output.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer produces the document body for a snapshot.
type Renderer interface {
	Render(ctx context.Context, snapshot *domain.Draft) (string, error)
}

// Style names accepted in Draft.TemplateStyle. Unknown styles fall back to
// StyleProfessional rather than failing the document.
const (
	StyleProfessional = "professional"
	StyleModern       = "modern"
	StyleCreative     = "creative"
)

var styleAccent = map[string]string{
	StyleProfessional: "#1a3c5e",
	StyleModern:       "#0f766e",
	StyleCreative:     "#7c3aed",
}

// HTMLRenderer renders through the embedded template set.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded templates. Parse errors are programmer
// errors and surface at construction time, not per document.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	caser := cases.Title(language.English)
	funcs := template.FuncMap{
		"heading": func(s string) string { return caser.String(s) },
		"join":    func(items []string, sep string) string { return strings.Join(items, sep) },
	}
	tmpl, err := template.New("resume").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

type templateData struct {
	Style      string
	Accent     string
	Profile    domain.Profile
	Experience []domain.ExperienceEntry
	Education  []domain.EducationEntry
	Skills     *domain.Skills
	Projects   []domain.ProjectEntry
}

// Render produces the HTML body for snapshot.
func (r *HTMLRenderer) Render(ctx context.Context, snapshot *domain.Draft) (string, error) {
	if snapshot == nil {
		return "", fmt.Errorf("render: nil snapshot")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	style := snapshot.TemplateStyle
	accent, ok := styleAccent[style]
	if !ok {
		style = StyleProfessional
		accent = styleAccent[StyleProfessional]
	}

	data := templateData{
		Style:      style,
		Accent:     accent,
		Profile:    snapshot.Profile,
		Experience: snapshot.Experience,
		Education:  snapshot.Education,
		Skills:     snapshot.Skills,
		Projects:   snapshot.Projects,
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "resume.html.tmpl", data); err != nil {
		return "", fmt.Errorf("render: execute template: %w", err)
	}
	return buf.String(), nil
}

var _ Renderer = (*HTMLRenderer)(nil)
