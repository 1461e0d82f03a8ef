// Package render turns resolved item headers and Markdown bodies into final
// HTML files using the active theme's templates.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// Page is the template context for one rendered item.
type Page struct {
	Header  map[string]any
	Content template.HTML
}

// PageRenderer writes one output page. Narrow on purpose: the template
// engine behind it is swappable.
type PageRenderer interface {
	Render(templateFile string, page Page, outPath string) error
}

// HTMLRenderer renders through html/template files from a theme's template
// directory, falling back to a built-in page skeleton when the theme does not
// provide the requested template.
type HTMLRenderer struct {
	TemplateDir string
}

// defaultPage keeps template-less themes (and tests) building.
var defaultPage = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Header.title}}</title></head>
<body>
<main>{{.Content}}</main>
</body>
</html>
`))

func (r *HTMLRenderer) Render(templateFile string, page Page, outPath string) error {
	tmpl := defaultPage
	if r.TemplateDir != "" {
		p := filepath.Join(r.TemplateDir, templateFile)
		if _, err := os.Stat(p); err == nil {
			parsed, err := template.ParseFiles(p)
			if err != nil {
				return fmt.Errorf("parse template %s: %w", templateFile, err)
			}
			tmpl = parsed
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("render %s: %w", outPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir for %s: %w", outPath, err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}

// converter keeps raw HTML: enrichment emits embed markup into the body.
var converter = goldmark.New(goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()))

// MarkdownHTML converts a Markdown body to HTML.
func MarkdownHTML(body []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := converter.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
