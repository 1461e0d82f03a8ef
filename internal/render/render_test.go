package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLRenderer_NoThemeTemplate_UsesBuiltinSkeleton(t *testing.T) {
	out := filepath.Join(t.TempDir(), "unit-1", "intro.html")
	r := &HTMLRenderer{}

	err := r.Render("chapter.html", Page{
		Header:  map[string]any{"title": "Intro"},
		Content: "<p>hello</p>",
	}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), "<title>Intro</title>")
	require.Contains(t, string(data), "<p>hello</p>")
}

func TestHTMLRenderer_ThemeTemplate_Preferred(t *testing.T) {
	dir := t.TempDir()
	tmpl := `<article data-slug="{{.Header.slug}}">{{.Content}}</article>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chapter.html"), []byte(tmpl), 0o644))

	out := filepath.Join(t.TempDir(), "intro.html")
	r := &HTMLRenderer{TemplateDir: dir}
	err := r.Render("chapter.html", Page{
		Header:  map[string]any{"slug": "intro"},
		Content: "<p>x</p>",
	}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, `<article data-slug="intro"><p>x</p></article>`, string(data))
}

func TestMarkdownHTML_ConvertsHeadingsAndParagraphs(t *testing.T) {
	out, err := MarkdownHTML([]byte("# Heading\n\nBody text\n"))
	require.NoError(t, err)
	require.Contains(t, string(out), "<h1>Heading</h1>")
	require.Contains(t, string(out), "<p>Body text</p>")
}

func TestMarkdownHTML_RawHTMLPassedThrough(t *testing.T) {
	out, err := MarkdownHTML([]byte(`<iframe class="embed" src="x"></iframe>`))
	require.NoError(t, err)
	require.Contains(t, string(out), "iframe")
}
