// Package item models the course content tree: a rooted, ordered tree of
// typed nodes (introduction, part, chapter, slides, recap, url) loaded from
// the declarative structure and visited by the processor pipeline.
package item

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/coursebuilder/internal/config"
	"git.home.luguber.info/inful/coursebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/coursebuilder/internal/slug"
)

// ErrUnsupportedSourceType indicates an item source whose extension is
// neither .md nor .tex. Structural: the build aborts.
var ErrUnsupportedSourceType = errors.New("unsupported source type")

// Type discriminates item variants.
type Type string

const (
	TypeIntroduction Type = "introduction"
	TypePart         Type = "part"
	TypeChapter      Type = "chapter"
	TypeSlides       Type = "slides"
	TypeRecap        Type = "recap"
	TypeURL          Type = "url"
	TypeStandalone   Type = "standalone"
)

// Context is the slice of the course build context that items consume:
// config values for header synthesis, the active theme descriptors, the
// top-level structure for sibling navigation, and the two external content
// collaborators.
type Context interface {
	Author() string
	Code() string
	Year() int
	BuildPDF() bool
	RootDir() string
	Structure() []Item
	ThemeYAML() map[string]any
	AltThemesYAML() []map[string]any
	BurnInExtras(text string, forceLocal bool, outFormat string) string
	LoadLatexContent(it Item) (string, error)
}

// RenderOptions parameterize content resolution for an item.
type RenderOptions struct {
	ForceLocal bool
	OutFormat  string // defaults to "html"
}

func (o RenderOptions) format() string {
	if o.OutFormat == "" {
		return "html"
	}
	return o.OutFormat
}

// Item is one node of the course tree. Variants differ in output path rules,
// header synthesis and markdown payload; see the concrete types.
type Item interface {
	Type() Type
	Title() string
	Slug() string
	Source() string
	Hidden() bool
	IsIndex() bool
	Parent() Item
	Children() []Item

	// OutPath is the output location as path segments: [slug] for top-level
	// items, [parent-slug, slug] below a parent. Part and Introduction
	// override this.
	OutPath() []string
	OutFile() string
	URL() string
	URLClean() string

	TemplateFile() string

	// YAML returns the item's header map for navigation and template
	// consumption. active marks the item as the current page.
	YAML(active bool) map[string]any

	// Markdown produces the final textual payload (frontmatter header plus
	// body). ok is false for variants without a standalone page (Url).
	Markdown(opts RenderOptions) (payload string, ok bool, err error)

	// GetContent resolves the backing source document into body text.
	GetContent(forceLocal bool, outFormat string) (string, error)

	// ContentTree mirrors the item (and its subtree) back into a declarative
	// record for the build manifest.
	ContentTree() config.ItemRecord
}

// base carries the state and behavior shared by every variant. Variants embed
// it and hold a self reference so shared methods dispatch to overrides.
type base struct {
	ctx     Context
	self    Item
	parent  Item // non-owning back-reference
	rec     config.ItemRecord
	typ     Type
	title   string
	slug    string
	source  string
	hidden  bool
	content []Item
}

// init populates the base from a record and recursively loads child records,
// passing self as their parent.
func (b *base) init(ctx Context, rec config.ItemRecord, parent, self Item, typ Type, defaultTitle string) error {
	b.ctx = ctx
	b.self = self
	b.parent = parent
	b.rec = rec
	b.typ = typ
	b.title = rec.Title
	if b.title == "" {
		b.title = defaultTitle
	}
	b.slug = slug.Make(b.title)
	b.source = rec.Source
	b.hidden = rec.Hidden
	for _, child := range rec.Content {
		c, err := Load(ctx, child, self)
		if err != nil {
			return err
		}
		b.content = append(b.content, c)
	}
	return nil
}

func (b *base) Type() Type       { return b.typ }
func (b *base) Title() string    { return b.title }
func (b *base) Slug() string     { return b.slug }
func (b *base) Source() string   { return b.source }
func (b *base) Hidden() bool     { return b.hidden }
func (b *base) IsIndex() bool    { return false }
func (b *base) Parent() Item     { return b.parent }
func (b *base) Children() []Item { return b.content }

func (b *base) OutPath() []string {
	if b.parent != nil {
		return []string{b.parent.Slug(), b.slug}
	}
	return []string{b.slug}
}

func (b *base) OutFile() string  { return filepath.Join(b.self.OutPath()...) }
func (b *base) URL() string      { return strings.Join(b.self.OutPath(), "/") }
func (b *base) URLClean() string { return strings.Join(b.self.OutPath(), "-") }

// InFile is the file name component of the source path.
func (b *base) InFile() string { return filepath.Base(b.source) }

// BaseFile is the source file name without its extension.
func (b *base) BaseFile() string {
	name := filepath.Base(b.source)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// baseYAML is the common header every variant layers over (Url excepted,
// which replaces it).
func (b *base) baseYAML(active bool) map[string]any {
	y := map[string]any{
		"title":      b.title,
		"author":     b.ctx.Author(),
		"code":       b.ctx.Code(),
		"year":       b.ctx.Year(),
		"slug":       b.slug,
		"theme":      b.ctx.ThemeYAML(),
		"alt_themes": b.ctx.AltThemesYAML(),
	}
	if active {
		y["active"] = 1
	}
	return y
}

func (b *base) YAML(active bool) map[string]any { return b.baseYAML(active) }

// GetContent resolves the source document by extension. Markdown sources get
// any leading YAML frontmatter stripped (the item's own header wins) and run
// through the enrichment step; LaTeX sources delegate to the configured
// loader. Container items without a source produce an empty body.
func (b *base) GetContent(forceLocal bool, outFormat string) (string, error) {
	if b.source == "" {
		return "", nil
	}
	switch filepath.Ext(b.source) {
	case ".md":
		raw, err := os.ReadFile(filepath.Join(b.ctx.RootDir(), b.source))
		if err != nil {
			return "", fmt.Errorf("read source for %q: %w", b.title, err)
		}
		body, had := frontmatter.Strip(raw)
		if had {
			slog.Info("markdown source contains a YAML header, merging it in", "source", b.source)
		}
		return b.ctx.BurnInExtras(string(body), forceLocal, outFormat), nil
	case ".tex":
		return b.ctx.LoadLatexContent(b.self)
	default:
		return "", fmt.Errorf("%w for %q: %s", ErrUnsupportedSourceType, b.title, b.source)
	}
}

func (b *base) ContentTree() config.ItemRecord {
	rec := b.rec
	rec.Type = string(b.typ)
	rec.Title = b.title
	rec.Source = b.source
	rec.Hidden = b.hidden
	rec.Content = nil
	for _, c := range b.content {
		rec.Content = append(rec.Content, c.ContentTree())
	}
	return rec
}

// visibleYAML collects headers for the non-hidden items of a sibling list,
// flagging current as active.
func visibleYAML(items []Item, current Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if it.Hidden() {
			continue
		}
		out = append(out, it.YAML(it == current))
	}
	return out
}

// topLevelSections returns the course's visible top-level items, introduction
// excluded.
func topLevelSections(ctx Context) []Item {
	var out []Item
	for _, it := range ctx.Structure() {
		if it.Type() == TypeIntroduction || it.Hidden() {
			continue
		}
		out = append(out, it)
	}
	return out
}
