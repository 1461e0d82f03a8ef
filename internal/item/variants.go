package item

import (
	"git.home.luguber.info/inful/coursebuilder/internal/config"
	"git.home.luguber.info/inful/coursebuilder/internal/frontmatter"
)

// Introduction is the course index page. Exactly one exists per course; the
// loader synthesizes one when the structure declares none.
type Introduction struct {
	base
}

func newIntroduction(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	it := &Introduction{}
	if err := it.init(ctx, rec, parent, it, TypeIntroduction, "index"); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Introduction) IsIndex() bool        { return true }
func (it *Introduction) TemplateFile() string { return "index.html" }
func (it *Introduction) OutPath() []string    { return []string{"index"} }

// Markdown emits the index header (links to every visible non-introduction
// top-level item, plus an isPart flag when the course opens with a part)
// followed by any backing content.
func (it *Introduction) Markdown(opts RenderOptions) (string, bool, error) {
	header := it.self.YAML(false)
	sections := topLevelSections(it.ctx)
	header["links"] = visibleYAML(sections, nil)
	if len(sections) > 0 && sections[0].Type() == TypePart {
		header["isPart"] = 1
	}

	body, err := it.GetContent(opts.ForceLocal, opts.format())
	if err != nil {
		return "", false, err
	}
	out, err := frontmatter.Compose(header, body)
	return out, err == nil, err
}

// Part groups chapters. It stays one level deep regardless of parentage.
type Part struct {
	base
}

func newPart(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	it := &Part{}
	if err := it.init(ctx, rec, parent, it, TypePart, "Untitled part"); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Part) TemplateFile() string { return "part.html" }
func (it *Part) OutPath() []string    { return []string{it.slug} }

func (it *Part) YAML(active bool) map[string]any {
	y := it.baseYAML(active)
	y["part-slug"] = it.slug
	y["chapters"] = visibleYAML(it.content, nil)
	return y
}

// Markdown for a part is header only; the body comes from its chapters.
func (it *Part) Markdown(RenderOptions) (string, bool, error) {
	out, err := frontmatter.Header(it.self.YAML(false))
	return out, err == nil, err
}

// URL is an external link in the navigation. It has no page of its own.
type URL struct {
	base
}

func newURL(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	it := &URL{}
	if err := it.init(ctx, rec, parent, it, TypeURL, "Untitled URL"); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *URL) TemplateFile() string { return "part.html" }

// YAML for a URL replaces the base header entirely: only the link itself.
func (it *URL) YAML(bool) map[string]any {
	return map[string]any{
		"title":        it.title,
		"external_url": it.source,
	}
}

func (it *URL) Markdown(RenderOptions) (string, bool, error) { return "", false, nil }

// Chapter is a regular content page, optionally grouped under a part.
type Chapter struct {
	base
}

func newChapter(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	it := &Chapter{}
	if err := it.init(ctx, rec, parent, it, TypeChapter, "Untitled chapter"); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Chapter) TemplateFile() string { return "chapter.html" }

func (it *Chapter) YAML(active bool) map[string]any {
	y := it.baseYAML(active)
	y["build_pdf"] = it.ctx.BuildPDF()
	y["file"] = it.self.URL() + ".html"
	y["pdf"] = it.self.URL() + ".pdf"
	y["sidebar"] = true
	return y
}

// Markdown emits the chapter header extended with navigation context (parent
// part and sibling chapter list, the current chapter flagged active), then
// the resolved body.
func (it *Chapter) Markdown(opts RenderOptions) (string, bool, error) {
	header := it.self.YAML(false)
	if it.parent != nil {
		header["part"] = it.parent.Title()
		header["part-slug"] = it.parent.Slug()
		header["chapters"] = visibleYAML(it.parent.Children(), it.self)
	} else {
		header["chapters"] = visibleYAML(topLevelSections(it.ctx), it.self)
	}

	body, err := it.GetContent(opts.ForceLocal, opts.format())
	if err != nil {
		return "", false, err
	}
	out, err := frontmatter.Compose(header, body)
	return out, err == nil, err
}

// Slides is a chapter rendered additionally as a slide deck.
type Slides struct {
	Chapter
}

func newSlides(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	it := &Slides{}
	if err := it.init(ctx, rec, parent, it, TypeSlides, "Untitled Slides"); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Slides) TemplateFile() string { return "slides.html" }

func (it *Slides) YAML(active bool) map[string]any {
	y := it.Chapter.YAML(active)
	y["file"] = it.self.URL() + ".html"
	y["slides"] = it.self.URL() + ".slides.html"
	y["pdf"] = it.self.URL() + ".pdf"
	y["sidebar"] = true
	return y
}

// Recap is a chapter excluded from the sidebar and from PDF builds.
type Recap struct {
	Chapter
}

func newRecap(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	it := &Recap{}
	if err := it.init(ctx, rec, parent, it, TypeRecap, "Untitled Recap"); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Recap) TemplateFile() string { return "chapter.html" }

func (it *Recap) YAML(active bool) map[string]any {
	y := it.Chapter.YAML(active)
	y["build_pdf"] = false
	y["file"] = it.self.URL() + ".html"
	y["sidebar"] = false
	return y
}

// Standalone is the single page produced by a single-file build. It serves
// as the course index, so the loader does not synthesize an introduction
// alongside it.
type Standalone struct {
	Chapter
}

func newStandalone(ctx Context, rec config.ItemRecord, parent Item) (Item, error) {
	it := &Standalone{}
	if err := it.init(ctx, rec, parent, it, TypeStandalone, "Untitled"); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Standalone) IsIndex() bool        { return true }
func (it *Standalone) TemplateFile() string { return "standalone.html" }
func (it *Standalone) OutPath() []string    { return []string{"index"} }

func (it *Standalone) YAML(active bool) map[string]any {
	y := it.Chapter.YAML(active)
	if it.rec.Sidebar != nil {
		y["sidebar"] = *it.rec.Sidebar
	}
	if it.rec.Topbar != nil {
		y["topbar"] = *it.rec.Topbar
	}
	if it.rec.Footer != nil {
		y["footer"] = *it.rec.Footer
	}
	return y
}
