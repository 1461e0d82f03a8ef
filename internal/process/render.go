package process

import (
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/coursebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/coursebuilder/internal/item"
	"git.home.luguber.info/inful/coursebuilder/internal/lastbuilt"
	"git.home.luguber.info/inful/coursebuilder/internal/render"
)

// URLResolver adapts URLs in rendered output to an item's location; the
// course context provides the dual-mode (absolute/relative) logic.
type URLResolver interface {
	MakeRelativeURL(it item.Item, url string) string
}

// Render is the final pipeline pass: every renderable item's header and
// markdown payload become an HTML page, with in-page URLs resolved for the
// item's depth. Always last.
type Render struct {
	renderer render.PageRenderer
	resolver URLResolver
	tracker  *lastbuilt.Tracker
	outDir   string
	opts     item.RenderOptions
}

func NewRender(renderer render.PageRenderer, resolver URLResolver, tracker *lastbuilt.Tracker, outDir string, opts item.RenderOptions) *Render {
	return &Render{renderer: renderer, resolver: resolver, tracker: tracker, outDir: outDir, opts: opts}
}

func (*Render) Name() string { return "render" }
func (*Render) NumRuns() int { return 1 }

func (p *Render) Visit(it item.Item) error {
	return walk(it, func(node item.Item) error {
		payload, ok, err := node.Markdown(p.opts)
		if err != nil {
			return err
		}
		if !ok {
			// No standalone page (external urls).
			return nil
		}

		outPath := filepath.Join(p.outDir, node.OutFile()+".html")
		if !p.tracker.Stale(node.Source()) {
			if _, err := os.Stat(outPath); err == nil {
				slog.Debug("output up to date", "item", node.Title(), "file", outPath)
				return nil
			}
		}

		page, err := p.buildPage(node, payload)
		if err != nil {
			return err
		}
		if err := p.renderer.Render(node.TemplateFile(), page, outPath); err != nil {
			return err
		}
		if node.Type() == item.TypeSlides {
			deckPath := filepath.Join(p.outDir, node.OutFile()+".slides.html")
			if err := p.renderer.Render(node.TemplateFile(), page, deckPath); err != nil {
				return err
			}
		}
		return p.tracker.MarkBuilt(node.Source())
	})
}

func (p *Render) buildPage(node item.Item, payload string) (render.Page, error) {
	headerRaw, bodyMD, _ := frontmatter.Split([]byte(payload))
	header, err := frontmatter.ParseHeader(headerRaw)
	if err != nil {
		return render.Page{}, fmt.Errorf("parse header of %q: %w", node.Title(), err)
	}
	content, err := render.MarkdownHTML(bodyMD)
	if err != nil {
		return render.Page{}, err
	}
	resolved, err := p.resolveURLs(node, string(content))
	if err != nil {
		// Resolution is best-effort; malformed embedded HTML keeps its URLs.
		slog.Warn("could not resolve urls in rendered content", "item", node.Title(), "error", err)
		resolved = string(content)
	}
	return render.Page{Header: header, Content: template.HTML(resolved)}, nil
}

// resolveURLs rewrites link and asset URLs in a rendered body for the item's
// output depth.
func (p *Render) resolveURLs(node item.Item, body string) (string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for i, attr := range n.Attr {
				if !urlAttribute(n.Data, attr.Key) || !resolvable(attr.Val) {
					continue
				}
				n.Attr[i].Val = p.resolver.MakeRelativeURL(node, attr.Val)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	var b strings.Builder
	// html.Parse wraps the fragment in html/body elements; render the body
	// children only.
	bodyNode := findBody(doc)
	for c := bodyNode.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func urlAttribute(element, key string) bool {
	switch key {
	case "href":
		return element == "a" || element == "link"
	case "src":
		return element == "img" || element == "script" || element == "iframe"
	default:
		return false
	}
}

// resolvable filters out URLs that must not be touched: other schemes,
// in-page anchors and protocol-relative references.
func resolvable(url string) bool {
	if url == "" || strings.HasPrefix(url, "#") || strings.HasPrefix(url, "//") {
		return false
	}
	return !strings.Contains(url, "://") && !strings.HasPrefix(url, "mailto:") && !strings.HasPrefix(url, "data:")
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var search func(*html.Node)
	search = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			search(c)
		}
	}
	search(doc)
	if body == nil {
		return doc
	}
	return body
}
