// Package enrich implements the content-enrichment step applied to Markdown
// bodies before rendering: bare media links standing alone in a paragraph are
// burned in as embeds.
package enrich

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// replacement is a byte range of the source to substitute.
type replacement struct {
	start, stop int
	text        string
}

// BurnInExtras transforms raw Markdown: paragraphs consisting of a single
// bare link to a known media provider become embed markup. forceLocal or a
// non-HTML output format downgrades embeds to plain links, since iframes have
// no meaning in PDF output or offline builds.
//
// Pure function: same inputs, same output, no network access.
func BurnInExtras(text string, forceLocal bool, outFormat string) string {
	source := []byte(text)
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(source))

	var repls []replacement
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		para, ok := n.(*gmast.Paragraph)
		if !ok || para.ChildCount() != 1 {
			return gmast.WalkContinue, nil
		}
		link, ok := para.FirstChild().(*gmast.AutoLink)
		if !ok {
			return gmast.WalkSkipChildren, nil
		}
		embed, ok := embedFor(string(link.URL(source)), forceLocal, outFormat)
		if !ok {
			return gmast.WalkSkipChildren, nil
		}
		lines := para.Lines()
		if lines.Len() == 0 {
			return gmast.WalkSkipChildren, nil
		}
		repls = append(repls, replacement{
			start: lines.At(0).Start,
			stop:  lines.At(lines.Len() - 1).Stop,
			text:  embed,
		})
		return gmast.WalkSkipChildren, nil
	})

	if len(repls) == 0 {
		return text
	}

	// Apply back to front so earlier offsets stay valid.
	sort.Slice(repls, func(i, j int) bool { return repls[i].start > repls[j].start })
	out := text
	for _, r := range repls {
		out = out[:r.start] + r.text + out[r.stop:]
	}
	return out
}

// embedFor builds embed markup for a known provider URL.
func embedFor(raw string, forceLocal bool, outFormat string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	src := embedSrc(u)
	if src == "" {
		return "", false
	}

	if forceLocal || (outFormat != "" && outFormat != "html") {
		return fmt.Sprintf("[%s](%s)\n", raw, raw), true
	}

	markup := fmt.Sprintf(
		`<iframe class="embed" src="%s" frameborder="0" allowfullscreen></iframe>`+"\n", src)
	if !wellFormed(markup) {
		return "", false
	}
	return markup, true
}

// embedSrc maps a provider watch URL to its player URL.
func embedSrc(u *url.URL) string {
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtube.com":
		if u.Path == "/watch" {
			if id := u.Query().Get("v"); id != "" {
				return "https://www.youtube.com/embed/" + id
			}
		}
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	case "vimeo.com":
		if id := strings.Trim(u.Path, "/"); id != "" && !strings.Contains(id, "/") {
			return "https://player.vimeo.com/video/" + id
		}
	}
	return ""
}

// wellFormed checks the generated markup parses as an HTML fragment.
func wellFormed(markup string) bool {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	return err == nil && len(nodes) > 0
}
