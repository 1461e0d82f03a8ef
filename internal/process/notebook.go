package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/coursebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/coursebuilder/internal/item"
)

// Notebook derives interactive notebook artifacts from chapter content: the
// fenced code blocks of a markdown chapter become the code cells of an
// .ipynb file next to the rendered page.
type Notebook struct {
	rootDir string
	outDir  string
}

func NewNotebook(rootDir, outDir string) *Notebook {
	return &Notebook{rootDir: rootDir, outDir: outDir}
}

func (*Notebook) Name() string { return "notebook" }
func (*Notebook) NumRuns() int { return 1 }

func (p *Notebook) Visit(it item.Item) error {
	return walk(it, func(node item.Item) error {
		if !wantsPDF(node) || filepath.Ext(node.Source()) != ".md" {
			return nil
		}
		raw, err := os.ReadFile(filepath.Join(p.rootDir, node.Source()))
		if err != nil {
			return fmt.Errorf("read source for notebook of %q: %w", node.Title(), err)
		}
		body, _ := frontmatter.Strip(raw)

		cells := codeCells(body)
		if len(cells) == 0 {
			return nil
		}
		nb := notebookDoc(cells)
		data, err := json.MarshalIndent(nb, "", " ")
		if err != nil {
			return fmt.Errorf("marshal notebook for %q: %w", node.Title(), err)
		}
		outPath := filepath.Join(p.outDir, node.OutFile()+".ipynb")
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		return os.WriteFile(outPath, data, 0o644)
	})
}

// codeCells extracts fenced code block contents in document order.
func codeCells(body []byte) []string {
	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(body))

	var cells []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		block, ok := n.(*gmast.FencedCodeBlock)
		if !ok {
			return gmast.WalkContinue, nil
		}
		var b strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(body))
		}
		cells = append(cells, b.String())
		return gmast.WalkSkipChildren, nil
	})
	return cells
}

func notebookDoc(cells []string) map[string]any {
	cellDocs := make([]map[string]any, 0, len(cells))
	for _, src := range cells {
		cellDocs = append(cellDocs, map[string]any{
			"cell_type":       "code",
			"execution_count": nil,
			"metadata":        map[string]any{},
			"outputs":         []any{},
			"source":          strings.SplitAfter(strings.TrimRight(src, "\n"), "\n"),
		})
	}
	return map[string]any{
		"cells":          cellDocs,
		"metadata":       map[string]any{},
		"nbformat":       4,
		"nbformat_minor": 5,
	}
}
