package process

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/coursebuilder/internal/item"
	"git.home.luguber.info/inful/coursebuilder/internal/lastbuilt"
	"git.home.luguber.info/inful/coursebuilder/internal/latex"
)

// PDF compiles LaTeX-sourced chapters to PDF. LaTeX needs multiple passes to
// resolve cross-references, so NumRuns comes from num_pdf_runs.
type PDF struct {
	compiler latex.Compiler
	tracker  *lastbuilt.Tracker
	rootDir  string
	outDir   string
	enabled  bool
	runs     int
}

func NewPDF(compiler latex.Compiler, tracker *lastbuilt.Tracker, rootDir, outDir string, enabled bool, runs int) *PDF {
	if runs < 1 {
		runs = 1
	}
	return &PDF{compiler: compiler, tracker: tracker, rootDir: rootDir, outDir: outDir, enabled: enabled, runs: runs}
}

func (*PDF) Name() string   { return "pdf" }
func (p *PDF) NumRuns() int { return p.runs }

func (p *PDF) Visit(it item.Item) error {
	if !p.enabled {
		return nil
	}
	return walk(it, func(node item.Item) error {
		if !wantsPDF(node) {
			return nil
		}
		if filepath.Ext(node.Source()) != ".tex" {
			slog.Debug("pdf build only covers latex sources", "item", node.Title(), "source", node.Source())
			return nil
		}
		if !p.tracker.Stale(node.Source()) {
			slog.Debug("pdf up to date", "item", node.Title())
			return nil
		}
		target := filepath.Join(p.outDir, filepath.Dir(node.OutFile()))
		source := filepath.Join(p.rootDir, node.Source())
		return p.compiler.Compile(context.Background(), source, target)
	})
}

// wantsPDF selects the chapter-like variants that publish a pdf output name.
// Recaps opt out; parts, urls and the introduction have no PDF of their own.
func wantsPDF(it item.Item) bool {
	switch it.Type() {
	case item.TypeChapter, item.TypeSlides, item.TypeStandalone:
		return true
	default:
		return false
	}
}
