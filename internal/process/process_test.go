package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/coursebuilder/internal/config"
	"git.home.luguber.info/inful/coursebuilder/internal/item"
	"git.home.luguber.info/inful/coursebuilder/internal/lastbuilt"
	"git.home.luguber.info/inful/coursebuilder/internal/render"
)

type fakeContext struct {
	rootDir   string
	structure []item.Item
}

func (f *fakeContext) Author() string                  { return "A" }
func (f *fakeContext) Code() string                    { return "c1" }
func (f *fakeContext) Year() int                       { return 2026 }
func (f *fakeContext) BuildPDF() bool                  { return true }
func (f *fakeContext) RootDir() string                 { return f.rootDir }
func (f *fakeContext) Structure() []item.Item          { return f.structure }
func (f *fakeContext) ThemeYAML() map[string]any       { return map[string]any{"path": "."} }
func (f *fakeContext) AltThemesYAML() []map[string]any { return nil }

func (f *fakeContext) BurnInExtras(text string, _ bool, _ string) string { return text }
func (f *fakeContext) LoadLatexContent(item.Item) (string, error)        { return "", nil }

func loadStructure(t *testing.T, ctx *fakeContext, recs []config.ItemRecord) []item.Item {
	t.Helper()
	items, err := item.LoadStructure(ctx, recs)
	require.NoError(t, err)
	ctx.structure = items
	return items
}

// countingProcessor records the slug order of every visit.
type countingProcessor struct {
	runs   int
	visits []string
	fail   func(it item.Item) error
}

func (*countingProcessor) Name() string      { return "counting" }
func (p *countingProcessor) NumRuns() int    { return p.runs }
func (p *countingProcessor) Visit(it item.Item) error {
	p.visits = append(p.visits, it.Slug())
	if p.fail != nil {
		return p.fail(it)
	}
	return nil
}

func TestPipeline_NumRuns_VisitsEveryItemPerRunInOrder(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Alpha", Source: "a.md"},
		{Type: "chapter", Title: "Beta", Source: "b.md"},
	})
	require.Len(t, items, 3) // plus synthesized introduction

	proc := &countingProcessor{runs: 3}
	err := NewPipeline(nil).Add(proc).Run(items)
	require.NoError(t, err)

	pass := []string{"alpha", "beta", "index"}
	want := append(append(append([]string{}, pass...), pass...), pass...)
	require.Equal(t, want, proc.visits)
}

func TestPipeline_NonStructuralFailure_ContinuesWithNextItem(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Alpha", Source: "a.md"},
		{Type: "chapter", Title: "Beta", Source: "b.md"},
	})

	proc := &countingProcessor{runs: 1, fail: func(it item.Item) error {
		if it.Slug() == "alpha" {
			return errors.New("transient render problem")
		}
		return nil
	}}
	err := NewPipeline(nil).Add(proc).Run(items)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "index"}, proc.visits)
}

func TestPipeline_StructuralFailure_AbortsBuild(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Alpha", Source: "a.md"},
		{Type: "chapter", Title: "Beta", Source: "b.md"},
	})

	proc := &countingProcessor{runs: 1, fail: func(it item.Item) error {
		if it.Slug() == "alpha" {
			return os.ErrNotExist
		}
		return nil
	}}
	err := NewPipeline(nil).Add(proc).Run(items)
	require.Error(t, err)

	var fail *ItemFailure
	require.ErrorAs(t, err, &fail)
	require.Equal(t, "Alpha", fail.Item)
	require.Equal(t, []string{"alpha"}, proc.visits)
}

func TestSlugCollision_TopLevelDuplicate_Fails(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Intro!", Source: "a.md"},
		{Type: "chapter", Title: "Intro?", Source: "b.md"},
	})

	err := NewPipeline(nil).Add(NewSlugCollision()).Run(items)
	require.ErrorIs(t, err, ErrSlugCollision)
}

func TestSlugCollision_SiblingChildDuplicate_Fails(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "part", Title: "Unit 1", Content: []config.ItemRecord{
			{Type: "chapter", Title: "Maps", Source: "a.md"},
			{Type: "chapter", Title: "Maps", Source: "b.md"},
		}},
	})

	err := NewPipeline(nil).Add(NewSlugCollision()).Run(items)
	require.ErrorIs(t, err, ErrSlugCollision)
}

func TestSlugCollision_SameSlugDifferentParents_Allowed(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "part", Title: "Unit 1", Content: []config.ItemRecord{
			{Type: "chapter", Title: "Intro", Source: "a.md"},
		}},
		{Type: "part", Title: "Unit 2", Content: []config.ItemRecord{
			{Type: "chapter", Title: "Intro", Source: "b.md"},
		}},
	})

	err := NewPipeline(nil).Add(NewSlugCollision()).Run(items)
	require.NoError(t, err)
}

type fakeCompiler struct {
	calls []string
}

func (c *fakeCompiler) Compile(_ context.Context, sourcePath, outDir string) error {
	c.calls = append(c.calls, sourcePath+"->"+outDir)
	return nil
}

func TestPDF_TexChapter_CompiledOncePerRun(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Calc", Source: "calc.tex"},
		{Type: "chapter", Title: "Notes", Source: "notes.md"},
	})

	comp := &fakeCompiler{}
	proc := NewPDF(comp, lastbuilt.NewTracker(nil, ctx.rootDir), ctx.rootDir, t.TempDir(), true, 2)
	require.Equal(t, 2, proc.NumRuns())

	err := NewPipeline(nil).Add(proc).Run(items)
	require.NoError(t, err)
	// Two passes over the tex chapter; the markdown chapter is skipped.
	require.Len(t, comp.calls, 2)
	require.Contains(t, comp.calls[0], "calc.tex")
}

func TestPDF_Disabled_NoCompilerCalls(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Calc", Source: "calc.tex"},
	})

	comp := &fakeCompiler{}
	proc := NewPDF(comp, lastbuilt.NewTracker(nil, ctx.rootDir), ctx.rootDir, t.TempDir(), false, 1)
	require.NoError(t, NewPipeline(nil).Add(proc).Run(items))
	require.Empty(t, comp.calls)
}

func TestNotebook_ChapterWithCodeBlocks_WritesNotebook(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	src := "# Chapter\n\n```python\nprint(1)\nprint(2)\n```\n\ntext\n\n```python\nx = 3\n```\n"
	require.NoError(t, os.WriteFile(filepath.Join(ctx.rootDir, "a.md"), []byte(src), 0o644))
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Code", Source: "a.md"},
	})

	outDir := t.TempDir()
	err := NewPipeline(nil).Add(NewNotebook(ctx.rootDir, outDir)).Run(items)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "code.ipynb"))
	require.NoError(t, err)
	require.Contains(t, string(data), "print(1)")
	require.Contains(t, string(data), "\"nbformat\": 4")
}

func TestNotebook_NoCodeBlocks_NoArtifact(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(ctx.rootDir, "a.md"), []byte("plain\n"), 0o644))
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "Prose", Source: "a.md"},
	})

	outDir := t.TempDir()
	require.NoError(t, NewPipeline(nil).Add(NewNotebook(ctx.rootDir, outDir)).Run(items))
	_, err := os.Stat(filepath.Join(outDir, "prose.ipynb"))
	require.True(t, os.IsNotExist(err))
}

type passthroughResolver struct{}

func (passthroughResolver) MakeRelativeURL(_ item.Item, url string) string { return "../" + url }

func TestRender_PartAndChapter_WritesPagesWithNavigation(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(ctx.rootDir, "a.md"), []byte("plain text"), 0o644))
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "part", Title: "Unit 1", Content: []config.ItemRecord{
			{Type: "chapter", Title: "Intro", Source: "a.md"},
		}},
	})

	outDir := t.TempDir()
	proc := NewRender(&render.HTMLRenderer{}, passthroughResolver{}, lastbuilt.NewTracker(nil, ctx.rootDir), outDir, item.RenderOptions{})
	require.NoError(t, NewPipeline(nil).Add(proc).Run(items))

	chapter, err := os.ReadFile(filepath.Join(outDir, "unit-1", "intro.html"))
	require.NoError(t, err)
	require.Contains(t, string(chapter), "plain text")

	part, err := os.ReadFile(filepath.Join(outDir, "unit-1.html"))
	require.NoError(t, err)
	require.Contains(t, string(part), "Unit 1")

	index, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	require.NotEmpty(t, index)
}

func TestRender_URLItem_ProducesNoPage(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "url", Title: "Forum", Source: "https://example.org"},
	})

	outDir := t.TempDir()
	proc := NewRender(&render.HTMLRenderer{}, passthroughResolver{}, lastbuilt.NewTracker(nil, ctx.rootDir), outDir, item.RenderOptions{})
	require.NoError(t, NewPipeline(nil).Add(proc).Run(items))

	_, err := os.Stat(filepath.Join(outDir, "forum.html"))
	require.True(t, os.IsNotExist(err))
}

func TestRender_RelativeURLsRewrittenForDepth(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(ctx.rootDir, "a.md"),
		[]byte("![fig](images/fig.png)\n\n[ext](https://example.org/x)\n"), 0o644))
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "part", Title: "Unit 1", Content: []config.ItemRecord{
			{Type: "chapter", Title: "Intro", Source: "a.md"},
		}},
	})

	outDir := t.TempDir()
	proc := NewRender(&render.HTMLRenderer{}, passthroughResolver{}, lastbuilt.NewTracker(nil, ctx.rootDir), outDir, item.RenderOptions{})
	require.NoError(t, NewPipeline(nil).Add(proc).Run(items))

	chapter, err := os.ReadFile(filepath.Join(outDir, "unit-1", "intro.html"))
	require.NoError(t, err)
	require.Contains(t, string(chapter), `src="../images/fig.png"`)
	// External URLs are never rewritten.
	require.Contains(t, string(chapter), `href="https://example.org/x"`)
}

func TestRender_FreshSourceWithExistingOutput_Skipped(t *testing.T) {
	ctx := &fakeContext{rootDir: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(ctx.rootDir, "a.md"), []byte("v1"), 0o644))
	items := loadStructure(t, ctx, []config.ItemRecord{
		{Type: "chapter", Title: "One", Source: "a.md"},
	})

	outDir := t.TempDir()
	store, err := lastbuilt.Open(filepath.Join(outDir, "lastbuilt.db"))
	require.NoError(t, err)
	defer store.Close()

	tracker := lastbuilt.NewTracker(store, ctx.rootDir)
	proc := NewRender(&render.HTMLRenderer{}, passthroughResolver{}, tracker, outDir, item.RenderOptions{})
	require.NoError(t, NewPipeline(nil).Add(NewLastBuilt(tracker)).Add(proc).Run(items))

	// Second build with an unchanged source: the page must not be rewritten.
	outPath := filepath.Join(outDir, "one.html")
	require.NoError(t, os.WriteFile(outPath, []byte("sentinel"), 0o644))

	tracker2 := lastbuilt.NewTracker(store, ctx.rootDir)
	proc2 := NewRender(&render.HTMLRenderer{}, passthroughResolver{}, tracker2, outDir, item.RenderOptions{})
	require.NoError(t, NewPipeline(nil).Add(NewLastBuilt(tracker2)).Add(proc2).Run(items))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "sentinel", string(data))
}
