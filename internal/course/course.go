// Package course owns one course build: it resolves themes, realizes the
// item tree from the config structure and drives the processor pipeline once
// per theme. It is the item tree's build context and the URL resolver of the
// render pass.
package course

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/coursebuilder/internal/config"
	"git.home.luguber.info/inful/coursebuilder/internal/enrich"
	"git.home.luguber.info/inful/coursebuilder/internal/item"
	"git.home.luguber.info/inful/coursebuilder/internal/lastbuilt"
	"git.home.luguber.info/inful/coursebuilder/internal/latex"
	"git.home.luguber.info/inful/coursebuilder/internal/manifest"
	"git.home.luguber.info/inful/coursebuilder/internal/metrics"
	"git.home.luguber.info/inful/coursebuilder/internal/process"
	"git.home.luguber.info/inful/coursebuilder/internal/render"
	"git.home.luguber.info/inful/coursebuilder/internal/theme"
)

// recordFile is the per-build-dir staleness store.
const recordFile = ".lastbuilt.db"

// Options select the build mode.
type Options struct {
	// Absolute makes page URLs absolute under the web root; the default is
	// relative URLs suitable for viewing straight from the filesystem.
	Absolute bool
	// ForceTheme renders every theme into its own subdirectory even for a
	// single-theme course, which pushes every page one level deeper.
	ForceTheme bool
	NoPDF      bool
	OutFormat  string // defaults to "html"
}

// Course is one course build in progress.
type Course struct {
	cfg     *config.Config
	rootDir string
	outDir  string
	opts    Options

	recorder metrics.Recorder
	loader   latex.Loader
	compiler latex.Compiler

	themes    []*theme.Theme
	active    *theme.Theme
	structure []item.Item
	webRoot   string
	tempDir   string
}

func New(cfg *config.Config, rootDir, outDir string, opts Options, recorder metrics.Recorder) *Course {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Course{
		cfg:      cfg,
		rootDir:  rootDir,
		outDir:   outDir,
		opts:     opts,
		recorder: recorder,
		loader:   &latex.ExecLoader{TexInputs: cfg.TexInputs},
		compiler: &latex.ExecCompiler{TexInputs: cfg.TexInputs},
	}
}

// item.Context implementation.

func (c *Course) Author() string         { return c.cfg.Author }
func (c *Course) Code() string           { return c.cfg.Code }
func (c *Course) Year() int              { return c.cfg.Year }
func (c *Course) BuildPDF() bool         { return c.cfg.BuildPDF && !c.opts.NoPDF }
func (c *Course) RootDir() string        { return c.rootDir }
func (c *Course) Structure() []item.Item { return c.structure }

func (c *Course) ThemeYAML() map[string]any {
	if c.active == nil {
		return map[string]any{"title": "", "path": "."}
	}
	return c.active.YAML()
}

// AltThemesYAML lists the other themes of a multi-theme build so pages can
// link their own rendering under each alternative.
func (c *Course) AltThemesYAML() []map[string]any {
	if len(c.themes) < 2 {
		return nil
	}
	out := make([]map[string]any, 0, len(c.themes)-1)
	for _, t := range c.themes {
		if t == c.active {
			continue
		}
		out = append(out, t.YAML())
	}
	return out
}

func (c *Course) BurnInExtras(text string, forceLocal bool, outFormat string) string {
	return enrich.BurnInExtras(text, forceLocal, outFormat)
}

func (c *Course) LoadLatexContent(it item.Item) (string, error) {
	work, err := c.TempPath(it.URLClean())
	if err != nil {
		return "", err
	}
	source := filepath.Join(c.rootDir, it.Source())
	return c.loader.Load(context.Background(), source, work)
}

// WebRoot is the URL prefix pages live under. In relative mode it is the
// absolute filesystem path of the current theme's build directory, so
// absolute references still resolve when a page is opened from disk.
// Otherwise root_url wins when configured; else the root is synthesized from
// base_dir and the course code. The active theme's subdirectory is appended
// either way.
func (c *Course) WebRoot() string {
	if c.webRoot != "" {
		return c.webRoot
	}

	var root string
	if !c.opts.Absolute {
		abs, err := filepath.Abs(c.buildPath())
		if err != nil {
			abs = c.buildPath()
		}
		c.webRoot = abs + "/"
		return c.webRoot
	}

	root = c.cfg.RootURL
	if root == "" {
		root = "/"
		if c.cfg.BaseDir != "" {
			root += c.cfg.BaseDir + "/"
		}
		if c.cfg.Code != "" {
			root += c.cfg.Code + "/"
		}
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	if c.active != nil && c.active.Path != "." {
		root += c.active.Path + "/"
	}
	c.webRoot = root
	return c.webRoot
}

// MakeRelativeURL resolves a site-relative URL for one item's page. Absolute
// mode prefixes the web root; relative mode climbs out of the item's output
// directory with one `..` per path level. URLs already carrying the web root
// prefix are reduced to their site-relative part first.
func (c *Course) MakeRelativeURL(it item.Item, url string) string {
	root := c.WebRoot()
	if trimmed, ok := strings.CutPrefix(url, root); ok {
		url = trimmed
	} else if trimmed, ok := strings.CutPrefix(url, strings.TrimPrefix(root, "/")); ok {
		url = trimmed
	}

	if c.opts.Absolute {
		return root + url
	}

	levels := len(it.OutPath()) - 1
	if c.opts.ForceTheme {
		levels++
	}
	if levels <= 0 {
		return url
	}
	return strings.Repeat("../", levels) + url
}

// buildPath is the output directory of the active theme.
func (c *Course) buildPath() string {
	if c.active == nil || c.active.Path == "." {
		return c.outDir
	}
	return filepath.Join(c.outDir, c.active.Path)
}

// TempPath returns a scratch subdirectory, created on demand and removed by
// Cleanup.
func (c *Course) TempPath(parts ...string) (string, error) {
	if c.tempDir == "" {
		dir, err := os.MkdirTemp("", "coursebuilder-*")
		if err != nil {
			return "", fmt.Errorf("create scratch dir: %w", err)
		}
		c.tempDir = dir
	}
	p := filepath.Join(append([]string{c.tempDir}, parts...)...)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", err
	}
	return p, nil
}

// Cleanup removes the scratch directory. Safe to call unconditionally.
func (c *Course) Cleanup() {
	if c.tempDir == "" {
		return
	}
	if err := os.RemoveAll(c.tempDir); err != nil {
		slog.Warn("could not remove scratch dir", "dir", c.tempDir, "error", err)
	}
	c.tempDir = ""
}

// LoadThemes resolves every configured theme. Single-theme courses keep their
// output at the build root unless ForceTheme pushes them into a subdirectory.
func (c *Course) LoadThemes() error {
	work, err := c.TempPath("themes")
	if err != nil {
		return err
	}
	finder := &theme.Finder{RootDir: c.rootDir, ThemesDir: c.cfg.ThemesDir, WorkDir: work}
	themes, err := theme.LoadAll(finder, c.cfg.Themes)
	if err != nil {
		return err
	}
	if c.opts.ForceTheme {
		for _, t := range themes {
			if t.Path == "." {
				t.Path = t.Name
			}
		}
	}
	c.themes = themes
	return nil
}

// Build runs the full pipeline once per theme and writes the build manifest.
func (c *Course) Build() error {
	start := time.Now()
	defer c.Cleanup()

	err := c.build()
	c.recorder.ObserveBuildDuration(time.Since(start))
	if err != nil {
		c.recorder.IncBuildOutcome("failure")
		return err
	}
	c.recorder.IncBuildOutcome("success")
	return nil
}

func (c *Course) build() error {
	if len(c.themes) == 0 {
		if err := c.LoadThemes(); err != nil {
			return err
		}
	}
	for _, t := range c.themes {
		if err := c.buildWithTheme(t); err != nil {
			return fmt.Errorf("build with theme %s: %w", t.Name, err)
		}
	}
	return c.SaveManifest()
}

func (c *Course) buildWithTheme(t *theme.Theme) error {
	c.active = t
	c.webRoot = ""
	buildDir := c.buildPath()
	slog.Info("building", "course", c.cfg.Title, "theme", t.Name, "out", buildDir)

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("create build dir: %w", err)
	}
	if err := t.CopyStatic(buildDir); err != nil {
		slog.Warn("could not copy theme assets", "theme", t.Name, "error", err)
	}
	if err := c.copyCourseStatic(buildDir); err != nil {
		slog.Warn("could not copy course static files", "dir", c.cfg.StaticDir, "error", err)
	}

	items, err := item.LoadStructure(c, c.cfg.Structure)
	if err != nil {
		return err
	}
	c.structure = items

	var tracker *lastbuilt.Tracker
	store, err := lastbuilt.Open(filepath.Join(buildDir, recordFile))
	if err != nil {
		slog.Warn("build record store unavailable, rebuilding everything", "error", err)
		tracker = lastbuilt.NewTracker(nil, c.rootDir)
	} else {
		defer store.Close()
		tracker = lastbuilt.NewTracker(store, c.rootDir)
	}

	renderer := &render.HTMLRenderer{TemplateDir: t.TemplateDir()}
	opts := item.RenderOptions{ForceLocal: !c.opts.Absolute, OutFormat: c.opts.OutFormat}

	pipeline := process.NewPipeline(c.recorder).
		Add(process.NewSlugCollision()).
		Add(process.NewLastBuilt(tracker)).
		Add(process.NewPDF(c.compiler, tracker, c.rootDir, buildDir, c.BuildPDF(), c.cfg.NumPDFRuns)).
		Add(process.NewNotebook(c.rootDir, buildDir)).
		Add(process.NewRender(renderer, c, tracker, buildDir, opts))
	return pipeline.Run(items)
}

// copyCourseStatic mirrors the course's own static dir into the build output.
// A missing static dir is fine.
func (c *Course) copyCourseStatic(buildDir string) error {
	src := c.cfg.StaticDir
	if fi, err := os.Stat(src); err != nil || !fi.IsDir() {
		return nil
	}
	dst := filepath.Join(buildDir, "static")
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// SaveManifest writes the build manifest at the output root, with the
// realized item tree in place of the declared structure.
func (c *Course) SaveManifest() error {
	snapshot := *c.cfg
	snapshot.Structure = nil
	for _, it := range c.structure {
		snapshot.Structure = append(snapshot.Structure, it.ContentTree())
	}
	// The local static path is meaningless to manifest consumers.
	snapshot.StaticDir = ""
	return manifest.Write(&snapshot, c.outDir)
}
