// Package theme resolves the themes a course builds under: local template
// directories found on a search path, or remote ones fetched from git.
package theme

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/coursebuilder/internal/config"
)

// ErrThemeNotFound indicates no search directory contains the named theme.
var ErrThemeNotFound = errors.New("theme not found")

// Theme is one resolved theme: its templates and static assets on disk plus
// the output subdirectory it renders into.
type Theme struct {
	Name      string // source name from the config record
	Title     string
	Path      string // output subdirectory, "." for single-theme builds
	SourceDir string // resolved template/asset directory
}

// YAML is the theme descriptor embedded into every item header.
func (t *Theme) YAML() map[string]any {
	return map[string]any{
		"title": t.Title,
		"path":  t.Path,
	}
}

// TemplateDir is where the theme's page templates live. Empty for the
// built-in theme; the renderer then uses its page skeleton.
func (t *Theme) TemplateDir() string {
	if t.SourceDir == "" {
		return ""
	}
	return filepath.Join(t.SourceDir, "templates")
}

// CopyStatic copies the theme's static assets into dstDir. Missing asset
// directories are not an error; a theme may be templates-only.
func (t *Theme) CopyStatic(dstDir string) error {
	if t.SourceDir == "" {
		return nil
	}
	src := filepath.Join(t.SourceDir, "static")
	if fi, err := os.Stat(src); err != nil || !fi.IsDir() {
		return nil
	}
	return copyTree(src, dstDir)
}

// Finder locates theme source directories.
type Finder struct {
	RootDir   string
	ThemesDir string // optional themes_dir from the config
	WorkDir   string // scratch dir for git checkouts, removed after the build
}

// directories yields the search path in priority order.
func (f *Finder) directories() []string {
	var dirs []string
	if f.ThemesDir != "" {
		dirs = append(dirs, f.ThemesDir)
	}
	dirs = append(dirs, filepath.Join(f.RootDir, "themes"), "themes")
	return dirs
}

// Find resolves a theme source name to a directory. Git URLs are fetched
// into the finder's work dir; plain names are looked up on the search path.
func (f *Finder) Find(name string) (string, error) {
	if isGitSource(name) {
		return f.fetch(name)
	}
	for _, dir := range f.directories() {
		p := filepath.Join(dir, name)
		slog.Debug("trying theme directory", "path", p)
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return p, nil
		}
	}
	if name == "default" {
		// Built-in theme: no source dir, templates come from the renderer's
		// page skeleton.
		return "", nil
	}
	return "", fmt.Errorf("%w: %s", ErrThemeNotFound, name)
}

func (f *Finder) fetch(url string) (string, error) {
	dst := filepath.Join(f.WorkDir, "themes", slugifyURL(url))
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		return dst, nil
	}
	slog.Info("fetching theme", "url", url)
	if _, err := git.PlainClone(dst, false, &git.CloneOptions{URL: url, Depth: 1}); err != nil {
		return "", fmt.Errorf("fetch theme %s: %w", url, err)
	}
	return dst, nil
}

// LoadAll resolves every theme record from the config.
func LoadAll(f *Finder, records []config.ThemeRecord) ([]*Theme, error) {
	themes := make([]*Theme, 0, len(records))
	for _, rec := range records {
		src, err := f.Find(rec.Source)
		if err != nil {
			return nil, err
		}
		themes = append(themes, &Theme{
			Name:      rec.Source,
			Title:     rec.Title,
			Path:      rec.Path,
			SourceDir: src,
		})
	}
	return themes, nil
}

func isGitSource(name string) bool {
	return strings.HasPrefix(name, "http://") ||
		strings.HasPrefix(name, "https://") ||
		strings.HasPrefix(name, "git@") ||
		strings.HasSuffix(name, ".git")
}

func slugifyURL(url string) string {
	repl := strings.NewReplacer("://", "-", "/", "-", ":", "-", "@", "-")
	return strings.TrimSuffix(repl.Replace(url), ".git")
}

func copyTree(src, dst string) error {
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
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
