// Package config loads the declarative course description: course metadata,
// themes and the item structure.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingConfig indicates the config file is absent and no single-file
// override was given. Nothing can be built without a structure.
var ErrMissingConfig = errors.New("course config file not found")

const mathjaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"

// ItemRecord is one entry of the declarative course structure. Content nests
// recursively; the hierarchy is two levels deep in practice (part > chapter).
type ItemRecord struct {
	Type    string       `yaml:"type" json:"type"`
	Title   string       `yaml:"title,omitempty" json:"title,omitempty"`
	Source  string       `yaml:"source,omitempty" json:"source,omitempty"`
	Hidden  bool         `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	Sidebar *bool        `yaml:"sidebar,omitempty" json:"sidebar,omitempty"`
	Topbar  *bool        `yaml:"topbar,omitempty" json:"topbar,omitempty"`
	Footer  *bool        `yaml:"footer,omitempty" json:"footer,omitempty"`
	Content []ItemRecord `yaml:"content,omitempty" json:"content,omitempty"`
}

// ThemeRecord describes one theme the course builds under.
type ThemeRecord struct {
	Title  string `yaml:"title" json:"title"`
	Source string `yaml:"source" json:"source"`
	Path   string `yaml:"path" json:"path"`
}

// Config is the course-wide configuration: defaults extended by config.yml.
type Config struct {
	Title         string        `yaml:"title,omitempty" json:"title,omitempty"`
	Author        string        `yaml:"author,omitempty" json:"author,omitempty"`
	Institution   string        `yaml:"institution,omitempty" json:"institution,omitempty"`
	Code          string        `yaml:"code,omitempty" json:"code,omitempty"`
	Year          int           `yaml:"year,omitempty" json:"year,omitempty"`
	BaseDir       string        `yaml:"base_dir,omitempty" json:"base_dir,omitempty"`
	RootURL       string        `yaml:"root_url,omitempty" json:"root_url,omitempty"`
	StaticDir     string        `yaml:"static_dir,omitempty" json:"static_dir,omitempty"`
	ThemesDir     string        `yaml:"themes_dir,omitempty" json:"themes_dir,omitempty"`
	BuildPDF      bool          `yaml:"build_pdf" json:"build_pdf"`
	NumPDFRuns    int           `yaml:"num_pdf_runs,omitempty" json:"num_pdf_runs,omitempty"`
	FormatVersion int           `yaml:"format_version,omitempty" json:"format_version,omitempty"`
	MathjaxURL    string        `yaml:"mathjax_url,omitempty" json:"mathjax_url,omitempty"`
	TexInputs     []string      `yaml:"tex_inputs,omitempty" json:"tex_inputs,omitempty"`
	Themes        []ThemeRecord `yaml:"themes,omitempty" json:"themes,omitempty"`
	Structure     []ItemRecord  `yaml:"structure,omitempty" json:"structure,omitempty"`
}

// Default returns the built-in configuration for a course rooted at rootDir.
func Default(rootDir string) *Config {
	return &Config{
		StaticDir:     filepath.Join(rootDir, "static"),
		BuildPDF:      true,
		NumPDFRuns:    1,
		Year:          time.Now().Year(),
		FormatVersion: 2,
		MathjaxURL:    mathjaxURL,
		Themes: []ThemeRecord{{
			Title:  "Default",
			Source: "default",
			Path:   ".",
		}},
	}
}

// Load reads the config file and merges it over the defaults for rootDir.
//
// A .env file next to the config is loaded first and ${VAR} references in the
// YAML are expanded. When the config file does not exist, a singleFile source
// substitutes a one-item standalone structure; otherwise ErrMissingConfig.
func Load(rootDir, configPath, singleFile string) (*Config, error) {
	cfg := Default(rootDir)

	if err := godotenv.Load(filepath.Join(rootDir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
		if singleFile == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, configPath)
		}
	default:
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	if singleFile != "" {
		off := false
		on := true
		cfg.Structure = []ItemRecord{{
			Type:    "standalone",
			Source:  singleFile,
			Sidebar: &off,
			Topbar:  &off,
			Footer:  &on,
		}}
	}

	applyDefaults(cfg, rootDir)
	return cfg, nil
}

// applyDefaults repairs values the YAML may have zeroed or left invalid.
func applyDefaults(cfg *Config, rootDir string) {
	if cfg.StaticDir == "" {
		cfg.StaticDir = filepath.Join(rootDir, "static")
	}
	if cfg.NumPDFRuns < 1 {
		cfg.NumPDFRuns = 1
	}
	if cfg.Year == 0 {
		cfg.Year = time.Now().Year()
	}
	if cfg.FormatVersion == 0 {
		cfg.FormatVersion = 2
	}
	if cfg.MathjaxURL == "" {
		cfg.MathjaxURL = mathjaxURL
	}
	if len(cfg.Themes) == 0 {
		cfg.Themes = Default(rootDir).Themes
	}
}
