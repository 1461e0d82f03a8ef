// Package manifest emits the machine-readable description of a finished
// build: the effective configuration with the realized item tree, stamped
// with a build id and timestamp. Written in both YAML and JSON so downstream
// consumers (VLE integrations, indexers) can pick either.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/coursebuilder/internal/config"
)

const (
	yamlName = "MANIFEST.yml"
	jsonName = "MANIFEST.json"
)

// Manifest is the build record written next to the output.
type Manifest struct {
	BuildID     string    `yaml:"build_id" json:"build_id"`
	GeneratedAt time.Time `yaml:"generated_at" json:"generated_at"`

	config.Config `yaml:",inline"`
}

// New stamps a manifest for cfg.
func New(cfg *config.Config) *Manifest {
	return &Manifest{
		BuildID:     uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Config:      *cfg,
	}
}

// Write emits MANIFEST.yml and MANIFEST.json for cfg into dir.
func Write(cfg *config.Config, dir string) error {
	return New(cfg).WriteTo(dir)
}

func (m *Manifest) WriteTo(dir string) error {
	y, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, yamlName), y, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", yamlName, err)
	}

	j, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, jsonName), j, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jsonName, err)
	}
	return nil
}

// Read loads a previously written manifest from dir, preferring the YAML
// form.
func Read(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, yamlName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", yamlName, err)
	}
	return &m, nil
}
