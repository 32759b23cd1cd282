package collection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Prefs persists the last-opened collection path. The value is an opaque
// string: read once at startup, written once per successful open.
type Prefs struct {
	path string
}

type prefsFile struct {
	LastCollection string `yaml:"last_collection"`
}

// NewPrefs returns a Prefs backed by the YAML file at path.
func NewPrefs(path string) *Prefs {
	return &Prefs{path: path}
}

// LastCollection returns the stored collection path, or "" when no
// preference has been written yet.
func (p *Prefs) LastCollection() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("prefs: read %s: %w", p.path, err)
	}
	var f prefsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("prefs: parse %s: %w", p.path, err)
	}
	return f.LastCollection, nil
}

// SaveLastCollection stores root as the last-opened collection path.
func (p *Prefs) SaveLastCollection(root string) error {
	data, err := yaml.Marshal(prefsFile{LastCollection: root})
	if err != nil {
		return fmt.Errorf("prefs: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("prefs: mkdir: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("prefs: write %s: %w", p.path, err)
	}
	return nil
}
