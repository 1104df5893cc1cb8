package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"sintesi/internal/errors"
)

// ManifestFileName is the optional project manifest at the repo root.
// It is meant to be committed, unlike the .sintesi state directory.
const ManifestFileName = "sintesi.toml"

// Manifest declares project-level documentation layout. Fields set
// here override the corresponding config defaults.
type Manifest struct {
	Name     string   `toml:"name"`
	DocRoot  string   `toml:"doc_root"`
	Exclude  []string `toml:"exclude"`
	Registry string   `toml:"registry"`
}

// LoadManifest reads sintesi.toml from the repo root. A missing
// manifest returns nil without error.
func LoadManifest(repoRoot string) (*Manifest, error) {
	path := filepath.Join(repoRoot, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.ConfigError, "failed to read manifest", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.ConfigError, "failed to parse manifest", err)
	}
	return &m, nil
}

// Apply overlays manifest values onto the config.
func (m *Manifest) Apply(cfg *Config) {
	if m == nil {
		return
	}
	if m.DocRoot != "" {
		cfg.Docs.Root = m.DocRoot
	}
	if len(m.Exclude) > 0 {
		cfg.Docs.Exclude = m.Exclude
	}
	if m.Registry != "" {
		cfg.Registry.Path = m.Registry
	}
}
