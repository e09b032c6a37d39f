package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Project represents the vaisto.yaml configuration at a project root.
type Project struct {
	// Name is the project name, used as a default artifact name.
	Name string `yaml:"name"`

	// ID is a stable identifier stamped in by `vaisto init`.
	ID string `yaml:"id,omitempty"`

	// SrcDir is the directory scanned for .va modules. Defaults to "src".
	SrcDir string `yaml:"src,omitempty"`

	// OutDir receives emitted artifacts and interfaces. Defaults to "out".
	OutDir string `yaml:"out,omitempty"`

	// Strict is read from and written to the project file; no build step
	// consults it, and redundant-clause warnings stay warnings.
	Strict bool `yaml:"strict,omitempty"`
}

// LoadProject reads vaisto.yaml from dir. A missing file yields the
// defaults rather than an error.
func LoadProject(dir string) (*Project, error) {
	p := &Project{SrcDir: "src", OutDir: "out"}

	data, err := os.ReadFile(filepath.Join(dir, ProjectFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	if p.SrcDir == "" {
		p.SrcDir = "src"
	}
	if p.OutDir == "" {
		p.OutDir = "out"
	}
	return p, nil
}

// Save writes the project file to dir.
func (p *Project) Save(dir string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ProjectFileName), data, 0o644)
}
