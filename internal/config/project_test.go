package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectDefaults(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p.SrcDir != "src" || p.OutDir != "out" {
		t.Errorf("defaults = %q %q, want src out", p.SrcDir, p.OutDir)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := &Project{Name: "demo", ID: "abc-123", SrcDir: "lib", OutDir: "dist", Strict: true}
	if err := original.Save(dir); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "demo" || loaded.ID != "abc-123" || loaded.SrcDir != "lib" || loaded.OutDir != "dist" || !loaded.Strict {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadProjectBadYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProject(dir); err == nil {
		t.Error("expected an error for invalid yaml")
	}
}
