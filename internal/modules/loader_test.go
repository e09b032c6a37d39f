package modules

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSortModulesRespectsImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.va", "(ns app)\n(import lib)\n(defn run [] (lib/double 2))\n")
	writeFile(t, dir, "lib.va", "(ns lib)\n(defn double [x] (* x 2))\n")

	loader := NewLoader(dir)
	if err := loader.Scan(); err != nil {
		t.Fatal(err)
	}
	order, err := loader.SortModules()
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "lib" || order[1] != "app" {
		t.Errorf("order = %v, want [lib app]", order)
	}
}

func TestSortModulesDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.va", "(ns a)\n(import b)\n(defn fa [] 1)\n")
	writeFile(t, dir, "b.va", "(ns b)\n(import a)\n(defn fb [] 2)\n")

	loader := NewLoader(dir)
	if err := loader.Scan(); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.SortModules(); err == nil {
		t.Error("expected a cycle error")
	}
}

func TestBuildAllWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.va", "(ns lib)\n(defn double [x] (* x 2))\n")
	writeFile(t, dir, "app.va", "(ns app)\n(import lib)\n(defn run [] (lib/double 2))\n")
	out := filepath.Join(dir, "out")

	loader := NewLoader(dir)
	if err := loader.Scan(); err != nil {
		t.Fatal(err)
	}
	if err := loader.BuildAll(out); err != nil {
		t.Fatal(err)
	}

	for _, mod := range loader.Modules {
		if len(mod.Errors) != 0 {
			t.Fatalf("module %s has errors: %v", mod.Name, mod.Errors)
		}
	}
	for _, want := range []string{"lib.vai", "lib.vab", "app.vai", "app.vab"} {
		if _, err := os.Stat(filepath.Join(out, want)); err != nil {
			t.Errorf("missing artifact %s", want)
		}
	}
}

func TestBuildUsesCacheForUnchangedModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.va", "(ns lib)\n(defn double [x] (* x 2))\n")
	out := filepath.Join(dir, "out")

	cache, err := OpenCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	first := NewLoader(dir).WithCache(cache)
	if err := first.Scan(); err != nil {
		t.Fatal(err)
	}
	if err := first.BuildAll(out); err != nil {
		t.Fatal(err)
	}

	// A second build of unchanged source reuses the cached interface:
	// the module's artifact is not regenerated in memory.
	second := NewLoader(dir).WithCache(cache)
	if err := second.Scan(); err != nil {
		t.Fatal(err)
	}
	if err := second.BuildAll(out); err != nil {
		t.Fatal(err)
	}
	mod := second.Modules["lib"]
	if mod.Interface == nil {
		t.Fatal("cached interface not restored")
	}
	if mod.Artifact != nil {
		t.Error("unchanged module should not have been re-elaborated")
	}
}

func TestCacheInvalidatesOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.va", "(ns lib)\n(defn double [x] (* x 2))\n")
	out := filepath.Join(dir, "out")

	cache, err := OpenCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	first := NewLoader(dir).WithCache(cache)
	if err := first.Scan(); err != nil {
		t.Fatal(err)
	}
	if err := first.BuildAll(out); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "lib.va", "(ns lib)\n(defn double [x] (+ x x))\n")
	second := NewLoader(dir).WithCache(cache)
	if err := second.Scan(); err != nil {
		t.Fatal(err)
	}
	if err := second.BuildAll(out); err != nil {
		t.Fatal(err)
	}
	if second.Modules["lib"].Artifact == nil {
		t.Error("changed module should have been re-elaborated")
	}
}

func TestBuildReportsModuleErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.va", "(ns bad)\n(defn broken [] (+ 1 \"two\"))\n")
	out := filepath.Join(dir, "out")

	loader := NewLoader(dir)
	if err := loader.Scan(); err != nil {
		t.Fatal(err)
	}
	if err := loader.BuildAll(out); err != nil {
		t.Fatal(err)
	}
	if len(loader.Modules["bad"].Errors) == 0 {
		t.Error("expected diagnostics for the failing module")
	}
	if _, err := os.Stat(filepath.Join(out, "bad.vab")); err == nil {
		t.Error("failing module must not produce an artifact")
	}
}
