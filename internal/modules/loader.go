// Package modules implements the build driver: scanning a source
// tree, ordering modules by their import graph, elaborating each in
// dependency order and persisting interfaces and artifacts.
package modules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vaisto-lang/vaisto/internal/config"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/iface"
	"github.com/vaisto-lang/vaisto/internal/parser"
	"github.com/vaisto-lang/vaisto/internal/pipeline"
)

// Module is one source file being built.
type Module struct {
	Name    string
	Path    string
	Source  string
	Imports []string

	Interface *iface.Interface
	Artifact  []byte
	Errors    []*diagnostics.DiagnosticError
}

// Loader discovers and builds the modules of a directory.
type Loader struct {
	Dir     string
	Modules map[string]*Module
	cache   *Cache
}

func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir, Modules: make(map[string]*Module)}
}

// WithCache attaches an interface cache; nil is allowed.
func (l *Loader) WithCache(cache *Cache) *Loader {
	l.cache = cache
	return l
}

// Scan parses every source file under the directory to collect module
// names and import edges. Parse diagnostics are kept per module.
func (l *Loader) Scan() error {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), config.SourceFileExt) {
			continue
		}
		path := filepath.Join(l.Dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		source := string(data)
		parsed, errs := parser.ParseSource(source, path)

		mod := &Module{
			Name:   parsed.Name,
			Path:   path,
			Source: source,
			Errors: errs,
		}
		for _, imp := range parsed.Imports {
			mod.Imports = append(mod.Imports, imp.Module)
		}
		if existing, dup := l.Modules[mod.Name]; dup {
			return fmt.Errorf("module %s declared by both %s and %s", mod.Name, existing.Path, path)
		}
		l.Modules[mod.Name] = mod
	}
	if len(l.Modules) == 0 {
		return fmt.Errorf("no %s files in %s", config.SourceFileExt, l.Dir)
	}
	return nil
}

// SortModules orders modules so every dependency precedes its
// importers; an import cycle is an error.
func (l *Loader) SortModules() ([]string, error) {
	names := make([]string, 0, len(l.Modules))
	for name := range l.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(names))
	var order []string

	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("import cycle: %s", strings.Join(append(chain, name), " -> "))
		}
		state[name] = visiting
		mod, ok := l.Modules[name]
		if !ok {
			return fmt.Errorf("unknown module %s imported by %s", name, chain[len(chain)-1])
		}
		for _, dep := range mod.Imports {
			if err := visit(dep, append(chain, name)); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func sourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// BuildAll elaborates every module in dependency order, writing
// interfaces and artifacts to outDir. Unchanged modules whose cached
// interface is still valid skip re-elaboration unless their artifact
// file is missing from outDir.
func (l *Loader) BuildAll(outDir string) error {
	order, err := l.SortModules()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	interfaces := make(map[string]*iface.Interface)
	for _, name := range order {
		mod := l.Modules[name]

		if l.cache != nil && !diagnostics.HasErrors(mod.Errors) {
			if data, ok := l.cache.Get(name, sourceHash(mod.Source)); ok {
				if cached, err := iface.Decode(data); err == nil {
					artifactPath := filepath.Join(outDir, name+config.ArtifactFileExt)
					if _, err := os.Stat(artifactPath); err == nil {
						mod.Interface = cached
						interfaces[name] = cached
						continue
					}
				}
				// A stale or incompatible entry forces re-elaboration.
			}
		}

		ctx := pipeline.Compile(mod.Source, mod.Path, interfaces)
		mod.Errors = ctx.Errors
		mod.Interface = ctx.Interface
		mod.Artifact = ctx.Artifact
		if ctx.HasErrors() {
			continue
		}
		interfaces[name] = ctx.Interface

		encoded := iface.Encode(ctx.Interface)
		if err := os.WriteFile(filepath.Join(outDir, name+config.InterfaceFileExt), encoded, 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(outDir, name+config.ArtifactFileExt), ctx.Artifact, 0o644); err != nil {
			return err
		}
		if l.cache != nil {
			l.cache.Put(name, sourceHash(mod.Source), encoded)
		}
	}
	return nil
}

// AllErrors returns the module table keyed by module name; each Module
// carries its own diagnostics. The map has no build order.
func (l *Loader) AllErrors() map[string]*Module {
	return l.Modules
}
