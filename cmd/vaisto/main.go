package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vaisto-lang/vaisto/internal/config"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/iface"
	"github.com/vaisto-lang/vaisto/internal/lsp"
	"github.com/vaisto-lang/vaisto/internal/modules"
	"github.com/vaisto-lang/vaisto/internal/pipeline"
)

// Exit codes: 0 success, 1 user-visible compilation errors, >= 2
// internal errors.
const (
	exitOK       = 0
	exitCompile  = 1
	exitInternal = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			// Internal failures never leak stack traces to users.
			fmt.Fprintf(os.Stderr, "error[%s]: internal error: %v\n", diagnostics.ErrE900, r)
			code = exitInternal
		}
	}()

	if len(args) == 0 {
		usage()
		return exitCompile
	}

	switch args[0] {
	case "compile":
		return cmdCompile(args[1:])
	case "build":
		return cmdBuild(args[1:])
	case "--eval":
		return cmdEval(args[1:])
	case "init":
		return cmdInit(args[1:])
	case "lsp":
		server := lsp.NewServer(os.Stdout)
		server.Run(os.Stdin)
		return exitOK
	case "help", "-h", "--help":
		usage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		return exitCompile
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `vaisto - compiler for the vaisto language

usage:
  vaisto compile <file> [-o <out>]     compile one module
  vaisto build <dir> [-o <out_dir>]    build a source tree
  vaisto --eval <expr>                 elaborate and print expression types
  vaisto init <name>                   scaffold a new project
  vaisto lsp                           run the language server on stdio
`)
}

func cmdCompile(args []string) int {
	var file, out string
	for i := 0; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			out = args[i+1]
			i++
			continue
		}
		if file == "" {
			file = args[i]
		}
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "compile: missing input file")
		return exitCompile
	}
	if !strings.HasSuffix(file, config.SourceFileExt) {
		fmt.Fprintf(os.Stderr, "compile: %s is not a %s file\n", file, config.SourceFileExt)
		return exitCompile
	}

	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compile: %v\n", err)
		return exitCompile
	}

	ctx := pipeline.Compile(string(data), file, nil)
	if ctx.HasErrors() || len(ctx.Errors) > 0 {
		fmt.Fprint(os.Stderr, diagnostics.RenderAll(ctx.Errors, file, ctx.Source))
		if ctx.HasErrors() {
			return exitCompile
		}
	}

	if out == "" {
		out = strings.TrimSuffix(file, config.SourceFileExt) + config.ArtifactFileExt
	}
	if err := os.WriteFile(out, ctx.Artifact, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "compile: %v\n", err)
		return exitCompile
	}
	ifacePath := strings.TrimSuffix(out, config.ArtifactFileExt) + config.InterfaceFileExt
	if err := os.WriteFile(ifacePath, iface.Encode(ctx.Interface), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "compile: %v\n", err)
		return exitCompile
	}
	return exitOK
}

func cmdBuild(args []string) int {
	var dir, out string
	for i := 0; i < len(args); i++ {
		if args[i] == "-o" && i+1 < len(args) {
			out = args[i+1]
			i++
			continue
		}
		if dir == "" {
			dir = args[i]
		}
	}
	if dir == "" {
		dir = "."
	}

	project, err := config.LoadProject(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		return exitCompile
	}
	srcDir := filepath.Join(dir, project.SrcDir)
	if _, err := os.Stat(srcDir); err != nil {
		srcDir = dir
	}
	if out == "" {
		out = filepath.Join(dir, project.OutDir)
	}

	loader := modules.NewLoader(srcDir)
	if cache, err := modules.OpenCache(dir); err == nil {
		loader.WithCache(cache)
		defer cache.Close()
	}

	if err := loader.Scan(); err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		return exitCompile
	}
	if err := loader.BuildAll(out); err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		return exitCompile
	}

	failed := false
	for _, mod := range loader.Modules {
		if len(mod.Errors) > 0 {
			fmt.Fprint(os.Stderr, diagnostics.RenderAll(mod.Errors, mod.Path, mod.Source))
		}
		if diagnostics.HasErrors(mod.Errors) {
			failed = true
		}
	}
	if failed {
		return exitCompile
	}
	return exitOK
}

func cmdEval(args []string) int {
	if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
		fmt.Fprintln(os.Stderr, "eval: empty expression")
		return exitCompile
	}
	source := strings.Join(args, " ")

	ctx := pipeline.Compile(source, "<eval>", nil)
	if len(ctx.Errors) > 0 {
		fmt.Fprint(os.Stderr, diagnostics.RenderAll(ctx.Errors, "<eval>", source))
		if ctx.HasErrors() {
			return exitCompile
		}
	}
	if ctx.Typed != nil {
		for _, expr := range ctx.Typed.Exprs {
			fmt.Println(typeOfLine(expr.Type().String()))
		}
	}
	return exitOK
}

func typeOfLine(t string) string {
	return ": " + t
}

func cmdInit(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "init: missing project name")
		return exitCompile
	}
	name := args[0]

	if err := os.MkdirAll(filepath.Join(name, "src"), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return exitCompile
	}

	project := &config.Project{
		Name:   name,
		ID:     uuid.NewString(),
		SrcDir: "src",
		OutDir: "out",
	}
	if err := project.Save(name); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return exitCompile
	}

	mainSrc := "(ns main)\n\n(defn main []\n  (println \"hello from " + name + "\"))\n"
	mainPath := filepath.Join(name, "src", "main"+config.SourceFileExt)
	if err := os.WriteFile(mainPath, []byte(mainSrc), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return exitCompile
	}

	fmt.Printf("created project %s\n", name)
	return exitOK
}
