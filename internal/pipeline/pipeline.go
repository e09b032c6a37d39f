// Package pipeline chains the compiler stages. The same pipeline
// serves the CLI and the language server; every stage appends to the
// shared diagnostic list, and the emit stage skips work when the
// context already failed.
package pipeline

import (
	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/backend"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/elaborator"
	"github.com/vaisto-lang/vaisto/internal/iface"
	"github.com/vaisto-lang/vaisto/internal/parser"
	"github.com/vaisto-lang/vaisto/internal/tast"
)

// PipelineContext carries one module through the stages.
type PipelineContext struct {
	FilePath string
	Source   string

	Module    *ast.Module
	Typed     *tast.Module
	Interface *iface.Interface
	Artifact  []byte

	// Imports maps module names to dependency interfaces, provided by
	// the build driver.
	Imports map[string]*iface.Interface

	Errors []*diagnostics.DiagnosticError
}

// HasErrors reports whether any hard error was recorded.
func (ctx *PipelineContext) HasErrors() bool {
	return diagnostics.HasErrors(ctx.Errors)
}

// Processor is one pipeline stage.
type Processor interface {
	Process(*PipelineContext) *PipelineContext
}

// Pipeline is a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Stages keep running on errors so that
// callers (the LSP in particular) see diagnostics from every stage.
func (p *Pipeline) Run(ctx *PipelineContext) *PipelineContext {
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// ParseProcessor lexes and parses the source.
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	mod, errs := parser.ParseSource(ctx.Source, ctx.FilePath)
	ctx.Module = mod
	ctx.Errors = append(ctx.Errors, errs...)
	return ctx
}

// ElaborateProcessor runs the type system over the parsed module.
type ElaborateProcessor struct{}

func (ElaborateProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Module == nil {
		return ctx
	}
	result := elaborator.ElaborateModule(ctx.Module, ctx.Imports)
	ctx.Typed = result.Module
	ctx.Interface = result.Interface
	ctx.Errors = append(ctx.Errors, result.Diagnostics...)
	return ctx
}

// EmitProcessor lowers the typed module to bytecode. It does nothing
// when earlier stages failed.
type EmitProcessor struct{}

func (EmitProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Typed == nil || ctx.HasErrors() {
		return ctx
	}
	ctx.Artifact = backend.NewEmitter().Emit(ctx.Typed)
	return ctx
}

// Compile runs the full parse-elaborate-emit pipeline over one source.
func Compile(source, file string, imports map[string]*iface.Interface) *PipelineContext {
	ctx := &PipelineContext{FilePath: file, Source: source, Imports: imports}
	return New(ParseProcessor{}, ElaborateProcessor{}, EmitProcessor{}).Run(ctx)
}
