package config

const SourceFileExt = ".va"

// InterfaceFileExt is the extension of persisted module interfaces.
const InterfaceFileExt = ".vai"

// ArtifactFileExt is the extension of emitted bytecode containers.
const ArtifactFileExt = ".vab"

// DiagnosticSource identifies this compiler in LSP diagnostics.
const DiagnosticSource = "vaisto"

// ProjectFileName is the per-project configuration file.
const ProjectFileName = "vaisto.yaml"

// ConstraintDepthBudget bounds constrained-instance chains during
// class resolution.
const ConstraintDepthBudget = 32

// Builtin function names. These seed the suggestion lexicon for
// unknown-name diagnostics and are bound in every module environment.
const (
	PrintFuncName   = "println"
	StrFuncName     = "str"
	NotFuncName     = "not"
	LenFuncName     = "len"
	ConsFuncName    = "cons"
	HeadFuncName    = "head"
	TailFuncName    = "tail"
	EmptyqFuncName  = "empty?"
	TupleFuncName   = "tuple"
	ConcatFuncName  = "concat"
	ReverseFuncName = "reverse"
	MapFuncName     = "map"
	FilterFuncName  = "filter"
	FoldFuncName    = "fold"
	SelfFuncName    = "self"
)

// Lexicon lists names offered by typo suggestions for unknown
// functions and variables.
var Lexicon = []string{
	PrintFuncName, StrFuncName, NotFuncName, LenFuncName,
	ConsFuncName, HeadFuncName, TailFuncName, EmptyqFuncName,
	TupleFuncName, ConcatFuncName, ReverseFuncName,
	MapFuncName, FilterFuncName, FoldFuncName, SelfFuncName,
	"defn", "deftype", "defrecord", "defclass", "instance",
	"process", "spawn", "match", "let", "fn", "if", "do",
}
