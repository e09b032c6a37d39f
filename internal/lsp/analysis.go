package lsp

import (
	"fmt"
	"unicode/utf16"

	"github.com/vaisto-lang/vaisto/internal/ast"
	"github.com/vaisto-lang/vaisto/internal/config"
	"github.com/vaisto-lang/vaisto/internal/diagnostics"
	"github.com/vaisto-lang/vaisto/internal/pipeline"
	"github.com/vaisto-lang/vaisto/internal/token"
	"github.com/vaisto-lang/vaisto/internal/typesystem"
)

// analysis is the cached result of compiling one document.
type analysis struct {
	module *ast.Module
	ctx    *pipeline.PipelineContext
}

func (s *Server) analyzeAndPublish(doc *DocumentState) {
	ctx := pipeline.Compile(doc.Text, uriToPath(doc.URI), nil)
	doc.analysis = &analysis{module: ctx.Module, ctx: ctx}

	diags := make([]Diagnostic, 0, len(ctx.Errors))
	for _, d := range ctx.Errors {
		severity := DiagnosticSeverityError
		if d.Severity == diagnostics.SeverityWarning {
			severity = DiagnosticSeverityWarning
		}
		diags = append(diags, Diagnostic{
			Range:    tokenRange(doc.Text, d.Tok),
			Severity: severity,
			Code:     string(d.Code),
			Source:   config.DiagnosticSource,
			Message:  d.Message,
		})
	}
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: diags,
	})
}

// tokenRange converts a 1-based rune-counted token position to a
// 0-based UTF-16 LSP range.
func tokenRange(text string, tok token.Token) Range {
	line := tok.Line - 1
	if line < 0 {
		line = 0
	}
	lineText := getLine(text, line)
	startCol := runeColumnToUTF16(lineText, tok.Column-1)
	endCol := runeColumnToUTF16(lineText, tok.Column-1+tok.SpanLength())
	return Range{
		Start: Position{Line: line, Character: startCol},
		End:   Position{Line: line, Character: endCol},
	}
}

// runeColumnToUTF16 converts a rune offset in a line into a UTF-16
// code-unit offset.
func runeColumnToUTF16(line string, runeCol int) int {
	if runeCol < 0 {
		return 0
	}
	units := 0
	i := 0
	for _, r := range line {
		if i >= runeCol {
			break
		}
		units += len(utf16.Encode([]rune{r}))
		i++
	}
	return units
}

// utf16ToRuneColumn converts a UTF-16 code-unit offset into a rune
// offset.
func utf16ToRuneColumn(line string, utf16Col int) int {
	units := 0
	runes := 0
	for _, r := range line {
		if units >= utf16Col {
			break
		}
		units += len(utf16.Encode([]rune{r}))
		runes++
	}
	return runes
}

func getLine(content string, lineIndex int) string {
	start := 0
	currentLine := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			if currentLine == lineIndex {
				return content[start:i]
			}
			start = i + 1
			currentLine++
		}
	}
	if currentLine == lineIndex {
		return content[start:]
	}
	return ""
}

func getWordAtPosition(content string, line, utf16Char int) string {
	lineStr := getLine(content, line)
	runes := []rune(lineStr)
	char := utf16ToRuneColumn(lineStr, utf16Char)
	if char >= len(runes) {
		if char == len(runes) && char > 0 {
			char--
		} else {
			return ""
		}
	}
	if char < 0 {
		return ""
	}

	isWord := func(r rune) bool {
		return r == '-' || r == '_' || r == '?' || r == '!' || r == '/' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}

	start := char
	for start > 0 && isWord(runes[start-1]) {
		start--
	}
	end := char
	for end < len(runes) && isWord(runes[end]) {
		end++
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// --- hover / definition / symbols ---

func (s *Server) handleHover(req RequestMessage) {
	var params TextDocumentPositionParams
	if !decodeParams(req.Params, &params) {
		s.reply(req.ID, nil)
		return
	}
	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.analysis == nil {
		s.reply(req.ID, nil)
		return
	}

	word := getWordAtPosition(doc.Text, params.Position.Line, params.Position.Character)
	if word == "" {
		s.reply(req.ID, nil)
		return
	}

	if ifc := doc.analysis.ctx.Interface; ifc != nil {
		if sig, ok := ifc.Func(word); ok {
			s.reply(req.ID, Hover{Contents: MarkupContent{
				Kind:  "markdown",
				Value: fmt.Sprintf("```vaisto\n%s : %s\n```", word, typesystem.PrintType(sig.Scheme)),
			}})
			return
		}
	}

	if doc.analysis.module != nil {
		for _, decl := range doc.analysis.module.Decls {
			if hover := declHover(decl, word); hover != "" {
				s.reply(req.ID, Hover{Contents: MarkupContent{Kind: "markdown", Value: hover}})
				return
			}
		}
	}
	s.reply(req.ID, nil)
}

func declHover(decl ast.Decl, word string) string {
	switch d := decl.(type) {
	case *ast.DeftypeDecl:
		if d.Name == word {
			return fmt.Sprintf("```vaisto\n(deftype %s ...)\n```", d.Name)
		}
		for _, v := range d.Variants {
			if v.Ctor == word {
				return fmt.Sprintf("```vaisto\nconstructor %s of %s\n```", v.Ctor, d.Name)
			}
		}
	case *ast.DefrecordDecl:
		if d.Name == word {
			return fmt.Sprintf("```vaisto\n(defrecord %s ...)\n```", d.Name)
		}
	case *ast.DefclassDecl:
		if d.Name == word {
			return fmt.Sprintf("```vaisto\n(defclass %s [%s] ...)\n```", d.Name, d.TyVar)
		}
	case *ast.ProcessDecl:
		if d.Name == word {
			return fmt.Sprintf("```vaisto\n(process %s ...)\n```", d.Name)
		}
	}
	return ""
}

func (s *Server) handleDefinition(req RequestMessage) {
	var params TextDocumentPositionParams
	if !decodeParams(req.Params, &params) {
		s.reply(req.ID, nil)
		return
	}
	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.analysis == nil || doc.analysis.module == nil {
		s.reply(req.ID, nil)
		return
	}

	word := getWordAtPosition(doc.Text, params.Position.Line, params.Position.Character)
	if word == "" {
		s.reply(req.ID, nil)
		return
	}

	for _, decl := range doc.analysis.module.Decls {
		if tok, ok := declDefinitionToken(decl, word); ok {
			s.reply(req.ID, Location{URI: doc.URI, Range: tokenRange(doc.Text, tok)})
			return
		}
	}
	s.reply(req.ID, nil)
}

func declDefinitionToken(decl ast.Decl, word string) (token.Token, bool) {
	switch d := decl.(type) {
	case *ast.DefnDecl:
		if d.Name == word {
			return d.NameTok, true
		}
	case *ast.DeftypeDecl:
		if d.Name == word {
			return d.NameTok, true
		}
		for _, v := range d.Variants {
			if v.Ctor == word {
				return v.Token, true
			}
		}
	case *ast.DefrecordDecl:
		if d.Name == word {
			return d.NameTok, true
		}
	case *ast.DefclassDecl:
		if d.Name == word {
			return d.NameTok, true
		}
		for _, m := range d.Methods {
			if m.Name == word {
				return m.Token, true
			}
		}
	case *ast.InstanceDecl:
		for _, m := range d.Methods {
			if m.Name == word {
				return m.Token, true
			}
		}
	case *ast.ProcessDecl:
		if d.Name == word {
			return d.NameTok, true
		}
	}
	return token.Token{}, false
}

func (s *Server) handleDocumentSymbol(req RequestMessage) {
	var params DocumentSymbolParams
	if !decodeParams(req.Params, &params) {
		s.reply(req.ID, []SymbolInformation{})
		return
	}
	doc, ok := s.document(params.TextDocument.URI)
	if !ok || doc.analysis == nil || doc.analysis.module == nil {
		s.reply(req.ID, []SymbolInformation{})
		return
	}

	symbols := []SymbolInformation{}
	add := func(name string, kind int, tok token.Token) {
		symbols = append(symbols, SymbolInformation{
			Name: name,
			Kind: kind,
			Location: Location{
				URI:   doc.URI,
				Range: tokenRange(doc.Text, tok),
			},
		})
	}

	for _, decl := range doc.analysis.module.Decls {
		switch d := decl.(type) {
		case *ast.DefnDecl:
			add(d.Name, SymbolKindFunction, d.NameTok)
		case *ast.DeftypeDecl:
			add(d.Name, SymbolKindEnum, d.NameTok)
		case *ast.DefrecordDecl:
			add(d.Name, SymbolKindStruct, d.NameTok)
		case *ast.DefclassDecl:
			add(d.Name, SymbolKindInterface, d.NameTok)
		case *ast.InstanceDecl:
			add(d.Class+" "+d.HeadName, SymbolKindClass, d.HeadTok)
		case *ast.ProcessDecl:
			add(d.Name, SymbolKindEvent, d.NameTok)
		}
	}
	s.reply(req.ID, symbols)
}
