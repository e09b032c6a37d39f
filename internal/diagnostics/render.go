package diagnostics

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// colorize is decided once: escape codes are only emitted when stderr
// is a terminal.
var colorize = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

const (
	ansiRed    = "\x1b[31;1m"
	ansiYellow = "\x1b[33;1m"
	ansiBlue   = "\x1b[34m"
	ansiBold   = "\x1b[1m"
	ansiReset  = "\x1b[0m"
)

func paint(color, s string) string {
	if !colorize {
		return s
	}
	return color + s + ansiReset
}

// Render formats a diagnostic with a source excerpt:
//
//	error: cannot unify Int with Bool
//	  --> main.va:3:9
//	   |
//	 3 | (+ 1 true)
//	   |      ^^^^
//	   = hint: ...
func Render(d *DiagnosticError, file, source string) string {
	var sb strings.Builder

	head := "error"
	color := ansiRed
	if d.Severity == SeverityWarning {
		head = "warning"
		color = ansiYellow
	}
	sb.WriteString(paint(color, fmt.Sprintf("%s[%s]", head, d.Code)))
	sb.WriteString(paint(ansiBold, ": "+d.Message))
	sb.WriteByte('\n')

	line, col := d.Tok.Line, d.Tok.Column
	sb.WriteString(fmt.Sprintf("  --> %s:%d:%d\n", file, line, col))

	if src := sourceLine(source, line); src != "" || line > 0 {
		gutter := fmt.Sprintf("%d", line)
		pad := strings.Repeat(" ", len(gutter))
		sb.WriteString(paint(ansiBlue, fmt.Sprintf(" %s |\n", pad)))
		sb.WriteString(paint(ansiBlue, fmt.Sprintf(" %s | ", gutter)))
		sb.WriteString(src)
		sb.WriteByte('\n')
		sb.WriteString(paint(ansiBlue, fmt.Sprintf(" %s | ", pad)))
		if col > 0 {
			sb.WriteString(strings.Repeat(" ", col-1))
		}
		sb.WriteString(paint(color, strings.Repeat("^", d.Tok.SpanLength())))
		sb.WriteByte('\n')
	}

	if d.Expected != "" || d.Actual != "" {
		sb.WriteString(fmt.Sprintf("   = expected: %s\n", d.Expected))
		sb.WriteString(fmt.Sprintf("   =   actual: %s\n", d.Actual))
	}
	if d.Hint != "" {
		sb.WriteString(fmt.Sprintf("   = hint: %s\n", d.Hint))
	}
	for _, rel := range d.Related {
		sb.WriteString(fmt.Sprintf("   - %s:%d:%d: %s\n", file, rel.Tok.Line, rel.Tok.Column, rel.Message))
	}

	return sb.String()
}

// RenderAll renders every diagnostic separated by blank lines.
func RenderAll(diags []*DiagnosticError, file, source string) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = Render(d, file, source)
	}
	return strings.Join(parts, "\n")
}

func sourceLine(source string, line int) string {
	if line < 1 {
		return ""
	}
	start := 0
	current := 1
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			if current == line {
				return source[start:i]
			}
			start = i + 1
			current++
		}
	}
	if current == line {
		return source[start:]
	}
	return ""
}
