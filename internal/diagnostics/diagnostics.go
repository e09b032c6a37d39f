package diagnostics

import (
	"fmt"

	"github.com/vaisto-lang/vaisto/internal/token"
)

type ErrorCode string

const (
	// Type errors
	ErrE001 ErrorCode = "E001" // type mismatch
	ErrE002 ErrorCode = "E002" // list heterogeneity
	ErrE003 ErrorCode = "E003" // branch divergence
	ErrE004 ErrorCode = "E004" // return-type mismatch
	ErrE005 ErrorCode = "E005" // arity mismatch
	ErrE006 ErrorCode = "E006" // invalid operand
	ErrE007 ErrorCode = "E007" // cons mismatch
	ErrE008 ErrorCode = "E008" // not a list
	ErrE009 ErrorCode = "E009" // not a function
	ErrE010 ErrorCode = "E010" // bad higher-order arity
	ErrE011 ErrorCode = "E011" // non-bool predicate
	ErrE020 ErrorCode = "E020" // non-exhaustive match
	ErrE021 ErrorCode = "E021" // redundant clause (warning)
	ErrE030 ErrorCode = "E030" // invalid instance / deriving
	ErrE031 ErrorCode = "E031" // duplicate instance

	// Name resolution
	ErrE100 ErrorCode = "E100" // undefined variable
	ErrE101 ErrorCode = "E101" // unknown function
	ErrE102 ErrorCode = "E102" // unknown type
	ErrE103 ErrorCode = "E103" // unknown process

	// Syntax / shape
	ErrE200 ErrorCode = "E200" // malformed defn
	ErrE201 ErrorCode = "E201" // parse error

	// Process / concurrency
	ErrE300 ErrorCode = "E300" // invalid message tag
	ErrE301 ErrorCode = "E301" // send to non-pid

	// Internal
	ErrE900 ErrorCode = "E900" // internal error
	ErrE901 ErrorCode = "E901" // constraint depth exceeded
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Related points at a secondary location that participates in the error.
type Related struct {
	Tok     token.Token
	Message string
}

// DiagnosticError is a structured compiler diagnostic with an exact
// primary span.
type DiagnosticError struct {
	Code     ErrorCode
	Tok      token.Token
	Message  string
	Expected string // formatted expected type, when applicable
	Actual   string // formatted actual type, when applicable
	Hint     string
	Related  []Related
	Severity Severity
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("[%s] %d:%d %s", e.Code, e.Tok.Line, e.Tok.Column, e.Message)
}

// NewError creates an error diagnostic anchored at tok.
func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Tok: tok, Message: msg, Severity: SeverityError}
}

// NewWarning creates a non-fatal diagnostic anchored at tok.
func NewWarning(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Tok: tok, Message: msg, Severity: SeverityWarning}
}

// WithTypes attaches formatted expected/actual types.
func (e *DiagnosticError) WithTypes(expected, actual string) *DiagnosticError {
	e.Expected = expected
	e.Actual = actual
	return e
}

// WithHint attaches a hint rendered below the excerpt.
func (e *DiagnosticError) WithHint(hint string) *DiagnosticError {
	e.Hint = hint
	return e
}

// WithRelated attaches a secondary span.
func (e *DiagnosticError) WithRelated(tok token.Token, msg string) *DiagnosticError {
	e.Related = append(e.Related, Related{Tok: tok, Message: msg})
	return e
}

// HasErrors reports whether any diagnostic in the list is a hard error.
func HasErrors(diags []*DiagnosticError) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
