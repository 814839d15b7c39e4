package template

import (
	"errors"
	"fmt"
)

// Code classifies a template error.
type Code string

// Error codes raised by the lexer and parser.
const (
	CodeUnexpectedEOF      Code = "UNEXPECTED_EOF"
	CodeMismatchedSection  Code = "MISMATCHED_SECTION"
	CodeUnclosedSection    Code = "UNCLOSED_SECTION"
	CodeMalformedDirective Code = "MALFORMED_DIRECTIVE"
	CodeNestingTooDeep     Code = "NESTING_TOO_DEEP"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrUnexpectedEOF      = &Error{Code: CodeUnexpectedEOF}
	ErrMismatchedSection  = &Error{Code: CodeMismatchedSection}
	ErrUnclosedSection    = &Error{Code: CodeUnclosedSection}
	ErrMalformedDirective = &Error{Code: CodeMalformedDirective}
	ErrNestingTooDeep     = &Error{Code: CodeNestingTooDeep}
)

// ErrLexerClosed is returned by Lexer.Next after Close.
var ErrLexerClosed = errors.New("lexer is closed")

// Position tracks source location for error reporting.
type Position struct {
	Name   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.Name != "" {
		return fmt.Sprintf("%s:%d:%d", p.Name, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Error is the structured error raised while compiling a template.
type Error struct {
	TraceID string
	Code    Code
	Message string
	Pos     Position
}

// NewError creates a new template error.
func NewError(code Code, pos Position, msg string) *Error {
	return &Error{Code: code, Pos: pos, Message: msg}
}

// NewErrorf creates a new template error with formatting.
func NewErrorf(code Code, pos Position, format string, args ...any) *Error {
	return &Error{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
	if e.TraceID != "" {
		msg += " [trace=" + e.TraceID + "]"
	}
	return msg
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Position returns the source location of the offending directive.
func (e *Error) Position() Position { return e.Pos }
