package saiql

import (
	"errors"
	"fmt"
)

// Code classifies a compile diagnostic so callers can branch on the
// failure kind without parsing message text.
type Code string

const (
	CodeLex         Code = "lex"
	CodeSyntax      Code = "syntax"
	CodeSemantic    Code = "semantic"
	CodeRejected    Code = "rejected"
	CodeUnsupported Code = "unsupported"
)

// Error is the diagnostic type shared by every compile stage. Pos is a
// byte offset into the query text; Line and Col are 1-based and zero
// when the error is not tied to a source position.
type Error struct {
	Code Code
	Msg  string
	Pos  int
	Line int
	Col  int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s error at line %d, column %d: %s", e.Code, e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("%s error: %s", e.Code, e.Msg)
}

// Errorf builds a positionless diagnostic.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Pos: -1}
}

// ErrorAt builds a diagnostic anchored to a source position.
func ErrorAt(code Code, pos, line, col int, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Pos: pos, Line: line, Col: col}
}

// CodeOf extracts the classification from err, or "" when err is not a
// compile diagnostic.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
