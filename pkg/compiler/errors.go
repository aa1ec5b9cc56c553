// Package compiler implements gilia's single-pass compiler: a
// recursive-descent parser that drives a code generator directly, with
// no intermediate AST.
package compiler

import "fmt"

// ParseError carries a parse failure's source position and message.
type ParseError struct {
	File string
	Line int
	Col  int
	Msg  string
}

// Error renders "file:line:col: message", using "<input>" when File is
// empty.
func (e *ParseError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s", file, e.Line, e.Col, e.Msg)
}
