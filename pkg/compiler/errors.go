package compiler

import "fmt"

// Error is a fatal compile diagnostic. Compilation stops at the first one.
type Error struct {
	File string
	Line int // 0 when the position is unknown
	Msg  string
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s(%d): %s", e.File, e.Line, e.Msg)
}

// errorAt builds an *Error positioned at tok.
func errorAt(tok Token, format string, args ...any) *Error {
	return &Error{File: tok.File, Line: tok.Line, Msg: fmt.Sprintf(format, args...)}
}
