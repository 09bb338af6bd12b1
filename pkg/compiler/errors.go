package compiler

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the pipeline wraps exactly one of
// these, so callers can match with errors.Is.
var (
	ErrInvalidReference        = errors.New("invalid reference")
	ErrDuplicateDeclaration    = errors.New("duplicate declaration")
	ErrUndeclaredVariable      = errors.New("undeclared variable")
	ErrConstantConflict        = errors.New("constant conflict")
	ErrInvalidInstructionArity = errors.New("invalid instruction arity")
	ErrMalformedDeclaration    = errors.New("malformed declaration")
	ErrUnknownInstruction      = errors.New("unknown instruction")
	ErrInvalidLabel            = errors.New("invalid label")
	ErrDuplicateLabel          = errors.New("duplicate label")
	ErrUndefinedLabel          = errors.New("undefined label")
	ErrTableFrozen             = errors.New("symbol table is frozen")
	ErrAddressSpaceExhausted   = errors.New("address space exhausted")
)

// CompileError is the single fatal diagnostic of a failed compilation.
type CompileError struct {
	Kind  error
	Line  int    // 1-based source line, 0 when not tied to a line
	Token string // offending token, may be empty
	Text  string // source text of the line
	Msg   string // optional detail
}

func (e *CompileError) Error() string {
	msg := e.Kind.Error()
	if e.Token != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Token)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Kind }

func newError(kind error, line SourceLine, token string, format string, args ...any) *CompileError {
	e := &CompileError{Kind: kind, Line: line.Num, Token: token, Text: line.Content}
	if format != "" {
		e.Msg = fmt.Sprintf(format, args...)
	}
	return e
}

// atLine fills in line information on an error produced without it, such
// as a classifier or symbol table failure.
func atLine(err error, line SourceLine) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		if ce.Line == 0 {
			ce.Line = line.Num
			ce.Text = line.Content
		}
		return ce
	}
	return err
}
