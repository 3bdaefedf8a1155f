package script

import (
	"errors"
	"log/slog"

	"github.com/ardnew/letbind/lang"
)

// Predefined errors (sentinel values).
var (
	ErrParse         = lang.NewError("syntax error")
	ErrCompile       = lang.NewError("expression compile error")
	ErrRuntime       = lang.NewError("runtime error")
	ErrEval          = lang.NewError("expression evaluation failed")
	ErrArgument      = lang.NewError("invalid argument")
	ErrNotAssignable = lang.NewError("member is not assignable")
	ErrReadInput     = lang.NewError("read input")
)

// SyntaxError locates a parse failure. Incomplete is set when the input ended
// before the construct was closed, so that more input might complete it.
type SyntaxError struct {
	Msg        string
	Pos        Position
	Incomplete bool
}

func (e *SyntaxError) Error() string { return e.Pos.String() + ": " + e.Msg }

// Incomplete reports whether err is a syntax error caused only by
// premature end of input.
func Incomplete(err error) bool {
	var se *SyntaxError

	return errors.As(err, &se) && se.Incomplete
}

// locate attributes err to the statement or expression at pos, once.
func locate(err error, pos Position) error {
	if err == nil || errors.Is(err, ErrRuntime) || errors.Is(err, ErrParse) ||
		errors.Is(err, errControl) {
		return err
	}

	return ErrRuntime.Wrap(err).With(pos.Attr())
}

// errControl marks non-local control flow that escaped its construct, such
// as break outside a loop.
var errControl = lang.NewError("illegal control flow")

func controlError(what string, pos Position) error {
	return errControl.With(slog.String("statement", what), pos.Attr())
}
