package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
//
// Every error returned by this package wraps exactly one of these, so callers
// classify failures with [errors.Is].
var (
	// ErrUninitializedAccess reports a read of (or write to) a binding that is
	// declared but whose declaration has not executed yet.
	ErrUninitializedAccess = NewError("uninitialized binding access")
	// ErrImmutableViolation reports a write to an initialized immutable binding.
	ErrImmutableViolation = NewError("assignment to immutable binding")
	// ErrDuplicateDeclaration reports an incompatible redeclaration of a name
	// within one scope.
	ErrDuplicateDeclaration = NewError("duplicate declaration")
	// ErrMalformedPattern reports a structurally invalid pattern.
	// It is always raised when the pattern is constructed.
	ErrMalformedPattern = NewError("malformed pattern")

	ErrUnresolved        = NewError("unresolved name")
	ErrNotIterable       = NewError("value is not iterable")
	ErrNotDestructurable = NewError("value cannot be destructured")
	ErrNotCallable       = NewError("value is not callable")
	ErrUnsupported       = NewError("unsupported pattern")
	ErrMalformedLiteral  = NewError("malformed literal")
	ErrFrozen            = NewError("container is frozen")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
	base  *Error      // Sentinel this error was derived from
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		msg := e.msg
		if name, ok := e.Attr("name"); ok {
			msg += " " + strconv.Quote(name.String())
		}

		part = append(part, msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e == t || (e.base != nil && e.base == t)
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs,
		base:  e.sentinel(),
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
		base:  e.sentinel(),
	}
}

// Attr returns the value of the first attribute with the given key.
func (e *Error) Attr(key string) (slog.Value, bool) {
	for _, a := range e.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}

	return slog.Value{}, false
}

func (e *Error) sentinel() *Error {
	if e.base != nil {
		return e.base
	}

	return e
}
