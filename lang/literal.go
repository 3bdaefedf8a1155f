package lang

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Segment is one static fragment of an interpolated literal. Cooked is nil
// when the raw text holds an invalid escape sequence.
type Segment struct {
	Cooked *string
	Raw    string
}

// Text returns a segment whose cooked and raw forms are given.
func Text(cooked, raw string) Segment { return Segment{Cooked: &cooked, Raw: raw} }

// Template is a parsed interpolated literal: static segments interleaved with
// expression nodes, with one more segment than expressions.
type Template struct {
	strings  *List
	once     sync.Once
	Segments []Segment
	Exprs    []Node
}

// NewTemplate validates and returns a template.
func NewTemplate(segments []Segment, exprs []Node) (*Template, error) {
	if len(segments) != len(exprs)+1 {
		return nil, ErrMalformedLiteral.With(
			slog.Int("segments", len(segments)),
			slog.Int("exprs", len(exprs)),
		)
	}

	return &Template{Segments: segments, Exprs: exprs}, nil
}

// Strings returns the frozen list of cooked segments passed to tags. Its
// attached raw list holds the raw segments. The same list is returned on
// every call.
func (t *Template) Strings() *List {
	t.once.Do(t.freeze)

	return t.strings
}

func (t *Template) freeze() {
	cooked := make([]Value, len(t.Segments))
	raw := make([]Value, len(t.Segments))

	for i, s := range t.Segments {
		cooked[i] = Missing
		if s.Cooked != nil {
			cooked[i] = String(*s.Cooked)
		}

		raw[i] = String(s.Raw)
	}

	t.strings = (&List{items: cooked, raw: (&List{items: raw}).Freeze()}).Freeze()
}

// Evaluate interpolates t in value mode: each expression is evaluated in
// scope strictly left to right and the cooked segments and stringified
// results are concatenated in source order.
func (t *Template) Evaluate(ctx context.Context, ev Evaluator, scope *Scope) (string, error) {
	var sb strings.Builder

	for i, s := range t.Segments {
		if s.Cooked == nil {
			return "", ErrMalformedLiteral.With(
				slog.String("reason", "invalid escape sequence"),
				slog.String("raw", s.Raw),
			)
		}

		sb.WriteString(*s.Cooked)

		if i == len(t.Exprs) {
			break
		}

		v, err := ev.Eval(ctx, t.Exprs[i], scope)
		if err != nil {
			return "", err
		}

		sb.WriteString(Stringify(v))
	}

	return sb.String(), nil
}

// Tag interpolates t in tag mode: every expression is evaluated in scope left
// to right, then tag is invoked once with [Template.Strings] followed by the
// results. The tag's return value is returned verbatim.
func (t *Template) Tag(ctx context.Context, ev Evaluator, scope *Scope, tag Value) (Value, error) {
	fn, ok := tag.(*Callable)
	if !ok {
		return nil, ErrNotCallable.With(slog.String("kind", kindOf(tag).String()))
	}

	args := make([]Value, 1, len(t.Exprs)+1)
	args[0] = t.Strings()

	for _, e := range t.Exprs {
		v, err := ev.Eval(ctx, e, scope)
		if err != nil {
			return nil, err
		}

		args = append(args, v)
	}

	return fn.Call(ctx, args...)
}

// Reconstruct is the passthrough tag. It joins the cooked strings with the
// stringified substitutions, producing the value-mode result.
//
//nolint:gochecknoglobals
var Reconstruct = NewCallable("reconstruct", func(_ context.Context, _ *Callable, args []Value) (Value, error) {
	return interleave(args, false)
})

// RawTag joins the raw strings with the stringified substitutions.
//
//nolint:gochecknoglobals
var RawTag = NewCallable("raw", func(_ context.Context, _ *Callable, args []Value) (Value, error) {
	return interleave(args, true)
})

func interleave(args []Value, raw bool) (Value, error) {
	if len(args) == 0 {
		return String(""), nil
	}

	strs := args[0]
	if raw {
		strs = Get(strs, "raw")
	}

	seq, ok := Sequence(strs)
	if !ok {
		return nil, ErrNotIterable.With(slog.String("kind", kindOf(strs).String()))
	}

	var sb strings.Builder

	n := 0

	for s := range seq {
		if IsMissing(s) {
			return nil, ErrMalformedLiteral.With(slog.String("reason", "invalid escape sequence"))
		}

		if n > 0 && n < len(args) {
			sb.WriteString(Stringify(args[n]))
		}

		sb.WriteString(Stringify(s))
		n++
	}

	return String(sb.String()), nil
}
