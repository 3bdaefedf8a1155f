package lang

import (
	"context"
	"iter"
	"log/slog"

	"github.com/ardnew/letbind/log"
)

// Evaluator evaluates expression nodes on behalf of the matcher and the
// literal interpolator.
type Evaluator interface {
	Eval(ctx context.Context, node Node, scope *Scope) (Value, error)
}

// EvaluatorFunc adapts a function to the [Evaluator] interface.
type EvaluatorFunc func(ctx context.Context, node Node, scope *Scope) (Value, error)

// Eval calls f.
func (f EvaluatorFunc) Eval(ctx context.Context, node Node, scope *Scope) (Value, error) {
	return f(ctx, node, scope)
}

// Mode selects whether a match declares fresh bindings or assigns to
// existing storage.
type Mode struct {
	kind   BindingKind
	assign bool
}

// Declare returns the mode declaring and initializing bindings of kind.
func Declare(kind BindingKind) Mode { return Mode{kind: kind} }

// Assign is the mode writing to existing bindings and references.
//
//nolint:gochecknoglobals
var Assign = Mode{assign: true}

// Matcher destructures values against patterns.
type Matcher struct {
	Evaluator Evaluator
	Logger    log.Logger

	// ObjectRest enables rest elements in object patterns. When false, an
	// object pattern with a rest element fails with [ErrUnsupported].
	ObjectRest bool
}

// Match destructures v against p in scope.
//
// In declare mode every name bound by p is declared Uninitialized in scope
// before any element is processed, unless scope already declares it with the
// same kind. Elements are then processed depth first, left to right.
func (m *Matcher) Match(ctx context.Context, p Pattern, v Value, scope *Scope, mode Mode) error {
	if !mode.assign {
		err := predeclare(scope, p, mode.kind)
		if err != nil {
			return err
		}
	}

	return m.match(ctx, p, v, scope, mode)
}

func predeclare(scope *Scope, p Pattern, kind BindingKind) error {
	seen := make(map[string]struct{})

	for _, name := range BoundNames(p) {
		if _, dup := seen[name]; dup && kind.Blocked() {
			return ErrDuplicateDeclaration.With(slog.String("name", name))
		}

		seen[name] = struct{}{}

		if b, ok := scope.names[name]; ok && b.kind == kind && b.state == Uninitialized {
			continue
		}

		err := scope.Declare(name, kind)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Matcher) match(ctx context.Context, p Pattern, v Value, scope *Scope, mode Mode) (err error) {
	if p == nil {
		return malformed("nil pattern")
	}

	v, err = m.orDefault(ctx, p.defaultNode(), v, scope)
	if err != nil {
		return err
	}

	switch p := p.(type) {
	case *Identifier:
		return m.bind(ctx, p.Name, v, scope, mode)

	case *AssignmentTarget:
		m.Logger.TraceContext(ctx, "store", slog.String("value", Inspect(v)))

		return p.Ref.Store(ctx, scope, v)

	case *ArrayPattern:
		return m.matchArray(ctx, p, v, scope, mode)

	case *ObjectPattern:
		return m.matchObject(ctx, p, v, scope, mode)

	case hole:
		return nil
	}

	return malformed("unexpected pattern")
}

// orDefault evaluates def when v is Missing. The default sees a scope chained
// from the pattern scope, so siblings already processed are visible and those
// not yet processed are still Uninitialized.
func (m *Matcher) orDefault(ctx context.Context, def Node, v Value, scope *Scope) (Value, error) {
	if def == nil || !IsMissing(v) {
		return v, nil
	}

	if m.Evaluator == nil {
		return nil, ErrUnsupported.With(slog.String("reason", "no evaluator for default"))
	}

	d, err := m.Evaluator.Eval(ctx, def, NewScope(scope, Block))
	if err != nil {
		return nil, err
	}

	m.Logger.TraceContext(ctx, "default", slog.String("value", Inspect(d)))

	return d, nil
}

func (m *Matcher) bind(ctx context.Context, name string, v Value, scope *Scope, mode Mode) error {
	m.Logger.TraceContext(ctx, "bind",
		slog.String("name", name),
		slog.Bool("assign", mode.assign),
		slog.String("value", Inspect(v)),
	)

	if mode.assign {
		return scope.Assign(name, v)
	}

	return scope.Initialize(name, v)
}

func (m *Matcher) matchArray(ctx context.Context, p *ArrayPattern, v Value, scope *Scope, mode Mode) error {
	seq, ok := Sequence(v)
	if !ok {
		return ErrNotIterable.With(slog.String("kind", kindOf(v).String()))
	}

	next, stop := iter.Pull(seq)
	defer stop()

	done := false
	pull := func() Value {
		if done {
			return Missing
		}

		e, ok := next()
		if !ok {
			done = true

			return Missing
		}

		return e
	}

	for _, e := range p.Elements {
		x := pull()

		if e == Hole {
			continue
		}

		err := m.match(ctx, e, x, scope, mode)
		if err != nil {
			return err
		}
	}

	if p.Rest == nil {
		return nil
	}

	rest := NewList()

	for !done {
		if x := pull(); !done {
			rest.items = append(rest.items, x)
		}
	}

	return m.match(ctx, p.Rest.Target, rest, scope, mode)
}

func (m *Matcher) matchObject(ctx context.Context, p *ObjectPattern, v Value, scope *Scope, mode Mode) error {
	if s, ok := v.(Scalar); IsMissing(v) || ok && s.IsNull() {
		return ErrNotDestructurable.With(slog.String("value", Stringify(v)))
	}

	if p.Rest != nil && !m.ObjectRest {
		return ErrUnsupported.With(slog.String("reason", "object rest"))
	}

	consumed := make(map[string]struct{}, len(p.Entries))

	for _, e := range p.Entries {
		consumed[e.Key] = struct{}{}

		x, err := m.orDefault(ctx, e.Default, Get(v, e.Key), scope)
		if err != nil {
			return err
		}

		err = m.match(ctx, e.Target, x, scope, mode)
		if err != nil {
			return err
		}
	}

	if p.Rest == nil {
		return nil
	}

	rest := NewObject()

	for _, key := range Keys(v) {
		if _, ok := consumed[key]; ok {
			continue
		}

		_ = rest.Set(key, Get(v, key))
	}

	return m.match(ctx, p.Rest.Target, rest, scope, mode)
}

func kindOf(v Value) Kind {
	if v == nil {
		return KindMissing
	}

	return v.Kind()
}
