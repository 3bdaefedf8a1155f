package lang

import (
	"context"
	"log/slog"
	"strings"
)

// Params is a validated formal parameter list.
type Params struct {
	rest    *Rest
	formals []Pattern
	names   []string
}

// NewParams validates formals and returns the parameter list. A [*Rest]
// formal must be last, and no name may be bound twice.
func NewParams(formals ...Pattern) (*Params, error) {
	p := &Params{}

	for i, f := range formals {
		switch f := f.(type) {
		case nil:
			return nil, malformed("nil formal").With(slog.Int("index", i))

		case hole:
			return nil, malformed("hole formal").With(slog.Int("index", i))

		case *Rest:
			if i != len(formals)-1 {
				return nil, malformed("rest is not last").With(slog.Int("index", i))
			}

			p.rest = f

		default:
			p.formals = append(p.formals, f)
		}
	}

	seen := make(map[string]struct{})

	for _, f := range formals {
		for _, name := range BoundNames(f) {
			if _, dup := seen[name]; dup {
				return nil, ErrDuplicateDeclaration.With(slog.String("name", name))
			}

			seen[name] = struct{}{}
			p.names = append(p.names, name)
		}
	}

	return p, nil
}

// Len returns the number of positional formals, excluding any rest formal.
func (p *Params) Len() int { return len(p.formals) }

// Formals returns the positional formals.
func (p *Params) Formals() []Pattern { return p.formals }

// Rest returns the rest formal, or nil.
func (p *Params) Rest() *Rest { return p.rest }

// Names returns every name bound by the formals, in order.
func (p *Params) Names() []string { return p.names }

// Bind creates the parameter layer for one call and binds args into it.
//
// The layer is chained to parent, the callee's closure scope, and every
// formal name is declared Uninitialized before the first formal is matched.
// Formals are matched strictly in order, so a default may read earlier
// formals but fails with [ErrUninitializedAccess] on later ones. The caller
// creates the body scope as a child of the returned layer.
func (p *Params) Bind(ctx context.Context, m *Matcher, args []Value, parent *Scope) (*Scope, error) {
	layer := NewScope(parent, ParameterLayer)

	for _, name := range p.names {
		err := layer.Declare(name, MutableBlock)
		if err != nil {
			return nil, err
		}
	}

	mode := Declare(MutableBlock)

	for i, f := range p.formals {
		arg := Missing
		if i < len(args) {
			arg = args[i]
		}

		err := m.match(ctx, f, arg, layer, mode)
		if err != nil {
			return nil, err
		}
	}

	if p.rest != nil {
		rest := NewList()
		if len(args) > len(p.formals) {
			rest.items = append(rest.items, args[len(p.formals):]...)
		}

		err := m.match(ctx, p.rest.Target, rest, layer, mode)
		if err != nil {
			return nil, err
		}
	}

	m.Logger.TraceContext(ctx, "parameters bound",
		slog.Int("formals", len(p.formals)),
		slog.Int("args", len(args)),
	)

	return layer, nil
}

// Body runs a function body in scope, a fresh block scope whose parent is the
// parameter layer.
type Body func(ctx context.Context, scope *Scope) (Value, error)

// NewFunction returns a callable that binds its arguments with params in a
// layer chained to closure and then runs body.
func NewFunction(name string, params *Params, closure *Scope, m *Matcher, body Body) *Callable {
	c := NewCallable(name, func(ctx context.Context, _ *Callable, args []Value) (Value, error) {
		layer, err := params.Bind(ctx, m, args, closure)
		if err != nil {
			return nil, err
		}

		return body(ctx, NewScope(layer, Block))
	})

	c.Params = params.Labels()

	return c
}

// Labels returns a short display form of each formal, including the rest
// formal: identifiers by name, destructuring formals by their bound names.
func (p *Params) Labels() []string {
	labels := make([]string, 0, len(p.formals)+1)

	for _, f := range p.formals {
		labels = append(labels, label(f))
	}

	if p.rest != nil {
		labels = append(labels, label(p.rest))
	}

	return labels
}

func label(f Pattern) string {
	switch f := f.(type) {
	case *Identifier:
		return f.Name

	case *Rest:
		return "..." + label(f.Target)

	case *ArrayPattern:
		return "[" + strings.Join(BoundNames(f), ", ") + "]"

	case *ObjectPattern:
		return "{" + strings.Join(BoundNames(f), ", ") + "}"

	default:
		return "_"
	}
}
