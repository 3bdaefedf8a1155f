package lang

import (
	"context"
	"log/slog"
)

// Node is an opaque expression handed to an [Evaluator]. The core never
// inspects it.
type Node any

// Pattern is the closed set of destructuring targets: [*Identifier], [Hole],
// [*ArrayPattern], [*ObjectPattern], [*AssignmentTarget] and [*Rest].
//
// Patterns are built with their constructors, which reject malformed
// structure with [ErrMalformedPattern].
type Pattern interface {
	defaultNode() Node
	pattern()
}

// Identifier binds or assigns a single name.
type Identifier struct {
	Default Node
	Name    string
}

// NewIdentifier returns an identifier pattern with an optional default.
func NewIdentifier(name string, def Node) (*Identifier, error) {
	if name == "" {
		return nil, ErrMalformedPattern.With(slog.String("reason", "empty name"))
	}

	return &Identifier{Name: name, Default: def}, nil
}

func (p *Identifier) defaultNode() Node { return p.Default }
func (*Identifier) pattern()            {}

type hole struct{}

func (hole) defaultNode() Node { return nil }
func (hole) pattern()          {}

// Hole consumes and discards one element of an array pattern.
//
//nolint:gochecknoglobals
var Hole Pattern = hole{}

// Rest gathers all otherwise unconsumed elements or keys into a fresh
// container. It is only valid as the last element of a pattern.
type Rest struct {
	Target Pattern
}

// NewRest returns a rest element binding to target. The target may not be a
// hole or another rest element and may not carry a default.
func NewRest(target Pattern) (*Rest, error) {
	switch target.(type) {
	case nil:
		return nil, malformed("rest without target")
	case hole:
		return nil, malformed("rest of hole")
	case *Rest:
		return nil, malformed("nested rest")
	}

	if target.defaultNode() != nil {
		return nil, malformed("rest with default")
	}

	return &Rest{Target: target}, nil
}

func (*Rest) defaultNode() Node { return nil }
func (*Rest) pattern()          {}

// ArrayPattern destructures a sequence-capable value positionally.
type ArrayPattern struct {
	Default  Node
	Rest     *Rest
	Elements []Pattern
}

// NewArrayPattern returns an array pattern over elements. A [*Rest] is
// accepted only as the last element.
func NewArrayPattern(def Node, elements ...Pattern) (*ArrayPattern, error) {
	p := &ArrayPattern{Default: def}

	for i, e := range elements {
		switch e := e.(type) {
		case nil:
			return nil, malformed("nil element").With(slog.Int("index", i))

		case *Rest:
			if i != len(elements)-1 {
				return nil, malformed("rest is not last").With(slog.Int("index", i))
			}

			p.Rest = e

		default:
			p.Elements = append(p.Elements, e)
		}
	}

	return p, nil
}

func (p *ArrayPattern) defaultNode() Node { return p.Default }
func (*ArrayPattern) pattern()            {}

// Entry is one property of an object pattern. Its Default applies when the
// source key is absent.
type Entry struct {
	Target  Pattern
	Default Node
	Key     string
}

// ObjectPattern destructures a keyed value by property name.
type ObjectPattern struct {
	Default Node
	Rest    *Rest
	Entries []Entry
}

// NewObjectPattern returns an object pattern over entries with an optional
// trailing rest element.
func NewObjectPattern(def Node, rest *Rest, entries ...Entry) (*ObjectPattern, error) {
	for i, e := range entries {
		switch e.Target.(type) {
		case nil:
			return nil, malformed("nil target").With(slog.String("key", e.Key))
		case hole:
			return nil, malformed("hole in object pattern").With(slog.Int("index", i))
		case *Rest:
			return nil, malformed("rest is not last").With(slog.Int("index", i))
		}
	}

	if rest != nil {
		switch rest.Target.(type) {
		case *Identifier, *AssignmentTarget:
		default:
			return nil, malformed("object rest target must be simple")
		}
	}

	return &ObjectPattern{Default: def, Rest: rest, Entries: entries}, nil
}

func (p *ObjectPattern) defaultNode() Node { return p.Default }
func (*ObjectPattern) pattern()            {}

// Reference is external writable storage, such as a property path, that a
// pattern can assign into.
type Reference interface {
	Writable() bool
	Store(ctx context.Context, scope *Scope, v Value) error
}

// AssignmentTarget destructures into existing storage instead of a binding.
type AssignmentTarget struct {
	Ref     Reference
	Default Node
}

// NewAssignmentTarget returns a pattern storing into ref, which must be a
// valid writable reference.
func NewAssignmentTarget(ref Reference, def Node) (*AssignmentTarget, error) {
	if ref == nil || !ref.Writable() {
		return nil, malformed("assignment target is not writable")
	}

	return &AssignmentTarget{Ref: ref, Default: def}, nil
}

func (p *AssignmentTarget) defaultNode() Node { return p.Default }
func (*AssignmentTarget) pattern()            {}

// PropertyRef is a [Reference] to a key of an object.
type PropertyRef struct {
	Object *Object
	Key    string
}

// Writable reports whether the referenced object accepts writes.
func (r PropertyRef) Writable() bool { return r.Object != nil && !r.Object.Frozen() }

// Store sets the referenced key.
func (r PropertyRef) Store(_ context.Context, _ *Scope, v Value) error {
	return r.Object.Set(r.Key, v)
}

// ElementRef is a [Reference] to an index of a list.
type ElementRef struct {
	List  *List
	Index int
}

// Writable reports whether the referenced list accepts writes.
func (r ElementRef) Writable() bool {
	return r.List != nil && !r.List.Frozen() && r.Index >= 0
}

// Store sets the referenced element.
func (r ElementRef) Store(_ context.Context, _ *Scope, v Value) error {
	return r.List.Set(r.Index, v)
}

// BoundNames returns the names p declares, in source order. Assignment
// targets declare nothing.
func BoundNames(p Pattern) []string {
	var names []string

	var walk func(Pattern)

	walk = func(p Pattern) {
		switch p := p.(type) {
		case *Identifier:
			names = append(names, p.Name)

		case *Rest:
			walk(p.Target)

		case *ArrayPattern:
			for _, e := range p.Elements {
				walk(e)
			}

			if p.Rest != nil {
				walk(p.Rest)
			}

		case *ObjectPattern:
			for _, e := range p.Entries {
				walk(e.Target)
			}

			if p.Rest != nil {
				walk(p.Rest)
			}
		}
	}

	walk(p)

	return names
}

func malformed(reason string) *Error {
	return ErrMalformedPattern.With(slog.String("reason", reason))
}
