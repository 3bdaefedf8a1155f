package lang

import (
	"iter"
	"log/slog"
	"maps"
	"slices"
)

// BindingKind classifies how a binding may be declared and written.
type BindingKind uint8

const (
	MutableBlock   BindingKind = iota // let
	ImmutableBlock                    // const
	FunctionScoped                    // var
)

// Blocked reports whether k is a block-scoped kind, which starts
// Uninitialized.
func (k BindingKind) Blocked() bool { return k != FunctionScoped }

// State is the initialization state of a binding.
type State uint8

const (
	Uninitialized State = iota // uninitialized
	Initialized                // initialized
)

// ScopeKind tags the construct that created a [Scope].
type ScopeKind uint8

const (
	Block          ScopeKind = iota // block
	ParameterLayer                  // parameter
	Global                          // global
)

type binding struct {
	value Value
	kind  BindingKind
	state State
}

// Binding is a snapshot of one named binding in a scope.
type Binding struct {
	Value Value
	Name  string
	Kind  BindingKind
	State State
}

// Scope is one link of a scope chain.
//
// A *Scope is the handle closures retain; it holds a non-owning pointer to
// its parent and is reclaimed by the garbage collector once no closure and no
// child scope references it.
type Scope struct {
	parent *Scope
	names  map[string]*binding
	order  []string
	kind   ScopeKind
}

// NewScope returns an empty scope chained to parent, which may be nil for
// the outermost scope.
func NewScope(parent *Scope, kind ScopeKind) *Scope {
	return &Scope{
		parent: parent,
		names:  make(map[string]*binding),
		kind:   kind,
	}
}

// Parent returns the enclosing scope, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// Kind returns the kind tag of s.
func (s *Scope) Kind() ScopeKind { return s.kind }

// Declare creates a binding for name in s.
//
// Block-scoped kinds start Uninitialized. FunctionScoped bindings are
// Initialized immediately with [Missing], and redeclaring a FunctionScoped
// name as FunctionScoped is a no-op. Every other redeclaration fails with
// [ErrDuplicateDeclaration].
func (s *Scope) Declare(name string, kind BindingKind) error {
	if b, ok := s.names[name]; ok {
		if b.kind == FunctionScoped && kind == FunctionScoped {
			return nil
		}

		return ErrDuplicateDeclaration.With(
			slog.String("name", name),
			slog.String("declared", b.kind.String()),
			slog.String("kind", kind.String()),
		)
	}

	b := &binding{kind: kind, value: Missing}
	if !kind.Blocked() {
		b.state = Initialized
	}

	s.names[name] = b
	s.order = append(s.order, name)

	return nil
}

// Initialize stores the initial value of a binding declared in s itself.
func (s *Scope) Initialize(name string, v Value) error {
	b, ok := s.names[name]
	if !ok {
		return ErrUnresolved.With(slog.String("name", name))
	}

	if b.state == Initialized && b.kind == ImmutableBlock {
		return ErrImmutableViolation.With(slog.String("name", name))
	}

	b.value, b.state = v, Initialized

	return nil
}

// Assign writes v to the nearest binding of name visible from s.
//
// Only Initialized MutableBlock and FunctionScoped bindings accept writes.
func (s *Scope) Assign(name string, v Value) error {
	b, _ := s.lookup(name)

	switch {
	case b == nil:
		return ErrUnresolved.With(slog.String("name", name))

	case b.state == Uninitialized:
		return ErrUninitializedAccess.With(slog.String("name", name))

	case b.kind == ImmutableBlock:
		return ErrImmutableViolation.With(slog.String("name", name))
	}

	b.value = v

	return nil
}

// Resolve returns the value of the nearest binding of name visible from s.
//
// A binding that is found but still Uninitialized fails with
// [ErrUninitializedAccess], even when an outer scope binds the same name.
func (s *Scope) Resolve(name string) (Value, error) {
	b, _ := s.lookup(name)

	switch {
	case b == nil:
		return nil, ErrUnresolved.With(slog.String("name", name))

	case b.state == Uninitialized:
		return nil, ErrUninitializedAccess.With(slog.String("name", name))
	}

	return b.value, nil
}

// Has reports whether name is declared anywhere in the chain starting at s.
// It never fails, including for Uninitialized bindings.
func (s *Scope) Has(name string) bool {
	b, _ := s.lookup(name)

	return b != nil
}

// HasOwn reports whether name is declared in s itself.
func (s *Scope) HasOwn(name string) bool {
	_, ok := s.names[name]

	return ok
}

// Lookup returns a snapshot of the nearest binding of name and the scope
// declaring it.
func (s *Scope) Lookup(name string) (Binding, *Scope, bool) {
	b, owner := s.lookup(name)
	if b == nil {
		return Binding{}, nil, false
	}

	return Binding{
		Name:  name,
		Kind:  b.kind,
		State: b.state,
		Value: b.value,
	}, owner, true
}

func (s *Scope) lookup(name string) (*binding, *Scope) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.names[name]; ok {
			return b, sc
		}
	}

	return nil, nil
}

// Names returns the names declared in s itself, in declaration order.
func (s *Scope) Names() []string { return slices.Clone(s.order) }

// Visible returns every name visible from s, innermost first, without
// duplicates.
func (s *Scope) Visible() []string {
	seen := make(map[string]struct{})

	var names []string

	for sc := s; sc != nil; sc = sc.parent {
		for _, name := range sc.order {
			if _, ok := seen[name]; ok {
				continue
			}

			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	return names
}

// Bindings returns an iterator over the bindings declared in s itself, in
// declaration order.
func (s *Scope) Bindings() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		for _, name := range s.order {
			b := s.names[name]
			if !yield(Binding{
				Name:  name,
				Kind:  b.kind,
				State: b.state,
				Value: b.value,
			}) {
				return
			}
		}
	}
}

// VarScope returns the scope that FunctionScoped declarations made in s are
// hoisted to: the nearest function body (a scope whose parent is a
// parameter layer) or the outermost scope.
func (s *Scope) VarScope() *Scope {
	sc := s
	for sc.parent != nil && sc.kind != Global &&
		sc.parent.kind != ParameterLayer {
		sc = sc.parent
	}

	return sc
}

// CopyForIteration returns a fresh scope with the same parent, kind and
// bindings as s, each binding holding the value it currently holds in s.
//
// Loop constructs whose header declares block-scoped bindings run each
// iteration in such a copy, so closures created by one iteration never
// observe writes made by another.
func (s *Scope) CopyForIteration() *Scope {
	c := &Scope{
		parent: s.parent,
		names:  make(map[string]*binding, len(s.names)),
		order:  slices.Clone(s.order),
		kind:   s.kind,
	}

	for name, b := range maps.All(s.names) {
		cp := *b
		c.names[name] = &cp
	}

	return c
}
