// Package lang implements the binding semantics of a small scripting
// language: a scope chain with initialization ordering, structural
// destructuring of values into bindings, parameter binding with lazy
// defaults, and interpolated or tagged literals.
//
// The package evaluates no expressions itself. Defaults and literal
// substitutions are opaque [Node] values handed to an [Evaluator] supplied
// by the caller, so the same core serves any front end.
//
// # Scopes
//
// A [Scope] maps names to bindings of one of three kinds:
//
//	MutableBlock    let    starts Uninitialized, writable
//	ImmutableBlock  const  starts Uninitialized, written once
//	FunctionScoped  var    Initialized to Missing on declaration, writable
//
// Reading a binding before it is initialized fails with
// [ErrUninitializedAccess], even when an outer scope binds the same name.
// [Scope.Has] only asks whether a name is declared and never fails.
//
// # Patterns
//
// Patterns are built with [NewIdentifier], [NewArrayPattern],
// [NewObjectPattern], [NewAssignmentTarget] and [NewRest]; structural errors
// are reported by the constructors, never during a match. A [Matcher]
// destructures a [Value] against a pattern:
//
//	p, _ := lang.NewArrayPattern(nil,
//		&lang.Identifier{Name: "a", Default: three},
//		&lang.Identifier{Name: "b"},
//	)
//	err := m.Match(ctx, p, list, scope, lang.Declare(lang.MutableBlock))
//
// A default is evaluated only when the routed value is exactly [Missing],
// the sentinel for "no such element or property".
//
// # Parameters
//
// [Params.Bind] creates a parameter layer scope for one call. [NewFunction]
// combines it with a body into a [Callable].
//
// # Literals
//
// A [Template] holds cooked and raw segments interleaved with expression
// nodes. [Template.Evaluate] produces a string; [Template.Tag] passes the
// segments and evaluated substitutions to a tag callable such as
// [Reconstruct] or [RawTag].
package lang
