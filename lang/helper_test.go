package lang_test

import (
	"context"

	"github.com/ardnew/letbind/lang"
)

// node is an expression understood by testEval.
type node func(ctx context.Context, scope *lang.Scope) (lang.Value, error)

func lit(v any) node {
	return func(context.Context, *lang.Scope) (lang.Value, error) {
		return lang.FromNative(v), nil
	}
}

func ref(name string) node {
	return func(_ context.Context, scope *lang.Scope) (lang.Value, error) {
		return scope.Resolve(name)
	}
}

// testEval evaluates node values and counts evaluations.
type testEval struct{ calls int }

func (e *testEval) Eval(ctx context.Context, n lang.Node, scope *lang.Scope) (lang.Value, error) {
	e.calls++

	return n.(node)(ctx, scope)
}

func ident(name string, def lang.Node) *lang.Identifier {
	p, err := lang.NewIdentifier(name, def)
	if err != nil {
		panic(err)
	}

	return p
}

func array(elems ...lang.Pattern) *lang.ArrayPattern {
	p, err := lang.NewArrayPattern(nil, elems...)
	if err != nil {
		panic(err)
	}

	return p
}

func rest(target lang.Pattern) *lang.Rest {
	r, err := lang.NewRest(target)
	if err != nil {
		panic(err)
	}

	return r
}

func object(r *lang.Rest, entries ...lang.Entry) *lang.ObjectPattern {
	p, err := lang.NewObjectPattern(nil, r, entries...)
	if err != nil {
		panic(err)
	}

	return p
}

func list(v ...any) *lang.List {
	items := make([]lang.Value, len(v))
	for i, x := range v {
		items[i] = lang.FromNative(x)
	}

	return lang.NewList(items...)
}

func resolveAll(scope *lang.Scope, names ...string) (map[string]any, error) {
	out := make(map[string]any, len(names))

	for _, name := range names {
		v, err := scope.Resolve(name)
		if err != nil {
			return nil, err
		}

		out[name] = lang.Native(v)
	}

	return out, nil
}
