package lang_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ardnew/letbind/lang"
)

func TestParams_Bind(t *testing.T) {
	t.Parallel()

	params, err := lang.NewParams(
		ident("a", nil),
		ident("b", ref("a")),
		array(ident("c", nil), ident("d", lit("dd"))),
		rest(ident("more", nil)),
	)
	if err != nil {
		t.Fatalf("NewParams() error = %v", err)
	}

	tests := []struct {
		name string
		args []lang.Value
		want map[string]any
	}{
		{
			name: "all_supplied",
			args: []lang.Value{lang.Int(1), lang.Int(2), list(3, 4), lang.Int(5), lang.Int(6)},
			want: map[string]any{
				"a": int64(1), "b": int64(2), "c": int64(3), "d": int64(4),
				"more": []any{int64(5), int64(6)},
			},
		},
		{
			name: "defaults_from_earlier_formal",
			args: []lang.Value{lang.Int(1), lang.Missing, list(3)},
			want: map[string]any{
				"a": int64(1), "b": int64(1), "c": int64(3), "d": "dd",
				"more": []any{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &lang.Matcher{Evaluator: &testEval{}}
			global := lang.NewScope(nil, lang.Global)

			layer, err := params.Bind(t.Context(), m, tt.args, global)
			if err != nil {
				t.Fatalf("Bind() error = %v", err)
			}

			if layer.Kind() != lang.ParameterLayer || layer.Parent() != global {
				t.Error("expected a parameter layer chained to the closure scope")
			}

			got, err := resolveAll(layer, params.Names()...)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParams_DefaultReferencingLaterFormal(t *testing.T) {
	t.Parallel()

	outer := lang.NewScope(nil, lang.Global)
	_ = outer.Declare("y", lang.ImmutableBlock)
	_ = outer.Initialize("y", lang.Int(42))

	params, err := lang.NewParams(ident("x", ref("y")), ident("y", nil))
	if err != nil {
		t.Fatalf("NewParams() error = %v", err)
	}

	m := &lang.Matcher{Evaluator: &testEval{}}

	_, err = params.Bind(t.Context(), m, nil, outer)
	if !errors.Is(err, lang.ErrUninitializedAccess) {
		t.Errorf("Bind() error = %v, want %v", err, lang.ErrUninitializedAccess)
	}

	// Supplying the argument means the default never runs.
	layer, err := params.Bind(t.Context(), m, []lang.Value{lang.Int(1)}, outer)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	if v, _ := layer.Resolve("y"); !lang.IsMissing(v) {
		t.Errorf("expected y to be Missing, got %s", lang.Inspect(v))
	}
}

func TestParams_DefaultCannotSeeBody(t *testing.T) {
	t.Parallel()

	params, _ := lang.NewParams(ident("x", ref("local")))
	m := &lang.Matcher{Evaluator: &testEval{}}

	fn := lang.NewFunction("f", params, lang.NewScope(nil, lang.Global), m,
		func(_ context.Context, body *lang.Scope) (lang.Value, error) {
			_ = body.Declare("local", lang.MutableBlock)
			_ = body.Initialize("local", lang.Int(1))

			return body.Resolve("x")
		})

	if _, err := fn.Call(t.Context()); !errors.Is(err, lang.ErrUnresolved) {
		t.Errorf("Call() error = %v, want %v", err, lang.ErrUnresolved)
	}
}

func TestParams_Duplicate(t *testing.T) {
	t.Parallel()

	_, err := lang.NewParams(ident("a", nil), array(ident("a", nil)))
	if !errors.Is(err, lang.ErrDuplicateDeclaration) {
		t.Errorf("NewParams() error = %v, want %v", err, lang.ErrDuplicateDeclaration)
	}
}

func TestNewFunction_SelfHandle(t *testing.T) {
	t.Parallel()

	params, _ := lang.NewParams(ident("n", nil))
	m := &lang.Matcher{Evaluator: &testEval{}}

	var fact *lang.Callable

	fact = lang.NewFunction("fact", params, lang.NewScope(nil, lang.Global), m,
		func(ctx context.Context, body *lang.Scope) (lang.Value, error) {
			v, err := body.Resolve("n")
			if err != nil {
				return nil, err
			}

			n := lang.Native(v).(int64)
			if n <= 1 {
				return lang.Int(1), nil
			}

			r, err := fact.Self.Call(ctx, lang.Int(n-1))
			if err != nil {
				return nil, err
			}

			return lang.Int(n * lang.Native(r).(int64)), nil
		})

	// The external name does not matter to recursion through the handle.
	renamed := fact
	fact = &lang.Callable{Name: "other", Fn: renamed.Fn, Self: renamed}

	got, err := renamed.Call(t.Context(), lang.Int(5))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if !lang.Equal(got, lang.Int(120)) {
		t.Errorf("expected 120, got %s", lang.Inspect(got))
	}
}

func TestNewFunction_ClosuresShareScope(t *testing.T) {
	t.Parallel()

	closure := lang.NewScope(nil, lang.Global)
	_ = closure.Declare("count", lang.MutableBlock)
	_ = closure.Initialize("count", lang.Int(0))

	params, _ := lang.NewParams()
	m := &lang.Matcher{}

	inc := lang.NewFunction("inc", params, closure, m,
		func(_ context.Context, body *lang.Scope) (lang.Value, error) {
			v, _ := body.Resolve("count")
			next := lang.Int(lang.Native(v).(int64) + 1)

			return next, body.Assign("count", next)
		})

	for range 3 {
		if _, err := inc.Call(t.Context()); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}

	if v, _ := closure.Resolve("count"); !lang.Equal(v, lang.Int(3)) {
		t.Errorf("expected 3, got %s", lang.Inspect(v))
	}
}

func TestParams_Labels(t *testing.T) {
	t.Parallel()

	params, err := lang.NewParams(
		ident("a", lit(1)),
		array(ident("b", nil), lang.Hole, ident("c", nil)),
		object(nil, lang.Entry{Key: "k", Target: ident("d", nil)}),
		rest(ident("more", nil)),
	)
	if err != nil {
		t.Fatalf("NewParams() error = %v", err)
	}

	want := []string{"a", "[b, c]", "{d}", "...more"}
	if got := params.Labels(); !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}

	fn := lang.NewFunction("f", params, nil, &lang.Matcher{}, nil)
	if !reflect.DeepEqual(fn.Params, want) {
		t.Errorf("NewFunction().Params = %v, want %v", fn.Params, want)
	}
}
