package script

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/log"
)

func TestCompile_FreeVars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		free  []string
		calls []string
		path  []string
	}{
		{name: "identifier", input: "a", free: []string{"a"}, path: []string{"a"}},
		{name: "member_path", input: "a.b.c", free: []string{"a"}, path: []string{"a", "b", "c"}},
		{name: "string_index", input: `a["x"]`, free: []string{"a"}, path: []string{"a", "x"}},
		{name: "integer_index", input: "a[0]", free: []string{"a"}},
		{name: "arithmetic", input: "a + b.c * a", free: []string{"a", "b"}},
		{name: "call", input: "f(x)", free: []string{"f", "x"}},
		{name: "method", input: "a.b()", free: []string{"a"}},
		{name: "predicate", input: "filter(xs, # > n)", free: []string{"xs", "n"}, calls: []string{"filter"}},
		{name: "local_let", input: "let t = a; t * 2", free: []string{"a"}},
		{name: "builtin_call", input: "keys(o)", free: []string{"o"}, calls: []string{"keys"}},
		{name: "builtin_name_operand", input: "len + 1", free: []string{"len"}},
		{name: "literal", input: `1 + len("ab")`, calls: []string{"len"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := compile(t.Context(), log.Logger{}, tt.input)
			if err != nil {
				t.Fatalf("compile() error = %v", err)
			}

			got := slices.Clone(p.free)
			want := slices.Clone(tt.free)

			slices.Sort(got)
			slices.Sort(want)

			if !slices.Equal(got, want) {
				t.Errorf("free = %v, want %v", p.free, tt.free)
			}

			if !slices.Equal(p.calls, tt.calls) {
				t.Errorf("calls = %v, want %v", p.calls, tt.calls)
			}

			if !slices.Equal(p.path, tt.path) {
				t.Errorf("path = %v, want %v", p.path, tt.path)
			}
		})
	}
}

func TestProgram_ShadowedBuiltins(t *testing.T) {
	t.Parallel()

	custom := lang.NewCallable("len", func(context.Context, *lang.Callable, []lang.Value) (lang.Value, error) {
		return lang.String("bound"), nil
	})

	bound := lang.NewScope(nil, lang.Global)
	_ = bound.Declare("len", lang.ImmutableBlock)
	_ = bound.Initialize("len", custom)

	free := lang.NewScope(nil, lang.Global)

	p, err := compile(t.Context(), log.Logger{}, `len("abc")`)
	if err != nil {
		t.Fatalf("compile() error = %v", err)
	}

	v, err := p.run(t.Context(), free)
	if err != nil || !lang.Equal(v, lang.Int(3)) {
		t.Errorf("run() = %v, %v, want the engine builtin result 3", lang.Inspect(v), err)
	}

	v, err = p.run(t.Context(), bound)
	if err != nil || !lang.Equal(v, lang.String("bound")) {
		t.Errorf("run() = %v, %v, want the bound function result", lang.Inspect(v), err)
	}

	a, _ := p.compiled(free)
	b, _ := p.compiled(bound)

	if a == b {
		t.Error("compiled() shared one program between shadowing and plain scopes")
	}
}

func TestProgram_LazyLookup(t *testing.T) {
	t.Parallel()

	scope := lang.NewScope(nil, lang.Global)
	_ = scope.Declare("later", lang.MutableBlock)
	_ = scope.Declare("ok", lang.MutableBlock)
	_ = scope.Initialize("ok", lang.Bool(true))

	tests := []struct {
		input string
		want  string
		err   error
	}{
		{input: "ok || later", want: "true"},
		{input: "!ok && later", want: "false"},
		{input: "ok ? 1 : later", want: "1"},
		{input: "later || ok", err: lang.ErrUninitializedAccess},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			p, err := compile(t.Context(), log.Logger{}, tt.input)
			if err != nil {
				t.Fatalf("compile() error = %v", err)
			}

			v, err := p.run(t.Context(), scope)

			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("run() error = %v, want %v", err, tt.err)
				}

				return
			}

			if err != nil {
				t.Fatalf("run() error = %v", err)
			}

			if got := lang.Inspect(v); got != tt.want {
				t.Errorf("run() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompile_Cached(t *testing.T) {
	t.Parallel()

	a, err := compile(t.Context(), log.Logger{}, "cachedCompileProbe + 1")
	if err != nil {
		t.Fatalf("compile() error = %v", err)
	}

	b, err := compile(t.Context(), log.Logger{}, "cachedCompileProbe + 1")
	if err != nil {
		t.Fatalf("compile() error = %v", err)
	}

	if a != b {
		t.Error("compile() returned distinct programs for identical source")
	}

	_, err = compile(t.Context(), log.Logger{}, "1 +")
	if !errors.Is(err, ErrCompile) {
		t.Errorf("compile() error = %v, want ErrCompile", err)
	}
}

func TestProgram_PathKeepsIdentity(t *testing.T) {
	t.Parallel()

	obj := lang.ObjectOf("inner", map[string]any{"x": 1})

	scope := lang.NewScope(nil, lang.Global)
	_ = scope.Declare("o", lang.ImmutableBlock)
	_ = scope.Initialize("o", obj)

	p, err := compile(t.Context(), log.Logger{}, "o.inner")
	if err != nil {
		t.Fatalf("compile() error = %v", err)
	}

	v, err := p.run(t.Context(), scope)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	want, _ := obj.Lookup("inner")
	if v != want {
		t.Errorf("run() = %v, want the stored object", lang.Inspect(v))
	}

	// A missing member is undefined rather than null.
	p, err = compile(t.Context(), log.Logger{}, "o.nope")
	if err != nil {
		t.Fatalf("compile() error = %v", err)
	}

	v, err = p.run(t.Context(), scope)
	if err != nil || !lang.IsMissing(v) {
		t.Errorf("run() = %v, %v, want undefined", v, err)
	}
}

func TestBridge_Callable(t *testing.T) {
	t.Parallel()

	inc := lang.NewCallable("inc", func(_ context.Context, _ *lang.Callable, args []lang.Value) (lang.Value, error) {
		n, _ := lang.Native(args[0]).(int64)

		return lang.Int(n + 1), nil
	})

	b := &bridge{ctx: t.Context()}

	g, ok := fromExpr(b.toExpr(inc)).(*lang.Callable)
	if !ok {
		t.Fatal("round trip did not produce a callable")
	}

	v, err := g.Call(t.Context(), lang.Int(1))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if !lang.Equal(v, lang.Int(2)) {
		t.Errorf("Call() = %s, want 2", lang.Inspect(v))
	}
}

func TestBridge_RecordsCallError(t *testing.T) {
	t.Parallel()

	fail := lang.NewCallable("fail", func(context.Context, *lang.Callable, []lang.Value) (lang.Value, error) {
		return nil, lang.ErrNotCallable
	})

	scope := lang.NewScope(nil, lang.Global)
	_ = scope.Declare("fail", lang.ImmutableBlock)
	_ = scope.Initialize("fail", fail)

	p, err := compile(t.Context(), log.Logger{}, "fail() + 1")
	if err != nil {
		t.Fatalf("compile() error = %v", err)
	}

	_, err = p.run(t.Context(), scope)
	if !errors.Is(err, lang.ErrNotCallable) {
		t.Errorf("run() error = %v, want ErrNotCallable", err)
	}
}

func TestFromExpr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: "null"},
		{name: "int", input: 3, want: "3"},
		{name: "float", input: 2.5, want: "2.5"},
		{name: "string", input: "s", want: `"s"`},
		{name: "slice", input: []any{1, "a"}, want: `[1, "a"]`},
		{name: "map_sorted", input: map[string]any{"b": 1, "a": 2}, want: "{a: 2, b: 1}"},
		{name: "value", input: lang.Missing, want: "undefined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := lang.Inspect(fromExpr(tt.input)); got != tt.want {
				t.Errorf("fromExpr() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrapFunc(t *testing.T) {
	t.Parallel()

	join := native("join", func(sep string, parts ...string) string {
		return strings.Join(parts, sep)
	})

	v, err := join.Call(t.Context(), lang.String("-"), lang.String("a"), lang.Int(7))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if got := lang.Stringify(v); got != "a-7" {
		t.Errorf("Call() = %q, want a-7", got)
	}

	if want := []string{"string", "...string"}; !slices.Equal(join.Params, want) {
		t.Errorf("Params = %v, want %v", join.Params, want)
	}

	failing := native("failing", func() (int, error) { return 0, lang.ErrUnsupported })

	_, err = failing.Call(t.Context())
	if !errors.Is(err, lang.ErrUnsupported) {
		t.Errorf("Call() error = %v, want ErrUnsupported", err)
	}

	pred := native("pred", func(f func(string) bool, s string) bool { return f(s) })

	isA := lang.NewCallable("isA", func(_ context.Context, _ *lang.Callable, args []lang.Value) (lang.Value, error) {
		return lang.Bool(lang.Stringify(args[0]) == "a"), nil
	})

	v, err = pred.Call(t.Context(), isA, lang.String("a"))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if !lang.Truthy(v) {
		t.Errorf("Call() = %s, want true", lang.Inspect(v))
	}

	_, err = pred.Call(t.Context(), isA, lang.String("a"), lang.String("extra"))
	if !errors.Is(err, ErrArgument) {
		t.Errorf("Call() error = %v, want ErrArgument", err)
	}
}
