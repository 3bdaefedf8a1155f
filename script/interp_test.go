package script

import (
	"context"
	"errors"
	"testing"

	"github.com/ardnew/letbind/lang"
)

// globals runs src in a new interpreter and returns the inspected values of
// the named global bindings.
func globals(t *testing.T, src string, names ...string) map[string]string {
	t.Helper()

	in := New(WithProcessEnv([]string{}))

	_, err := in.Exec(t.Context(), src)
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	out := make(map[string]string, len(names))

	for _, name := range names {
		v, err := in.Global().Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", name, err)
		}

		out[name] = lang.Inspect(v)
	}

	return out
}

func TestInterpreter_Bindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "array_defaults_and_rest",
			input: "let [a, b = 2, ...rest] = [1]",
			want:  map[string]string{"a": "1", "b": "2", "rest": "[]"},
		},
		{
			name:  "array_holes",
			input: "const [, second, , fourth] = [1, 2, 3, 4, 5]",
			want:  map[string]string{"second": "2", "fourth": "4"},
		},
		{
			name:  "object_nested_default_and_rest",
			input: "const {x, y: {z} = {z: 5}, ...o} = {x: 1, p: 2, q: 3}",
			want:  map[string]string{"x": "1", "z": "5", "o": "{p: 2, q: 3}"},
		},
		{
			name:  "default_sees_earlier_binding",
			input: "const [a, b = a * 10] = [4]",
			want:  map[string]string{"a": "4", "b": "40"},
		},
		{
			name:  "swap",
			input: "let a = 1, b = 2\n[a, b] = [b, a]",
			want:  map[string]string{"a": "2", "b": "1"},
		},
		{
			name:  "compound_assignment",
			input: "let n = 2; n += 3; n *= 2; n--",
			want:  map[string]string{"n": "9"},
		},
		{
			name:  "nullish_assignment",
			input: "let a = null; let b = 1; a ??= 7; b ??= 8",
			want:  map[string]string{"a": "7", "b": "1"},
		},
		{
			name:  "member_assignment",
			input: "const o = {a: {b: 1}, l: [0, 0]}; o.a.b = 5; o.l[1] = 6; const r = o.a.b",
			want:  map[string]string{"r": "5", "o": "{a: {b: 5}, l: [0, 6]}"},
		},
		{
			name:  "var_hoisting",
			input: "x = 5; var x",
			want:  map[string]string{"x": "5"},
		},
		{
			name:  "var_in_block",
			input: "{ var inner = 3 }",
			want:  map[string]string{"inner": "3"},
		},
		{
			name:  "block_scope",
			input: "let a = 1; { let a = 2; b = a }; var b",
			want:  map[string]string{"a": "1", "b": "2"},
		},
		{
			name:  "function_hoisting",
			input: "const r = g(); function g() { return 7 }",
			want:  map[string]string{"r": "7"},
		},
		{
			name:  "named_function_expression",
			input: "const fact = function f(n) { return n <= 1 ? 1 : n * f(n - 1) }; const r = fact(5)",
			want:  map[string]string{"r": "120"},
		},
		{
			name:  "function_name_inferred",
			input: "const h = () => 1",
			want:  map[string]string{"h": "[function h]"},
		},
		{
			name:  "rest_parameter",
			input: "const f = (a, ...r) => r; const x = f(1, 2, 3)",
			want:  map[string]string{"x": "[2, 3]"},
		},
		{
			name:  "default_parameter",
			input: "function add(a, b = a + 1) { return a + b }; const x = add(2); const y = add(2, 5)",
			want:  map[string]string{"x": "5", "y": "7"},
		},
		{
			name:  "destructured_parameter",
			input: "const f = ({host, port = 80}) => `${host}:${port}`; const s = f({host: \"h\"})",
			want:  map[string]string{"s": `"h:80"`},
		},
		{
			name:  "template",
			input: "let name = \"w\"; const s = `hi ${name}!`",
			want:  map[string]string{"s": `"hi w!"`},
		},
		{
			name:  "raw_tag",
			input: "const s = raw`a\\nb`",
			want:  map[string]string{"s": `"a\\nb"`},
		},
		{
			name:  "raw_tag_invalid_escape",
			input: "const s = raw`\\unicode`",
			want:  map[string]string{"s": `"\\unicode"`},
		},
		{
			name:  "if_else",
			input: "let r = 0; if (r > 0) r = 1; else r = 2",
			want:  map[string]string{"r": "2"},
		},
		{
			name:  "for_loop",
			input: "let n = 0; for (let i = 0; i < 10; i++) { if (i == 5) break; if (i % 2 == 0) continue; n += 1 }",
			want:  map[string]string{"n": "2"},
		},
		{
			name:  "for_of_destructuring",
			input: "let sum = 0; for (const [k, v] of [[\"a\", 1], [\"b\", 2]]) { sum += v }",
			want:  map[string]string{"sum": "3"},
		},
		{
			name:  "for_of_var",
			input: "for (var last of [1, 2, 3]) {}",
			want:  map[string]string{"last": "3"},
		},
		{
			name:  "builtin_names_as_bindings",
			input: "let len = 3; const y = len + 1; let max = 10; const m = max * 2",
			want:  map[string]string{"y": "4", "m": "20"},
		},
		{
			name:  "builtin_names_as_functions",
			input: "function sum(a, b) { return a + b }; const s = sum(1, 2); const n = len([1, 2])",
			want:  map[string]string{"s": "3", "n": "2"},
		},
		{
			name:  "undefined_element_defaults",
			input: "let [a = 1] = [undefined]",
			want:  map[string]string{"a": "1"},
		},
		{
			name:  "undefined_result_defaults",
			input: "function g() {}; let [b = 2] = [g()]",
			want:  map[string]string{"b": "2"},
		},
		{
			name:  "undefined_argument_defaults",
			input: "function h(x = 3) { return x }; const c = h(undefined)",
			want:  map[string]string{"c": "3"},
		},
		{
			name:  "undefined_property_defaults",
			input: "let {p = 4} = {p: undefined}",
			want:  map[string]string{"p": "4"},
		},
		{
			name:  "null_never_defaults",
			input: "let [n = 5] = [null]; const k = undefined ?? 6",
			want:  map[string]string{"n": "null", "k": "6"},
		},
		{
			name:  "var_keeps_parameter",
			input: "function f(a) { var a; return a }; const r = f(5)",
			want:  map[string]string{"r": "5"},
		},
		{
			name:  "var_reassigns_parameter",
			input: "function f(a) { var a = a * 2; return a }; const r = f(5)",
			want:  map[string]string{"r": "10"},
		},
		{
			name:  "short_circuit_skips_uninitialized",
			input: "let f = () => true || later; const r = f(); let later = 1",
			want:  map[string]string{"r": "true"},
		},
		{
			name: "member_target_before_value",
			input: "const order = []\n" +
				"function key() { order[order.length] = \"key\"; return \"a\" }\n" +
				"function val() { order[order.length] = \"value\"; return 1 }\n" +
				"const o = {}\n" +
				"o[key()] = val()",
			want: map[string]string{"order": `["key", "value"]`, "o": "{a: 1}"},
		},
		{
			name:  "cyclic_list",
			input: "let a = [1]; a[0] = a; const s = `${a}`; const n = len(a)",
			want:  map[string]string{"a": "[[Circular]]", "s": `""`, "n": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			names := make([]string, 0, len(tt.want))
			for name := range tt.want {
				names = append(names, name)
			}

			got := globals(t, tt.input, names...)

			for name, want := range tt.want {
				if got[name] != want {
					t.Errorf("%s = %s, want %s", name, got[name], want)
				}
			}
		})
	}
}

func TestInterpreter_Closures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind string
		want string
	}{
		{name: "let_per_iteration", kind: "let", want: "[0, 1, 2]"},
		{name: "var_shared", kind: "var", want: "[3, 3, 3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := "let fs = [0, 0, 0]\n" +
				"for (" + tt.kind + " i = 0; i < 3; i++) { fs[i] = () => i }\n" +
				"const [f0, f1, f2] = fs\n" +
				"const r = [f0(), f1(), f2()]"

			got := globals(t, src, "r")
			if got["r"] != tt.want {
				t.Errorf("r = %s, want %s", got["r"], tt.want)
			}
		})
	}
}

func TestInterpreter_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		opts  []Option
		want  error
	}{
		{
			name:  "tdz_read",
			input: "let a = b; let b = 1",
			want:  lang.ErrUninitializedAccess,
		},
		{
			name:  "tdz_write",
			input: "b = 2; let b = 1",
			want:  lang.ErrUninitializedAccess,
		},
		{
			name:  "tdz_parameter_default",
			input: "function f(a = b, b = 1) { return a }; f()",
			want:  lang.ErrUninitializedAccess,
		},
		{
			name:  "tdz_self_reference",
			input: "const {a = a} = {}",
			want:  lang.ErrUninitializedAccess,
		},
		{
			name:  "const_reassignment",
			input: "const c = 1; c = 2",
			want:  lang.ErrImmutableViolation,
		},
		{
			name:  "builtin_reassignment",
			input: "env = 1",
			want:  lang.ErrImmutableViolation,
		},
		{
			name:  "duplicate_let",
			input: "let a = 1; let a = 2",
			want:  lang.ErrDuplicateDeclaration,
		},
		{
			name:  "let_after_var",
			input: "var a; let a = 2",
			want:  lang.ErrDuplicateDeclaration,
		},
		{
			name:  "undeclared_assignment",
			input: "y = 1",
			want:  lang.ErrUnresolved,
		},
		{
			name:  "undeclared_read",
			input: "z + 1",
			want:  lang.ErrUnresolved,
		},
		{
			name:  "not_iterable",
			input: "let [a] = 1",
			want:  lang.ErrNotIterable,
		},
		{
			name:  "not_destructurable",
			input: "let {a} = null",
			want:  lang.ErrNotDestructurable,
		},
		{
			name:  "for_of_not_iterable",
			input: "for (const x of 3) {}",
			want:  lang.ErrNotIterable,
		},
		{
			name:  "invalid_escape",
			input: "const s = `\\unicode`",
			want:  lang.ErrMalformedLiteral,
		},
		{
			name:  "object_rest_disabled",
			input: "const {...o} = {a: 1}",
			opts:  []Option{WithObjectRest(false)},
			want:  lang.ErrUnsupported,
		},
		{
			name:  "frozen_builtin_namespace",
			input: "path.cat = 1",
			want:  lang.ErrFrozen,
		},
		{
			name:  "member_of_scalar",
			input: "let n = 1; n.x = 2",
			want:  ErrNotAssignable,
		},
		{
			name:  "break_outside_loop",
			input: "break",
			want:  errControl,
		},
		{
			name:  "return_outside_function",
			input: "return 1",
			want:  errControl,
		},
		{
			name:  "continue_in_function",
			input: "function f() { continue }; f()",
			want:  errControl,
		},
		{
			name:  "var_redeclares_block_let",
			input: "{ let x = 1; var x = 2 }",
			want:  lang.ErrDuplicateDeclaration,
		},
		{
			name:  "nested_var_redeclares_block_const",
			input: "{ const x = 1; if (true) { var x = 2 } }",
			want:  lang.ErrDuplicateDeclaration,
		},
		{
			name:  "var_redeclares_loop_let",
			input: "for (let i = 0; i < 1; i++) { var i = 2 }",
			want:  lang.ErrDuplicateDeclaration,
		},
		{
			name:  "var_redeclares_for_of_const",
			input: "for (const x of [1]) { var x }",
			want:  lang.ErrDuplicateDeclaration,
		},
		{
			name:  "expression_compile",
			input: "let x = 1 +* 2",
			want:  ErrCompile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := New(tt.opts...)

			_, err := in.Exec(t.Context(), tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("Exec() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInterpreter_Completion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "expression", input: "1 + 2", want: "3"},
		{name: "assignment", input: "let a; a = \"x\"", want: `"x"`},
		{name: "declaration_only", input: "let a = 1", want: "undefined"},
		{name: "last_of_many", input: "let a = 2; a * 3; let b = 0", want: "6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := New().Exec(t.Context(), tt.input)
			if err != nil {
				t.Fatalf("Exec() error = %v", err)
			}

			if got := lang.Inspect(v); got != tt.want {
				t.Errorf("Exec() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInterpreter_Persistence(t *testing.T) {
	t.Parallel()

	in := New()

	steps := []string{
		"let count = 1",
		"count += 1",
		"const double = () => count * 2",
	}

	for _, src := range steps {
		_, err := in.Exec(t.Context(), src)
		if err != nil {
			t.Fatalf("Exec(%q) error = %v", src, err)
		}
	}

	v, err := in.Exec(t.Context(), "double()")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if got := lang.Inspect(v); got != "4" {
		t.Errorf("double() = %s, want 4", got)
	}

	// A failed run leaves earlier bindings in place.
	_, err = in.Exec(t.Context(), "count = missing")
	if err == nil {
		t.Fatal("Exec() error = nil, want error")
	}

	v, err = in.Global().Resolve("count")
	if err != nil || lang.Inspect(v) != "2" {
		t.Errorf("count = %v (%v), want 2", v, err)
	}
}

func TestInterpreter_Cancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := New().Exec(ctx, "let a = 1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Exec() error = %v, want context.Canceled", err)
	}
}
