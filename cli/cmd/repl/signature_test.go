package repl

import (
	"slices"
	"strings"
	"testing"
)

func TestDetectFunctionCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  functionCall
	}{
		{name: "no_call", input: "a + b", want: functionCall{}},
		{name: "open_call", input: "f(", want: functionCall{name: "f", inCall: true}},
		{name: "second_arg", input: "f(a, b", want: functionCall{name: "f", argIndex: 1, inCall: true}},
		{name: "member_path", input: "path.cat(x, ", want: functionCall{name: "path.cat", argIndex: 1, inCall: true}},
		{name: "closed_inner_call", input: "f(g(1, 2), ", want: functionCall{name: "f", argIndex: 1, inCall: true}},
		{name: "inner_call", input: "f(a, g(1", want: functionCall{name: "g", inCall: true}},
		{name: "list_argument", input: "f([1, 2", want: functionCall{name: "f", inCall: true}},
		{name: "closed_call", input: "f(1)", want: functionCall{}},
		{name: "grouping", input: "(a + ", want: functionCall{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := detectFunctionCall(tt.input, len(tt.input)); got != tt.want {
				t.Errorf("detectFunctionCall(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestModel_Signature(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, "const add = (a, {b, c} = {}, ...rest) => a; let n = 1")

	tests := []struct {
		name   string
		callee string
		want   []string
		ok     bool
	}{
		{name: "user_function", callee: "add", want: []string{"a", "{b, c}", "...rest"}, ok: true},
		{name: "native_builtin", callee: "path.cat", want: []string{"...string"}, ok: true},
		{name: "callable_builtin", callee: "env", want: []string{"[name]"}, ok: true},
		{name: "expr_builtin", callee: "filter", want: []string{"array", "predicate"}, ok: true},
		{name: "not_callable", callee: "n"},
		{name: "unknown", callee: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := m.signature(tt.callee)
			if ok != tt.ok || !slices.Equal(got, tt.want) {
				t.Errorf("signature(%q) = %v, %v, want %v, %v", tt.callee, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRenderSignatureHint(t *testing.T) {
	t.Parallel()

	got := renderSignatureHint("f", []string{"a", "...rest"}, 3)

	for _, part := range []string{"f", "a", "...rest"} {
		if !strings.Contains(got, part) {
			t.Errorf("renderSignatureHint() = %q, missing %q", got, part)
		}
	}
}
