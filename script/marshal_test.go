package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/letbind/lang"
)

func TestWriteBindings(t *testing.T) {
	t.Parallel()

	const src = "let a = 1; const s = \"x\"; var l = [true, null]; const f = () => 1"

	tests := []struct {
		name   string
		format string
		indent int
		want   string
	}{
		{
			name:   "native",
			format: OutputNative,
			want: "var l = [true, null]\n" +
				"let a = 1\n" +
				"const s = \"x\"\n" +
				"const f = [function f]\n",
		},
		{
			name:   "json",
			format: OutputJSON,
			want:   `{"a":1,"f":"function f() { [native code] }","l":[true,null],"s":"x"}` + "\n",
		},
		{
			name:   "json_indented",
			format: OutputJSON,
			indent: 2,
			want:   "{\n  \"a\": 1,\n  \"f\": \"function f() { [native code] }\",\n  \"l\": [\n    true,\n    null\n  ],\n  \"s\": \"x\"\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := New()

			_, err := in.Exec(t.Context(), src)
			if err != nil {
				t.Fatalf("Exec() error = %v", err)
			}

			var buf bytes.Buffer

			err = WriteBindings(t.Context(), &buf, in.Global(), tt.format, tt.indent)
			if err != nil {
				t.Fatalf("WriteBindings() error = %v", err)
			}

			if buf.String() != tt.want {
				t.Errorf("WriteBindings() =\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteBindings_Uninitialized(t *testing.T) {
	t.Parallel()

	in := New()

	_, err := in.Exec(t.Context(), "let a = b; let b = 1")
	if err == nil {
		t.Fatal("Exec() error = nil, want error")
	}

	var buf bytes.Buffer

	err = WriteBindings(t.Context(), &buf, in.Global(), OutputNative, 0)
	if err != nil {
		t.Fatalf("WriteBindings() error = %v", err)
	}

	want := "let a = <uninitialized>\nlet b = <uninitialized>\n"
	if buf.String() != want {
		t.Errorf("WriteBindings() = %q, want %q", buf.String(), want)
	}

	buf.Reset()

	err = WriteBindings(t.Context(), &buf, in.Global(), OutputJSON, 0)
	if err != nil {
		t.Fatalf("WriteBindings() error = %v", err)
	}

	if buf.String() != "{}\n" {
		t.Errorf("WriteBindings() = %q, want {}", buf.String())
	}
}

func TestWriteBindings_YAML(t *testing.T) {
	t.Parallel()

	in := New()

	_, err := in.Exec(t.Context(), "const {name, tags: [first]} = {name: \"alice\", tags: [\"ops\"]}")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	var buf bytes.Buffer

	err = WriteBindings(t.Context(), &buf, in.Global(), OutputYAML, 2)
	if err != nil {
		t.Fatalf("WriteBindings() error = %v", err)
	}

	for _, line := range []string{"first: ops", "name: alice"} {
		if !strings.Contains(buf.String(), line) {
			t.Errorf("WriteBindings() missing %q:\n%s", line, buf.String())
		}
	}
}

func TestWriteBindings_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := WriteBindings(t.Context(), &bytes.Buffer{}, New().Global(), "xml", 0)
	if !errors.Is(err, ErrArgument) {
		t.Errorf("WriteBindings() error = %v, want ErrArgument", err)
	}
}

func TestWriteValue(t *testing.T) {
	t.Parallel()

	v := lang.ObjectOf("k", []any{1, "two"})

	tests := []struct {
		format string
		want   string
	}{
		{format: OutputNative, want: "{k: [1, \"two\"]}\n"},
		{format: OutputJSON, want: "{\"k\":[1,\"two\"]}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			err := WriteValue(t.Context(), &buf, v, tt.format, 0)
			if err != nil {
				t.Fatalf("WriteValue() error = %v", err)
			}

			if buf.String() != tt.want {
				t.Errorf("WriteValue() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestProgram_MarshalJSON(t *testing.T) {
	t.Parallel()

	prog, err := ParseString(t.Context(), "for (const [k, v] of xs) { if (!v) continue }")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	data, err := json.Marshal(prog)
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	var got struct {
		Body []struct {
			Type   string `json:"type"`
			Kind   string `json:"kind"`
			Target string `json:"target"`
			Iter   string `json:"iter"`
			Body   struct {
				Type string           `json:"type"`
				Body []map[string]any `json:"body"`
			} `json:"body"`
		} `json:"body"`
	}

	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if len(got.Body) != 1 {
		t.Fatalf("body = %s", data)
	}

	loop := got.Body[0]
	if loop.Type != "for-of" || loop.Kind != "const" || loop.Target != "[k, v]" || loop.Iter != "xs" {
		t.Errorf("loop = %+v", loop)
	}

	if loop.Body.Type != "block" || len(loop.Body.Body) != 1 || loop.Body.Body[0]["type"] != "if" {
		t.Errorf("loop body = %+v", loop.Body)
	}
}
