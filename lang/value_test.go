package lang_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/ardnew/letbind/lang"
)

func TestStringify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value lang.Value
		want  string
	}{
		{"missing", lang.Missing, "undefined"},
		{"null", lang.Null, "null"},
		{"bool", lang.Bool(true), "true"},
		{"int", lang.Int(-12), "-12"},
		{"float_integral", lang.Float(3), "3"},
		{"float", lang.Float(0.5), "0.5"},
		{"nan", lang.Float(math.NaN()), "NaN"},
		{"inf", lang.Float(math.Inf(-1)), "-Infinity"},
		{"string", lang.String("x"), "x"},
		{"list", lang.NewList(lang.Int(1), lang.Null, lang.String("a")), "1,,a"},
		{"object", lang.NewObject(), "[object Object]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := lang.Stringify(tt.value); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGet_AbsenceIsMissing(t *testing.T) {
	t.Parallel()

	for _, v := range []lang.Value{
		lang.NewObject(), lang.NewList(), lang.Int(1), lang.Null, lang.Missing,
		lang.String("ab"),
	} {
		if got := lang.Get(v, "nope"); !lang.IsMissing(got) {
			t.Errorf("Get(%s) expected Missing, got %s", lang.Inspect(v), lang.Inspect(got))
		}
	}

	if got := lang.Get(lang.String("ab"), "length"); !lang.Equal(got, lang.Int(2)) {
		t.Errorf("expected length 2, got %s", lang.Inspect(got))
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	for v, want := range map[string]bool{
		"0": false, "1": true, "''": false, "'a'": true, "null": false,
		"missing": false, "[]": true,
	} {
		var x lang.Value

		switch v {
		case "0":
			x = lang.Int(0)
		case "1":
			x = lang.Int(1)
		case "''":
			x = lang.String("")
		case "'a'":
			x = lang.String("a")
		case "null":
			x = lang.Null
		case "missing":
			x = lang.Missing
		case "[]":
			x = lang.NewList()
		}

		if got := lang.Truthy(x); got != want {
			t.Errorf("Truthy(%s): expected %v, got %v", v, want, got)
		}
	}
}

func TestFromNative(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"b": []int{1, 2},
		"a": map[string]string{"k": "v"},
		"c": uint8(3),
		"d": nil,
	}

	v := lang.FromNative(in)

	o, ok := v.(*lang.Object)
	if !ok {
		t.Fatalf("expected object, got %s", lang.Inspect(v))
	}

	if want := []string{"a", "b", "c", "d"}; !reflect.DeepEqual(o.Keys(), want) {
		t.Errorf("expected sorted keys %v, got %v", want, o.Keys())
	}

	want := map[string]any{
		"a": map[string]any{"k": "v"},
		"b": []any{int64(1), int64(2)},
		"c": int64(3),
		"d": nil,
	}

	if got := lang.Native(v); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	if !lang.Equal(lang.Int(1), lang.Float(1)) {
		t.Error("expected 1 == 1.0")
	}

	if lang.Equal(lang.Null, lang.Missing) {
		t.Error("expected null and Missing to differ")
	}

	if !lang.Equal(list(1, []any{2}), list(1, []any{2})) {
		t.Error("expected structurally equal lists")
	}

	if lang.Equal(lang.ObjectOf("a", 1), lang.ObjectOf("a", 2)) {
		t.Error("expected objects with different values to differ")
	}
}

func TestCyclicContainers(t *testing.T) {
	t.Parallel()

	l := lang.NewList(lang.Int(1))
	if err := l.Set(0, l); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	o := lang.NewObject()
	if err := o.Set("self", o); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := o.Set("n", lang.Int(2)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "stringify_list", got: lang.Stringify(l), want: ""},
		{name: "inspect_list", got: lang.Inspect(l), want: "[[Circular]]"},
		{name: "inspect_object", got: lang.Inspect(o), want: "{self: [Circular], n: 2}"},
		{name: "native_list", got: lang.Native(l), want: []any{nil}},
		{
			name: "native_object",
			got:  lang.Native(o),
			want: map[string]any{"self": nil, "n": int64(2)},
		},
		{name: "equal_self", got: lang.Equal(l, l), want: true},
		{name: "equal_other", got: lang.Equal(l, lang.NewList(lang.Int(1))), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, tt.got)
			}
		})
	}
}
