package lang_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ardnew/letbind/lang"
)

func helloTemplate(t *testing.T) *lang.Template {
	t.Helper()

	tpl, err := lang.NewTemplate(
		[]lang.Segment{lang.Text("Hello ", "Hello "), lang.Text("!", "!")},
		[]lang.Node{ref("who")},
	)
	if err != nil {
		t.Fatalf("NewTemplate() error = %v", err)
	}

	return tpl
}

func whoScope() *lang.Scope {
	s := lang.NewScope(nil, lang.Global)
	_ = s.Declare("who", lang.ImmutableBlock)
	_ = s.Initialize("who", lang.String("World"))

	return s
}

func TestTemplate_Evaluate(t *testing.T) {
	t.Parallel()

	got, err := helloTemplate(t).Evaluate(t.Context(), &testEval{}, whoScope())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if got != "Hello World!" {
		t.Errorf("expected %q, got %q", "Hello World!", got)
	}
}

func TestTemplate_TagContract(t *testing.T) {
	t.Parallel()

	var (
		calls int
		args  []lang.Value
	)

	tag := lang.NewCallable("capture", func(_ context.Context, _ *lang.Callable, a []lang.Value) (lang.Value, error) {
		calls++
		args = a

		return lang.Int(7), nil
	})

	tpl := helloTemplate(t)

	got, err := tpl.Tag(t.Context(), &testEval{}, whoScope(), tag)
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}

	if calls != 1 || len(args) != 2 {
		t.Fatalf("expected one call with 2 arguments, got %d calls with %d", calls, len(args))
	}

	if !lang.Equal(got, lang.Int(7)) {
		t.Errorf("expected tag result returned verbatim, got %s", lang.Inspect(got))
	}

	cooked, ok := args[0].(*lang.List)
	if !ok || !cooked.Frozen() {
		t.Fatalf("expected frozen cooked list, got %s", lang.Inspect(args[0]))
	}

	if want := []any{"Hello ", "!"}; !reflect.DeepEqual(lang.Native(cooked), want) {
		t.Errorf("expected cooked %v, got %v", want, lang.Native(cooked))
	}

	raw, ok := lang.Get(cooked, "raw").(*lang.List)
	if !ok || raw.Len() != cooked.Len() {
		t.Errorf("expected raw list of length %d, got %s", cooked.Len(), lang.Inspect(lang.Get(cooked, "raw")))
	}

	if !lang.Equal(args[1], lang.String("World")) {
		t.Errorf("expected trailing argument \"World\", got %s", lang.Inspect(args[1]))
	}

	if err := cooked.Append(lang.Null); !errors.Is(err, lang.ErrFrozen) {
		t.Errorf("Append() error = %v, want %v", err, lang.ErrFrozen)
	}

	if _, err := tpl.Tag(t.Context(), &testEval{}, whoScope(), tag); err != nil {
		t.Fatalf("Tag() error = %v", err)
	}

	if args[0] != lang.Value(cooked) {
		t.Error("expected the same strings list on every tag call")
	}
}

func TestTemplate_Reconstruct(t *testing.T) {
	t.Parallel()

	got, err := helloTemplate(t).Tag(t.Context(), &testEval{}, whoScope(), lang.Reconstruct)
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}

	if !lang.Equal(got, lang.String("Hello World!")) {
		t.Errorf("expected \"Hello World!\", got %s", lang.Inspect(got))
	}
}

func TestTemplate_RawTag(t *testing.T) {
	t.Parallel()

	tpl, _ := lang.NewTemplate(
		[]lang.Segment{lang.Text("a\tb ", `a\tb `), {Raw: `\q`}},
		[]lang.Node{lit(1)},
	)

	got, err := tpl.Tag(t.Context(), &testEval{}, nil, lang.RawTag)
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}

	if want := `a\tb 1\q`; !lang.Equal(got, lang.String(want)) {
		t.Errorf("expected %q, got %s", want, lang.Inspect(got))
	}

	if _, err := tpl.Evaluate(t.Context(), &testEval{}, nil); !errors.Is(err, lang.ErrMalformedLiteral) {
		t.Errorf("Evaluate() error = %v, want %v", err, lang.ErrMalformedLiteral)
	}

	if v := tpl.Strings().At(1); !lang.IsMissing(v) {
		t.Errorf("expected Missing cooked segment, got %s", lang.Inspect(v))
	}
}

func TestTemplate_EvaluationOrder(t *testing.T) {
	t.Parallel()

	s := lang.NewScope(nil, lang.Global)
	_ = s.Declare("n", lang.MutableBlock)
	_ = s.Initialize("n", lang.Int(0))

	bump := node(func(_ context.Context, scope *lang.Scope) (lang.Value, error) {
		v, _ := scope.Resolve("n")
		next := lang.Int(lang.Native(v).(int64) + 1)

		return next, scope.Assign("n", next)
	})

	tpl, _ := lang.NewTemplate(
		[]lang.Segment{lang.Text("", ""), lang.Text("-", "-"), lang.Text("-", "-"), lang.Text("", "")},
		[]lang.Node{bump, bump, bump},
	)

	got, err := tpl.Evaluate(t.Context(), &testEval{}, s)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if got != "1-2-3" {
		t.Errorf("expected %q, got %q", "1-2-3", got)
	}
}

func TestTemplate_Errors(t *testing.T) {
	t.Parallel()

	if _, err := lang.NewTemplate([]lang.Segment{lang.Text("", "")}, []lang.Node{lit(1)}); !errors.Is(err, lang.ErrMalformedLiteral) {
		t.Errorf("NewTemplate() error = %v, want %v", err, lang.ErrMalformedLiteral)
	}

	if _, err := helloTemplate(t).Tag(t.Context(), &testEval{}, whoScope(), lang.Int(1)); !errors.Is(err, lang.ErrNotCallable) {
		t.Errorf("Tag() error = %v, want %v", err, lang.ErrNotCallable)
	}

	_, err := helloTemplate(t).Evaluate(t.Context(), &testEval{}, lang.NewScope(nil, lang.Global))
	if !errors.Is(err, lang.ErrUnresolved) {
		t.Errorf("Evaluate() error = %v, want %v", err, lang.ErrUnresolved)
	}
}
