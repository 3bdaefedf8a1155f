package script

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/ardnew/letbind/lang"
)

// MarshalJSON implements json.Marshaler for Program.
func (prog *Program) MarshalJSON() ([]byte, error) {
	return json.Marshal(prog.ToMap())
}

// ToMap converts the syntax tree of prog to native Go maps and slices.
// Patterns and expressions appear in their source form.
func (prog *Program) ToMap() map[string]any {
	return map[string]any{"body": stmtList(prog.Body)}
}

func stmtList(body []Stmt) []any {
	out := make([]any, len(body))
	for i, st := range body {
		out[i] = stmtMap(st)
	}

	return out
}

func stmtMap(st Stmt) map[string]any {
	m := map[string]any{"pos": st.Pos().String()}

	switch s := st.(type) {
	case *Decl:
		m["type"] = s.Kind.String()

		bindings := make([]any, len(s.Bindings))
		for i, b := range s.Bindings {
			bm := map[string]any{"target": FormatPattern(b.Target)}
			if b.Init != nil {
				bm["init"] = exprValue(b.Init)
			}

			bindings[i] = bm
		}

		m["bindings"] = bindings

	case *FuncDecl:
		m["type"] = "function"
		maps.Copy(m, funcMap(s.Func))

	case *Return:
		m["type"] = "return"

		if s.Value != nil {
			m["value"] = exprValue(s.Value)
		}

	case *Branch:
		m["type"] = "break"
		if s.Continue {
			m["type"] = "continue"
		}

	case *If:
		m["type"] = "if"
		m["cond"] = exprValue(s.Cond)
		m["then"] = stmtMap(s.Then)

		if s.Else != nil {
			m["else"] = stmtMap(s.Else)
		}

	case *For:
		m["type"] = "for"

		if s.Init != nil {
			m["init"] = stmtMap(s.Init)
		}

		if s.Test != nil {
			m["test"] = exprValue(s.Test)
		}

		if s.Update != nil {
			m["update"] = stmtMap(s.Update)
		}

		m["body"] = stmtMap(s.Body)

	case *ForOf:
		m["type"] = "for-of"
		m["kind"] = s.Kind.String()
		m["target"] = FormatPattern(s.Target)
		m["iter"] = exprValue(s.Iter)
		m["body"] = stmtMap(s.Body)

	case *Block:
		m["type"] = "block"
		m["body"] = stmtList(s.Body)

	case *Assign:
		m["type"] = "assign"
		m["target"] = FormatPattern(s.Target)
		m["value"] = exprValue(s.Value)

	case *ExprStmt:
		m["type"] = "expr"
		m["value"] = exprValue(s.X)
	}

	return m
}

// exprValue returns the source of x, or a map for function literals.
func exprValue(x Expr) any {
	if fn, ok := x.(*Func); ok {
		return funcMap(fn)
	}

	return exprString(x)
}

func funcMap(fn *Func) map[string]any {
	m := map[string]any{"arrow": fn.Arrow}

	if fn.Name != "" {
		m["name"] = fn.Name
	}

	var params []any

	if fn.Params != nil {
		for _, p := range fn.Params.Formals() {
			params = append(params, FormatPattern(p))
		}

		if r := fn.Params.Rest(); r != nil {
			params = append(params, FormatPattern(r))
		}
	}

	m["params"] = params

	if fn.Result != nil {
		m["result"] = exprValue(fn.Result)
	} else if fn.Body != nil {
		m["body"] = stmtList(fn.Body.Body)
	}

	return m
}

// Export converts v to data that encodes as JSON or YAML. Callables and
// streams become their string forms. A container nested in itself exports
// as nil where it recurs.
func Export(v lang.Value) any { return export(v, make(map[lang.Value]struct{})) }

func export(v lang.Value, seen map[lang.Value]struct{}) any {
	switch v := v.(type) {
	case *lang.List:
		if _, ok := seen[v]; ok {
			return nil
		}

		seen[v] = struct{}{}
		defer delete(seen, v)

		out := make([]any, 0, v.Len())
		for x := range v.All() {
			out = append(out, export(x, seen))
		}

		return out

	case *lang.Object:
		if _, ok := seen[v]; ok {
			return nil
		}

		seen[v] = struct{}{}
		defer delete(seen, v)

		out := make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			x, _ := v.Lookup(k)
			out[k] = export(x, seen)
		}

		return out

	case *lang.Callable, *lang.Stream:
		return lang.Stringify(v)
	}

	return lang.Native(v)
}

// Output formats for binding dumps.
const (
	OutputNative = "native"
	OutputJSON   = "json"
	OutputYAML   = "yaml"
)

// Outputs returns the supported binding dump formats.
func Outputs() []string { return []string{OutputNative, OutputJSON, OutputYAML} }

// BindingsMap returns the initialized bindings declared in scope itself as
// exported data.
func BindingsMap(scope *lang.Scope) map[string]any {
	out := make(map[string]any)

	for b := range scope.Bindings() {
		if b.State == lang.Initialized {
			out[b.Name] = Export(b.Value)
		}
	}

	return out
}

// WriteBindings writes the bindings declared in scope itself in format:
// native writes one "kind name = value" line per binding in declaration
// order; json and yaml write an object keyed by name.
func WriteBindings(ctx context.Context, w io.Writer, scope *lang.Scope, format string, indent int) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, BindingsMap(scope), indent)

	case OutputYAML:
		return writeYAML(ctx, w, BindingsMap(scope), indent)

	case OutputNative, "":
		for b := range scope.Bindings() {
			value := "<uninitialized>"
			if b.State == lang.Initialized {
				value = lang.Inspect(b.Value)
			}

			_, err := fmt.Fprintf(w, "%s %s = %s\n", b.Kind, b.Name, value)
			if err != nil {
				return err
			}
		}

		return nil
	}

	return ErrArgument.With(slog.String("format", format))
}

// WriteValue writes a single value in format.
func WriteValue(ctx context.Context, w io.Writer, v lang.Value, format string, indent int) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, Export(v), indent)

	case OutputYAML:
		return writeYAML(ctx, w, Export(v), indent)

	case OutputNative, "":
		_, err := fmt.Fprintln(w, lang.Inspect(v))

		return err
	}

	return ErrArgument.With(slog.String("format", format))
}

func writeJSON(w io.Writer, v any, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
