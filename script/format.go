package script

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/letbind/lang"
)

// Format writes prog in canonical source form. A positive indent nests
// blocks by that many spaces, one statement per line; zero writes the whole
// program on one line with statements separated by semicolons.
func (prog *Program) Format(_ context.Context, w io.Writer, indent int) error {
	f := &formatter{indent: indent}
	f.stmts(prog.Body, 0)

	if f.sb.Len() > 0 {
		f.sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, f.sb.String())

	return err
}

// FormatJSON writes the syntax tree of prog as JSON.
func (prog *Program) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	return writeJSON(w, prog.ToMap(), indent)
}

// FormatYAML writes the syntax tree of prog as YAML.
func (prog *Program) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	return writeYAML(ctx, w, prog.ToMap(), indent)
}

func writeYAML(ctx context.Context, w io.Writer, v any, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, v, opts...)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// String returns the source form of p.
func (p *Path) String() string {
	var sb strings.Builder

	sb.WriteString(p.Root)

	for _, k := range p.Keys {
		if k.Index != nil {
			sb.WriteString("[" + exprString(k.Index) + "]")
		} else {
			sb.WriteString("." + k.Name)
		}
	}

	return sb.String()
}

// FormatPattern returns the source form of a pattern whose defaults are
// script expressions.
func FormatPattern(p lang.Pattern) string {
	var f formatter

	f.pattern(p)

	return f.sb.String()
}

type formatter struct {
	sb     strings.Builder
	indent int
}

func exprString(x Expr) string {
	var f formatter

	f.expr(x, 0)

	return f.sb.String()
}

func (f *formatter) newline(depth int) {
	if f.indent <= 0 {
		f.sb.WriteByte(' ')

		return
	}

	f.sb.WriteByte('\n')
	f.sb.WriteString(strings.Repeat(" ", depth*f.indent))
}

func (f *formatter) stmts(body []Stmt, depth int) {
	for i, st := range body {
		if i > 0 {
			if f.indent <= 0 {
				f.sb.WriteString("; ")
			} else {
				f.newline(depth)
			}
		}

		f.stmt(st, depth)
	}
}

func (f *formatter) block(b *Block, depth int) {
	if len(b.Body) == 0 {
		f.sb.WriteString("{}")

		return
	}

	f.sb.WriteByte('{')
	f.newline(depth + 1)
	f.stmts(b.Body, depth+1)
	f.newline(depth)
	f.sb.WriteByte('}')
}

func (f *formatter) stmt(st Stmt, depth int) {
	switch s := st.(type) {
	case *Decl:
		f.sb.WriteString(s.Kind.String() + " ")

		for i, b := range s.Bindings {
			if i > 0 {
				f.sb.WriteString(", ")
			}

			f.pattern(b.Target)

			if b.Init != nil {
				f.sb.WriteString(" = ")
				f.expr(b.Init, depth)
			}
		}

	case *FuncDecl:
		f.function(s.Func, depth)

	case *Return:
		f.sb.WriteString("return")

		if s.Value != nil {
			f.sb.WriteByte(' ')
			f.expr(s.Value, depth)
		}

	case *Branch:
		if s.Continue {
			f.sb.WriteString("continue")
		} else {
			f.sb.WriteString("break")
		}

	case *If:
		f.sb.WriteString("if (")
		f.expr(s.Cond, depth)
		f.sb.WriteString(") ")
		f.stmt(s.Then, depth)

		if s.Else != nil {
			f.sb.WriteString(" else ")
			f.stmt(s.Else, depth)
		}

	case *For:
		f.sb.WriteString("for (")

		if s.Init != nil {
			f.stmt(s.Init, depth)
		}

		f.sb.WriteString("; ")

		if s.Test != nil {
			f.expr(s.Test, depth)
		}

		f.sb.WriteString("; ")

		if s.Update != nil {
			f.stmt(s.Update, depth)
		}

		f.sb.WriteString(") ")
		f.stmt(s.Body, depth)

	case *ForOf:
		f.sb.WriteString("for (" + s.Kind.String() + " ")
		f.pattern(s.Target)
		f.sb.WriteString(" of ")
		f.expr(s.Iter, depth)
		f.sb.WriteString(") ")
		f.stmt(s.Body, depth)

	case *Block:
		f.block(s, depth)

	case *Assign:
		f.pattern(s.Target)
		f.sb.WriteString(" = ")
		f.expr(s.Value, depth)

	case *ExprStmt:
		f.expr(s.X, depth)
	}
}

func (f *formatter) expr(x lang.Node, depth int) {
	switch x := x.(type) {
	case *Code:
		f.sb.WriteString(x.Text)

	case *TemplateLit:
		if x.Tag != nil {
			f.expr(x.Tag, depth)
		}

		f.sb.WriteByte('`')

		for i, seg := range x.Lit.Segments {
			f.sb.WriteString(seg.Raw)

			if i < len(x.Lit.Exprs) {
				f.sb.WriteString("${")
				f.expr(x.Lit.Exprs[i], depth)
				f.sb.WriteByte('}')
			}
		}

		f.sb.WriteByte('`')

	case *Func:
		f.function(x, depth)
	}
}

func (f *formatter) function(fn *Func, depth int) {
	if fn.Arrow {
		f.params(fn.Params)
		f.sb.WriteString(" => ")

		if fn.Result != nil {
			f.expr(fn.Result, depth)
		} else {
			f.block(fn.Body, depth)
		}

		return
	}

	f.sb.WriteString("function")

	if fn.Name != "" {
		f.sb.WriteString(" " + fn.Name)
	}

	f.params(fn.Params)
	f.sb.WriteByte(' ')
	f.block(fn.Body, depth)
}

func (f *formatter) params(p *lang.Params) {
	f.sb.WriteByte('(')

	if p != nil {
		for i, formal := range p.Formals() {
			if i > 0 {
				f.sb.WriteString(", ")
			}

			f.pattern(formal)
		}

		if r := p.Rest(); r != nil {
			if p.Len() > 0 {
				f.sb.WriteString(", ")
			}

			f.pattern(r)
		}
	}

	f.sb.WriteByte(')')
}

func (f *formatter) pattern(p lang.Pattern) {
	switch p := p.(type) {
	case *lang.Identifier:
		f.sb.WriteString(p.Name)
		f.defaultValue(p.Default)

	case *lang.AssignmentTarget:
		if s, ok := p.Ref.(fmt.Stringer); ok {
			f.sb.WriteString(s.String())
		}

		f.defaultValue(p.Default)

	case *lang.Rest:
		f.sb.WriteString("...")
		f.pattern(p.Target)

	case *lang.ArrayPattern:
		f.sb.WriteByte('[')

		for i, e := range p.Elements {
			if i > 0 {
				f.sb.WriteString(", ")
			}

			if e != lang.Hole {
				f.pattern(e)
			}
		}

		if p.Rest != nil {
			if len(p.Elements) > 0 {
				f.sb.WriteString(", ")
			}

			f.pattern(p.Rest)
		} else if n := len(p.Elements); n > 0 && p.Elements[n-1] == lang.Hole {
			f.sb.WriteByte(',')
		}

		f.sb.WriteByte(']')
		f.defaultValue(p.Default)

	case *lang.ObjectPattern:
		f.sb.WriteByte('{')

		for i, e := range p.Entries {
			if i > 0 {
				f.sb.WriteString(", ")
			}

			if id, ok := e.Target.(*lang.Identifier); ok && id.Name == e.Key {
				f.pattern(id)
			} else {
				f.sb.WriteString(propertyKey(e.Key) + ": ")
				f.pattern(e.Target)
			}

			f.defaultValue(e.Default)
		}

		if p.Rest != nil {
			if len(p.Entries) > 0 {
				f.sb.WriteString(", ")
			}

			f.pattern(p.Rest)
		}

		f.sb.WriteByte('}')
		f.defaultValue(p.Default)
	}
}

func (f *formatter) defaultValue(def lang.Node) {
	if def == nil {
		return
	}

	f.sb.WriteString(" = ")
	f.expr(def, 0)
}

// propertyKey quotes key unless it is an identifier or a decimal index.
func propertyKey(key string) string {
	if key == "" {
		return `""`
	}

	ident := true
	digits := true

	for i, r := range key {
		if r < '0' || r > '9' {
			digits = false
		}

		if i == 0 && !isIdentifierStart(r) || i > 0 && !isIdentifierContinue(r) {
			ident = false
		}
	}

	if ident || digits {
		return key
	}

	return fmt.Sprintf("%q", key)
}
