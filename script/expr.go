package script

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	exprparser "github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/log"
)

// program is the analysis of an expression shared by every compilation of
// it: the identifiers it reads, the engine builtins it calls and, for plain
// member paths, the path itself.
type program struct {
	once     sync.Once
	src      string
	free     []string
	calls    []string
	declared map[string]bool
	path     []string // non-nil when the expression is a plain member path
	err      error

	// variants holds the compiled program per set of builtin names the
	// calling scope shadows.
	variants sync.Map
}

type variant struct {
	once sync.Once
	prog *vm.Program
	err  error
}

// programs caches analyzed expressions by source hash.
//
//nolint:gochecknoglobals
var programs sync.Map

const (
	// resolveName is the environment function free identifiers are rewritten
	// to call, so that each is resolved only when evaluated.
	resolveName = "$resolve"
	// nullishName unwraps undefined where the engine tests for nil.
	nullishName = "$nullish"
)

//nolint:gochecknoglobals
var resolvePrototype = func(string) (any, error) { return nil, nil }

// compile returns the cached analysis of src, parsing it once.
func compile(ctx context.Context, logger log.Logger, src string) (*program, error) {
	key := xxh3.HashString(src)

	v, hit := programs.LoadOrStore(key, &program{src: src})

	p, ok := v.(*program)
	if !ok {
		return nil, ErrCompile.With(slog.String("issue", "invalid program cache entry"))
	}

	logger.TraceContext(ctx, "program lookup",
		slog.String("source", src),
		slog.Bool("cache_hit", hit),
	)

	p.once.Do(func() {
		tree, err := exprparser.Parse(src)
		if err != nil {
			p.err = ErrCompile.Wrap(err).With(slog.String("source", src))

			return
		}

		// ast.Walk visits children first, so declarations are gathered in a
		// pass of their own.
		fv := &freeVars{declared: make(map[string]bool)}
		ast.Walk(&tree.Node, declarations(fv.declared))
		ast.Walk(&tree.Node, fv)

		p.free = fv.names
		p.calls = fv.calls
		p.declared = fv.declared
		p.path = memberPath(tree.Node)
	})

	return p, p.err
}

// compiled returns the program compiled for the builtin names in p.calls
// that scope binds. Those calls are routed to the bindings instead of the
// engine builtins.
func (p *program) compiled(scope *lang.Scope) (*vm.Program, error) {
	var shadow []string

	for _, name := range p.calls {
		if scope.Has(name) {
			shadow = append(shadow, name)
		}
	}

	v, _ := p.variants.LoadOrStore(strings.Join(shadow, ","), new(variant))

	c, ok := v.(*variant)
	if !ok {
		return nil, ErrCompile.With(slog.String("issue", "invalid program cache entry"))
	}

	c.once.Do(func() {
		env := map[string]any{resolveName: resolvePrototype}

		opts := []expr.Option{
			expr.Env(env),
			expr.AllowUndefinedVariables(),
			expr.Function(nullishName, nullish),
			expr.Patch(lookups{declared: p.declared}),
		}

		for _, name := range shadow {
			env[name] = nil
			opts = append(opts, expr.DisableBuiltin(name))
		}

		var err error

		c.prog, err = expr.Compile(p.src, opts...)
		if err != nil {
			c.err = ErrCompile.Wrap(err).With(slog.String("source", p.src))
		}
	})

	return c.prog, c.err
}

// freeVars collects the identifiers an expression reads from its
// environment, skipping names it declares itself with let, and the engine
// builtins it calls.
type freeVars struct {
	names    []string
	calls    []string
	declared map[string]bool
}

// declarations records the names an expression declares with let.
type declarations map[string]bool

// Visit implements ast.Visitor for declarations.
func (d declarations) Visit(node *ast.Node) {
	if n, ok := (*node).(*ast.VariableDeclaratorNode); ok {
		d[n.Name] = true
	}
}

// Visit implements ast.Visitor for freeVars.
func (f *freeVars) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BuiltinNode:
		if !slices.Contains(f.calls, n.Name) {
			f.calls = append(f.calls, n.Name)
		}

	case *ast.IdentifierNode:
		if !f.declared[n.Value] && !strings.HasPrefix(n.Value, "$") {
			f.add(n.Value)
		}
	}
}

func (f *freeVars) add(name string) {
	if !slices.Contains(f.names, name) {
		f.names = append(f.names, name)
	}
}

// lookups rewrites every free identifier into a call of [resolveName], and
// wraps the operands the engine compares with nil in [nullishName].
type lookups struct {
	declared map[string]bool
}

// Visit implements ast.Visitor for lookups.
func (l lookups) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if l.declared[n.Value] || strings.HasPrefix(n.Value, "$") {
			return
		}

		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: resolveName},
			Arguments: []ast.Node{&ast.StringNode{Value: n.Value}},
		})

	case *ast.BinaryNode:
		switch n.Operator {
		case "??":
			n.Left = unwrap(n.Left)

		case "==", "!=":
			if _, ok := n.Right.(*ast.NilNode); ok {
				n.Left = unwrap(n.Left)
			}

			if _, ok := n.Left.(*ast.NilNode); ok {
				n.Right = unwrap(n.Right)
			}
		}

	case *ast.MemberNode:
		if n.Optional {
			n.Node = unwrap(n.Node)
		}
	}
}

func unwrap(node ast.Node) ast.Node {
	return &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: nullishName},
		Arguments: []ast.Node{node},
	}
}

// nullish returns nil for undefined and its argument otherwise.
func nullish(args ...any) (any, error) {
	if v, ok := args[0].(lang.Value); ok && lang.IsMissing(v) {
		return nil, nil
	}

	return args[0], nil
}

// memberPath returns the identifier and static property names of an
// expression such as a.b.c, or nil for anything else.
func memberPath(node ast.Node) []string {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		return []string{n.Value}

	case *ast.MemberNode:
		if n.Optional || n.Method {
			return nil
		}

		prop, ok := n.Property.(*ast.StringNode)
		if !ok {
			return nil
		}

		base := memberPath(n.Node)
		if base == nil {
			return nil
		}

		return append(base, prop.Value)
	}

	return nil
}

// run evaluates the program against the bindings visible from scope. Free
// identifiers are resolved as evaluation reaches them, so an operand that
// is never evaluated never reads its binding.
func (p *program) run(ctx context.Context, scope *lang.Scope) (lang.Value, error) {
	if p.path != nil {
		v, err := scope.Resolve(p.path[0])
		if err != nil {
			return nil, err
		}

		for _, key := range p.path[1:] {
			v = lang.Get(v, key)
		}

		return v, nil
	}

	prog, err := p.compiled(scope)
	if err != nil {
		return nil, err
	}

	b := &bridge{ctx: ctx}

	env := map[string]any{
		resolveName: func(name string) (any, error) {
			v, err := scope.Resolve(name)
			if err != nil {
				if b.err == nil {
					b.err = err
				}

				return nil, err
			}

			return b.toExpr(v), nil
		},
	}

	out, err := vm.Run(prog, env)
	if err != nil {
		if b.err != nil {
			return nil, b.err
		}

		var le *lang.Error
		if errors.As(err, &le) {
			return nil, le
		}

		return nil, ErrEval.Wrap(err)
	}

	return fromExpr(out), nil
}

// exprFunc is the form callables take inside the expression engine.
type exprFunc = func(args ...any) (any, error)

// bridge converts values for one evaluation and remembers the first error
// raised by a callable, which the expression engine reports only as text.
type bridge struct {
	ctx context.Context //nolint:containedctx
	err error
}

// toExpr converts v to the plain data the expression engine operates on.
// Callables become Go functions bound to the bridge context; streams and
// undefined are passed opaquely. A container nested in itself is converted
// to nil where it recurs.
func (b *bridge) toExpr(v lang.Value) any {
	return b.convert(v, make(map[lang.Value]struct{}))
}

func (b *bridge) convert(v lang.Value, seen map[lang.Value]struct{}) any {
	switch v := v.(type) {
	case nil:
		return lang.Missing

	case *lang.Callable:
		return exprFunc(func(args ...any) (any, error) {
			in := make([]lang.Value, len(args))
			for i, a := range args {
				in[i] = fromExpr(a)
			}

			out, err := v.Call(b.ctx, in...)
			if err != nil {
				if b.err == nil {
					b.err = err
				}

				return nil, err
			}

			return b.toExpr(out), nil
		})

	case *lang.List:
		if _, ok := seen[v]; ok {
			return nil
		}

		seen[v] = struct{}{}
		defer delete(seen, v)

		out := make([]any, 0, v.Len())
		for x := range v.All() {
			out = append(out, b.convert(x, seen))
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
			out[k] = b.convert(x, seen)
		}

		return out

	case *lang.Stream:
		return v
	}

	if lang.IsMissing(v) {
		return lang.Missing
	}

	return lang.Native(v)
}

// fromExpr converts an expression engine result to a value. Go functions
// become callables.
func fromExpr(x any) lang.Value {
	switch x := x.(type) {
	case lang.Value:
		return x

	case []any:
		items := make([]lang.Value, len(x))
		for i, e := range x {
			items[i] = fromExpr(e)
		}

		return lang.NewList(items...)

	case map[string]any:
		o := lang.NewObject()
		for _, k := range slices.Sorted(maps.Keys(x)) {
			_ = o.Set(k, fromExpr(x[k]))
		}

		return o
	}

	if rv := reflect.ValueOf(x); rv.Kind() == reflect.Func && !rv.IsNil() {
		return wrapFunc(rv)
	}

	return lang.FromNative(x)
}

// wrapFunc adapts an arbitrary Go function to a callable. Arguments are
// converted to the function's parameter types where possible, and a
// trailing error result is returned as the call error.
func wrapFunc(fn reflect.Value) *lang.Callable {
	ft := fn.Type()

	c := lang.NewCallable("", func(ctx context.Context, _ *lang.Callable, args []lang.Value) (lang.Value, error) {
		in := make([]reflect.Value, 0, len(args))

		for i, a := range args {
			var want reflect.Type

			switch {
			case ft.IsVariadic() && i >= ft.NumIn()-1:
				want = ft.In(ft.NumIn() - 1).Elem()
			case i < ft.NumIn():
				want = ft.In(i)
			default:
				return nil, ErrArgument.With(slog.Int("want", ft.NumIn()), slog.Int("got", len(args)))
			}

			arg, err := convertArg(ctx, a, want)
			if err != nil {
				return nil, err
			}

			in = append(in, arg)
		}

		for len(in) < ft.NumIn() && (!ft.IsVariadic() || len(in) < ft.NumIn()-1) {
			in = append(in, reflect.Zero(ft.In(len(in))))
		}

		out := fn.Call(in)

		if n := len(out); n > 0 && ft.Out(n-1) == errorType {
			if err, _ := out[n-1].Interface().(error); err != nil {
				return nil, err
			}

			out = out[:n-1]
		}

		if len(out) == 0 {
			return lang.Missing, nil
		}

		return fromExpr(out[0].Interface()), nil
	})

	c.Params = typeLabels(ft)

	return c
}

// typeLabels names the parameters of ft by their kind, since reflection
// cannot recover parameter names.
func typeLabels(ft reflect.Type) []string {
	labels := make([]string, ft.NumIn())

	for i := range labels {
		t := ft.In(i)

		if ft.IsVariadic() && i == len(labels)-1 {
			labels[i] = "..." + typeLabel(t.Elem())
		} else {
			labels[i] = typeLabel(t)
		}
	}

	return labels
}

func typeLabel(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Func:
		return "func"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "list"
	case reflect.Map:
		return "object"
	case reflect.Pointer:
		return typeLabel(t.Elem())
	default:
		return "any"
	}
}

//nolint:gochecknoglobals
var errorType = reflect.TypeFor[error]()

// convertArg converts a to a Go value of type want. Callables passed where
// a function is wanted are adapted with [reflect.MakeFunc].
func convertArg(ctx context.Context, a lang.Value, want reflect.Type) (reflect.Value, error) {
	if fn, ok := a.(*lang.Callable); ok && want.Kind() == reflect.Func {
		return reflect.MakeFunc(want, func(args []reflect.Value) []reflect.Value {
			in := make([]lang.Value, len(args))
			for i, x := range args {
				in[i] = fromExpr(x.Interface())
			}

			res := make([]reflect.Value, want.NumOut())
			for i := range res {
				res[i] = reflect.Zero(want.Out(i))
			}

			out, err := fn.Call(ctx, in...)
			if err != nil {
				if n := len(res); n > 0 && want.Out(n-1) == errorType {
					res[n-1] = reflect.ValueOf(&err).Elem()
				}

				return res
			}

			if len(res) > 0 {
				if v, err := convertArg(ctx, out, want.Out(0)); err == nil {
					res[0] = v
				}
			}

			return res
		}), nil
	}

	x := (&bridge{ctx: ctx}).toExpr(a)
	if x == nil || lang.IsMissing(a) {
		return reflect.Zero(want), nil
	}

	rv := reflect.ValueOf(x)

	switch {
	case rv.Type().AssignableTo(want):
		return rv, nil
	case want.Kind() == reflect.String:
		return reflect.ValueOf(lang.Stringify(a)).Convert(want), nil
	case want.Kind() == reflect.Bool:
		return reflect.ValueOf(lang.Truthy(a)).Convert(want), nil
	case rv.Type().ConvertibleTo(want) && rv.Kind() != reflect.String:
		return rv.Convert(want), nil
	}

	return reflect.Value{}, ErrArgument.With(
		slog.String("want", want.String()),
		slog.String("got", rv.Type().String()),
	)
}
