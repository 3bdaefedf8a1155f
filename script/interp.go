package script

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/log"
)

// Interpreter executes programs against a persistent global scope.
//
// The global scope is chained to a scope of immutable builtins. Bindings
// made by one call to [Interpreter.Run] remain visible to the next, which is
// how the REPL accumulates state.
type Interpreter struct {
	logger  log.Logger
	matcher *lang.Matcher
	root    *lang.Scope
	global  *lang.Scope
}

// New returns an interpreter with a fresh global scope.
func New(opts ...Option) *Interpreter {
	cfg := makeConfig(opts...)

	in := &Interpreter{logger: cfg.logger}

	in.matcher = &lang.Matcher{
		Evaluator:  in,
		Logger:     cfg.logger,
		ObjectRest: cfg.objectRest,
	}
	in.root = builtins(cfg)
	in.global = lang.NewScope(in.root, lang.Global)

	return in
}

// Global returns the global scope.
func (in *Interpreter) Global() *lang.Scope { return in.global }

// Builtins returns the scope holding the builtin bindings.
func (in *Interpreter) Builtins() *lang.Scope { return in.root }

type ctxKey struct{}

// Exec parses and runs src in the global scope.
func (in *Interpreter) Exec(ctx context.Context, src string) (lang.Value, error) {
	prog, err := ParseString(ctx, src, WithLogger(in.logger))
	if err != nil {
		return nil, err
	}

	return in.Run(ctx, prog)
}

// Run executes prog in the global scope and returns its completion value:
// the value of the last expression or assignment statement executed.
func (in *Interpreter) Run(ctx context.Context, prog *Program) (lang.Value, error) {
	ctx = context.WithValue(ctx, ctxKey{}, in)

	err := in.hoistVars(prog.Body, in.global)
	if err != nil {
		return nil, err
	}

	err = in.hoistLexical(ctx, prog.Body, in.global)
	if err != nil {
		return nil, err
	}

	v, fl, err := in.execList(ctx, prog.Body, in.global)
	if err != nil {
		in.logger.DebugContext(ctx, "run failed", slog.Any("error", err))

		return nil, err
	}

	switch fl.kind {
	case flowBreak:
		return nil, controlError("break", fl.at)
	case flowContinue:
		return nil, controlError("continue", fl.at)
	case flowReturn:
		return nil, controlError("return", fl.at)
	}

	return v, nil
}

// Eval evaluates an expression node in scope. It implements [lang.Evaluator].
func (in *Interpreter) Eval(ctx context.Context, node lang.Node, scope *lang.Scope) (lang.Value, error) {
	switch n := node.(type) {
	case *Code:
		p, err := compile(ctx, in.logger, n.Text)
		if err != nil {
			return nil, err
		}

		return p.run(ctx, scope)

	case *TemplateLit:
		if n.Tag == nil {
			s, err := n.Lit.Evaluate(ctx, in, scope)
			if err != nil {
				return nil, err
			}

			return lang.String(s), nil
		}

		tag, err := in.Eval(ctx, n.Tag, scope)
		if err != nil {
			return nil, err
		}

		return n.Lit.Tag(ctx, in, scope, tag)

	case *Func:
		return in.closure(ctx, n, n.Name, scope, true), nil
	}

	return nil, ErrRuntime.With(slog.String("node", fmt.Sprintf("%T", node)))
}

type flowKind uint8

const (
	flowNormal flowKind = iota
	flowBreak
	flowContinue
	flowReturn
)

// flow is the completion of a statement other than normal completion.
type flow struct {
	kind flowKind
	at   Position
}

func (in *Interpreter) execList(ctx context.Context, body []Stmt, scope *lang.Scope) (lang.Value, flow, error) {
	var last lang.Value = lang.Missing

	for _, st := range body {
		err := ctx.Err()
		if err != nil {
			return nil, flow{}, err
		}

		in.logger.TraceContext(ctx, "exec",
			slog.String("stmt", fmt.Sprintf("%T", st)),
			st.Pos().Attr(),
		)

		v, fl, err := in.exec(ctx, st, scope)
		if err != nil {
			return nil, flow{}, locate(err, st.Pos())
		}

		if v != nil {
			last = v
		}

		if fl.kind != flowNormal {
			return last, fl, nil
		}
	}

	return last, flow{}, nil
}

// exec runs one statement. Statements without a completion value return a
// nil value.
func (in *Interpreter) exec(ctx context.Context, st Stmt, scope *lang.Scope) (lang.Value, flow, error) {
	switch s := st.(type) {
	case *ExprStmt:
		v, err := in.Eval(ctx, s.X, scope)

		return v, flow{}, err

	case *Decl:
		return nil, flow{}, in.execDecl(ctx, s, scope)

	case *FuncDecl:
		return nil, flow{}, nil

	case *Assign:
		target := s.Target

		// A member target is resolved before the value, left to right.
		if at, ok := target.(*lang.AssignmentTarget); ok {
			if p, ok := at.Ref.(*Path); ok {
				m, err := p.member(ctx, scope)
				if err != nil {
					return nil, flow{}, err
				}

				target = &lang.AssignmentTarget{Ref: m, Default: at.Default}
			}
		}

		v, err := in.Eval(ctx, s.Value, scope)
		if err != nil {
			return nil, flow{}, err
		}

		err = in.matcher.Match(ctx, target, v, scope, lang.Assign)

		return v, flow{}, err

	case *Block:
		inner := lang.NewScope(scope, lang.Block)

		err := in.hoistLexical(ctx, s.Body, inner)
		if err != nil {
			return nil, flow{}, err
		}

		return in.execList(ctx, s.Body, inner)

	case *If:
		c, err := in.Eval(ctx, s.Cond, scope)
		if err != nil {
			return nil, flow{}, err
		}

		switch {
		case lang.Truthy(c):
			return in.exec(ctx, s.Then, scope)
		case s.Else != nil:
			return in.exec(ctx, s.Else, scope)
		}

		return nil, flow{}, nil

	case *For:
		return in.execFor(ctx, s, scope)

	case *ForOf:
		return in.execForOf(ctx, s, scope)

	case *Return:
		var v lang.Value = lang.Missing

		if s.Value != nil {
			var err error

			v, err = in.Eval(ctx, s.Value, scope)
			if err != nil {
				return nil, flow{}, err
			}
		}

		return v, flow{kind: flowReturn, at: s.At}, nil

	case *Branch:
		if s.Continue {
			return nil, flow{kind: flowContinue, at: s.At}, nil
		}

		return nil, flow{kind: flowBreak, at: s.At}, nil
	}

	return nil, flow{}, ErrRuntime.With(slog.String("stmt", fmt.Sprintf("%T", st)))
}

func (in *Interpreter) execDecl(ctx context.Context, d *Decl, scope *lang.Scope) error {
	for _, b := range d.Bindings {
		if b.Init == nil {
			id, ok := b.Target.(*lang.Identifier)
			if !ok || d.Kind == lang.FunctionScoped {
				continue
			}

			err := in.matcher.Match(ctx, id, lang.Missing, scope, lang.Declare(d.Kind))
			if err != nil {
				return err
			}

			continue
		}

		var (
			v   lang.Value
			err error
		)

		if fn, ok := b.Init.(*Func); ok && fn.Name == "" {
			if id, ok := b.Target.(*lang.Identifier); ok {
				v = in.closure(ctx, fn, id.Name, scope, false)
			}
		}

		if v == nil {
			v, err = in.Eval(ctx, b.Init, scope)
			if err != nil {
				return err
			}
		}

		mode := lang.Declare(d.Kind)
		if d.Kind == lang.FunctionScoped {
			mode = lang.Assign
		}

		err = in.matcher.Match(ctx, b.Target, v, scope, mode)
		if err != nil {
			return err
		}
	}

	return nil
}

func (in *Interpreter) execFor(ctx context.Context, s *For, scope *lang.Scope) (lang.Value, flow, error) {
	var (
		last   lang.Value
		result flow
	)

	decl, perIteration := s.Init.(*Decl)
	perIteration = perIteration && decl.Kind.Blocked()

	loop := lang.Loop{
		PerIteration: perIteration,
		Init: func(ctx context.Context, header *lang.Scope) error {
			if s.Init == nil {
				return nil
			}

			err := checkVarConflicts(lexicalNames([]Stmt{s.Init}), []Stmt{s.Body})
			if err != nil {
				return err
			}

			err = in.hoistLexical(ctx, []Stmt{s.Init}, header)
			if err != nil {
				return err
			}

			_, _, err = in.exec(ctx, s.Init, header)

			return locate(err, s.Init.Pos())
		},
		Body: func(ctx context.Context, scope *lang.Scope) (bool, error) {
			v, fl, err := in.exec(ctx, s.Body, scope)
			if err != nil {
				return true, locate(err, s.Body.Pos())
			}

			if v != nil {
				last = v
			}

			switch fl.kind {
			case flowBreak:
				return true, nil
			case flowReturn:
				last, result = v, fl

				return true, nil
			}

			return false, ctx.Err()
		},
	}

	if s.Test != nil {
		loop.Test = func(ctx context.Context, scope *lang.Scope) (bool, error) {
			v, err := in.Eval(ctx, s.Test, scope)
			if err != nil {
				return false, locate(err, s.Test.Pos())
			}

			return lang.Truthy(v), nil
		}
	}

	if s.Update != nil {
		loop.Update = func(ctx context.Context, scope *lang.Scope) error {
			_, _, err := in.exec(ctx, s.Update, scope)

			return locate(err, s.Update.Pos())
		}
	}

	err := loop.Run(ctx, scope)

	return last, result, err
}

func (in *Interpreter) execForOf(ctx context.Context, s *ForOf, scope *lang.Scope) (lang.Value, flow, error) {
	if s.Kind.Blocked() {
		err := checkVarConflicts(lang.BoundNames(s.Target), []Stmt{s.Body})
		if err != nil {
			return nil, flow{}, err
		}
	}

	it, err := in.Eval(ctx, s.Iter, scope)
	if err != nil {
		return nil, flow{}, err
	}

	seq, ok := lang.Sequence(it)
	if !ok {
		return nil, flow{}, lang.ErrNotIterable.With(slog.String("kind", kindName(it)))
	}

	var last lang.Value

	for x := range seq {
		each := lang.NewScope(scope, lang.Block)

		if s.Kind == lang.FunctionScoped {
			err = in.matcher.Match(ctx, s.Target, x, each, lang.Assign)
		} else {
			err = in.matcher.Match(ctx, s.Target, x, each, lang.Declare(s.Kind))
		}

		if err != nil {
			return nil, flow{}, err
		}

		v, fl, err := in.exec(ctx, s.Body, each)
		if err != nil {
			return nil, flow{}, locate(err, s.Body.Pos())
		}

		if v != nil {
			last = v
		}

		switch fl.kind {
		case flowBreak:
			return last, flow{}, nil
		case flowReturn:
			return v, fl, nil
		}

		err = ctx.Err()
		if err != nil {
			return nil, flow{}, err
		}
	}

	return last, flow{}, nil
}

// closure creates the callable for fn in scope. When self is set, the
// function's own name is bound in an intermediate scope so that a named
// function expression can recurse.
func (in *Interpreter) closure(ctx context.Context, fn *Func, name string, scope *lang.Scope, self bool) *lang.Callable {
	env := scope

	if self && fn.Name != "" {
		env = lang.NewScope(scope, lang.Block)
		_ = env.Declare(fn.Name, lang.ImmutableBlock)
	}

	params := fn.Params
	if params == nil {
		params, _ = lang.NewParams()
	}

	c := lang.NewFunction(name, params, env, in.matcher, func(ctx context.Context, body *lang.Scope) (lang.Value, error) {
		if fn.Result != nil {
			return in.Eval(ctx, fn.Result, body)
		}

		return in.runBody(ctx, fn, body)
	})

	if env != scope {
		_ = env.Initialize(fn.Name, c)
	}

	in.logger.TraceContext(ctx, "closure",
		slog.String("name", name),
		slog.Int("params", params.Len()),
		fn.At.Attr(),
	)

	return c
}

func (in *Interpreter) runBody(ctx context.Context, fn *Func, body *lang.Scope) (lang.Value, error) {
	err := in.hoistVars(fn.Body.Body, body)
	if err != nil {
		return nil, err
	}

	err = in.hoistLexical(ctx, fn.Body.Body, body)
	if err != nil {
		return nil, err
	}

	v, fl, err := in.execList(ctx, fn.Body.Body, body)
	if err != nil {
		return nil, err
	}

	switch fl.kind {
	case flowReturn:
		return v, nil
	case flowBreak:
		return nil, controlError("break", fl.at)
	case flowContinue:
		return nil, controlError("continue", fl.at)
	}

	return lang.Missing, nil
}

// varDecl is one name bound by a var declaration or var loop head.
type varDecl struct {
	name string
	at   Position
}

// varDecls returns the names bound with var in body, including those in
// nested blocks and loops but not nested functions.
func varDecls(body []Stmt) []varDecl {
	var (
		out  []varDecl
		walk func(Stmt)
	)

	walk = func(st Stmt) {
		switch s := st.(type) {
		case *Decl:
			if s.Kind != lang.FunctionScoped {
				return
			}

			for _, b := range s.Bindings {
				for _, name := range lang.BoundNames(b.Target) {
					out = append(out, varDecl{name: name, at: s.At})
				}
			}

		case *ForOf:
			if s.Kind == lang.FunctionScoped {
				for _, name := range lang.BoundNames(s.Target) {
					out = append(out, varDecl{name: name, at: s.At})
				}
			}

			walk(s.Body)

		case *For:
			if s.Init != nil {
				walk(s.Init)
			}

			walk(s.Body)

		case *If:
			walk(s.Then)

			if s.Else != nil {
				walk(s.Else)
			}

		case *Block:
			for _, x := range s.Body {
				walk(x)
			}
		}
	}

	for _, st := range body {
		walk(st)
	}

	return out
}

// hoistVars declares every var name in body in scope. In a function body, a
// var naming a parameter starts with the argument's value.
func (in *Interpreter) hoistVars(body []Stmt, scope *lang.Scope) error {
	params := scope.Parent()
	if params != nil && params.Kind() != lang.ParameterLayer {
		params = nil
	}

	for _, d := range varDecls(body) {
		fresh := !scope.HasOwn(d.name)

		err := scope.Declare(d.name, lang.FunctionScoped)
		if err != nil {
			return locate(err, d.at)
		}

		if !fresh || params == nil || !params.HasOwn(d.name) {
			continue
		}

		v, err := params.Resolve(d.name)
		if err == nil {
			err = scope.Assign(d.name, v)
		}

		if err != nil {
			return locate(err, d.at)
		}
	}

	return nil
}

// checkVarConflicts fails when a var in body binds one of the lexical names,
// which the var would otherwise write through on its way to the var scope.
func checkVarConflicts(lexical []string, body []Stmt) error {
	if len(lexical) == 0 {
		return nil
	}

	for _, d := range varDecls(body) {
		if slices.Contains(lexical, d.name) {
			return locate(lang.ErrDuplicateDeclaration.With(
				slog.String("name", d.name),
				slog.String("kind", lang.FunctionScoped.String()),
			), d.at)
		}
	}

	return nil
}

// lexicalNames returns the let and const names declared directly in body.
func lexicalNames(body []Stmt) []string {
	var names []string

	for _, st := range body {
		if s, ok := st.(*Decl); ok && s.Kind.Blocked() {
			for _, b := range s.Bindings {
				names = append(names, lang.BoundNames(b.Target)...)
			}
		}
	}

	return names
}

// hoistLexical declares the let and const names of body Uninitialized in
// scope, and declares and initializes its function declarations.
func (in *Interpreter) hoistLexical(ctx context.Context, body []Stmt, scope *lang.Scope) error {
	err := checkVarConflicts(lexicalNames(body), body)
	if err != nil {
		return err
	}

	for _, st := range body {
		switch s := st.(type) {
		case *Decl:
			if !s.Kind.Blocked() {
				continue
			}

			for _, b := range s.Bindings {
				for _, name := range lang.BoundNames(b.Target) {
					err := scope.Declare(name, s.Kind)
					if err != nil {
						return locate(err, s.At)
					}
				}
			}

		case *FuncDecl:
			err := scope.Declare(s.Func.Name, lang.FunctionScoped)
			if err != nil {
				return locate(err, s.Func.At)
			}

			err = scope.Initialize(s.Func.Name, in.closure(ctx, s.Func, s.Func.Name, scope, false))
			if err != nil {
				return locate(err, s.Func.At)
			}
		}
	}

	return nil
}

// Writable reports whether p names at least one member to store into.
func (p *Path) Writable() bool { return p.Root != "" && len(p.Keys) > 0 }

// Store writes v to the member p refers to. Computed keys are evaluated
// left to right before the write.
func (p *Path) Store(ctx context.Context, scope *lang.Scope, v lang.Value) error {
	m, err := p.member(ctx, scope)
	if err != nil {
		return err
	}

	return m.Store(ctx, scope, v)
}

// member resolves the container and final key p refers to.
func (p *Path) member(ctx context.Context, scope *lang.Scope) (*member, error) {
	in, ok := ctx.Value(ctxKey{}).(*Interpreter)
	if !ok {
		return nil, lang.ErrUnsupported.With(slog.String("reason", "no interpreter in context"))
	}

	cur, err := scope.Resolve(p.Root)
	if err != nil {
		return nil, err
	}

	for i, k := range p.Keys {
		key := k.Name

		if k.Index != nil {
			x, err := in.Eval(ctx, k.Index, scope)
			if err != nil {
				return nil, err
			}

			key = lang.Stringify(x)
		}

		if i == len(p.Keys)-1 {
			return &member{path: p, container: cur, key: key}, nil
		}

		cur = lang.Get(cur, key)
	}

	return nil, ErrNotAssignable.With(slog.String("path", p.String()))
}

// member is a resolved member reference: a container and one key of it.
type member struct {
	path      *Path
	container lang.Value
	key       string
}

// Writable implements [lang.Reference].
func (*member) Writable() bool { return true }

// Store implements [lang.Reference].
func (m *member) Store(_ context.Context, _ *lang.Scope, v lang.Value) error {
	switch c := m.container.(type) {
	case *lang.Object:
		return c.Set(m.key, v)

	case *lang.List:
		n, err := strconv.Atoi(m.key)
		if err != nil {
			return ErrNotAssignable.With(slog.String("key", m.key))
		}

		return c.Set(n, v)
	}

	return ErrNotAssignable.With(
		slog.String("path", m.path.String()),
		slog.String("kind", kindName(m.container)),
	)
}

func kindName(v lang.Value) string {
	if v == nil {
		return lang.KindMissing.String()
	}

	return v.Kind().String()
}
