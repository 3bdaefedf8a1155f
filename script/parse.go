package script

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/log"
)

// ParseString parses a script from a string.
func ParseString(ctx context.Context, s string, opts ...Option) (*Program, error) {
	cfg := makeConfig(opts...)

	p := &parser{scanner: scanner{input: []byte(s), line: 1, col: 1}, logger: cfg.logger}

	prog, err := p.parseProgram()
	if err != nil {
		p.logger.DebugContext(ctx, "parse failed", slog.Any("error", err))

		return nil, err
	}

	prog.Source = s

	p.logger.TraceContext(ctx, "parse complete", slog.Int("statements", len(prog.Body)))

	return prog, nil
}

type parser struct {
	scanner

	logger log.Logger
}

func (p *parser) parseProgram() (*Program, error) {
	prog := new(Program)

	for {
		p.skipBlank()

		if p.eof() {
			return prog, nil
		}

		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		prog.Body = append(prog.Body, st)

		err = p.endStatement()
		if err != nil {
			return nil, err
		}
	}
}

// endStatement consumes a statement terminator: ';', a newline, a line
// comment, or nothing before '}' or end of input.
func (p *parser) endStatement() error {
	p.skipInline()

	switch {
	case p.eof(), p.peek() == '}':
		return nil
	case p.peek() == ';', p.peek() == '\n':
		p.advance()

		return nil
	case p.atLineComment():
		p.skipLineComment()

		return nil
	}

	return p.errorf("expected end of statement", slog.String("found", string(p.peek())))
}

func (p *parser) parseStatement() (Stmt, error) {
	at := p.position()

	switch {
	case p.keyword("let"), p.keyword("const"), p.keyword("var"):
		return p.parseDecl()

	case p.keyword("function"):
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}

		if fn.Name == "" {
			return nil, p.invalidf("function declaration requires a name")
		}

		return &FuncDecl{Func: fn}, nil

	case p.keyword("return"):
		p.advanceN(len("return"))
		p.skipInline()

		ret := &Return{At: at}

		if p.eof() || strings.ContainsRune(";\n}", p.peek()) || p.atLineComment() {
			return ret, nil
		}

		v, err := p.parseValue()
		ret.Value = v

		return ret, err

	case p.keyword("break"):
		p.advanceN(len("break"))

		return &Branch{At: at}, nil

	case p.keyword("continue"):
		p.advanceN(len("continue"))

		return &Branch{At: at, Continue: true}, nil

	case p.keyword("if"):
		return p.parseIf()

	case p.keyword("for"):
		return p.parseFor()

	case p.peek() == '{':
		if st, ok, err := p.tryAssign(); ok || err != nil {
			return st, err
		}

		return p.parseBlock()
	}

	return p.parseSimple()
}

// parseSimple parses an assignment or expression statement.
func (p *parser) parseSimple() (Stmt, error) {
	if st, ok, err := p.tryAssign(); ok || err != nil {
		return st, err
	}

	x, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	return &ExprStmt{X: x}, nil
}

func (p *parser) parseDecl() (*Decl, error) {
	d := &Decl{At: p.position()}

	switch {
	case p.keyword("let"):
		d.Kind = lang.MutableBlock
	case p.keyword("const"):
		d.Kind = lang.ImmutableBlock
	default:
		d.Kind = lang.FunctionScoped
	}

	p.advanceN(len(d.Kind.String()))

	for {
		p.skipBlank()

		b, err := p.parseBinding(d.Kind)
		if err != nil {
			return nil, err
		}

		d.Bindings = append(d.Bindings, b)

		m := p.mark()
		p.skipInline()

		if !p.expect(',') {
			p.reset(m)

			return d, nil
		}
	}
}

func (p *parser) parseBinding(kind lang.BindingKind) (*Binding, error) {
	target, err := p.parsePattern(false)
	if err != nil {
		return nil, err
	}

	b := &Binding{Target: target}

	p.skipInline()

	if p.atAssign() {
		p.advance()

		b.Init, err = p.parseValue()
		if err != nil {
			return nil, err
		}

		return b, nil
	}

	if _, ok := target.(*lang.Identifier); !ok {
		return nil, p.invalidf("destructuring declaration requires an initializer")
	}

	if kind == lang.ImmutableBlock {
		return nil, p.invalidf("const declaration requires an initializer")
	}

	return b, nil
}

// atAssign reports whether the cursor is at a plain '=' operator.
func (p *parser) atAssign() bool {
	return p.peek() == '=' && p.peekN(2) != "==" && p.peekN(2) != "=>"
}

//nolint:gochecknoglobals
var compound = []string{"+=", "-=", "*=", "/=", "%=", "**=", "??="}

// tryAssign parses an assignment statement. It restores the cursor and
// reports false when the input does not start with an assignment target
// followed by an assignment operator.
func (p *parser) tryAssign() (Stmt, bool, error) {
	m := p.mark()
	at := p.position()

	target, text, err := p.parseAssignTarget()
	if err != nil {
		p.reset(m)

		return nil, false, nil //nolint:nilerr
	}

	p.skipInline()

	a := &Assign{At: at, Target: target}

	switch {
	case p.atAssign():
		p.advance()

		a.Value, err = p.parseValue()

		return a, true, err

	case p.peekN(2) == "++" || p.peekN(2) == "--":
		op := p.peekN(1)
		p.advanceN(2)

		a.Value, err = p.compoundValue(at, text, op, "1")

		return a, true, err
	}

	for _, op := range compound {
		if p.peekN(len(op)) != op {
			continue
		}

		p.advanceN(len(op))
		p.skipBlank()

		start := p.position()

		rhs, err := p.captureExpression()
		if err != nil {
			return nil, true, err
		}

		if rhs == "" {
			return nil, true, p.errorf("expected expression")
		}

		a.Value, err = p.compoundValue(start, text, strings.TrimSuffix(op, "="), rhs)

		return a, true, err
	}

	p.reset(m)

	return nil, false, nil
}

func (p *parser) compoundValue(at Position, target, op, rhs string) (Expr, error) {
	if target == "" {
		return nil, p.invalidf("compound assignment requires a simple target")
	}

	return &Code{At: at, Text: target + " " + op + " (" + rhs + ")"}, nil
}

// parseAssignTarget parses the left side of an assignment. Simple targets
// also return their source text for compound operators.
func (p *parser) parseAssignTarget() (lang.Pattern, string, error) {
	start := p.pos

	switch p.peek() {
	case '[', '{':
		t, err := p.parsePattern(true)

		return t, "", err
	}

	t, err := p.parseLeaf(true)
	if err != nil {
		return nil, "", err
	}

	return t, strings.TrimSpace(string(p.input[start:p.pos])), nil
}

func (p *parser) parseBlock() (*Block, error) {
	b := &Block{At: p.position()}

	if !p.expect('{') {
		return nil, p.errorf("expected {")
	}

	for {
		p.skipBlank()

		if p.eof() {
			return nil, p.errorf("expected }")
		}

		if p.expect('}') {
			return b, nil
		}

		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		b.Body = append(b.Body, st)

		err = p.endStatement()
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseIf() (*If, error) {
	s := &If{At: p.position()}

	p.advanceN(len("if"))

	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}

	s.Cond = cond

	p.skipBlank()

	s.Then, err = p.parseStatement()
	if err != nil {
		return nil, err
	}

	m := p.mark()

	p.skipInline()
	p.expect(';')
	p.skipBlank()

	if !p.keyword("else") {
		p.reset(m)

		return s, nil
	}

	p.advanceN(len("else"))
	p.skipBlank()

	s.Else, err = p.parseStatement()

	return s, err
}

func (p *parser) parseCondition() (Expr, error) {
	p.skipBlank()

	if !p.expect('(') {
		return nil, p.errorf("expected (")
	}

	x, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	p.skipBlank()

	if !p.expect(')') {
		return nil, p.errorf("expected )")
	}

	return x, nil
}

func (p *parser) parseFor() (Stmt, error) {
	at := p.position()

	p.advanceN(len("for"))
	p.skipBlank()

	if !p.expect('(') {
		return nil, p.errorf("expected (")
	}

	p.skipBlank()

	var (
		init Stmt
		err  error
	)

	if p.keyword("let") || p.keyword("const") || p.keyword("var") {
		m := p.mark()

		if st, ok, err := p.tryForOf(at); err != nil || ok {
			return st, err
		}

		p.reset(m)

		init, err = p.parseDecl()
	} else if p.peek() != ';' {
		init, err = p.parseSimple()
	}

	if err != nil {
		return nil, err
	}

	loop := &For{At: at, Init: init}

	p.skipBlank()

	if !p.expect(';') {
		return nil, p.errorf("expected ; after loop initializer")
	}

	p.skipBlank()

	if p.peek() != ';' {
		loop.Test, err = p.parseValue()
		if err != nil {
			return nil, err
		}

		p.skipBlank()
	}

	if !p.expect(';') {
		return nil, p.errorf("expected ; after loop condition")
	}

	p.skipBlank()

	if p.peek() != ')' {
		loop.Update, err = p.parseSimple()
		if err != nil {
			return nil, err
		}

		p.skipBlank()
	}

	if !p.expect(')') {
		return nil, p.errorf("expected ) after loop header")
	}

	p.skipBlank()

	loop.Body, err = p.parseStatement()

	return loop, err
}

// tryForOf parses the remainder of a for-of header and body, reporting false
// when the header declares no "of" clause.
func (p *parser) tryForOf(at Position) (Stmt, bool, error) {
	var kind lang.BindingKind

	switch {
	case p.keyword("let"):
		kind = lang.MutableBlock
	case p.keyword("const"):
		kind = lang.ImmutableBlock
	default:
		kind = lang.FunctionScoped
	}

	p.advanceN(len(kind.String()))
	p.skipBlank()

	target, err := p.parsePattern(false)
	if err != nil {
		return nil, false, nil //nolint:nilerr
	}

	p.skipBlank()

	if !p.keyword("of") {
		return nil, false, nil
	}

	p.advanceN(len("of"))

	loop := &ForOf{At: at, Kind: kind, Target: target}

	loop.Iter, err = p.parseValue()
	if err != nil {
		return nil, false, err
	}

	p.skipBlank()

	if !p.expect(')') {
		return nil, false, p.errorf("expected ) after loop header")
	}

	p.skipBlank()

	loop.Body, err = p.parseStatement()

	return loop, true, err
}

// parseValue parses an expression: a template, a function, an arrow
// function, or expression engine text optionally followed by a template
// (which makes it a tag).
func (p *parser) parseValue() (Expr, error) {
	p.skipBlank()

	at := p.position()

	switch {
	case p.peek() == '`':
		return p.parseTemplate(nil, at)

	case p.keyword("function"):
		return p.parseFunction()

	case p.atArrow():
		return p.parseArrow()
	}

	text, err := p.captureExpression()
	if err != nil {
		return nil, err
	}

	if text == "" {
		return nil, p.errorf("expected expression")
	}

	code := &Code{At: at, Text: text}

	if p.peek() == '`' {
		return p.parseTemplate(code, at)
	}

	return code, nil
}

// atArrow reports whether an arrow function starts at the cursor.
func (p *parser) atArrow() bool {
	m := p.mark()
	defer p.reset(m)

	if p.peek() == '(' {
		if p.skipBalanced() != nil {
			return false
		}
	} else if _, err := p.parseIdentifier(); err != nil {
		return false
	}

	p.skipInline()

	return p.peekN(2) == "=>"
}

func (p *parser) parseFunction() (*Func, error) {
	fn := &Func{At: p.position()}

	p.advanceN(len("function"))
	p.skipBlank()

	if p.peek() != '(' {
		name, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}

		fn.Name = name
		p.skipBlank()
	}

	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}

	fn.Params = params

	p.skipBlank()

	fn.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}

	return fn, nil
}

func (p *parser) parseArrow() (*Func, error) {
	fn := &Func{At: p.position(), Arrow: true}

	var err error

	if p.peek() == '(' {
		fn.Params, err = p.parseParams()
	} else {
		var id lang.Pattern

		id, err = p.parseLeaf(false)
		if err == nil {
			fn.Params, err = lang.NewParams(id)
		}
	}

	if err != nil {
		return nil, err
	}

	p.skipInline()
	p.advanceN(len("=>"))
	p.skipBlank()

	if p.peek() == '{' {
		fn.Body, err = p.parseBlock()
	} else {
		fn.Result, err = p.parseValue()
	}

	return fn, err
}

func (p *parser) parseParams() (*lang.Params, error) {
	at := p.position()

	if !p.expect('(') {
		return nil, p.errorf("expected (")
	}

	var formals []lang.Pattern

	for {
		p.skipBlank()

		if p.expect(')') {
			break
		}

		f, err := p.parseElement(false)
		if err != nil {
			return nil, err
		}

		formals = append(formals, f)

		p.skipBlank()

		if p.expect(',') {
			continue
		}

		if !p.expect(')') {
			return nil, p.errorf("expected , or ) in parameter list")
		}

		break
	}

	params, err := lang.NewParams(formals...)
	if err != nil {
		return nil, ErrParse.Wrap(err).With(at.Attr())
	}

	return params, nil
}

// parsePattern parses an identifier, array pattern or object pattern. In
// assign mode leaves may also be member paths.
func (p *parser) parsePattern(assign bool) (lang.Pattern, error) {
	switch p.peek() {
	case '[':
		return p.parseArrayPattern(assign)
	case '{':
		return p.parseObjectPattern(assign)
	}

	return p.parseLeaf(assign)
}

// parseLeaf parses a binding identifier or, in assign mode, a member path.
func (p *parser) parseLeaf(assign bool) (lang.Pattern, error) {
	at := p.position()

	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}

	path := &Path{At: at, Root: name}

	for assign {
		m := p.mark()
		p.skipInline()

		switch {
		case p.peek() == '.' && p.peekN(3) != "...":
			p.advance()
			p.skipInline()

			key, err := p.parseMemberName()
			if err != nil {
				return nil, err
			}

			path.Keys = append(path.Keys, PathKey{Name: key})

			continue

		case p.peek() == '[':
			p.advance()

			x, err := p.parseValue()
			if err != nil {
				return nil, err
			}

			p.skipBlank()

			if !p.expect(']') {
				return nil, p.errorf("expected ]")
			}

			path.Keys = append(path.Keys, PathKey{Index: x})

			continue
		}

		p.reset(m)

		break
	}

	if len(path.Keys) > 0 {
		return lang.NewAssignmentTarget(path, nil)
	}

	return lang.NewIdentifier(name, nil)
}

// parseMemberName parses a property name, which may be a reserved word.
func (p *parser) parseMemberName() (string, error) {
	start := p.pos

	if !isIdentifierStart(p.peek()) {
		return "", p.errorf("expected property name")
	}

	for !p.eof() && isIdentifierContinue(p.peek()) {
		p.advance()
	}

	return string(p.input[start:p.pos]), nil
}

// parseElement parses a pattern element: a rest element, or a pattern with
// an optional default.
func (p *parser) parseElement(assign bool) (lang.Pattern, error) {
	if p.peekN(3) == "..." {
		p.advanceN(3)
		p.skipBlank()

		target, err := p.parsePattern(assign)
		if err != nil {
			return nil, err
		}

		p.skipBlank()

		if p.atAssign() {
			return nil, p.invalidf("rest element may not have a default")
		}

		rest, err := lang.NewRest(target)
		if err != nil {
			return nil, ErrParse.Wrap(err).With(p.position().Attr())
		}

		return rest, nil
	}

	target, err := p.parsePattern(assign)
	if err != nil {
		return nil, err
	}

	def, err := p.parseDefault()
	if err != nil || def == nil {
		return target, err
	}

	switch t := target.(type) {
	case *lang.Identifier:
		t.Default = def
	case *lang.AssignmentTarget:
		t.Default = def
	case *lang.ArrayPattern:
		t.Default = def
	case *lang.ObjectPattern:
		t.Default = def
	}

	return target, nil
}

// parseDefault parses an optional "= value" suffix.
func (p *parser) parseDefault() (Expr, error) {
	m := p.mark()
	p.skipBlank()

	if !p.atAssign() {
		p.reset(m)

		return nil, nil
	}

	p.advance()

	return p.parseValue()
}

func (p *parser) parseArrayPattern(assign bool) (lang.Pattern, error) {
	at := p.position()

	p.advance()

	var elems []lang.Pattern

	for {
		p.skipBlank()

		if p.expect(']') {
			break
		}

		if p.expect(',') {
			elems = append(elems, lang.Hole)

			continue
		}

		e, err := p.parseElement(assign)
		if err != nil {
			return nil, err
		}

		elems = append(elems, e)

		p.skipBlank()

		if p.expect(',') {
			continue
		}

		if !p.expect(']') {
			return nil, p.errorf("expected , or ] in array pattern")
		}

		break
	}

	pat, err := lang.NewArrayPattern(nil, elems...)
	if err != nil {
		return nil, ErrParse.Wrap(err).With(at.Attr())
	}

	return pat, nil
}

func (p *parser) parseObjectPattern(assign bool) (lang.Pattern, error) {
	at := p.position()

	p.advance()

	var (
		entries []lang.Entry
		rest    *lang.Rest
	)

	for {
		p.skipBlank()

		if p.expect('}') {
			break
		}

		if rest != nil {
			return nil, p.errorf("rest element must be last")
		}

		if p.peekN(3) == "..." {
			r, err := p.parseElement(assign)
			if err != nil {
				return nil, err
			}

			rest = r.(*lang.Rest) //nolint:forcetypeassert
		} else {
			e, err := p.parseEntry(assign)
			if err != nil {
				return nil, err
			}

			entries = append(entries, e)
		}

		p.skipBlank()

		if p.expect(',') {
			continue
		}

		if !p.expect('}') {
			return nil, p.errorf("expected , or } in object pattern")
		}

		break
	}

	pat, err := lang.NewObjectPattern(nil, rest, entries...)
	if err != nil {
		return nil, ErrParse.Wrap(err).With(at.Attr())
	}

	return pat, nil
}

// parseEntry parses "key", "key: target" or either followed by a default.
func (p *parser) parseEntry(assign bool) (lang.Entry, error) {
	var (
		e         lang.Entry
		err       error
		shorthand bool
	)

	switch ch := p.peek(); {
	case ch == '"' || ch == '\'':
		e.Key, err = p.parseStringLiteral()
	case ch >= '0' && ch <= '9':
		start := p.pos

		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.advance()
		}

		e.Key = string(p.input[start:p.pos])
	default:
		m := p.mark()

		e.Key, err = p.parseMemberName()
		if err == nil {
			after := p.mark()
			p.skipBlank()
			shorthand = p.peek() != ':'
			p.reset(after)

			if shorthand {
				p.reset(m)

				var id string

				id, err = p.parseIdentifier()
				if err == nil {
					e.Target, err = lang.NewIdentifier(id, nil)
				}
			}
		}
	}

	if err != nil {
		return e, err
	}

	if !shorthand {
		p.skipBlank()

		if !p.expect(':') {
			return e, p.errorf("expected : in object pattern")
		}

		p.skipBlank()

		e.Target, err = p.parsePattern(assign)
		if err != nil {
			return e, err
		}
	}

	def, err := p.parseDefault()
	if def != nil {
		e.Default = def
	}

	return e, err
}
