package script

import (
	"fmt"
	"log/slog"

	"github.com/ardnew/letbind/lang"
)

// Position is a location in script source.
type Position struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line"   yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Attr returns p as a log attribute.
func (p Position) Attr() slog.Attr {
	return slog.Group("pos", slog.Int("line", p.Line), slog.Int("column", p.Column))
}

// Node is any syntax tree element.
type Node interface {
	Pos() Position
}

// Stmt is a statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression. Expressions are the [lang.Node] values evaluated
// by [Interpreter.Eval].
type Expr interface {
	Node
	exprNode()
}

// Program is a parsed script.
type Program struct {
	Body   []Stmt
	Source string
}

// Decl declares one or more bindings: let, const or var.
type Decl struct {
	At       Position
	Kind     lang.BindingKind
	Bindings []*Binding
}

// Binding is one pattern and its optional initializer within a [Decl].
type Binding struct {
	Target lang.Pattern
	Init   Expr
}

// FuncDecl declares a named function in the enclosing block.
type FuncDecl struct {
	Func *Func
}

// Return exits the enclosing function.
type Return struct {
	At    Position
	Value Expr
}

// Branch is break or continue.
type Branch struct {
	At       Position
	Continue bool
}

// If runs Then when Cond is truthy, otherwise Else.
type If struct {
	At   Position
	Cond Expr
	Then Stmt
	Else Stmt
}

// For is the three-clause loop. A let or const Init gives every iteration
// its own copy of the header bindings.
type For struct {
	At     Position
	Init   Stmt
	Test   Expr
	Update Stmt
	Body   Stmt
}

// ForOf iterates a sequence-capable value, matching each element against
// Target.
type ForOf struct {
	At     Position
	Kind   lang.BindingKind
	Target lang.Pattern
	Iter   Expr
	Body   Stmt
}

// Block is a braced statement list with its own lexical scope.
type Block struct {
	At   Position
	Body []Stmt
}

// Assign stores Value into an existing binding, a member path or a
// destructuring pattern of those.
type Assign struct {
	At     Position
	Target lang.Pattern
	Value  Expr
}

// ExprStmt evaluates an expression for its effects and completion value.
type ExprStmt struct {
	X Expr
}

// Code is an expression handed to the expression engine verbatim.
type Code struct {
	At   Position
	Text string
}

// TemplateLit is an interpolated literal, tagged when Tag is non-nil.
type TemplateLit struct {
	At  Position
	Tag Expr
	Lit *lang.Template
}

// Func is a function or arrow function. Arrow functions with an expression
// body hold it in Result instead of Body.
type Func struct {
	At     Position
	Name   string
	Params *lang.Params
	Body   *Block
	Result Expr
	Arrow  bool
}

// Path is a member path such as a.b[i] used as an assignment target.
type Path struct {
	At   Position
	Root string
	Keys []PathKey
}

// PathKey is one step of a [Path]: a static Name, or a computed Index.
type PathKey struct {
	Index Expr
	Name  string
}

func (d *Decl) Pos() Position     { return d.At }
func (f *FuncDecl) Pos() Position { return f.Func.At }
func (r *Return) Pos() Position   { return r.At }
func (b *Branch) Pos() Position   { return b.At }
func (s *If) Pos() Position       { return s.At }
func (s *For) Pos() Position      { return s.At }
func (s *ForOf) Pos() Position    { return s.At }
func (b *Block) Pos() Position    { return b.At }
func (a *Assign) Pos() Position   { return a.At }
func (e *ExprStmt) Pos() Position { return e.X.Pos() }

func (*Decl) stmtNode()     {}
func (*FuncDecl) stmtNode() {}
func (*Return) stmtNode()   {}
func (*Branch) stmtNode()   {}
func (*If) stmtNode()       {}
func (*For) stmtNode()      {}
func (*ForOf) stmtNode()    {}
func (*Block) stmtNode()    {}
func (*Assign) stmtNode()   {}
func (*ExprStmt) stmtNode() {}

func (c *Code) Pos() Position        { return c.At }
func (t *TemplateLit) Pos() Position { return t.At }
func (f *Func) Pos() Position        { return f.At }

func (*Code) exprNode()        {}
func (*TemplateLit) exprNode() {}
func (*Func) exprNode()        {}
