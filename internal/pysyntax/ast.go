// Package pysyntax models the subset of Python syntax the exhaustiveness
// analysis cares about: function and class definitions, assignments, calls,
// match statements and their patterns. Constructs outside that subset decode
// to opaque Unknown nodes so a traversal can step over them without losing
// position information.
package pysyntax

import "github.com/4tyone/pyrethrum/internal/model"

// Node is implemented by every syntax node.
type Node interface {
	Span() model.Span
}

// Stmt marks statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr marks expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Pattern marks match-statement pattern nodes.
type Pattern interface {
	Node
	patternNode()
}

// Module is a parsed source file: a list of top-level statements.
type Module struct {
	Body []Stmt
	Loc  model.Span
}

func (m *Module) Span() model.Span { return m.Loc }

// -- statements --

// FunctionDef is a def or async def statement.
type FunctionDef struct {
	Name       string
	Decorators []Expr
	Body       []Stmt
	IsAsync    bool
	Loc        model.Span
}

// ClassDef is a class statement.
type ClassDef struct {
	Name string
	Body []Stmt
	Loc  model.Span
}

// Assign is an assignment statement; Targets holds every assignment target.
type Assign struct {
	Targets []Expr
	Value   Expr
	Loc     model.Span
}

// Return is a return statement; Value may be nil.
type Return struct {
	Value Expr
	Loc   model.Span
}

// ExprStmt is an expression evaluated for effect.
type ExprStmt struct {
	Value Expr
	Loc   model.Span
}

// If is a conditional with optional else branch.
type If struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
	Loc    model.Span
}

// While is a while loop.
type While struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
	Loc    model.Span
}

// For is a for or async for loop.
type For struct {
	Target Expr
	Iter   Expr
	Body   []Stmt
	Orelse []Stmt
	Loc    model.Span
}

// With is a with or async with block.
type With struct {
	Items []Expr
	Body  []Stmt
	Loc   model.Span
}

// Try is a try statement. Exception handlers are kept only as their bodies;
// the analysis does not correlate except clauses with failure types.
type Try struct {
	Body      []Stmt
	Handlers  [][]Stmt
	Orelse    []Stmt
	Finalbody []Stmt
	Loc       model.Span
}

// Match is a structural pattern match statement.
type Match struct {
	Subject Expr
	Cases   []MatchCase
	Loc     model.Span
}

// MatchCase is one case arm of a match statement.
type MatchCase struct {
	Pattern Pattern
	Guard   Expr
	Body    []Stmt
	Loc     model.Span
}

// UnknownStmt preserves an unrecognized statement as an opaque placeholder.
type UnknownStmt struct {
	Tag string
	Loc model.Span
}

func (s *FunctionDef) Span() model.Span { return s.Loc }
func (s *ClassDef) Span() model.Span    { return s.Loc }
func (s *Assign) Span() model.Span      { return s.Loc }
func (s *Return) Span() model.Span      { return s.Loc }
func (s *ExprStmt) Span() model.Span    { return s.Loc }
func (s *If) Span() model.Span          { return s.Loc }
func (s *While) Span() model.Span       { return s.Loc }
func (s *For) Span() model.Span         { return s.Loc }
func (s *With) Span() model.Span        { return s.Loc }
func (s *Try) Span() model.Span         { return s.Loc }
func (s *Match) Span() model.Span       { return s.Loc }
func (s *UnknownStmt) Span() model.Span { return s.Loc }

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Assign) stmtNode()      {}
func (*Return) stmtNode()      {}
func (*ExprStmt) stmtNode()    {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*With) stmtNode()        {}
func (*Try) stmtNode()         {}
func (*Match) stmtNode()       {}
func (*UnknownStmt) stmtNode() {}

// -- expressions --

// Name is a bare identifier.
type Name struct {
	ID  string
	Loc model.Span
}

// Attribute is attribute access, value.attr.
type Attribute struct {
	Value Expr
	Attr  string
	Loc   model.Span
}

// Call is a function call.
type Call struct {
	Func     Expr
	Args     []Expr
	Keywords []Keyword
	Loc      model.Span
}

// Keyword is a keyword argument in a call.
type Keyword struct {
	Arg   string // empty for **kwargs
	Value Expr
	Loc   model.Span
}

// Constant is a literal value; Value holds the decoded literal.
type Constant struct {
	Value any
	Loc   model.Span
}

// Await wraps an awaited expression.
type Await struct {
	Value Expr
	Loc   model.Span
}

// Dict is a dictionary display. Keys[i] pairs with Values[i]; a nil key
// marks a **mapping expansion.
type Dict struct {
	Keys   []Expr
	Values []Expr
	Loc    model.Span
}

// UnknownExpr preserves an unrecognized expression as an opaque placeholder.
type UnknownExpr struct {
	Tag string
	Loc model.Span
}

func (e *Name) Span() model.Span        { return e.Loc }
func (e *Attribute) Span() model.Span   { return e.Loc }
func (e *Call) Span() model.Span        { return e.Loc }
func (e *Keyword) Span() model.Span     { return e.Loc }
func (e *Constant) Span() model.Span    { return e.Loc }
func (e *Await) Span() model.Span       { return e.Loc }
func (e *Dict) Span() model.Span        { return e.Loc }
func (e *UnknownExpr) Span() model.Span { return e.Loc }

func (*Name) exprNode()        {}
func (*Attribute) exprNode()   {}
func (*Call) exprNode()        {}
func (*Constant) exprNode()    {}
func (*Await) exprNode()       {}
func (*Dict) exprNode()        {}
func (*UnknownExpr) exprNode() {}

// -- patterns --

// MatchClass is a class pattern like Ok(value) or errors.NotFound().
type MatchClass struct {
	Cls         Expr
	Patterns    []Pattern
	KwdPatterns []Pattern
	Loc         model.Span
}

// MatchAs is a capture or wildcard pattern; Pattern is nil for a bare name
// or wildcard.
type MatchAs struct {
	Pattern Pattern
	Name    string // empty for _
	Loc     model.Span
}

// MatchValue matches against the value of an expression.
type MatchValue struct {
	Value Expr
	Loc   model.Span
}

// MatchOr is an or-pattern, p1 | p2 | ...
type MatchOr struct {
	Patterns []Pattern
	Loc      model.Span
}

// UnknownPattern preserves an unrecognized pattern as an opaque placeholder.
type UnknownPattern struct {
	Tag string
	Loc model.Span
}

func (p *MatchClass) Span() model.Span     { return p.Loc }
func (p *MatchAs) Span() model.Span        { return p.Loc }
func (p *MatchValue) Span() model.Span     { return p.Loc }
func (p *MatchOr) Span() model.Span        { return p.Loc }
func (p *UnknownPattern) Span() model.Span { return p.Loc }

func (*MatchClass) patternNode()     {}
func (*MatchAs) patternNode()        {}
func (*MatchValue) patternNode()     {}
func (*MatchOr) patternNode()        {}
func (*UnknownPattern) patternNode() {}

// DottedName flattens a Name or Attribute chain into its dotted source form.
// It returns "" when the expression is anything else.
func DottedName(e Expr) string {
	switch v := e.(type) {
	case *Name:
		return v.ID
	case *Attribute:
		base := DottedName(v.Value)
		if base == "" {
			return ""
		}
		return base + "." + v.Attr
	default:
		return ""
	}
}
