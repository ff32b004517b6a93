// Package ast defines the EAC abstract syntax tree.
//
// What: Program, the closed set of Statement variants, and the closed
// set of Expr variants.
// How: One Go type per variant plus an unexported marker method, the
// same "closed sum type via interface + marker" shape a hand-written
// SQL engine uses for Statement/Expr.
// Why: A type switch over a closed interface gets exhaustiveness
// checking from `go vet`'s unreachable-case analysis and from review,
// without an open visitor scheme.
package ast

import "github.com/englishascode/eac/internal/token"

// Node is embedded by every Statement and Expr so callers can recover
// the source location of the first token that produced it.
type Node struct {
	Pos token.Position
}

func (n Node) Position() token.Position { return n.Pos }

// Statement is the closed interface implemented by every statement
// variant.
type Statement interface {
	stmtNode()
	Position() token.Position
}

// Expr is the closed interface implemented by every expression
// variant.
type Expr interface {
	exprNode()
	Position() token.Position
}

// Program is the root node: an ordered sequence of statements.
type Program struct {
	Statements []Statement
}

// ---- Statements ----

type OpenWorkbook struct {
	Node
	Path string
}

type TreatRange struct {
	Node
	Sheet     string
	Range     token.RangeValue
	TableName string
}

type SetVar struct {
	Node
	Name string
	Expr Expr
}

type AddColumn struct {
	Node
	Column string
	Table  string
	Expr   Expr
}

type Filter struct {
	Node
	Table     string
	Predicate Expr
}

type Sort struct {
	Node
	Table     string
	Key       Expr
	Ascending bool
}

// Aggregation is one `name = func(expr)` aggregate entry in a Group statement.
type Aggregation struct {
	Name string
	Func string
	Arg  Expr
}

type Group struct {
	Node
	Table        string
	Keys         []string
	Aggregations []Aggregation
}

// JoinOn is one `Left.Col = Right.Col` equality in a Join statement's `on` clause.
type JoinOn struct {
	LeftCol, RightCol string
}

type Join struct {
	Node
	Left, Right string
	ResultName  string
	On          []JoinOn
}

type Export struct {
	Node
	Source Expr
	Path   string
}

type ForEach struct {
	Node
	RowVar string
	Table  string
	Body   []Statement
}

type If struct {
	Node
	Cond Expr
	Then []Statement
	Else []Statement // nil when there is no Otherwise clause
}

type UseSystem struct {
	Node
	Name    string
	Version string
}

type LogIn struct {
	Node
	Credential string // empty when `as credential "..."` is omitted
}

type LogOut struct {
	Node
}

type GoToPage struct {
	Node
	Name string
}

type EnterField struct {
	Node
	Selector string
	Expr     Expr
}

type Click struct {
	Node
	Selector string
}

type Extract struct {
	Node
	Var      string
	Selector string
}

type Define struct {
	Node
	Name     string
	TypeName string
}

type Call struct {
	Node
	ResultName string
}

type OnError struct {
	Node
	Action Statement
}

func (*OpenWorkbook) stmtNode() {}
func (*TreatRange) stmtNode()   {}
func (*SetVar) stmtNode()       {}
func (*AddColumn) stmtNode()    {}
func (*Filter) stmtNode()       {}
func (*Sort) stmtNode()         {}
func (*Group) stmtNode()        {}
func (*Join) stmtNode()         {}
func (*Export) stmtNode()       {}
func (*ForEach) stmtNode()      {}
func (*If) stmtNode()           {}
func (*UseSystem) stmtNode()    {}
func (*LogIn) stmtNode()        {}
func (*LogOut) stmtNode()       {}
func (*GoToPage) stmtNode()     {}
func (*EnterField) stmtNode()   {}
func (*Click) stmtNode()        {}
func (*Extract) stmtNode()      {}
func (*Define) stmtNode()       {}
func (*Call) stmtNode()         {}
func (*OnError) stmtNode()      {}

// ---- Expressions ----

type StringLit struct {
	Node
	Value string
}

type NumberLit struct {
	Node
	Value float64
	Raw   string
}

type MoneyLit struct {
	Node
	Currency string
	Amount   string // decimal string, as lexed
}

type DateLit struct {
	Node
	ISO string // YYYY-MM-DD
}

type BoolLit struct {
	Node
	Value bool
}

type Ident struct {
	Node
	Name string
}

// QualifiedRef is a `Table.Column` or `rowVar.Column` reference.
type QualifiedRef struct {
	Node
	Qualifier string
	Column    string
}

type Unary struct {
	Node
	Op string // "not" | "-"
	X  Expr
}

type Binary struct {
	Node
	Op          string
	Left, Right Expr
}

// Call-like builtins: today(), days_between(a, b).
type BuiltinCall struct {
	Node
	Name string
	Args []Expr
}

func (*StringLit) exprNode()    {}
func (*NumberLit) exprNode()    {}
func (*MoneyLit) exprNode()     {}
func (*DateLit) exprNode()      {}
func (*BoolLit) exprNode()      {}
func (*Ident) exprNode()        {}
func (*QualifiedRef) exprNode() {}
func (*Unary) exprNode()        {}
func (*Binary) exprNode()       {}
func (*BuiltinCall) exprNode()  {}
