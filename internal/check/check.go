// Package check implements the EAC static type checker.
//
// What: one left-to-right pass over the AST that resolves variables,
// table names and column references, and enforces literal domains
// (money currency compatibility, dates, booleans).
// How: a single Checker struct carrying a Scope (the symbol table),
// accumulating Diagnostics in a slice rather than via panic/recover.
// This mirrors a hand-written CatalogManager as a central metadata
// registry other passes consult, simplified to a single-owner,
// single-pass scope since EAC programs run once and are never
// re-checked incrementally.
// Why: collecting multiple diagnostics per run, instead of aborting on
// the first, lets the checker continue with the next statement after
// a failure, so a single check can surface multiple errors.
package check

import (
	"fmt"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/money"
	"github.com/englishascode/eac/internal/token"
)

// Type is the closed set of inferred EAC types.
type Type int

const (
	Unknown Type = iota
	TString
	TNumber
	TMoney
	TDate
	TBoolean
	TRow
	TTable
)

func (t Type) String() string {
	switch t {
	case TString:
		return "String"
	case TNumber:
		return "Number"
	case TMoney:
		return "Money"
	case TDate:
		return "Date"
	case TBoolean:
		return "Boolean"
	case TRow:
		return "Row"
	case TTable:
		return "Table"
	default:
		return "Unknown"
	}
}

// InferredType pairs a Type with its money currency, when applicable.
type InferredType struct {
	Kind     Type
	Currency string // set only when Kind == TMoney
	RowOf    string // set only when Kind == TRow: the table it rows over
}

// TableType is the declared shape of a table: its columns (lazily
// resolved) and the index of the statement that declared it, so every
// Table.Column reference can be checked against a table declared
// earlier in program order.
type TableType struct {
	Columns    map[string]InferredType
	OriginStmt int
}

// Scope is the symbol table built and carried forward by Checker.
type Scope struct {
	Variables map[string]InferredType
	Tables    map[string]*TableType
}

func newScope() *Scope {
	return &Scope{Variables: map[string]InferredType{}, Tables: map[string]*TableType{}}
}

func (s *Scope) clone() *Scope {
	c := newScope()
	for k, v := range s.Variables {
		c.Variables[k] = v
	}
	for k, v := range s.Tables {
		c.Tables[k] = v // tables are shared by reference; ForEach/If don't redeclare tables
	}
	return c
}

// Diagnostic is a located type-check error.
type Diagnostic struct {
	Pos token.Position
	Msg string
}

func (d Diagnostic) Error() string { return fmt.Sprintf("%d:%d: %s", d.Pos.Line, d.Pos.Col, d.Msg) }

// Checker performs the single left-to-right semantic pass.
type Checker struct {
	scope *Scope
	diags []Diagnostic
}

// New creates a Checker with an empty top-level scope.
func New() *Checker {
	return &Checker{scope: newScope()}
}

// Check type-checks a Program, returning the final Scope (for lowering
// and the interpreter) and any diagnostics gathered. A non-empty
// diagnostics slice means the program is rejected.
func Check(prog *ast.Program) (*Scope, []Diagnostic) {
	c := New()
	for i, stmt := range prog.Statements {
		c.checkStatement(i, stmt, c.scope)
	}
	return c.scope, c.diags
}

func (c *Checker) errorf(pos token.Position, format string, a ...any) {
	c.diags = append(c.diags, Diagnostic{Pos: pos, Msg: fmt.Sprintf(format, a...)})
}

// checkStatement checks one top-level (or nested) statement. On the
// first fatal error within it, it stops checking that statement's
// substructure but the caller still moves on to the next statement.
func (c *Checker) checkStatement(idx int, stmt ast.Statement, scope *Scope) {
	switch s := stmt.(type) {
	case *ast.OpenWorkbook:
		// no binding effect; path is already a string literal by grammar.
	case *ast.TreatRange:
		if s.Range.EndRow < s.Range.StartRow || s.Range.EndCol < s.Range.StartCol {
			c.errorf(s.Pos, "invalid range: end must not precede start")
			return
		}
		scope.Tables[s.TableName] = &TableType{Columns: map[string]InferredType{}, OriginStmt: idx}
	case *ast.SetVar:
		t, ok := c.inferExpr(s.Expr, scope, nil)
		if !ok {
			return
		}
		scope.Variables[s.Name] = t
	case *ast.AddColumn:
		tbl, ok := scope.Tables[s.Table]
		if !ok {
			c.errorf(s.Pos, "unknown table '%s'", s.Table)
			return
		}
		t, ok := c.inferExpr(s.Expr, scope, tbl)
		if !ok {
			return
		}
		tbl.Columns[s.Column] = t
	case *ast.Filter:
		tbl, ok := scope.Tables[s.Table]
		if !ok {
			c.errorf(s.Pos, "unknown table '%s'", s.Table)
			return
		}
		t, ok := c.inferExpr(s.Predicate, scope, tbl)
		if !ok {
			return
		}
		nonBool := t.Kind != TBoolean && t.Kind != Unknown
		if b, isBin := s.Predicate.(*ast.Binary); isBin && (b.Op == "+" || b.Op == "-" || b.Op == "*" || b.Op == "/") {
			// Arithmetic never yields a Boolean, even over Unknown operands.
			nonBool = true
		}
		if nonBool {
			c.errorf(s.Pos, "Filter predicate must be Boolean, got %s", t.Kind)
		}
	case *ast.Sort:
		tbl, ok := scope.Tables[s.Table]
		if !ok {
			c.errorf(s.Pos, "unknown table '%s'", s.Table)
			return
		}
		t, ok := c.inferExpr(s.Key, scope, tbl)
		if !ok {
			return
		}
		if !isOrderable(t.Kind) && t.Kind != Unknown {
			c.errorf(s.Pos, "Sort key must be Number, Money, Date or String, got %s", t.Kind)
		}
	case *ast.Group:
		tbl, ok := scope.Tables[s.Table]
		if !ok {
			c.errorf(s.Pos, "unknown table '%s'", s.Table)
			return
		}
		for _, k := range s.Keys {
			if _, ok := tbl.Columns[k]; !ok {
				tbl.Columns[k] = InferredType{Kind: Unknown}
			}
		}
		for _, agg := range s.Aggregations {
			if _, ok := c.inferExpr(agg.Arg, scope, tbl); !ok {
				return
			}
		}
	case *ast.Join:
		left, ok := scope.Tables[s.Left]
		if !ok {
			c.errorf(s.Pos, "unknown table '%s'", s.Left)
			return
		}
		right, ok := scope.Tables[s.Right]
		if !ok {
			c.errorf(s.Pos, "unknown table '%s'", s.Right)
			return
		}
		for _, on := range s.On {
			if _, ok := left.Columns[on.LeftCol]; !ok {
				left.Columns[on.LeftCol] = InferredType{Kind: Unknown}
			}
			if _, ok := right.Columns[on.RightCol]; !ok {
				right.Columns[on.RightCol] = InferredType{Kind: Unknown}
			}
		}
		scope.Tables[s.ResultName] = &TableType{Columns: map[string]InferredType{}, OriginStmt: idx}
	case *ast.Export:
		if _, ok := c.inferExpr(s.Source, scope, nil); !ok {
			return
		}
	case *ast.ForEach:
		tbl, ok := scope.Tables[s.Table]
		if !ok {
			c.errorf(s.Pos, "unknown table '%s'", s.Table)
			return
		}
		inner := scope.clone()
		inner.Variables[s.RowVar] = InferredType{Kind: TRow, RowOf: s.Table}
		for i, st := range s.Body {
			c.checkStatement(idx*1000+i, st, inner)
		}
	case *ast.If:
		t, ok := c.inferExpr(s.Cond, scope, nil)
		if !ok {
			return
		}
		if t.Kind != TBoolean && t.Kind != Unknown {
			c.errorf(s.Pos, "If condition must be Boolean, got %s", t.Kind)
		}
		inner := scope.clone()
		for i, st := range s.Then {
			c.checkStatement(idx*1000+i, st, inner)
		}
		if s.Else != nil {
			innerElse := scope.clone()
			for i, st := range s.Else {
				c.checkStatement(idx*1000+500+i, st, innerElse)
			}
		}
	case *ast.UseSystem, *ast.LogIn, *ast.LogOut, *ast.GoToPage, *ast.Click:
		// No symbol-table effect; arguments are already string literals
		// by grammar.
	case *ast.EnterField:
		if _, ok := c.inferExpr(s.Expr, scope, nil); !ok {
			return
		}
	case *ast.Extract:
		scope.Variables[s.Var] = InferredType{Kind: TString}
	case *ast.Define:
		scope.Variables[s.Name] = InferredType{Kind: typeFromName(s.TypeName)}
	case *ast.Call:
		scope.Variables[s.ResultName] = InferredType{Kind: Unknown}
	case *ast.OnError:
		c.checkStatement(idx, s.Action, scope)
	default:
		c.errorf(stmt.Position(), "internal error: unhandled statement type %T", stmt)
	}
}

func typeFromName(name string) Type {
	switch name {
	case "String":
		return TString
	case "Number":
		return TNumber
	case "Money":
		return TMoney
	case "Date":
		return TDate
	case "Boolean":
		return TBoolean
	default:
		return Unknown
	}
}

func isOrderable(t Type) bool {
	return t == TNumber || t == TMoney || t == TDate || t == TString
}

// inferExpr infers the type of expr under the optional row context
// rowCtx (the table whose columns unqualified identifiers resolve
// against inside a For each row / Filter / Sort / Add column
// predicate). Returns ok=false if a fatal error was recorded.
func (c *Checker) inferExpr(expr ast.Expr, scope *Scope, rowCtx *TableType) (InferredType, bool) {
	switch e := expr.(type) {
	case *ast.StringLit:
		return InferredType{Kind: TString}, true
	case *ast.NumberLit:
		return InferredType{Kind: TNumber}, true
	case *ast.BoolLit:
		return InferredType{Kind: TBoolean}, true
	case *ast.DateLit:
		return InferredType{Kind: TDate}, true
	case *ast.MoneyLit:
		canon, err := money.ParseCurrency(e.Currency)
		if err != nil {
			c.errorf(e.Pos, "%s", err.Error())
			return InferredType{}, false
		}
		return InferredType{Kind: TMoney, Currency: canon}, true
	case *ast.Ident:
		if t, ok := scope.Variables[e.Name]; ok {
			return t, true
		}
		if _, ok := scope.Tables[e.Name]; ok {
			return InferredType{Kind: TTable}, true
		}
		if rowCtx != nil {
			if t, ok := rowCtx.Columns[e.Name]; ok {
				return t, true
			}
			rowCtx.Columns[e.Name] = InferredType{Kind: Unknown}
			return InferredType{Kind: Unknown}, true
		}
		c.errorf(e.Pos, "unknown identifier '%s'", e.Name)
		return InferredType{}, false
	case *ast.QualifiedRef:
		var tbl *TableType
		if rv, ok := scope.Variables[e.Qualifier]; ok && rv.Kind == TRow {
			tbl = scope.Tables[rv.RowOf]
		} else if t, ok := scope.Tables[e.Qualifier]; ok {
			tbl = t
		} else {
			c.errorf(e.Pos, "unknown table '%s'", e.Qualifier)
			return InferredType{}, false
		}
		if t, ok := tbl.Columns[e.Column]; ok {
			return t, true
		}
		tbl.Columns[e.Column] = InferredType{Kind: Unknown}
		return InferredType{Kind: Unknown}, true
	case *ast.Unary:
		t, ok := c.inferExpr(e.X, scope, rowCtx)
		if !ok {
			return InferredType{}, false
		}
		if e.Op == "not" {
			if t.Kind != TBoolean && t.Kind != Unknown {
				c.errorf(e.Pos, "'not' requires Boolean, got %s", t.Kind)
				return InferredType{}, false
			}
			return InferredType{Kind: TBoolean}, true
		}
		// unary '-'
		if t.Kind != TNumber && t.Kind != TMoney && t.Kind != Unknown {
			c.errorf(e.Pos, "unary '-' requires Number or Money, got %s", t.Kind)
			return InferredType{}, false
		}
		return t, true
	case *ast.Binary:
		return c.inferBinary(e, scope, rowCtx)
	case *ast.BuiltinCall:
		return c.inferBuiltin(e, scope, rowCtx)
	default:
		c.errorf(expr.Position(), "internal error: unhandled expression type %T", expr)
		return InferredType{}, false
	}
}

func (c *Checker) inferBuiltin(e *ast.BuiltinCall, scope *Scope, rowCtx *TableType) (InferredType, bool) {
	switch e.Name {
	case "today":
		if len(e.Args) != 0 {
			c.errorf(e.Pos, "today() takes no arguments")
			return InferredType{}, false
		}
		return InferredType{Kind: TDate}, true
	case "days_between":
		if len(e.Args) != 2 {
			c.errorf(e.Pos, "days_between(a, b) takes exactly two arguments")
			return InferredType{}, false
		}
		for _, a := range e.Args {
			t, ok := c.inferExpr(a, scope, rowCtx)
			if !ok {
				return InferredType{}, false
			}
			if t.Kind != TDate && t.Kind != Unknown {
				c.errorf(a.Position(), "days_between arguments must be Date, got %s", t.Kind)
				return InferredType{}, false
			}
		}
		return InferredType{Kind: TNumber}, true
	default:
		c.errorf(e.Pos, "unknown builtin function '%s'", e.Name)
		return InferredType{}, false
	}
}

func (c *Checker) inferBinary(e *ast.Binary, scope *Scope, rowCtx *TableType) (InferredType, bool) {
	lt, ok := c.inferExpr(e.Left, scope, rowCtx)
	if !ok {
		return InferredType{}, false
	}
	rt, ok := c.inferExpr(e.Right, scope, rowCtx)
	if !ok {
		return InferredType{}, false
	}

	switch e.Op {
	case "and", "or":
		if (lt.Kind != TBoolean && lt.Kind != Unknown) || (rt.Kind != TBoolean && rt.Kind != Unknown) {
			c.errorf(e.Pos, "'%s' requires Boolean operands, got %s and %s", e.Op, lt.Kind, rt.Kind)
			return InferredType{}, false
		}
		return InferredType{Kind: TBoolean}, true
	case "=", "!=", ">", "<", ">=", "<=":
		if lt.Kind == TMoney && rt.Kind == TMoney && lt.Currency != rt.Currency {
			c.errorf(e.Pos, "currency mismatch: %s vs %s", lt.Currency, rt.Currency)
			return InferredType{}, false
		}
		return InferredType{Kind: TBoolean}, true
	case "+", "-":
		return c.inferArith(e, lt, rt)
	case "*":
		if lt.Kind == TMoney && (rt.Kind == TNumber || rt.Kind == Unknown) {
			return InferredType{Kind: TMoney, Currency: lt.Currency}, true
		}
		if rt.Kind == TMoney && (lt.Kind == TNumber || lt.Kind == Unknown) {
			return InferredType{Kind: TMoney, Currency: rt.Currency}, true
		}
		if lt.Kind == TNumber && rt.Kind == TNumber {
			return InferredType{Kind: TNumber}, true
		}
		if lt.Kind == Unknown || rt.Kind == Unknown {
			return InferredType{Kind: Unknown}, true
		}
		c.errorf(e.Pos, "'*' is not defined for %s and %s", lt.Kind, rt.Kind)
		return InferredType{}, false
	case "/":
		if lt.Kind == TNumber && rt.Kind == TNumber {
			return InferredType{Kind: TNumber}, true
		}
		if lt.Kind == TMoney && rt.Kind == TNumber {
			return InferredType{Kind: TMoney, Currency: lt.Currency}, true
		}
		if lt.Kind == Unknown || rt.Kind == Unknown {
			return InferredType{Kind: Unknown}, true
		}
		c.errorf(e.Pos, "'/' is not defined for %s and %s", lt.Kind, rt.Kind)
		return InferredType{}, false
	default:
		c.errorf(e.Pos, "internal error: unhandled operator %q", e.Op)
		return InferredType{}, false
	}
}

func (c *Checker) inferArith(e *ast.Binary, lt, rt InferredType) (InferredType, bool) {
	switch {
	case lt.Kind == TMoney && rt.Kind == TMoney:
		if lt.Currency != rt.Currency {
			c.errorf(e.Pos, "currency mismatch: %s vs %s", lt.Currency, rt.Currency)
			return InferredType{}, false
		}
		return InferredType{Kind: TMoney, Currency: lt.Currency}, true
	case lt.Kind == TDate && rt.Kind == TDate:
		if e.Op != "-" {
			c.errorf(e.Pos, "Date + Date is not defined; only Date - Date -> Number")
			return InferredType{}, false
		}
		return InferredType{Kind: TNumber}, true
	case lt.Kind == TDate && rt.Kind == TNumber:
		return InferredType{Kind: TDate}, true
	case lt.Kind == TNumber && rt.Kind == TNumber:
		return InferredType{Kind: TNumber}, true
	case lt.Kind == Unknown || rt.Kind == Unknown:
		return InferredType{Kind: Unknown}, true
	default:
		c.errorf(e.Pos, "'%s' is not defined for %s and %s", e.Op, lt.Kind, rt.Kind)
		return InferredType{}, false
	}
}
