// Package ir defines the EAC intermediate representation: an ordered
// list of opcode records plus the lowering pass from a type-checked
// AST.
//
// What: OpCode (a closed enumeration), Value (a closed tagged-variant
// argument type: Literal | VarRef | TableRef | ColRef | ExprTree |
// Block), and OpRecord{Op, Args}.
// How: Value is a small closed interface with an unexported marker
// method, avoiding open polymorphism, the same shape ast.Expr uses.
// Lowering is a single pass, one top-level OpRecord per AST statement,
// deterministic and order-preserving.
// Why: a linear, closed-shape IR is what makes the IR JSON format
// stable and the interpreter's arg-resolution loop a simple type
// switch instead of a visitor hierarchy.
package ir

import (
	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/token"
)

// OpCode is the closed set of IR opcodes.
type OpCode string

const (
	OpOpenWorkbook OpCode = "excel.open_workbook"
	OpReadTable    OpCode = "excel.read_table"
	OpExport       OpCode = "excel.export"
	OpAddColumn    OpCode = "table.add_column"
	OpFilter       OpCode = "table.filter"
	OpSort         OpCode = "table.sort"
	OpGroup        OpCode = "table.group"
	OpJoin         OpCode = "table.join"
	OpSetVar       OpCode = "set_var"
	OpCallResult   OpCode = "call_result"
	OpUseSystem    OpCode = "web.use_system"
	OpLogin        OpCode = "web.login"
	OpLogout       OpCode = "web.logout"
	OpGotoPage     OpCode = "web.goto_page"
	OpEnter        OpCode = "web.enter"
	OpClick        OpCode = "web.click"
	OpExtract      OpCode = "web.extract"
	OpForEach      OpCode = "control.for_each"
	OpIf           OpCode = "control.if"
	OpOnError      OpCode = "control.on_error"
)

// Value is the closed argument-value variant.
type Value interface {
	irValue()
}

// Literal wraps a plain scalar: string, float64, bool, money.Money, or
// a date string (YYYY-MM-DD).
type Literal struct{ V any }

// VarRef names a variable to resolve from the environment.
type VarRef struct{ Name string }

// TableRef names a table to resolve from the environment.
type TableRef struct{ Name string }

// ColRef names a column of a table (or row context).
type ColRef struct{ Table, Column string }

// ExprTree carries an unevaluated expression, interpreted per the
// interpreter's expression evaluation rules.
type ExprTree struct{ Node ast.Expr }

// Block carries a nested, ordered sequence of OpRecords (for
// control.for_each and control.if bodies).
type Block struct{ Ops []OpRecord }

func (Literal) irValue()  {}
func (VarRef) irValue()   {}
func (TableRef) irValue() {}
func (ColRef) irValue()   {}
func (ExprTree) irValue() {}
func (Block) irValue()    {}

// OpRecord is one linear IR instruction.
type OpRecord struct {
	Op   OpCode
	Args map[string]Value
	Pos  token.Position // source position of the statement, not part of the JSON wire format; runtime errors (interp.LocatedError) do not carry it
}
