// Package interp implements the EAC interpreter.
//
// What: drives an IR op list against a pluggable EffectProvider,
// producing a step-by-step Trace. State is a mutable Environment
// (variables, tables) plus the accumulating trace.
// How: single-threaded, cooperative: each OpRecord runs to completion
// before the next begins, the only suspension points are provider
// calls, and a caller-supplied context is checked between opcodes for
// cooperative cancellation. This mirrors a hand-written
// Execute(ctx, db, tenant, stmt) entry point generalized from one SQL
// statement to one IR record.
// Why: keeping the environment exclusively owned by one interpreter
// invocation (no cross-run sharing) is what makes dry-run determinism
// possible to reason about.
package interp

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/englishascode/eac/internal/check"
	"github.com/englishascode/eac/internal/ir"
)

// LocatedError is a runtime error surfaced from a provider call,
// carrying the opcode and the underlying cause.
type LocatedError struct {
	Op    ir.OpCode
	Cause error
}

func (e *LocatedError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Cause) }
func (e *LocatedError) Unwrap() error { return e.Cause }

// Row is one row of a table: column name to scalar value.
type Row map[string]any

// Table is an in-memory result set: ordered rows plus a stable column
// order for deterministic JSON/CSV export.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Clone returns a deep-enough copy of t for wholesale replacement
// semantics: tables are replaced wholesale by table-algebra ops, not
// mutated in place.
func (t *Table) Clone() *Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		rows[i] = nr
	}
	return &Table{Name: t.Name, Columns: cols, Rows: rows}
}

// Environment is owned exclusively by one interpreter invocation:
// variables and tables, replaced wholesale by table algebra ops
// rather than mutated in place.
type Environment struct {
	Variables map[string]any
	Tables    map[string]*Table
	// Symbols is the checker-produced symbol table for this run, when
	// the caller supplied one via Interpreter.WithSymbols. Providers can
	// read it off Request.Env to recover declared column types (e.g. to
	// format an exported column as Money rather than a bare number).
	Symbols *SymbolTable
}

func newEnvironment() *Environment {
	return &Environment{Variables: map[string]any{}, Tables: map[string]*Table{}}
}

// TraceEntry is one executed IR record's observable result.
type TraceEntry struct {
	ID       uuid.UUID
	Op       ir.OpCode
	Args     map[string]any
	Result   any
	Err      *LocatedError
	Duration time.Duration
}

func newTraceID() uuid.UUID {
	id, genErr := uuid.NewV7()
	if genErr != nil {
		return uuid.Nil
	}
	return id
}

// SymbolTable is the checker-produced symbol table, threaded through
// for providers that want declared column types (e.g. to format
// exported values); it is read-only at interpretation time.
type SymbolTable = check.Scope
