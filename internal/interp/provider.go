package interp

import (
	"context"

	"github.com/englishascode/eac/internal/ir"
)

// Request is what the interpreter hands a provider for one OpRecord:
// the resolved argument map plus read access to the live environment,
// for providers that need to consult other tables or variables while
// executing (e.g. Join looks up both of its tables, named by "left"
// and "right" in Args, in Env.Tables).
type Request struct {
	Op   ir.OpCode
	Args map[string]any
	Env  *Environment
}

// Result is a provider method's outcome: OK carries Value, otherwise
// Err explains the failure.
type Result struct {
	OK    bool
	Value any
	Err   error
}

// Ok wraps a successful provider result.
func Ok(v any) Result { return Result{OK: true, Value: v} }

// Fail wraps a failed provider result.
func Fail(err error) Result { return Result{OK: false, Err: err} }

// EffectProvider is the pluggable effect surface: one method per
// opcode family, so callers can swap the provider (dry-run, sqlite,
// remote web) without touching the interpreter. Open/Close bracket
// one Interpreter.Run call.
type EffectProvider interface {
	Open(ctx context.Context) error
	Close() error

	OpenWorkbook(ctx context.Context, req Request) Result
	ReadTable(ctx context.Context, req Request) Result
	Export(ctx context.Context, req Request) Result

	AddColumn(ctx context.Context, req Request) Result
	FilterTable(ctx context.Context, req Request) Result
	SortTable(ctx context.Context, req Request) Result
	GroupTable(ctx context.Context, req Request) Result
	JoinTables(ctx context.Context, req Request) Result

	UseSystem(ctx context.Context, req Request) Result
	Login(ctx context.Context, req Request) Result
	Logout(ctx context.Context, req Request) Result
	GotoPage(ctx context.Context, req Request) Result
	Enter(ctx context.Context, req Request) Result
	Click(ctx context.Context, req Request) Result
	Extract(ctx context.Context, req Request) Result
}
