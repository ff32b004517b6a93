package interp

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/ir"
	"github.com/englishascode/eac/internal/token"
)

// RowFunc is a compiled row-scoped expression: predicates and keys
// compile to closures instead of being re-walked as trees per row.
// Table-algebra providers (e.g. the SQLite-backed one) call it once
// per row they iterate; the closure itself runs the shared Eval
// semantics (row context, short-circuit, null comparisons), so
// expression evaluation still "lives in the interpreter" regardless
// of which provider executes the surrounding loop.
type RowFunc func(Row) (any, error)

// Interpreter is parameterised over the resolved Request built by
// resolveArgs below; Close/Open bracket one Run call.
type Interpreter struct {
	provider EffectProvider
	symbols  *SymbolTable
}

// New creates an Interpreter bound to the given provider. The symbol
// table from type-checking is not required at this stage (the IR is
// already fully resolved against it); Run only needs the provider,
// unless a caller attaches one via WithSymbols.
func New(provider EffectProvider) *Interpreter {
	return &Interpreter{provider: provider}
}

// WithSymbols attaches the checker-produced symbol table so providers
// can read declared column types off Request.Env.Symbols during Run.
// It returns the receiver so it can be chained onto New.
func (in *Interpreter) WithSymbols(symbols *SymbolTable) *Interpreter {
	in.symbols = symbols
	return in
}

// Run executes a full IR program and returns the complete trace. It
// halts at the first unhandled runtime error or when ctx is
// cancelled.
func (in *Interpreter) Run(ctx context.Context, ops []ir.OpRecord) ([]TraceEntry, error) {
	if err := in.provider.Open(ctx); err != nil {
		return nil, errors.Wrap(err, "opening effect provider")
	}
	defer in.provider.Close()

	env := newEnvironment()
	env.Symbols = in.symbols
	trace, _, err := in.run(ctx, ops, env, nil)
	return trace, err
}

// run executes ops in order against env. rc is the active row context
// (non-nil while executing the body of a For each row loop). Returns
// the accumulated trace, whether cancellation was observed, and the
// first unhandled error.
func (in *Interpreter) run(ctx context.Context, ops []ir.OpRecord, env *Environment, rc *RowCtx) ([]TraceEntry, bool, error) {
	var trace []TraceEntry
	var pendingHandler *ir.OpRecord

	for _, op := range ops {
		select {
		case <-ctx.Done():
			trace = append(trace, TraceEntry{ID: newTraceID(), Op: "control.cancelled"})
			return trace, true, nil
		default:
		}

		if op.Op == ir.OpOnError {
			h := extractHandler(op)
			pendingHandler = h
			trace = append(trace, TraceEntry{ID: newTraceID(), Op: op.Op, Args: map[string]any{"installed": true}})
			continue
		}

		entries, cancelled, err := in.execOne(ctx, op, env, rc)
		trace = append(trace, entries...)
		if cancelled {
			return trace, true, nil
		}
		if err != nil {
			if pendingHandler != nil {
				handlerEntries, hCancelled, hErr := in.execOne(ctx, *pendingHandler, env, rc)
				trace = append(trace, handlerEntries...)
				pendingHandler = nil
				if hCancelled {
					return trace, true, nil
				}
				if hErr != nil {
					return trace, false, hErr
				}
				continue
			}
			return trace, false, err
		}
		pendingHandler = nil
	}
	return trace, false, nil
}

func extractHandler(op ir.OpRecord) *ir.OpRecord {
	b, ok := op.Args["handler"].(ir.Block)
	if !ok || len(b.Ops) == 0 {
		return nil
	}
	h := b.Ops[0]
	return &h
}

// execOne executes exactly one OpRecord, returning the trace entries
// it (and any nested control-flow block) produced.
func (in *Interpreter) execOne(ctx context.Context, op ir.OpRecord, env *Environment, rc *RowCtx) ([]TraceEntry, bool, error) {
	switch op.Op {
	case ir.OpForEach:
		return in.execForEach(ctx, op, env, rc)
	case ir.OpIf:
		return in.execIf(ctx, op, env, rc)
	default:
		entry, err := in.callProvider(ctx, op, env, rc)
		return []TraceEntry{entry}, false, err
	}
}

func (in *Interpreter) execForEach(ctx context.Context, op ir.OpRecord, env *Environment, rc *RowCtx) ([]TraceEntry, bool, error) {
	start := time.Now()
	rowVarV, _ := op.Args["row_var"].(ir.Literal)
	rowVar, _ := rowVarV.V.(string)
	tableRef, _ := op.Args["table"].(ir.TableRef)
	body, _ := op.Args["body"].(ir.Block)

	tbl, ok := env.Tables[tableRef.Name]
	var trace []TraceEntry
	trace = append(trace, TraceEntry{ID: newTraceID(), Op: op.Op, Args: map[string]any{"table": tableRef.Name}, Duration: time.Since(start)})
	if !ok {
		return trace, false, &LocatedError{Op: op.Op, Cause: errors.Errorf("unknown table %q", tableRef.Name)}
	}

	for _, row := range tbl.Rows {
		inner := &RowCtx{RowVar: rowVar, Qualifier: tableRef.Name, Row: row}
		entries, cancelled, err := in.run(ctx, body.Ops, env, inner)
		trace = append(trace, entries...)
		if cancelled {
			return trace, true, nil
		}
		if err != nil {
			return trace, false, err
		}
	}
	return trace, false, nil
}

func (in *Interpreter) execIf(ctx context.Context, op ir.OpRecord, env *Environment, rc *RowCtx) ([]TraceEntry, bool, error) {
	start := time.Now()
	condTree, _ := op.Args["cond"].(ir.ExprTree)
	cond, err := Eval(env, rc, condTree.Node)
	if err != nil {
		return []TraceEntry{{ID: newTraceID(), Op: op.Op, Duration: time.Since(start)}}, false, &LocatedError{Op: op.Op, Cause: err}
	}
	b, _ := cond.(bool)

	trace := []TraceEntry{{ID: newTraceID(), Op: op.Op, Args: map[string]any{"cond": b}, Result: b, Duration: time.Since(start)}}

	var branch ir.Block
	if b {
		branch, _ = op.Args["then"].(ir.Block)
	} else if v, ok := op.Args["else"]; ok {
		branch, _ = v.(ir.Block)
	} else {
		return trace, false, nil
	}
	entries, cancelled, err := in.run(ctx, branch.Ops, env, rc)
	trace = append(trace, entries...)
	return trace, cancelled, err
}

// callProvider resolves op's args, invokes the matching provider
// method, and produces the TraceEntry, mutating env on success.
func (in *Interpreter) callProvider(ctx context.Context, op ir.OpRecord, env *Environment, rc *RowCtx) (TraceEntry, error) {
	start := time.Now()
	resolved, err := in.resolveArgs(op, env, rc)
	if err != nil {
		return TraceEntry{ID: newTraceID(), Op: op.Op, Duration: time.Since(start)}, &LocatedError{Op: op.Op, Cause: err}
	}

	req := Request{Op: op.Op, Args: resolved, Env: env}
	res := in.dispatch(ctx, op.Op, req)
	dur := time.Since(start)

	entry := TraceEntry{ID: newTraceID(), Op: op.Op, Args: resolved, Duration: dur}
	if !res.OK {
		entry.Err = &LocatedError{Op: op.Op, Cause: res.Err}
		return entry, entry.Err
	}
	entry.Result = res.Value
	in.applyEffect(op.Op, resolved, res.Value, env)
	return entry, nil
}

func (in *Interpreter) dispatch(ctx context.Context, op ir.OpCode, req Request) Result {
	p := in.provider
	switch op {
	case ir.OpOpenWorkbook:
		return p.OpenWorkbook(ctx, req)
	case ir.OpReadTable:
		return p.ReadTable(ctx, req)
	case ir.OpExport:
		return p.Export(ctx, req)
	case ir.OpAddColumn:
		return p.AddColumn(ctx, req)
	case ir.OpFilter:
		return p.FilterTable(ctx, req)
	case ir.OpSort:
		return p.SortTable(ctx, req)
	case ir.OpGroup:
		return p.GroupTable(ctx, req)
	case ir.OpJoin:
		return p.JoinTables(ctx, req)
	case ir.OpSetVar:
		if v, ok := req.Args["expr"]; ok {
			return Ok(v)
		}
		// Define ("Define X as a Type.") carries a "declare" arg instead
		// of "expr": bind nil under the name so later statements can
		// still resolve it.
		return Ok(nil)
	case ir.OpCallResult:
		return Ok(nil)
	case ir.OpUseSystem:
		return p.UseSystem(ctx, req)
	case ir.OpLogin:
		return p.Login(ctx, req)
	case ir.OpLogout:
		return p.Logout(ctx, req)
	case ir.OpGotoPage:
		return p.GotoPage(ctx, req)
	case ir.OpEnter:
		return p.Enter(ctx, req)
	case ir.OpClick:
		return p.Click(ctx, req)
	case ir.OpExtract:
		return p.Extract(ctx, req)
	default:
		return Fail(errors.Errorf("unhandled opcode %q", op))
	}
}

// applyEffect binds a successful result into env per the op's kind.
func (in *Interpreter) applyEffect(op ir.OpCode, args map[string]any, result any, env *Environment) {
	switch op {
	case ir.OpSetVar:
		name, _ := args["name"].(string)
		env.Variables[name] = result
	case ir.OpReadTable:
		name, _ := args["table"].(string)
		if tbl, ok := result.(*Table); ok {
			tbl.Name = name
			env.Tables[name] = tbl
		}
	case ir.OpAddColumn, ir.OpFilter, ir.OpSort:
		name, _ := tableNameArg(args)
		if tbl, ok := result.(*Table); ok {
			tbl.Name = name
			env.Tables[name] = tbl
		}
	case ir.OpGroup:
		name, _ := tableNameArg(args)
		if tbl, ok := result.(*Table); ok {
			tbl.Name = name
			env.Tables[name] = tbl
		}
	case ir.OpJoin:
		name, _ := args["result"].(string)
		if tbl, ok := result.(*Table); ok {
			tbl.Name = name
			env.Tables[name] = tbl
		}
	case ir.OpExtract:
		name, _ := args["var"].(string)
		env.Variables[name] = result
	}
}

func tableNameArg(args map[string]any) (string, bool) {
	if v, ok := args["table"].(string); ok {
		return v, true
	}
	return "", false
}

// resolveArgs walks op's Value args: Literal passes through;
// VarRef/TableRef look up in env; ExprTree compiles
// to a RowFunc closure when a row-shaped op needs one (filter
// predicate, sort key, add-column expr) or evaluates immediately
// otherwise (set_var, export source, web.enter value); Block is left
// for the caller to execute recursively, not resolved here. Group
// aggregations pass through unresolved and are compiled by the
// provider via ResolveAggregations.
func (in *Interpreter) resolveArgs(op ir.OpRecord, env *Environment, rc *RowCtx) (map[string]any, error) {
	qualifier := ""
	if tr, ok := op.Args["table"].(ir.TableRef); ok {
		qualifier = tr.Name
	}
	out := make(map[string]any, len(op.Args))
	for k, v := range op.Args {
		rv, err := in.resolveValue(op.Op, k, v, env, rc, qualifier)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

func (in *Interpreter) resolveValue(op ir.OpCode, key string, v ir.Value, env *Environment, rc *RowCtx, qualifier string) (any, error) {
	switch x := v.(type) {
	case ir.Literal:
		return normalizeLiteral(x.V), nil
	case ir.VarRef:
		return env.Variables[x.Name], nil
	case ir.TableRef:
		return x.Name, nil
	case ir.ColRef:
		if rc != nil {
			return rc.Row[x.Column], nil
		}
		return nil, nil
	case ir.ExprTree:
		if isRowScopedArg(op, key) {
			node := x.Node
			return RowFunc(func(row Row) (any, error) {
				return Eval(env, &RowCtx{RowVar: qualifier, Qualifier: qualifier, Row: row}, node)
			}), nil
		}
		return Eval(env, rc, x.Node)
	case ir.Block:
		return x, nil
	default:
		return nil, errors.Errorf("resolveValue: unhandled value type %T", v)
	}
}

// isRowScopedArg reports whether the named argument of op must be
// compiled to a per-row RowFunc rather than evaluated once.
func isRowScopedArg(op ir.OpCode, key string) bool {
	switch {
	case op == ir.OpFilter && key == "predicate":
		return true
	case op == ir.OpSort && key == "key":
		return true
	case op == ir.OpAddColumn && key == "expr":
		return true
	default:
		return false
	}
}

// normalizeLiteral converts AST-adjacent literal payloads (e.g. a
// token.RangeValue) into the plain Go values providers expect.
func normalizeLiteral(v any) any {
	switch x := v.(type) {
	case token.RangeValue:
		return x
	case ast.JoinOn:
		return x
	case []ir.Value:
		out := make([]any, len(x))
		for i, e := range x {
			if lit, ok := e.(ir.Literal); ok {
				out[i] = normalizeLiteral(lit.V)
			} else {
				out[i] = e
			}
		}
		return out
	default:
		return v
	}
}

// AggregationSpec is one resolved `with name = func(expr)` clause of a
// Group statement, ready for a provider to apply per partition.
type AggregationSpec struct {
	Name string
	Func string
	Arg  RowFunc
}

// ResolveAggregations unwraps the ir.Literal{[]ir.Value} produced by
// ir.Lower for a table.group op's "aggregations" arg (a slice of
// ir.Block, each holding one nested "group.aggregation" OpRecord) into
// AggregationSpecs whose Arg closures evaluate against a row supplied
// by the provider's own per-partition iteration. Exported for use by
// EffectProvider implementations (e.g. the SQLite-backed one), which
// own the partitioning logic and so must resolve these themselves
// rather than through the generic resolveArgs path.
func ResolveAggregations(env *Environment, tableQualifier string, aggsArg any) ([]AggregationSpec, error) {
	raw, ok := aggsArg.([]any)
	if !ok {
		return nil, errors.Errorf("ResolveAggregations: unexpected aggregations arg type %T", aggsArg)
	}
	out := make([]AggregationSpec, 0, len(raw))
	for _, item := range raw {
		block, ok := item.(ir.Block)
		if !ok || len(block.Ops) != 1 {
			return nil, errors.Errorf("ResolveAggregations: expected a single-op block, got %T", item)
		}
		op := block.Ops[0]
		nameLit, _ := op.Args["name"].(ir.Literal)
		funcLit, _ := op.Args["func"].(ir.Literal)
		argTree, ok := op.Args["arg"].(ir.ExprTree)
		if !ok {
			return nil, errors.Errorf("ResolveAggregations: missing arg expression")
		}
		name, _ := nameLit.V.(string)
		fn, _ := funcLit.V.(string)
		node := argTree.Node
		out = append(out, AggregationSpec{
			Name: name,
			Func: fn,
			Arg: func(row Row) (any, error) {
				return Eval(env, &RowCtx{Qualifier: tableQualifier, Row: row}, node)
			},
		})
	}
	return out, nil
}
