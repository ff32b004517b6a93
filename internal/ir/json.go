package ir

import (
	"encoding/json"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/money"
	"github.com/englishascode/eac/internal/token"
)

// recordJSON and friends implement the stable IR JSON format,
// following a normalize-then-marshal approach: normalize to
// JSON-friendly shapes first, then call encoding/json.Marshal, rather
// than hand-writing MarshalJSON on every Value variant.
type recordJSON struct {
	Op   OpCode         `json:"op"`
	Args map[string]any `json:"args"`
}

// MarshalJSON renders a list of OpRecords as the stable top-level
// array of {"op", "args"} objects.
func MarshalJSON(records []OpRecord) ([]byte, error) {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		out = append(out, recordJSON{Op: r.Op, Args: normalizeArgs(r.Args)})
	}
	return json.MarshalIndent(out, "", "  ")
}

func normalizeArgs(args map[string]Value) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v Value) any {
	switch x := v.(type) {
	case Literal:
		return normalizeScalar(x.V)
	case VarRef:
		return map[string]any{"ref": x.Name}
	case TableRef:
		return map[string]any{"table": x.Name}
	case ColRef:
		return map[string]any{"table": x.Table, "column": x.Column}
	case ExprTree:
		return map[string]any{"expr": normalizeExpr(x.Node)}
	case Block:
		ops := make([]recordJSON, 0, len(x.Ops))
		for _, op := range x.Ops {
			ops = append(ops, recordJSON{Op: op.Op, Args: normalizeArgs(op.Args)})
		}
		return map[string]any{"block": ops}
	default:
		return nil
	}
}

func normalizeScalar(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case token.RangeValue:
		return map[string]any{"range": rangeString(x)}
	case ast.JoinOn:
		return map[string]any{"left_col": x.LeftCol, "right_col": x.RightCol}
	case []Value:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	case money.Money:
		return map[string]any{"currency": x.Currency, "amount": x.DecimalString()}
	default:
		return x
	}
}

func rangeString(rv token.RangeValue) string {
	return colLetters(rv.StartCol) + itoa(rv.StartRow) + colLetters(rv.EndCol) + itoa(rv.EndRow)
}

func colLetters(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var out []byte
	for n > 0 {
		out = append([]byte{byte('0' + n%10)}, out...)
		n /= 10
	}
	return string(out)
}

// normalizeExpr renders an ast.Expr as the {"op","left","right"}
// expression-tree shape. Literals render as their decoded values;
// identifiers and qualified refs render as "ref"/"table"+"column"
// maps, matching the rest of the IR's reference encoding.
func normalizeExpr(e ast.Expr) any {
	switch x := e.(type) {
	case *ast.StringLit:
		return x.Value
	case *ast.NumberLit:
		return x.Value
	case *ast.BoolLit:
		return x.Value
	case *ast.DateLit:
		return map[string]any{"date": x.ISO}
	case *ast.MoneyLit:
		return map[string]any{"currency": x.Currency, "amount": x.Amount}
	case *ast.Ident:
		return map[string]any{"ref": x.Name}
	case *ast.QualifiedRef:
		return map[string]any{"table": x.Qualifier, "column": x.Column}
	case *ast.Unary:
		return map[string]any{"op": x.Op, "expr": normalizeExpr(x.X)}
	case *ast.Binary:
		return map[string]any{"op": x.Op, "left": normalizeExpr(x.Left), "right": normalizeExpr(x.Right)}
	case *ast.BuiltinCall:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			args[i] = normalizeExpr(a)
		}
		return map[string]any{"op": "call", "name": x.Name, "args": args}
	default:
		return nil
	}
}
