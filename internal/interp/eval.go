package interp

import (
	"math"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/money"
)

// RowCtx is the immutable, push-on-scope row context expression
// evaluation is supplied: an immutable mapping pushed onto the call,
// never ambient mutable state. RowVar is the bound identifier (e.g.
// the `r` in `For each row r in
// T`); Qualifier is the table name rows of this context belong to, so
// `T.Column` and `r.Column` both resolve against Row.
type RowCtx struct {
	RowVar    string
	Qualifier string
	Row       Row
}

// dateLayout is the wire and internal representation for EAC dates:
// YYYY-MM-DD, always UTC midnight.
const dateLayout = "2006-01-02"

func parseDate(iso string) (time.Time, error) {
	return time.Parse(dateLayout, iso)
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

// Eval evaluates expr against env and an optional row context.
// Identifier lookup order: row context column first (if rc != nil and
// matches), then environment variables, then tables — the row-scoped
// lookup used by predicates and column-deriving expressions.
func Eval(env *Environment, rc *RowCtx, expr ast.Expr) (any, error) {
	switch e := expr.(type) {
	case *ast.StringLit:
		return e.Value, nil
	case *ast.NumberLit:
		return e.Value, nil
	case *ast.BoolLit:
		return e.Value, nil
	case *ast.DateLit:
		return e.ISO, nil
	case *ast.MoneyLit:
		amt, err := money.ParseAmount(e.Amount)
		if err != nil {
			return nil, err
		}
		m, err := money.New(e.Currency, amt)
		if err != nil {
			return nil, err
		}
		return m, nil
	case *ast.Ident:
		if rc != nil {
			if v, ok := rc.Row[e.Name]; ok {
				return v, nil
			}
		}
		if v, ok := env.Variables[e.Name]; ok {
			return v, nil
		}
		if tbl, ok := env.Tables[e.Name]; ok {
			return tbl, nil
		}
		return nil, nil
	case *ast.QualifiedRef:
		if rc != nil && (rc.RowVar == e.Qualifier || rc.Qualifier == e.Qualifier) {
			return rc.Row[e.Column], nil
		}
		if tbl, ok := env.Tables[e.Qualifier]; ok {
			// Out-of-row-context qualified reference (e.g. inside a
			// scalar expression referring to a table directly): resolve
			// against the first row, if any, for determinism.
			if len(tbl.Rows) > 0 {
				return tbl.Rows[0][e.Column], nil
			}
			return nil, nil
		}
		return nil, nil
	case *ast.Unary:
		return evalUnary(env, rc, e)
	case *ast.Binary:
		return evalBinary(env, rc, e)
	case *ast.BuiltinCall:
		return evalBuiltin(env, rc, e)
	default:
		return nil, errors.Errorf("eval: unhandled expression type %T", expr)
	}
}

func evalUnary(env *Environment, rc *RowCtx, e *ast.Unary) (any, error) {
	v, err := Eval(env, rc, e.X)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "not":
		b, _ := v.(bool)
		return !b, nil
	case "-":
		switch x := v.(type) {
		case float64:
			return -x, nil
		case money.Money:
			return money.MulScalar(x, bigRatFromFloat(-1)), nil
		default:
			return nil, errors.Errorf("unary '-' not defined for %T", v)
		}
	default:
		return nil, errors.Errorf("unknown unary operator %q", e.Op)
	}
}

func evalBinary(env *Environment, rc *RowCtx, e *ast.Binary) (any, error) {
	// Short-circuit and/or.
	if e.Op == "and" {
		l, err := Eval(env, rc, e.Left)
		if err != nil {
			return nil, err
		}
		if lb, _ := l.(bool); !lb {
			return false, nil
		}
		r, err := Eval(env, rc, e.Right)
		if err != nil {
			return nil, err
		}
		rb, _ := r.(bool)
		return rb, nil
	}
	if e.Op == "or" {
		l, err := Eval(env, rc, e.Left)
		if err != nil {
			return nil, err
		}
		if lb, _ := l.(bool); lb {
			return true, nil
		}
		r, err := Eval(env, rc, e.Right)
		if err != nil {
			return nil, err
		}
		rb, _ := r.(bool)
		return rb, nil
	}

	l, err := Eval(env, rc, e.Left)
	if err != nil {
		return nil, err
	}
	r, err := Eval(env, rc, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "=", "!=", ">", "<", ">=", "<=":
		return evalComparison(e.Op, l, r)
	case "+", "-", "*", "/":
		return evalArith(e.Op, l, r)
	default:
		return nil, errors.Errorf("unknown binary operator %q", e.Op)
	}
}

// evalComparison: comparisons between null and anything are false
// except != null.
func evalComparison(op string, l, r any) (any, error) {
	if l == nil || r == nil {
		switch op {
		case "!=":
			return l != r, nil
		case "=":
			return l == nil && r == nil, nil
		default:
			return false, nil
		}
	}

	if lm, ok := l.(money.Money); ok {
		rm, ok := r.(money.Money)
		if !ok {
			return nil, errors.Errorf("cannot compare Money with %T", r)
		}
		cmp, err := money.Compare(lm, rm)
		if err != nil {
			return nil, err
		}
		return compareResult(op, cmp)
	}
	if ls, ok := l.(string); ok {
		if isDateString(ls) {
			if rs, ok := r.(string); ok && isDateString(rs) {
				lt, _ := parseDate(ls)
				rt, _ := parseDate(rs)
				return compareResult(op, int(lt.Sub(rt).Hours()))
			}
		}
		rs, ok := r.(string)
		if !ok {
			return nil, errors.Errorf("cannot compare String with %T", r)
		}
		return compareResult(op, stringCmp(ls, rs))
	}
	if lf, ok := l.(float64); ok {
		rf, ok := r.(float64)
		if !ok {
			return nil, errors.Errorf("cannot compare Number with %T", r)
		}
		switch {
		case lf < rf:
			return compareResult(op, -1)
		case lf > rf:
			return compareResult(op, 1)
		default:
			return compareResult(op, 0)
		}
	}
	if lb, ok := l.(bool); ok {
		rb, ok := r.(bool)
		if !ok {
			return nil, errors.Errorf("cannot compare Boolean with %T", r)
		}
		switch op {
		case "=":
			return lb == rb, nil
		case "!=":
			return lb != rb, nil
		default:
			return nil, errors.Errorf("operator %q not defined for Boolean", op)
		}
	}
	return nil, errors.Errorf("cannot compare values of type %T", l)
}

func stringCmp(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareResult(op string, cmp int) (any, error) {
	switch op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case "<":
		return cmp < 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return nil, errors.Errorf("unknown comparison operator %q", op)
	}
}

func isDateString(s string) bool {
	_, err := parseDate(s)
	return err == nil
}

func evalArith(op string, l, r any) (any, error) {
	if lm, ok := l.(money.Money); ok {
		if rm, ok := r.(money.Money); ok {
			switch op {
			case "+":
				return money.Add(lm, rm)
			case "-":
				return money.Sub(lm, rm)
			default:
				return nil, errors.Errorf("operator %q not defined for Money, Money", op)
			}
		}
		if rf, ok := r.(float64); ok && op == "*" {
			return money.MulScalar(lm, bigRatFromFloat(rf)), nil
		}
		if rf, ok := r.(float64); ok && op == "/" {
			return money.MulScalar(lm, bigRatFromFloat(1/rf)), nil
		}
		return nil, errors.Errorf("operator %q not defined for Money, %T", op, r)
	}
	if ls, ok := l.(string); ok && isDateString(ls) {
		lt, _ := parseDate(ls)
		if rs, ok := r.(string); ok && isDateString(rs) {
			rt, _ := parseDate(rs)
			if op != "-" {
				return nil, errors.Errorf("Date + Date is not defined")
			}
			return math.Round(lt.Sub(rt).Hours() / 24), nil
		}
		if rf, ok := r.(float64); ok {
			days := int(rf)
			if op == "-" {
				days = -days
			}
			return formatDate(lt.AddDate(0, 0, days)), nil
		}
		return nil, errors.Errorf("Date arithmetic not defined for %T", r)
	}
	if lf, ok := l.(float64); ok {
		rf, ok := r.(float64)
		if !ok {
			return nil, errors.Errorf("operator %q not defined for Number, %T", op, r)
		}
		switch op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, errors.Errorf("division by zero")
			}
			return lf / rf, nil
		}
	}
	return nil, errors.Errorf("operator %q not defined for %T, %T", op, l, r)
}

func evalBuiltin(env *Environment, rc *RowCtx, e *ast.BuiltinCall) (any, error) {
	switch e.Name {
	case "today":
		if v, ok := env.Variables["__now__"]; ok {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
		return formatDate(time.Now().UTC()), nil
	case "days_between":
		if len(e.Args) != 2 {
			return nil, errors.Errorf("days_between(a, b) takes exactly two arguments")
		}
		a, err := Eval(env, rc, e.Args[0])
		if err != nil {
			return nil, err
		}
		b, err := Eval(env, rc, e.Args[1])
		if err != nil {
			return nil, err
		}
		as, _ := a.(string)
		bs, _ := b.(string)
		at, err := parseDate(as)
		if err != nil {
			return nil, errors.Wrap(err, "days_between: first argument is not a Date")
		}
		bt, err := parseDate(bs)
		if err != nil {
			return nil, errors.Wrap(err, "days_between: second argument is not a Date")
		}
		return math.Round(at.Sub(bt).Hours() / 24), nil
	default:
		return nil, errors.Errorf("unknown builtin function %q", e.Name)
	}
}

func bigRatFromFloat(f float64) *big.Rat {
	r := new(big.Rat)
	r.SetFloat64(f)
	return r
}
