package interp

import (
	"testing"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/ir"
)

func TestResolveArgsCompilesRowScopedExprToRowFunc(t *testing.T) {
	in := New(nil)
	env := newEnvironment()
	op := ir.OpRecord{
		Op: ir.OpFilter,
		Args: map[string]ir.Value{
			"table":     ir.TableRef{Name: "Rows"},
			"predicate": ir.ExprTree{Node: &ast.Binary{Op: ">", Left: &ast.Ident{Name: "Balance"}, Right: &ast.NumberLit{Value: 10}}},
		},
	}
	resolved, err := in.resolveArgs(op, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := resolved["predicate"].(RowFunc)
	if !ok {
		t.Fatalf("predicate resolved to %T, want RowFunc", resolved["predicate"])
	}
	v, err := fn(Row{"Balance": 20.0})
	if err != nil {
		t.Fatal(err)
	}
	if v != true {
		t.Fatalf("got %v, want true (20 > 10)", v)
	}
}

func TestResolveArgsEvaluatesNonRowScopedExprImmediately(t *testing.T) {
	in := New(nil)
	env := newEnvironment()
	op := ir.OpRecord{
		Op: ir.OpSetVar,
		Args: map[string]ir.Value{
			"name": ir.Literal{V: "x"},
			"expr": ir.ExprTree{Node: &ast.NumberLit{Value: 7}},
		},
	}
	resolved, err := in.resolveArgs(op, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resolved["expr"] != 7.0 {
		t.Fatalf("got %v, want 7 evaluated immediately (not a RowFunc)", resolved["expr"])
	}
}

func TestResolveArgsVarRefLooksUpEnvironment(t *testing.T) {
	in := New(nil)
	env := newEnvironment()
	env.Variables["limit"] = 100.0
	op := ir.OpRecord{Op: ir.OpSetVar, Args: map[string]ir.Value{"v": ir.VarRef{Name: "limit"}}}
	resolved, err := in.resolveArgs(op, env, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resolved["v"] != 100.0 {
		t.Fatalf("got %v, want 100", resolved["v"])
	}
}

func TestIsRowScopedArg(t *testing.T) {
	cases := []struct {
		op   ir.OpCode
		key  string
		want bool
	}{
		{ir.OpFilter, "predicate", true},
		{ir.OpSort, "key", true},
		{ir.OpAddColumn, "expr", true},
		{ir.OpSetVar, "expr", false},
		{ir.OpFilter, "table", false},
	}
	for _, c := range cases {
		if got := isRowScopedArg(c.op, c.key); got != c.want {
			t.Errorf("isRowScopedArg(%s, %s) = %v, want %v", c.op, c.key, got, c.want)
		}
	}
}

func TestResolveAggregationsUnwrapsBlocks(t *testing.T) {
	env := newEnvironment()
	aggsArg := []any{
		ir.Block{Ops: []ir.OpRecord{{
			Op: ir.OpCode("group.aggregation"),
			Args: map[string]ir.Value{
				"name": ir.Literal{V: "total"},
				"func": ir.Literal{V: "sum"},
				"arg":  ir.ExprTree{Node: &ast.Ident{Name: "Balance"}},
			},
		}}},
	}
	specs, err := ResolveAggregations(env, "Rows", aggsArg)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 || specs[0].Name != "total" || specs[0].Func != "sum" {
		t.Fatalf("got %+v", specs)
	}
	v, err := specs[0].Arg(Row{"Balance": 5.0})
	if err != nil {
		t.Fatal(err)
	}
	if v != 5.0 {
		t.Fatalf("got %v, want 5", v)
	}
}
