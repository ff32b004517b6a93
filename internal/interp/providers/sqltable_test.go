package providers

import (
	"context"
	"testing"

	"github.com/englishascode/eac/internal/ast"
	"github.com/englishascode/eac/internal/interp"
	"github.com/englishascode/eac/internal/ir"
	"github.com/englishascode/eac/internal/money"
)

func newSQLTableForTest(t *testing.T) *SQLTable {
	t.Helper()
	p, err := NewSQLTable()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func envWithTable(name string, tbl *interp.Table) *interp.Environment {
	env := &interp.Environment{Variables: map[string]any{}, Tables: map[string]*interp.Table{name: tbl}}
	return env
}

func TestSQLTableFilterKeepsMatchingRows(t *testing.T) {
	p := newSQLTableForTest(t)
	ctx := context.Background()
	tbl := &interp.Table{Name: "Rows", Columns: []string{"Balance"}, Rows: []interp.Row{
		{"Balance": 5.0}, {"Balance": 50.0}, {"Balance": 100.0},
	}}
	env := envWithTable("Rows", tbl)
	fn := interp.RowFunc(func(r interp.Row) (any, error) { return r["Balance"].(float64) > 10, nil })
	res := p.FilterTable(ctx, interp.Request{Args: map[string]any{"table": "Rows", "predicate": fn}, Env: env})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	if len(out.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(out.Rows))
	}
}

func TestSQLTableSortAscendingAndDescending(t *testing.T) {
	p := newSQLTableForTest(t)
	ctx := context.Background()
	tbl := &interp.Table{Name: "Rows", Columns: []string{"Balance"}, Rows: []interp.Row{
		{"Balance": 30.0}, {"Balance": 10.0}, {"Balance": 20.0},
	}}
	keyFn := interp.RowFunc(func(r interp.Row) (any, error) { return r["Balance"], nil })

	env := envWithTable("Rows", tbl)
	res := p.SortTable(ctx, interp.Request{Args: map[string]any{"table": "Rows", "key": keyFn, "ascending": true}, Env: env})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	got := []float64{out.Rows[0]["Balance"].(float64), out.Rows[1]["Balance"].(float64), out.Rows[2]["Balance"].(float64)}
	if got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("ascending sort got %v", got)
	}

	tbl2 := &interp.Table{Name: "Rows", Columns: []string{"Balance"}, Rows: []interp.Row{
		{"Balance": 30.0}, {"Balance": 10.0}, {"Balance": 20.0},
	}}
	env2 := envWithTable("Rows", tbl2)
	res = p.SortTable(ctx, interp.Request{Args: map[string]any{"table": "Rows", "key": keyFn, "ascending": false}, Env: env2})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out = res.Value.(*interp.Table)
	got = []float64{out.Rows[0]["Balance"].(float64), out.Rows[1]["Balance"].(float64), out.Rows[2]["Balance"].(float64)}
	if got[0] != 30 || got[1] != 20 || got[2] != 10 {
		t.Fatalf("descending sort got %v", got)
	}
}

func TestSQLTableSortDescendingIsStableForEqualMoneyKeys(t *testing.T) {
	p := newSQLTableForTest(t)
	ctx := context.Background()
	usd := func(s string) money.Money {
		amt, err := money.ParseAmount(s)
		if err != nil {
			t.Fatal(err)
		}
		m, err := money.New("USD", amt)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	// Two rows share an equal Balance, but each call to usd() allocates
	// a distinct *big.Rat, so boxed `!=` would see them as different
	// and could reorder the tie under descending sort.
	tbl := &interp.Table{Name: "Rows", Columns: []string{"Name", "Balance"}, Rows: []interp.Row{
		{"Name": "first", "Balance": usd("10.00")},
		{"Name": "second", "Balance": usd("10.00")},
		{"Name": "third", "Balance": usd("5.00")},
	}}
	keyFn := interp.RowFunc(func(r interp.Row) (any, error) { return r["Balance"], nil })
	env := envWithTable("Rows", tbl)
	res := p.SortTable(ctx, interp.Request{Args: map[string]any{"table": "Rows", "key": keyFn, "ascending": false}, Env: env})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	names := []string{out.Rows[0]["Name"].(string), out.Rows[1]["Name"].(string), out.Rows[2]["Name"].(string)}
	if names[0] != "first" || names[1] != "second" || names[2] != "third" {
		t.Fatalf("got %v, want tied equal-Balance rows to keep their original relative order", names)
	}
}

func TestSQLTableAddColumnAppendsComputedValues(t *testing.T) {
	p := newSQLTableForTest(t)
	ctx := context.Background()
	tbl := &interp.Table{Name: "Rows", Columns: []string{"Price"}, Rows: []interp.Row{
		{"Price": 2.0}, {"Price": 3.0},
	}}
	env := envWithTable("Rows", tbl)
	fn := interp.RowFunc(func(r interp.Row) (any, error) { return r["Price"].(float64) * 2, nil })
	res := p.AddColumn(ctx, interp.Request{Args: map[string]any{"table": "Rows", "column": "Doubled", "expr": fn}, Env: env})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	if out.Rows[0]["Doubled"] != 4.0 || out.Rows[1]["Doubled"] != 6.0 {
		t.Fatalf("got %+v", out.Rows)
	}
	if !containsCol(out.Columns, "Doubled") {
		t.Fatalf("Columns = %v, want Doubled present", out.Columns)
	}
}

func TestSQLTableGroupSumsMoneyByKey(t *testing.T) {
	p := newSQLTableForTest(t)
	ctx := context.Background()
	usd := func(s string) money.Money {
		amt, err := money.ParseAmount(s)
		if err != nil {
			t.Fatal(err)
		}
		m, err := money.New("USD", amt)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	tbl := &interp.Table{Name: "Rows", Columns: []string{"Region", "Balance"}, Rows: []interp.Row{
		{"Region": "East", "Balance": usd("10.00")},
		{"Region": "East", "Balance": usd("5.00")},
		{"Region": "West", "Balance": usd("7.00")},
	}}
	env := envWithTable("Rows", tbl)
	res := p.GroupTable(ctx, interp.Request{
		Env: env,
		Args: map[string]any{
			"table": "Rows",
			"keys":  []any{"Region"},
			"aggregations": groupAggArgFor(t, "total", "sum", &ast.Ident{Name: "Balance"}),
		},
	})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	if len(out.Rows) != 2 {
		t.Fatalf("got %d groups, want 2", len(out.Rows))
	}
	for _, row := range out.Rows {
		total, ok := row["total"].(money.Money)
		if !ok {
			t.Fatalf("total is %T, want money.Money", row["total"])
		}
		if row["Region"] == "East" && total.DecimalString() != "15.00" {
			t.Fatalf("East total = %s, want 15.00", total.DecimalString())
		}
		if row["Region"] == "West" && total.DecimalString() != "7.00" {
			t.Fatalf("West total = %s, want 7.00", total.DecimalString())
		}
	}
}

func TestSQLTableJoinMatchesOnEquality(t *testing.T) {
	p := newSQLTableForTest(t)
	ctx := context.Background()
	left := &interp.Table{Name: "Accounts", Columns: []string{"ID"}, Rows: []interp.Row{
		{"ID": "1"}, {"ID": "2"},
	}}
	right := &interp.Table{Name: "Balances", Columns: []string{"AccountID", "Amount"}, Rows: []interp.Row{
		{"AccountID": "1", "Amount": 10.0}, {"AccountID": "3", "Amount": 20.0},
	}}
	env := &interp.Environment{Variables: map[string]any{}, Tables: map[string]*interp.Table{
		"Accounts": left, "Balances": right,
	}}
	res := p.JoinTables(ctx, interp.Request{
		Env: env,
		Args: map[string]any{
			"left": "Accounts", "right": "Balances", "result": "Merged",
			"on": []any{ast.JoinOn{LeftCol: "ID", RightCol: "AccountID"}},
		},
	})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	if len(out.Rows) != 1 {
		t.Fatalf("got %d matched rows, want 1", len(out.Rows))
	}
	if out.Rows[0]["Amount"] != 10.0 {
		t.Fatalf("got %+v", out.Rows[0])
	}
}

// groupAggArgFor builds the []any{ir.Block{...}} shape interp.ResolveAggregations
// expects, the same shape ir.Lower produces for a Group statement's
// "aggregations" arg.
func groupAggArgFor(t *testing.T, name, fn string, arg ast.Expr) []any {
	t.Helper()
	return []any{ir.Block{Ops: []ir.OpRecord{{
		Op: ir.OpCode("group.aggregation"),
		Args: map[string]ir.Value{
			"name": ir.Literal{V: name},
			"func": ir.Literal{V: fn},
			"arg":  ir.ExprTree{Node: arg},
		},
	}}}}
}
