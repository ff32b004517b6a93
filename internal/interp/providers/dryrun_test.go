package providers

import (
	"context"
	"testing"

	"github.com/englishascode/eac/internal/interp"
)

func TestDryRunFilterEchoesTableUnmodified(t *testing.T) {
	p := NewDryRun()
	tbl := &interp.Table{Name: "Rows", Columns: []string{"Balance"}, Rows: []interp.Row{{"Balance": 5.0}}}
	env := &interp.Environment{Variables: map[string]any{}, Tables: map[string]*interp.Table{"Rows": tbl}}
	res := p.FilterTable(context.Background(), interp.Request{Args: map[string]any{"table": "Rows"}, Env: env})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	if len(out.Rows) != 1 {
		t.Fatalf("got %d rows, want 1 (dry-run preserves shape)", len(out.Rows))
	}
}

func TestDryRunFilterOnUnknownTableReturnsEmpty(t *testing.T) {
	p := NewDryRun()
	env := &interp.Environment{Variables: map[string]any{}, Tables: map[string]*interp.Table{}}
	res := p.FilterTable(context.Background(), interp.Request{Args: map[string]any{"table": "Missing"}, Env: env})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	if len(out.Rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(out.Rows))
	}
}

func TestDryRunNeverMutatesTheOriginalTable(t *testing.T) {
	p := NewDryRun()
	tbl := &interp.Table{Name: "Rows", Columns: []string{"Balance"}, Rows: []interp.Row{{"Balance": 5.0}}}
	env := &interp.Environment{Variables: map[string]any{}, Tables: map[string]*interp.Table{"Rows": tbl}}
	res := p.AddColumn(context.Background(), interp.Request{Args: map[string]any{"table": "Rows"}, Env: env})
	if !res.OK {
		t.Fatal(res.Err)
	}
	out := res.Value.(*interp.Table)
	out.Rows[0]["Balance"] = 999.0
	if tbl.Rows[0]["Balance"] != 5.0 {
		t.Fatal("mutating the dry-run result mutated the original table; Clone did not deep-copy rows")
	}
}

func TestDryRunWebOpsSucceedWithoutASidecar(t *testing.T) {
	p := NewDryRun()
	ctx := context.Background()
	req := interp.Request{}
	for _, call := range []func() interp.Result{
		func() interp.Result { return p.Login(ctx, req) },
		func() interp.Result { return p.Click(ctx, req) },
		func() interp.Result { return p.GotoPage(ctx, req) },
		func() interp.Result { return p.Extract(ctx, req) },
	} {
		if res := call(); !res.OK {
			t.Fatalf("expected dry-run web op to succeed, got %v", res.Err)
		}
	}
}
