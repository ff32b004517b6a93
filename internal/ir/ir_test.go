package ir

import (
	"encoding/json"
	"testing"

	"github.com/englishascode/eac/internal/parser"
)

func lowerSrc(t *testing.T, src string) []OpRecord {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return Lower(prog)
}

func TestLowerPreservesSourceOrder(t *testing.T) {
	ops := lowerSrc(t, `Set a to 1. Set b to 2. Set c to 3.`)
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(ops))
	}
	wantNames := []string{"a", "b", "c"}
	for i, op := range ops {
		if op.Op != OpSetVar {
			t.Fatalf("op %d = %s, want set_var", i, op.Op)
		}
		name := op.Args["name"].(Literal).V.(string)
		if name != wantNames[i] {
			t.Fatalf("op %d name = %q, want %q", i, name, wantNames[i])
		}
	}
}

func TestLowerTreatRangeEmitsReadTable(t *testing.T) {
	ops := lowerSrc(t, `In sheet "Sheet1", treat range A1B2 as table Rows.`)
	if len(ops) != 1 || ops[0].Op != OpReadTable {
		t.Fatalf("got %+v, want one excel.read_table op", ops)
	}
	if ops[0].Args["table"].(Literal).V.(string) != "Rows" {
		t.Fatalf("got %+v", ops[0].Args)
	}
}

func TestLowerForEachNestsBodyAsBlock(t *testing.T) {
	src := `In sheet "S", treat range A1B2 as table Rows.
For each row r in Rows: Add column Flag to Rows as true. end.`
	ops := lowerSrc(t, src)
	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}
	fe := ops[1]
	if fe.Op != OpForEach {
		t.Fatalf("got %s, want control.for_each", fe.Op)
	}
	body, ok := fe.Args["body"].(Block)
	if !ok {
		t.Fatalf("body arg is %T, want Block", fe.Args["body"])
	}
	if len(body.Ops) != 1 || body.Ops[0].Op != OpAddColumn {
		t.Fatalf("body.Ops = %+v, want one table.add_column", body.Ops)
	}
}

func TestLowerIfWithoutOtherwiseHasNoElseArg(t *testing.T) {
	ops := lowerSrc(t, `If true: Set x to 1. end.`)
	if len(ops) != 1 {
		t.Fatalf("got %d ops, want 1", len(ops))
	}
	if _, ok := ops[0].Args["else"]; ok {
		t.Fatal("expected no 'else' arg when there is no Otherwise clause")
	}
}

func TestLowerOnErrorWrapsHandlerInBlock(t *testing.T) {
	ops := lowerSrc(t, `On error: Log out.`)
	if len(ops) != 1 || ops[0].Op != OpOnError {
		t.Fatalf("got %+v, want one control.on_error op", ops)
	}
	handler, ok := ops[0].Args["handler"].(Block)
	if !ok || len(handler.Ops) != 1 || handler.Ops[0].Op != OpLogout {
		t.Fatalf("handler = %+v, want a one-op Block wrapping web.logout", ops[0].Args["handler"])
	}
}

func TestMarshalJSONProducesValidJSON(t *testing.T) {
	ops := lowerSrc(t, `Set price to USD 19.99. Set ok to price > USD 0.00.`)
	data, err := MarshalJSON(ops)
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round-trip Unmarshal: %v\n%s", err, data)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d records, want 2", len(decoded))
	}
	if decoded[0]["op"] != string(OpSetVar) {
		t.Fatalf("op = %v, want %s", decoded[0]["op"], OpSetVar)
	}
}

func TestMarshalJSONEncodesMoneyAsCurrencyAndAmount(t *testing.T) {
	ops := lowerSrc(t, `Set price to USD 19.99.`)
	data, err := MarshalJSON(ops)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	args := decoded[0]["args"].(map[string]any)
	expr := args["expr"].(map[string]any)["expr"].(map[string]any)
	if expr["currency"] != "USD" || expr["amount"] != "19.99" {
		t.Fatalf("expr = %+v, want currency USD amount 19.99", expr)
	}
}

func TestMarshalJSONEncodesQualifiedRefAsTableAndColumn(t *testing.T) {
	ops := lowerSrc(t, `Set x to Rows.Balance.`)
	data, err := MarshalJSON(ops)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	args := decoded[0]["args"].(map[string]any)
	expr := args["expr"].(map[string]any)["expr"].(map[string]any)
	if expr["table"] != "Rows" || expr["column"] != "Balance" {
		t.Fatalf("expr = %+v, want table Rows column Balance", expr)
	}
}
