package explain

import (
	"strings"
	"testing"
	"time"

	"github.com/englishascode/eac/internal/interp"
	"github.com/englishascode/eac/internal/ir"
	"github.com/englishascode/eac/internal/money"
)

func TestLineRendersSetVarWithHumanizedNumber(t *testing.T) {
	e := interp.TraceEntry{
		Op:       ir.OpSetVar,
		Args:     map[string]any{"name": "total"},
		Result:   1234.5,
		Duration: time.Millisecond,
	}
	line := Line(e)
	if !strings.Contains(line, "total") || !strings.Contains(line, "1,234.50") {
		t.Fatalf("got %q, want it to mention total and 1,234.50", line)
	}
}

func TestLineRendersMoneyViaStringMethod(t *testing.T) {
	amt, err := money.ParseAmount("9.50")
	if err != nil {
		t.Fatal(err)
	}
	m, err := money.New("USD", amt)
	if err != nil {
		t.Fatal(err)
	}
	e := interp.TraceEntry{Op: ir.OpSetVar, Args: map[string]any{"name": "price"}, Result: m}
	line := Line(e)
	if !strings.Contains(line, "USD 9.50") {
		t.Fatalf("got %q, want it to contain USD 9.50", line)
	}
}

func TestLineRendersFailureWithCause(t *testing.T) {
	e := interp.TraceEntry{
		Op:  ir.OpFilter,
		Err: &interp.LocatedError{Op: ir.OpFilter, Cause: errFixture{}},
	}
	line := Line(e)
	if !strings.Contains(line, "failed") {
		t.Fatalf("got %q, want it to mention the failure", line)
	}
}

type errFixture struct{}

func (errFixture) Error() string { return "boom" }

func TestReportNumbersEachLine(t *testing.T) {
	trace := []interp.TraceEntry{
		{Op: ir.OpLogin},
		{Op: ir.OpLogout},
	}
	report := Report(trace)
	if !strings.HasPrefix(report, "1. Logged in") {
		t.Fatalf("got %q", report)
	}
	if !strings.Contains(report, "2. Logged out") {
		t.Fatalf("got %q", report)
	}
}

func TestExplainOpHasNoUnhandledOpcodeFallthrough(t *testing.T) {
	// Every opcode ir.go defines must render something specific, not the
	// generic "Ran %s" fallback — this pins that coverage down.
	all := []ir.OpCode{
		ir.OpOpenWorkbook, ir.OpReadTable, ir.OpExport, ir.OpAddColumn, ir.OpFilter,
		ir.OpSort, ir.OpGroup, ir.OpJoin, ir.OpSetVar, ir.OpCallResult, ir.OpUseSystem,
		ir.OpLogin, ir.OpLogout, ir.OpGotoPage, ir.OpEnter, ir.OpClick, ir.OpExtract,
		ir.OpForEach, ir.OpIf, ir.OpOnError,
	}
	for _, op := range all {
		line := explainOp(interp.TraceEntry{Op: op, Args: map[string]any{}})
		if strings.HasPrefix(line, "Ran ") {
			t.Errorf("opcode %s fell through to the generic template: %q", op, line)
		}
	}
}
