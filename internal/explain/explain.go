// Package explain renders an interpreter trace as human-readable
// sentences, one fixed template per opcode, so a non-technical reader
// can audit what a run actually did without reading IR JSON.
package explain

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/englishascode/eac/internal/interp"
	"github.com/englishascode/eac/internal/ir"
	"github.com/englishascode/eac/internal/money"
)

// Line renders a single trace entry. Rendering is total: every opcode
// in ir.go has a case, and unhandled opcodes fall back to a generic
// template rather than panicking, so Report never aborts partway
// through a trace.
func Line(e interp.TraceEntry) string {
	base := explainOp(e)
	if e.Err != nil {
		return fmt.Sprintf("%s (failed: %v, after %s)", base, e.Err, e.Duration)
	}
	return fmt.Sprintf("%s (%s)", base, e.Duration)
}

// Report renders an entire trace, one numbered line per entry, so it
// reads like a runbook.
func Report(trace []interp.TraceEntry) string {
	var sb strings.Builder
	for i, e := range trace {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, Line(e))
	}
	return sb.String()
}

func explainOp(e interp.TraceEntry) string {
	switch e.Op {
	case ir.OpOpenWorkbook:
		return fmt.Sprintf("Opened workbook %v", e.Args["path"])
	case ir.OpReadTable:
		return fmt.Sprintf("Read range %v of sheet %v into table %v", e.Args["range"], e.Args["sheet"], e.Args["table"])
	case ir.OpExport:
		return fmt.Sprintf("Exported results to %v", e.Args["path"])
	case ir.OpAddColumn:
		return fmt.Sprintf("Added column %v to table %v", e.Args["column"], e.Args["table"])
	case ir.OpFilter:
		return fmt.Sprintf("Filtered table %v", e.Args["table"])
	case ir.OpSort:
		dir := "ascending"
		if asc, ok := e.Args["ascending"].(bool); ok && !asc {
			dir = "descending"
		}
		return fmt.Sprintf("Sorted table %v (%s)", e.Args["table"], dir)
	case ir.OpGroup:
		return fmt.Sprintf("Grouped table %v by %v", e.Args["table"], e.Args["keys"])
	case ir.OpJoin:
		return fmt.Sprintf("Joined %v with %v into %v", e.Args["left"], e.Args["right"], e.Args["result"])
	case ir.OpSetVar:
		return fmt.Sprintf("Set %v to %s", e.Args["name"], formatValue(e.Result))
	case ir.OpCallResult:
		return fmt.Sprintf("Recorded result as %v", e.Args["result_name"])
	case ir.OpUseSystem:
		return fmt.Sprintf("Connected to system %v version %v", e.Args["name"], e.Args["version"])
	case ir.OpLogin:
		return "Logged in"
	case ir.OpLogout:
		return "Logged out"
	case ir.OpGotoPage:
		return fmt.Sprintf("Navigated to page %v", e.Args["name"])
	case ir.OpEnter:
		return fmt.Sprintf("Entered a value into %v", e.Args["selector"])
	case ir.OpClick:
		return fmt.Sprintf("Clicked %v", e.Args["selector"])
	case ir.OpExtract:
		return fmt.Sprintf("Extracted %v from %v", e.Args["var"], e.Args["selector"])
	case ir.OpForEach:
		return fmt.Sprintf("Iterated rows of table %v", e.Args["table"])
	case ir.OpIf:
		return fmt.Sprintf("Evaluated condition (%v)", e.Args["cond"])
	case ir.OpOnError:
		return "Installed an error handler for the next step"
	default:
		return fmt.Sprintf("Ran %s", e.Op)
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case money.Money:
		return x.String()
	case float64:
		return humanize.FormatFloat("#,###.##", x)
	case nil:
		return "nothing"
	default:
		return fmt.Sprint(x)
	}
}

