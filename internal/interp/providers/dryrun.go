// Package providers holds the concrete interp.EffectProvider
// implementations.
package providers

import (
	"context"

	"github.com/englishascode/eac/internal/interp"
)

// DryRun is the provider used when a run is invoked with --dry-run: it
// performs no I/O, no web automation, and no spreadsheet access.
// Workbook/table reads return an empty table so downstream table
// algebra still produces a well-typed (if empty) result, keeping
// dry-run traces deterministic and reproducible without external
// systems.
type DryRun struct{}

// NewDryRun returns a ready-to-use dry-run provider. It carries no state.
func NewDryRun() *DryRun { return &DryRun{} }

func (p *DryRun) Open(ctx context.Context) error { return nil }
func (p *DryRun) Close() error                   { return nil }

func (p *DryRun) OpenWorkbook(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) ReadTable(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(&interp.Table{})
}

func (p *DryRun) Export(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) AddColumn(ctx context.Context, req interp.Request) interp.Result {
	return dryRunTable(req)
}

func (p *DryRun) FilterTable(ctx context.Context, req interp.Request) interp.Result {
	return dryRunTable(req)
}

func (p *DryRun) SortTable(ctx context.Context, req interp.Request) interp.Result {
	return dryRunTable(req)
}

func (p *DryRun) GroupTable(ctx context.Context, req interp.Request) interp.Result {
	return dryRunTable(req)
}

func (p *DryRun) JoinTables(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(&interp.Table{})
}

func (p *DryRun) UseSystem(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) Login(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) Logout(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) GotoPage(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) Enter(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) Click(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok(nil)
}

func (p *DryRun) Extract(ctx context.Context, req interp.Request) interp.Result {
	return interp.Ok("")
}

// dryRunTable echoes back the current binding of "table" unmodified,
// if it still resolves, else an empty table: table-algebra ops under
// dry-run preserve shape without touching real data.
func dryRunTable(req interp.Request) interp.Result {
	name, _ := req.Args["table"].(string)
	if name == "" {
		return interp.Ok(&interp.Table{})
	}
	if tbl, ok := req.Env.Tables[name]; ok {
		return interp.Ok(tbl.Clone())
	}
	return interp.Ok(&interp.Table{})
}
