package providers

import (
	"context"

	"github.com/englishascode/eac/internal/interp"
)

// Hybrid composes a table-algebra provider with a web-automation
// provider, dispatching each opcode family to whichever side actually
// implements it. A full "open a workbook, shape some tables, then log
// into a portal and key in the results" program needs both at once;
// neither SQLTable nor RemoteWeb alone can serve it.
type Hybrid struct {
	Tables interp.EffectProvider
	Web    interp.EffectProvider
}

// NewHybrid composes table and web providers. Either may be nil, in
// which case calls to that family fail with "not configured" instead
// of a nil-pointer panic.
func NewHybrid(tables, web interp.EffectProvider) *Hybrid {
	return &Hybrid{Tables: tables, Web: web}
}

func (h *Hybrid) Open(ctx context.Context) error {
	if h.Tables != nil {
		if err := h.Tables.Open(ctx); err != nil {
			return err
		}
	}
	if h.Web != nil {
		if err := h.Web.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hybrid) Close() error {
	var firstErr error
	if h.Tables != nil {
		if err := h.Tables.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if h.Web != nil {
		if err := h.Web.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *Hybrid) OpenWorkbook(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().OpenWorkbook(ctx, req)
}
func (h *Hybrid) ReadTable(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().ReadTable(ctx, req)
}
func (h *Hybrid) Export(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().Export(ctx, req)
}
func (h *Hybrid) AddColumn(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().AddColumn(ctx, req)
}
func (h *Hybrid) FilterTable(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().FilterTable(ctx, req)
}
func (h *Hybrid) SortTable(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().SortTable(ctx, req)
}
func (h *Hybrid) GroupTable(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().GroupTable(ctx, req)
}
func (h *Hybrid) JoinTables(ctx context.Context, req interp.Request) interp.Result {
	return h.tables().JoinTables(ctx, req)
}

func (h *Hybrid) UseSystem(ctx context.Context, req interp.Request) interp.Result {
	return h.web().UseSystem(ctx, req)
}
func (h *Hybrid) Login(ctx context.Context, req interp.Request) interp.Result {
	return h.web().Login(ctx, req)
}
func (h *Hybrid) Logout(ctx context.Context, req interp.Request) interp.Result {
	return h.web().Logout(ctx, req)
}
func (h *Hybrid) GotoPage(ctx context.Context, req interp.Request) interp.Result {
	return h.web().GotoPage(ctx, req)
}
func (h *Hybrid) Enter(ctx context.Context, req interp.Request) interp.Result {
	return h.web().Enter(ctx, req)
}
func (h *Hybrid) Click(ctx context.Context, req interp.Request) interp.Result {
	return h.web().Click(ctx, req)
}
func (h *Hybrid) Extract(ctx context.Context, req interp.Request) interp.Result {
	return h.web().Extract(ctx, req)
}

func (h *Hybrid) tables() interp.EffectProvider {
	if h.Tables != nil {
		return h.Tables
	}
	return notConfigured{"table/excel"}
}

func (h *Hybrid) web() interp.EffectProvider {
	if h.Web != nil {
		return h.Web
	}
	return notConfigured{"web"}
}

// notConfigured answers every EffectProvider method with a Fail
// result, used when Hybrid is missing one of its two delegates.
type notConfigured struct{ family string }

func (n notConfigured) Open(ctx context.Context) error { return nil }
func (n notConfigured) Close() error                   { return nil }
func (n notConfigured) fail() interp.Result {
	return interp.Fail(errNotConfigured(n.family))
}
func (n notConfigured) OpenWorkbook(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) ReadTable(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) Export(ctx context.Context, req interp.Request) interp.Result { return n.fail() }
func (n notConfigured) AddColumn(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) FilterTable(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) SortTable(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) GroupTable(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) JoinTables(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) UseSystem(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) Login(ctx context.Context, req interp.Request) interp.Result { return n.fail() }
func (n notConfigured) Logout(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) GotoPage(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}
func (n notConfigured) Enter(ctx context.Context, req interp.Request) interp.Result { return n.fail() }
func (n notConfigured) Click(ctx context.Context, req interp.Request) interp.Result { return n.fail() }
func (n notConfigured) Extract(ctx context.Context, req interp.Request) interp.Result {
	return n.fail()
}

func errNotConfigured(family string) error {
	return errProviderNotConfigured{family}
}

type errProviderNotConfigured struct{ family string }

func (e errProviderNotConfigured) Error() string {
	return "no " + e.family + " provider configured"
}
