package providers

import (
	"context"
	"testing"

	"github.com/englishascode/eac/internal/interp"
)

func TestJSONCodecRoundTrips(t *testing.T) {
	c := jsonCodec{}
	if c.Name() != "json" {
		t.Fatalf("Name() = %q, want json", c.Name())
	}
	req := webRequest{Op: "web.click", Args: map[string]any{"selector": "#submit"}}
	data, err := c.Marshal(&req)
	if err != nil {
		t.Fatal(err)
	}
	var decoded webRequest
	if err := c.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Op != req.Op || decoded.Args["selector"] != "#submit" {
		t.Fatalf("got %+v, want %+v", decoded, req)
	}
}

func TestRemoteWebRejectsTableFamilyOpcodes(t *testing.T) {
	p := NewRemote("localhost:0")
	ctx := context.Background()
	req := interp.Request{}
	for _, call := range []func() interp.Result{
		func() interp.Result { return p.OpenWorkbook(ctx, req) },
		func() interp.Result { return p.ReadTable(ctx, req) },
		func() interp.Result { return p.Export(ctx, req) },
		func() interp.Result { return p.AddColumn(ctx, req) },
		func() interp.Result { return p.FilterTable(ctx, req) },
		func() interp.Result { return p.SortTable(ctx, req) },
		func() interp.Result { return p.GroupTable(ctx, req) },
		func() interp.Result { return p.JoinTables(ctx, req) },
	} {
		if res := call(); res.OK {
			t.Fatal("expected a table/excel family opcode to be rejected by RemoteWeb")
		}
	}
}

func TestRemoteWebOpenIsLazyAndCloseIsSafeBeforeOpen(t *testing.T) {
	p := NewRemote("localhost:0")
	if err := p.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	fresh := NewRemote("localhost:0")
	if err := fresh.Close(); err != nil {
		t.Fatalf("Close before Open should be a no-op, got %v", err)
	}
}
