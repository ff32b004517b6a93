package providers

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"github.com/englishascode/eac/internal/interp"
)

// jsonCodec is a hand-rolled grpc encoding.Codec that marshals request
// and response payloads as JSON instead of protobuf. It lets
// RemoteWeb call a browser-automation sidecar over a real grpc
// connection (so it gets grpc's framing, deadlines, and connection
// management) without a protoc/.proto build step: every message on
// the wire is just the JSON encoding of a Go map.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// webRequest/webResponse are the wire shapes exchanged with the
// browser-automation sidecar, one per web.* opcode.
type webRequest struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args"`
}

type webResponse struct {
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// RemoteWeb forwards web.* opcodes to a browser-automation sidecar
// over grpc, using jsonCodec instead of the default protobuf codec.
// It implements only the web.* methods of interp.EffectProvider;
// excel.*/table.* calls are rejected, so a real run wires RemoteWeb
// and SQLTable together behind a single interp.EffectProvider that
// dispatches by opcode family — see cmd/eac's provider selection.
type RemoteWeb struct {
	target string
	conn   *grpc.ClientConn
}

// NewRemote returns a RemoteWeb that will dial target (host:port) on Open.
func NewRemote(target string) *RemoteWeb {
	return &RemoteWeb{target: target}
}

func (p *RemoteWeb) Open(ctx context.Context) error {
	conn, err := grpc.NewClient(p.target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	)
	if err != nil {
		return errors.Wrapf(err, "dialing web automation sidecar at %s", p.target)
	}
	p.conn = conn
	return nil
}

func (p *RemoteWeb) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func (p *RemoteWeb) call(ctx context.Context, op string, args map[string]any) interp.Result {
	req := webRequest{Op: op, Args: args}
	var resp webResponse
	method := "/eac.web.Automation/Invoke"
	if err := p.conn.Invoke(ctx, method, &req, &resp); err != nil {
		return interp.Fail(errors.Wrapf(err, "web automation call %q", op))
	}
	if !resp.OK {
		return interp.Fail(errors.Errorf("web automation call %q failed: %s", op, resp.Error))
	}
	return interp.Ok(resp.Value)
}

func (p *RemoteWeb) OpenWorkbook(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve excel.open_workbook"))
}

func (p *RemoteWeb) ReadTable(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve excel.read_table"))
}

func (p *RemoteWeb) Export(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve excel.export"))
}

func (p *RemoteWeb) AddColumn(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve table.add_column"))
}

func (p *RemoteWeb) FilterTable(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve table.filter"))
}

func (p *RemoteWeb) SortTable(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve table.sort"))
}

func (p *RemoteWeb) GroupTable(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve table.group"))
}

func (p *RemoteWeb) JoinTables(ctx context.Context, req interp.Request) interp.Result {
	return interp.Fail(errors.New("RemoteWeb does not serve table.join"))
}

func (p *RemoteWeb) UseSystem(ctx context.Context, req interp.Request) interp.Result {
	return p.call(ctx, "web.use_system", req.Args)
}

func (p *RemoteWeb) Login(ctx context.Context, req interp.Request) interp.Result {
	return p.call(ctx, "web.login", req.Args)
}

func (p *RemoteWeb) Logout(ctx context.Context, req interp.Request) interp.Result {
	return p.call(ctx, "web.logout", req.Args)
}

func (p *RemoteWeb) GotoPage(ctx context.Context, req interp.Request) interp.Result {
	return p.call(ctx, "web.goto_page", req.Args)
}

func (p *RemoteWeb) Enter(ctx context.Context, req interp.Request) interp.Result {
	return p.call(ctx, "web.enter", req.Args)
}

func (p *RemoteWeb) Click(ctx context.Context, req interp.Request) interp.Result {
	return p.call(ctx, "web.click", req.Args)
}

func (p *RemoteWeb) Extract(ctx context.Context, req interp.Request) interp.Result {
	return p.call(ctx, "web.extract", req.Args)
}
