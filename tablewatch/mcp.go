package tablewatch

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/tablewatch/kit"
)

// RegisterMCP registers the tablewatch tools on an MCP server.
// tablewatch_heartbeat is only registered when a sqlite sink is configured.
func (r *Runner) RegisterMCP(srv *mcp.Server) {
	r.registerStatusTool(srv)
	r.registerRoundsTool(srv)
	if r.hbDB != nil {
		r.registerHeartbeatTool(srv)
	}
}

// wrap applies the tool middleware: logging outermost, then panic recovery.
func (r *Runner) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(r.logger, name), kit.Recovering(r.logger))(ep)
}

func (r *Runner) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tablewatch_status",
		Description: "Current phase of the spectator session: hunt outcome, seating and last round.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return r.Status(), nil
	}

	kit.RegisterMCPTool(srv, tool, r.wrap(tool.Name, endpoint), kit.DecodeJSON[struct{}]())
}

type roundsReq struct {
	Limit int `json:"limit"`
}

func (r *Runner) registerRoundsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tablewatch_rounds",
		Description: "Rounds started during this session, oldest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Most recent rounds to return (default 20)"},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		limit := req.(*roundsReq).Limit
		if limit <= 0 {
			limit = 20
		}
		return map[string]any{
			"session_id": r.sessionID,
			"rounds":     r.board.rounds(limit),
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, r.wrap(tool.Name, endpoint), kit.DecodeJSON[roundsReq]())
}

func (r *Runner) registerHeartbeatTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tablewatch_heartbeat",
		Description: "Latest liveness heartbeat of the session: phase, runtime health and whether it is still alive.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		hs, err := r.Heartbeat(ctx)
		if err != nil {
			return nil, err
		}
		if hs == nil {
			return map[string]any{"session_id": r.sessionID, "alive": false}, nil
		}
		return hs, nil
	}

	kit.RegisterMCPTool(srv, tool, r.wrap(tool.Name, endpoint), kit.DecodeJSON[struct{}]())
}
