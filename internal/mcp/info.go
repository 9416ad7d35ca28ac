package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type infoParams struct{}

func (h *handler) infoHandler(ctx context.Context, req *mcp.CallToolRequest, _ infoParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(h.state(req.Session).engine.Info(ctx))
}
