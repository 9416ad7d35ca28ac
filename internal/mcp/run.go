package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/deixis/xl2times-mcp/internal/workflow"
)

const runTool = "xl2times_run"

// runHandler decodes the arguments itself: input is either a string or a
// list, which workflow.Inputs handles during decoding.
func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params workflow.Request
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return toolError(runTool, &workflow.ValidationError{Field: "arguments", Message: err.Error()}), nil
		}
	}

	st := h.state(req.Session)
	resp, err := st.engine.Run(ctx, params)
	if err != nil {
		return toolError(runTool, fmt.Errorf("running xl2times: %w", err)), nil
	}

	if st.store != nil {
		if err := st.store.Save(resp); err != nil {
			h.log.Warn("storing run", zap.String("run_id", resp.RunID), zap.Error(err))
		}
	}

	return encodeJSON(resp)
}
