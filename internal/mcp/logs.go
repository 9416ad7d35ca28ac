package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/xl2times-mcp/internal/report"
	"github.com/deixis/xl2times-mcp/internal/workflow"
)

const logsTool = "xl2times_logs"

type logsParams struct {
	RunID string `json:"run_id" jsonschema:"The run_id returned by xl2times_run."`
	Tail  int    `json:"tail,omitempty" jsonschema:"Return only the last N transcript lines; 0 returns everything."`
}

func (h *handler) logsHandler(_ context.Context, req *mcp.CallToolRequest, params logsParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return toolError(logsTool, &workflow.ValidationError{Field: "run_id", Message: "run_id is required"}), nil, nil
	}
	store := h.state(req.Session).store
	if store == nil {
		return toolError(logsTool, errors.New("run history is disabled")), nil, nil
	}

	resp, err := store.Load(params.RunID)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			return toolError(logsTool, fmt.Errorf("no run with id %q", params.RunID)), nil, nil
		}
		return toolError(logsTool, err), nil, nil
	}

	text, err := report.ReadLog(resp, params.Tail)
	if err != nil {
		return toolError(logsTool, err), nil, nil
	}
	return textResult(text)
}
