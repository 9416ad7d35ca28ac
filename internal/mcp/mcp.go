// Package mcp provides the xl2times MCP server, registering its tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/deixis/xl2times-mcp/internal/config"
	"github.com/deixis/xl2times-mcp/internal/logger"
	"github.com/deixis/xl2times-mcp/internal/report"
	"github.com/deixis/xl2times-mcp/internal/runner"
	"github.com/deixis/xl2times-mcp/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// Error codes reported in error objects.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeToolError       = "TOOL_ERROR"
)

// handler holds shared dependencies for all tool handlers.
type handler struct {
	base *sessionState // used by sessions that did not supply a file root
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[*mcp.ServerSession]*sessionState
}

// sessionState is where and how one session runs xl2times. It is never
// modified after construction, so runs in flight keep the state they
// started with.
type sessionState struct {
	engine *workflow.Engine
	store  report.Store
}

// NewServer creates an MCP server with all xl2times tools registered.
// Sessions whose client exposes a file root get their own workspace,
// configuration, log directory and run history; all others share r and store.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, workspace string, log *zap.Logger) *mcp.Server {
	log = logger.OrNop(log)
	h := &handler{
		base: &sessionState{
			engine: &workflow.Engine{
				Config:    cfg,
				Runner:    r,
				Workspace: workspace,
				Logger:    log,
			},
			store: store,
		},
		log:      log,
		sessions: make(map[*mcp.ServerSession]*sessionState),
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: cfg.ServerName(), Version: cfg.ServerVersion()}, mcpOpts)

	s.AddTool(&mcp.Tool{
		Name: "xl2times_run",
		Description: `Run xl2times with specified input files and options.

Converts VEDA-TIMES Excel workbooks (.xlsx, .xlsm) or a model directory.
Returns JSON with success, files_processed, warnings, errors, output_files and run_id.
Use xl2times_logs with the run_id to read the full transcript.`,
		InputSchema: runInputSchema,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "xl2times_info",
		Description: "Get information about xl2times installation and server capabilities.",
	}, h.infoHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "xl2times_logs",
		Description: `Read the transcript of an earlier xl2times_run.

Pass the run_id from a xl2times_run result. Use tail to return only the last lines.`,
	}, h.logsHandler)

	return s
}

// state returns the state of session, or the shared state when the
// session has none of its own.
func (h *handler) state(session *mcp.ServerSession) *sessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.sessions[session]; ok {
		return st
	}
	return h.base
}

// updateWorkspaceFromRoots queries the client for MCP roots and, if a file
// root is returned, gives the session its own state rooted there with that
// root's configuration. The state is dropped when the session ends.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		h.log.Warn("ignoring client root", zap.String("root", workspace), zap.Error(err))
		return
	}

	st := h.newState(workspace, loaded.Config)
	h.mu.Lock()
	h.sessions[session] = st
	h.mu.Unlock()

	go func() {
		_ = session.Wait()
		h.mu.Lock()
		delete(h.sessions, session)
		h.mu.Unlock()
	}()

	h.log.Info("workspace set from client root",
		zap.String("session", session.ID()),
		zap.String("workspace", workspace),
		zap.String("command", loaded.Config.CommandString()),
	)
}

// newState builds the state for a session rooted at workspace.
func (h *handler) newState(workspace string, cfg *config.Config) *sessionState {
	r := &runner.Runner{
		Dir:       workspace,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
		LogDir:    cfg.LogDir(),
		Logger:    h.log,
	}
	return &sessionState{
		engine: &workflow.Engine{
			Config:    cfg,
			Runner:    r,
			Workspace: workspace,
			Logger:    h.log,
		},
		store: report.NewLRUStore(cfg.HistorySize(), report.NewDiskStore(cfg.RunsDir())),
	}
}

// encodeJSON builds a tool result holding v as indented JSON.
func encodeJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

// jsonResult is encodeJSON shaped for typed tool handlers.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	res, err := encodeJSON(v)
	return res, nil, err
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorObject describes a failed tool call.
type errorObject struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Tool    string `json:"tool"`
}

// toolError builds an error tool result carrying an error object.
// Validation failures get CodeInvalidArgument, everything else CodeToolError.
func toolError(tool string, err error) *mcp.CallToolResult {
	code := CodeToolError
	if workflow.IsValidationError(err) {
		code = CodeInvalidArgument
	}
	data, _ := json.MarshalIndent(errorObject{Error: errorBody{Code: code, Message: err.Error(), Tool: tool}}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}
