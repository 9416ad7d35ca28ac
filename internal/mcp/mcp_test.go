package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/xl2times-mcp/internal/config"
	"github.com/deixis/xl2times-mcp/internal/report"
	"github.com/deixis/xl2times-mcp/internal/runner"
	"github.com/deixis/xl2times-mcp/internal/workflow"
)

// fakeTool is a shell script standing in for xl2times. It writes one CSV
// per input into --output_dir and prints a successful transcript.
const fakeTool = `
out=""
inputs=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output_dir) out="$2"; shift ;;
    --help) echo "usage: xl2times [-h] (version 0.9.1)"; exit 0 ;;
    -*) ;;
    *) inputs="$inputs $1" ;;
  esac
  shift
done
for f in $inputs; do
  echo "Processing $f"
  if [ -n "$out" ]; then mkdir -p "$out"; echo "csv" > "$out/$f.csv"; fi
done
echo "UserWarning: sheet is empty" >&2
echo "Excel files successfully converted to CSV"
`

// setup creates a full xl2times MCP server + client over in-memory transports.
// The configured command runs script through sh.
func setup(t *testing.T, script string) *mcp.ClientSession {
	t.Helper()

	toolDir := t.TempDir()
	path := filepath.Join(toolDir, "xl2times.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("writing tool: %v", err)
	}
	cfg := &config.Config{Command: "sh " + path, TempDir: t.TempDir()}
	return setupWithConfig(t, cfg)
}

func setupWithConfig(t *testing.T, cfg *config.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	workspace := t.TempDir()
	store := report.NewLRUStore(5, report.NewDiskStore(cfg.RunsDir()))
	r := &runner.Runner{
		Dir:       workspace,
		Timeout:   10 * time.Second,
		MaxOutput: cfg.MaxOutputBytes(),
		LogDir:    cfg.LogDir(),
	}

	server := NewServer(cfg, r, store, workspace, nil)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func decodeResponse(t *testing.T, res *mcp.CallToolResult) *workflow.Response {
	t.Helper()
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	var resp workflow.Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("decoding response: %v\n%s", err, text)
	}
	return &resp
}

func decodeError(t *testing.T, res *mcp.CallToolResult) errorBody {
	t.Helper()
	text := resultText(res)
	if !res.IsError {
		t.Fatalf("expected error result, got:\n%s", text)
	}
	var obj errorObject
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		t.Fatalf("decoding error object: %v\n%s", err, text)
	}
	return obj.Error
}

func TestListTools(t *testing.T) {
	cs := setup(t, fakeTool)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"xl2times_run", "xl2times_info", "xl2times_logs"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

// --- xl2times_run ---

func TestRun_Success(t *testing.T) {
	cs := setup(t, fakeTool)
	resp := decodeResponse(t, callTool(t, cs, "xl2times_run", map[string]any{
		"input":      []string{"VT_A.xlsx", "VT_B.xlsx"},
		"output_dir": "out",
	}))

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.ReturnCode != 0 {
		t.Errorf("return_code = %d, want 0", resp.ReturnCode)
	}
	if want := []string{"VT_A.xlsx", "VT_B.xlsx"}; strings.Join(resp.FilesProcessed, ",") != strings.Join(want, ",") {
		t.Errorf("files_processed = %v, want %v", resp.FilesProcessed, want)
	}
	if len(resp.OutputFiles) != 2 {
		t.Errorf("output_files = %v, want 2 files", resp.OutputFiles)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0] != "sheet is empty" {
		t.Errorf("warnings = %v", resp.Warnings)
	}
	if resp.RunID == "" {
		t.Error("missing run_id")
	}
	if want := "Successfully processed 2 files, generated 2 output files, 1 warnings"; resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
}

func TestRun_SingleStringInput(t *testing.T) {
	cs := setup(t, fakeTool)
	resp := decodeResponse(t, callTool(t, cs, "xl2times_run", map[string]any{
		"input": "VT_A.xlsx",
	}))
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.OutputDirectory != workflow.DefaultOutputDir {
		t.Errorf("output_directory = %q, want %q", resp.OutputDirectory, workflow.DefaultOutputDir)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	cs := setup(t, fakeTool)
	e := decodeError(t, callTool(t, cs, "xl2times_run", map[string]any{"input": ""}))
	if e.Code != CodeInvalidArgument {
		t.Errorf("code = %q, want %q", e.Code, CodeInvalidArgument)
	}
	if e.Tool != "xl2times_run" {
		t.Errorf("tool = %q", e.Tool)
	}
}

func TestRun_MissingInput(t *testing.T) {
	cs := setup(t, fakeTool)
	e := decodeError(t, callTool(t, cs, "xl2times_run", map[string]any{"verbose": 2}))
	if e.Code != CodeInvalidArgument {
		t.Errorf("code = %q, want %q", e.Code, CodeInvalidArgument)
	}
}

func TestRun_MalformedInput(t *testing.T) {
	cs := setup(t, fakeTool)
	e := decodeError(t, callTool(t, cs, "xl2times_run", map[string]any{"input": 42}))
	if e.Code != CodeInvalidArgument {
		t.Errorf("code = %q, want %q", e.Code, CodeInvalidArgument)
	}
}

func TestRun_CommandNotFound(t *testing.T) {
	cfg := &config.Config{Command: "no-such-xl2times-binary", TempDir: t.TempDir()}
	cs := setupWithConfig(t, cfg)

	resp := decodeResponse(t, callTool(t, cs, "xl2times_run", map[string]any{"input": "m.xlsx"}))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.ReturnCode != -1 {
		t.Errorf("return_code = %d, want -1", resp.ReturnCode)
	}
	if resp.FailureKind != string(runner.NotFound) {
		t.Errorf("failure_kind = %q, want %q", resp.FailureKind, runner.NotFound)
	}
	if !strings.HasPrefix(resp.Message, "xl2times execution failed") {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestRun_NonzeroExit(t *testing.T) {
	cs := setup(t, "echo \"Error: sheet ~FI_T not found\"\nexit 2\n")
	resp := decodeResponse(t, callTool(t, cs, "xl2times_run", map[string]any{"input": "m.xlsx"}))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.ReturnCode != 2 {
		t.Errorf("return_code = %d, want 2", resp.ReturnCode)
	}
	if want := "xl2times failed with return code 2"; resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
	if len(resp.Errors) != 2 {
		t.Errorf("errors = %v, want transcript error and exit code error", resp.Errors)
	}
}

// --- xl2times_info ---

func TestInfo(t *testing.T) {
	cs := setup(t, fakeTool)
	res := callTool(t, cs, "xl2times_info", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	var info workflow.Info
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatalf("decoding info: %v", err)
	}
	if !info.XL2Times.Available {
		t.Error("expected xl2times to be available")
	}
	if info.XL2Times.Version != "0.9.1" {
		t.Errorf("version = %q, want 0.9.1", info.XL2Times.Version)
	}
	if info.Server.Name != config.DefaultServerName {
		t.Errorf("server name = %q", info.Server.Name)
	}
}

// --- xl2times_logs ---

func TestLogs_AfterRun(t *testing.T) {
	cs := setup(t, fakeTool)
	resp := decodeResponse(t, callTool(t, cs, "xl2times_run", map[string]any{"input": "VT_A.xlsx"}))

	res := callTool(t, cs, "xl2times_logs", map[string]any{"run_id": resp.RunID})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "# Run: "+resp.RunID) {
		t.Errorf("expected run header, got:\n%s", text)
	}
	if !strings.Contains(text, "Processing VT_A.xlsx") {
		t.Errorf("expected transcript, got:\n%s", text)
	}

	res = callTool(t, cs, "xl2times_logs", map[string]any{"run_id": resp.RunID, "tail": 1})
	text = resultText(res)
	if strings.Contains(text, "Processing VT_A.xlsx") {
		t.Errorf("tail=1 should drop earlier lines, got:\n%s", text)
	}
	if !strings.Contains(text, "successfully converted") {
		t.Errorf("tail=1 should keep the last line, got:\n%s", text)
	}
}

func TestLogs_UnknownRun(t *testing.T) {
	cs := setup(t, fakeTool)
	e := decodeError(t, callTool(t, cs, "xl2times_logs", map[string]any{"run_id": "00000000-0000-0000-0000-000000000000"}))
	if e.Code != CodeToolError {
		t.Errorf("code = %q, want %q", e.Code, CodeToolError)
	}
}
