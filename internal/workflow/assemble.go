package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/deixis/xl2times-mcp/internal/runner"
)

// RawTablesFile is written by xl2times to the output directory in
// read-only mode.
const RawTablesFile = "raw_tables.txt"

// DefaultOutputDir is reported when the request names no output directory.
const DefaultOutputDir = "default_output"

// Response is the structured result of one invocation.
type Response struct {
	RunID           string    `json:"run_id"`
	Success         bool      `json:"success"`
	ReturnCode      int       `json:"return_code"`
	LogFile         string    `json:"log_file"`
	OutputFiles     []string  `json:"output_files"`
	OutputDirectory string    `json:"output_directory"`
	Warnings        []string  `json:"warnings"`
	Errors          []string  `json:"errors"`
	FilesProcessed  []string  `json:"files_processed"`
	ExecutionTime   float64   `json:"execution_time"` // seconds
	Command         string    `json:"command"`
	Message         string    `json:"message"`
	Detail          string    `json:"detail,omitempty"` // classifier message
	RawTables       *string   `json:"raw_tables"`
	TimedOut        bool      `json:"timed_out,omitempty"`
	Truncated       bool      `json:"truncated,omitempty"`
	FailureKind     string    `json:"failure_kind,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

// Assembly holds everything Assemble merges into a Response.
type Assembly struct {
	Request     Request
	Result      *runner.Result
	Classified  Classified
	OutputRoot  string // resolves a relative output directory; usually the runner's dir
	MaxFileSize int64  // largest raw tables file read; 0 means no limit
}

// Assemble builds the Response for a process that ran to completion.
// A nonzero return code always fails the run and adds an error entry.
func Assemble(a Assembly) *Response {
	res := a.Result
	c := a.Classified

	resp := &Response{
		RunID:           res.RunID,
		ReturnCode:      res.ExitCode,
		LogFile:         res.LogFile,
		OutputDirectory: outputDirectory(a.Request),
		Warnings:        nonNil(c.Warnings),
		Errors:          nonNil(c.Errors),
		FilesProcessed:  nonNil(c.FilesProcessed),
		ExecutionTime:   res.Duration.Seconds(),
		Command:         strings.Join(res.Argv, " "),
		Detail:          c.Message,
		Truncated:       res.Truncated,
		StartedAt:       res.Started,
	}

	resp.Success = res.ExitCode == 0 && c.Success
	if res.ExitCode != 0 {
		resp.Errors = append(resp.Errors, fmt.Sprintf("xl2times exited with return code %d", res.ExitCode))
	}

	resp.OutputFiles = []string{}
	if dir := resolveDir(a.OutputRoot, a.Request.OutputDir); dir != "" {
		if files, err := ListOutputFiles(dir); err == nil {
			resp.OutputFiles = files
		}
		if a.Request.OnlyRead {
			resp.RawTables = readRawTables(dir, a.MaxFileSize)
		}
	}

	resp.Message = Summary(resp)
	return resp
}

// Failure builds the Response for a run that ended without a usable
// transcript: executable not found, spawn failure, or timeout.
func Failure(req Request, argv []string, started time.Time, err error) *Response {
	resp := &Response{
		Success:         false,
		ReturnCode:      -1,
		OutputFiles:     []string{},
		OutputDirectory: outputDirectory(req),
		Warnings:        []string{},
		Errors:          []string{err.Error()},
		FilesProcessed:  []string{},
		ExecutionTime:   time.Since(started).Seconds(),
		Command:         strings.Join(argv, " "),
		Message:         fmt.Sprintf("xl2times execution failed: %v", err),
		StartedAt:       started,
	}
	var re *runner.Error
	if errors.As(err, &re) {
		resp.FailureKind = string(re.Kind)
		resp.TimedOut = re.Kind == runner.Timeout
	}
	return resp
}

// Summary returns the one-line message shown to callers. On success it
// counts processed files, output files and any warnings; on failure it
// reports the return code.
func Summary(r *Response) string {
	if !r.Success {
		return fmt.Sprintf("xl2times failed with return code %d", r.ReturnCode)
	}
	parts := []string{
		fmt.Sprintf("Successfully processed %d files", len(r.FilesProcessed)),
		fmt.Sprintf("generated %d output files", len(r.OutputFiles)),
	}
	if n := len(r.Warnings); n > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", n))
	}
	return strings.Join(parts, ", ")
}

// ListOutputFiles returns every regular file below dir, sorted.
func ListOutputFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	files := []string{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func readRawTables(dir string, limit int64) *string {
	path := filepath.Join(dir, RawTablesFile)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if limit > 0 && info.Size() > limit {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func outputDirectory(req Request) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	return DefaultOutputDir
}

// resolveDir returns dir as an absolute path, resolved against root when
// relative. The empty string is returned unchanged.
func resolveDir(root, dir string) string {
	if dir == "" {
		return ""
	}
	if !filepath.IsAbs(dir) && root != "" {
		dir = filepath.Join(root, dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
