// Package workflow turns a conversion request into an xl2times invocation
// and its transcript into a structured response. It is consumed by both
// the MCP server and the CLI commands.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deixis/xl2times-mcp/internal/config"
	"github.com/deixis/xl2times-mcp/internal/logger"
	"github.com/deixis/xl2times-mcp/internal/runner"
)

// CommandRunner executes commands.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config     *config.Config
	Runner     CommandRunner
	Prober     CommandRunner // availability probe; nil uses a short-lived runner
	Classifier Classifier
	Workspace  string // working directory of the child; resolves relative output dirs
	Logger     *zap.Logger
}

// Run executes one conversion.
//
// A ValidationError is returned before anything is started. A missing
// executable, a spawn failure, or a timeout yields a failed Response and a
// nil error. Any other failure is returned as an error.
func (e *Engine) Run(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := logger.OrNop(e.Logger)
	argv := BuildCommand(e.Config.CommandArgv(), req)
	started := time.Now()

	res, err := e.Runner.Run(ctx, argv)

	var re *runner.Error
	if err != nil && !runner.IsKind(err, runner.NonzeroExit) {
		if !errors.As(err, &re) {
			return nil, err
		}
		log.Error("xl2times execution failed", zap.String("kind", string(re.Kind)), zap.Error(err))
		resp := Failure(req, argv, started, err)
		if res != nil {
			resp.RunID = res.RunID
			resp.LogFile = res.LogFile
			resp.Truncated = res.Truncated
			resp.StartedAt = res.Started
		} else {
			resp.RunID = uuid.NewString()
		}
		return resp, nil
	}

	classifier := e.Classifier
	if len(classifier.Rules) == 0 {
		classifier.Rules = DefaultRules
	}
	classified := classifier.Classify(string(res.Output))

	resp := Assemble(Assembly{
		Request:     req,
		Result:      res,
		Classified:  classified,
		OutputRoot:  e.outputRoot(res),
		MaxFileSize: e.Config.MaxFileSize(),
	})

	log.Info("xl2times run completed",
		zap.String("run_id", resp.RunID),
		zap.Bool("success", resp.Success),
		zap.Int("return_code", resp.ReturnCode),
		zap.Int("files_processed", len(resp.FilesProcessed)),
		zap.Int("warnings", len(resp.Warnings)),
		zap.Int("errors", len(resp.Errors)),
		zap.Float64("execution_time", resp.ExecutionTime),
	)
	return resp, nil
}

func (e *Engine) outputRoot(res *runner.Result) string {
	if res != nil && res.Dir != "" {
		return res.Dir
	}
	return e.Workspace
}
