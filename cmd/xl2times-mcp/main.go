// Command xl2times-mcp exposes the xl2times converter as an MCP server and
// as a small command line front end.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deixis/xl2times-mcp"
	"github.com/deixis/xl2times-mcp/internal/config"
	"github.com/deixis/xl2times-mcp/internal/logger"
	"github.com/deixis/xl2times-mcp/internal/report"
	"github.com/deixis/xl2times-mcp/internal/runner"
	"github.com/deixis/xl2times-mcp/internal/workflow"
)

// errFailed signals a completed command whose result was a failure. The
// result has already been printed.
var errFailed = errors.New("failed")

func main() {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
	case errors.Is(err, errFailed):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "xl2times-mcp: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xl2times-mcp",
		Short: "MCP server for xl2times VEDA-TIMES processing",
		Long: `xl2times-mcp runs the xl2times converter on behalf of MCP clients.

Configuration is read from a .xl2times file found by walking up from the
current directory, from .env, and from XL2TIMES_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newServeCommand(),
		newRunCommand(),
		newInfoCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), xl2times.Version)
			return err
		},
	}
}

// --- shared ---

// env is the wiring shared by all commands.
type env struct {
	workspace string
	cfg       *config.Config
	log       *zap.Logger
	runner    *runner.Runner
}

// newEnv loads configuration for the current directory and builds the
// logger and runner. A positive timeoutOverride replaces the configured
// timeout.
func newEnv(timeoutOverride time.Duration) (*env, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	if loaded.Path != "" {
		log.Debug("config loaded", zap.String("path", loaded.Path))
	}

	timeout := cfg.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}

	return &env{
		workspace: workspace,
		cfg:       cfg,
		log:       log,
		runner: &runner.Runner{
			Dir:       workspace,
			Timeout:   timeout,
			MaxOutput: cfg.MaxOutputBytes(),
			LogDir:    cfg.LogDir(),
			Logger:    log,
		},
	}, nil
}

func (e *env) engine() *workflow.Engine {
	return &workflow.Engine{
		Config:    e.cfg,
		Runner:    e.runner,
		Workspace: e.workspace,
		Logger:    e.log,
	}
}

func (e *env) store() report.Store {
	return report.NewLRUStore(e.cfg.HistorySize(), report.NewDiskStore(e.cfg.RunsDir()))
}
