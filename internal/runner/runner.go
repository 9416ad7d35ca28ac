// Package runner executes the wrapped conversion tool as a child process
// with a timeout, a combined output transcript, and a persisted log artifact.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deixis/xl2times-mcp/internal/logger"
)

// waitDelay bounds how long Wait keeps draining output after the process
// has been killed, in case a descendant still holds the pipe open.
const waitDelay = 5 * time.Second

// Runner executes commands as child processes.
type Runner struct {
	Dir       string        // working directory; empty means the current directory
	Timeout   time.Duration // wall-clock limit per run
	MaxOutput int           // bytes of transcript kept
	LogDir    string        // transcripts are written here; empty disables them
	Logger    *zap.Logger
}

// Run executes argv. The first element is the binary name (resolved via
// PATH), and the rest are arguments. Standard error is merged into standard
// output so the transcript keeps the order the tool wrote it in.
//
// A Result is returned whenever the process started. A nonzero exit returns
// both the Result and an *Error of kind NonzeroExit. A missing executable,
// a spawn failure, or a timeout returns an *Error of the matching kind; on
// timeout the process group is killed and reaped before Run returns.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.dir()
	if err != nil {
		return nil, err
	}

	log := logger.OrNop(r.Logger)

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = 1 << 20
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := &Result{
		RunID:   uuid.New().String(),
		Argv:    argv,
		Dir:     dir,
		Started: time.Now(),
	}
	log = log.With(zap.String("run_id", res.RunID))
	log.Info("executing command", zap.String("command", strings.Join(argv, " ")), zap.String("dir", dir))

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	configureKill(cmd)

	var out bytes.Buffer
	w := &limitWriter{buf: &out, limit: maxOutput}
	cmd.Stdout = w
	cmd.Stderr = w

	runErr := cmd.Run()

	res.Duration = time.Since(res.Started)
	res.Output = out.Bytes()
	res.Truncated = w.dropped
	res.ExitCode = exitCode(cmd, runErr)

	if cmd.Process == nil {
		// Never started.
		kind := Spawn
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
			kind = NotFound
		}
		log.Warn("command did not start", zap.String("kind", string(kind)), zap.Error(runErr))
		return nil, &Error{Kind: kind, Argv: argv, Err: runErr}
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
	}

	if r.LogDir != "" {
		path, err := writeArtifact(r.LogDir, res)
		if err != nil {
			log.Warn("writing log artifact failed", zap.Error(err))
		} else {
			res.LogFile = path
		}
	}

	log.Info("command finished",
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
		zap.Bool("timed_out", res.TimedOut),
		zap.Bool("truncated", res.Truncated),
		zap.String("log_file", res.LogFile),
	)

	switch {
	case res.TimedOut:
		return res, &Error{Kind: Timeout, Argv: argv, ExitCode: res.ExitCode, Timeout: timeout, Output: string(res.Output), Err: runCtx.Err()}
	case ctx.Err() != nil:
		return res, fmt.Errorf("executing %s: %w", argv[0], ctx.Err())
	case res.ExitCode != 0:
		return res, &Error{Kind: NonzeroExit, Argv: argv, ExitCode: res.ExitCode, Output: string(res.Output), Err: runErr}
	case runErr != nil:
		// Exited zero but Wait still failed, e.g. output held open past waitDelay.
		return res, &Error{Kind: Spawn, Argv: argv, Output: string(res.Output), Err: runErr}
	}
	return res, nil
}

func (r *Runner) dir() (string, error) {
	if r.Dir != "" {
		return r.Dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determining working directory: %w", err)
	}
	return wd, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.dropped = true
		}
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.dropped = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
