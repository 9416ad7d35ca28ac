package runner

import "time"

// Result holds the output of a command execution.
type Result struct {
	RunID     string        // unique identifier for this run
	Argv      []string      // command as executed
	Dir       string        // working directory of the child
	Started   time.Time     // wall-clock start
	Duration  time.Duration // wall-clock duration
	ExitCode  int           // process exit code; -1 when killed
	Output    []byte        // combined stdout and stderr (may be truncated)
	Truncated bool          // true if output exceeded the size cap
	TimedOut  bool          // true if the timeout killed the process
	LogFile   string        // persisted transcript; empty if not written
}
