package runner

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failed execution.
type Kind string

const (
	// NotFound means the executable could not be located.
	NotFound Kind = "not_found"
	// Timeout means the process was killed after exceeding the timeout.
	Timeout Kind = "timeout"
	// NonzeroExit means the process ran to completion with a nonzero status.
	NonzeroExit Kind = "nonzero_exit"
	// Spawn means the process could not be started for another reason.
	Spawn Kind = "spawn"
)

// Error describes a failed execution. Output holds whatever the process
// wrote before it failed.
type Error struct {
	Kind     Kind
	Argv     []string
	ExitCode int
	Timeout  time.Duration
	Output   string
	Err      error
}

func (e *Error) Error() string {
	name := ""
	if len(e.Argv) > 0 {
		name = e.Argv[0]
	}
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("command not found: %s", name)
	case Timeout:
		return fmt.Sprintf("execution timed out after %s", e.Timeout)
	case NonzeroExit:
		return fmt.Sprintf("command failed with return code %d", e.ExitCode)
	default:
		return fmt.Sprintf("executing %s: %v", name, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}
