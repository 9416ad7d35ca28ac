package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxVerbosity is the highest verbosity level xl2times distinguishes.
const MaxVerbosity = 4

// Flag tokens understood by xl2times.
const (
	flagOutputDir           = "--output_dir"
	flagRegions             = "--regions"
	flagIncludeDummyImports = "--include_dummy_imports"
	flagGroundTruthDir      = "--ground_truth_dir"
	flagDD                  = "--dd"
	flagOnlyRead            = "--only_read"
	flagNoCache             = "--no_cache"
	flagVerbose             = "-v"
)

// Options lists the option names callers may set, in the order they are
// documented.
var Options = []string{
	"regions",
	"include_dummy_imports",
	"ground_truth_dir",
	"dd",
	"only_read",
	"no_cache",
	"verbose",
}

// SupportedFormats lists the spreadsheet extensions xl2times reads.
var SupportedFormats = []string{"xlsx", "xlsm"}

// Inputs is an ordered list of input paths. It decodes from either a single
// JSON string or an array of strings.
type Inputs []string

// UnmarshalJSON accepts "path" or ["a", "b"].
func (in *Inputs) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*in = nil
		} else {
			*in = Inputs{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("input must be a string or an array of strings")
	}
	*in = many
	return nil
}

// Request describes one xl2times invocation.
type Request struct {
	Input               Inputs   `json:"input"`
	OutputDir           string   `json:"output_dir,omitempty"`
	Regions             []string `json:"regions,omitempty"`
	IncludeDummyImports bool     `json:"include_dummy_imports,omitempty"`
	GroundTruthDir      string   `json:"ground_truth_dir,omitempty"`
	DD                  bool     `json:"dd,omitempty"`
	OnlyRead            bool     `json:"only_read,omitempty"`
	NoCache             bool     `json:"no_cache,omitempty"`
	Verbose             int      `json:"verbose,omitempty"`
}

// ValidationError is returned for a request that cannot be executed.
// No process is started when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks that at least one non-blank input path is present.
func (r *Request) Validate() error {
	for _, p := range r.Input {
		if strings.TrimSpace(p) != "" {
			return nil
		}
	}
	return &ValidationError{Field: "input", Message: "input files or directory required"}
}

// Verbosity returns the requested verbosity clamped to [0, MaxVerbosity].
func (r *Request) Verbosity() int {
	return min(max(r.Verbose, 0), MaxVerbosity)
}

// BuildArgs returns the xl2times arguments for r, to be appended to the
// configured command prefix. Inputs keep their order and come first.
// Paths and values are passed through unchecked.
func BuildArgs(r Request) []string {
	var args []string

	for _, p := range r.Input {
		if p != "" {
			args = append(args, p)
		}
	}

	if r.OutputDir != "" {
		args = append(args, flagOutputDir, r.OutputDir)
	}
	if len(r.Regions) > 0 {
		args = append(args, flagRegions)
		args = append(args, r.Regions...)
	}
	if r.IncludeDummyImports {
		args = append(args, flagIncludeDummyImports)
	}
	if r.GroundTruthDir != "" {
		args = append(args, flagGroundTruthDir, r.GroundTruthDir)
	}
	if r.DD {
		args = append(args, flagDD)
	}
	if r.OnlyRead {
		args = append(args, flagOnlyRead)
	}
	if r.NoCache {
		args = append(args, flagNoCache)
	}

	// xl2times counts repeated -v flags.
	for range r.Verbosity() {
		args = append(args, flagVerbose)
	}

	return args
}

// BuildCommand returns the full argv: the command prefix followed by BuildArgs.
func BuildCommand(prefix []string, r Request) []string {
	argv := make([]string, 0, len(prefix)+len(r.Input)+8)
	argv = append(argv, prefix...)
	return append(argv, BuildArgs(r)...)
}
