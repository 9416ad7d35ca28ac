package workflow

import (
	"regexp"
	"strings"
)

// Category identifies what a classifier rule detects in a transcript line.
type Category int

const (
	// Success marks an explicit report of a completed conversion.
	Success Category = iota
	// Progress marks ordinary pipeline activity (loading, extracting, timing).
	Progress
	// Processed marks a line naming an input workbook.
	Processed
	// Warning marks a warning; its extracted text is reported.
	Warning
	// Error marks an error; its extracted text is reported.
	Error
)

// exclusive reports whether lines matched by the category are claimed, so
// that later exclusive rules skip them.
func (c Category) exclusive() bool {
	return c == Warning || c == Error
}

// Rule detects one kind of marker in a single transcript line.
type Rule interface {
	Category() Category
	// Match returns the extracted text and whether the line matched.
	Match(line string) (string, bool)
}

// regexpRule matches a pattern and extracts its first capture group,
// or the whole trimmed line if the pattern has no group.
type regexpRule struct {
	category Category
	re       *regexp.Regexp
}

// NewRegexpRule returns a Rule backed by a regular expression.
func NewRegexpRule(c Category, pattern string) Rule {
	return &regexpRule{category: c, re: regexp.MustCompile(pattern)}
}

func (r *regexpRule) Category() Category { return r.category }

func (r *regexpRule) Match(line string) (string, bool) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1]), true
	}
	return strings.TrimSpace(line), true
}

// errorRule claims any line mentioning "error". The text after an
// "error:" marker is reported when present, otherwise the whole line.
type errorRule struct{}

var errorMarker = regexp.MustCompile(`(?i)\berror\b\s*:\s*(.+)`)

func (errorRule) Category() Category { return Error }

func (errorRule) Match(line string) (string, bool) {
	if !strings.Contains(strings.ToLower(line), "error") {
		return "", false
	}
	if m := errorMarker.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return strings.TrimSpace(line), true
}

// DefaultRules are evaluated in order for every line. Warning rules come
// before the error rule so that Python warning lines mentioning "error"
// (e.g. pandas.errors.PerformanceWarning) are reported as warnings.
var DefaultRules = []Rule{
	NewRegexpRule(Success, `(?i)successfully converted|conversion completed successfully`),
	NewRegexpRule(Progress, `(?i)\b(?:load(?:ed|ing)?|extract(?:ed|ing)?|transform(?:ed|ing|s)?)\b|\belapsed\b|\btook\s+[\d.]+\s*s`),
	NewRegexpRule(Processed, `(?i)\bprocessing\s+(\S+\.xls[xm])\b`),
	NewRegexpRule(Processed, `(?i)\busing cached data for\s+(\S+\.xls[xm])\b`),
	NewRegexpRule(Warning, `(?i)\b(?:Future|User|Deprecation|PendingDeprecation|Runtime|Performance|SettingWithCopy|Syntax|Resource)Warning\s*:\s*(.*)`),
	NewRegexpRule(Warning, `(?i)\bWARNING\s*:\s*(.*)`),
	errorRule{},
}

// Classification messages.
const (
	MsgSuccess   = "Excel files successfully converted"
	MsgCompleted = "Processing completed"
	MsgErrors    = "Errors occurred during conversion"
	MsgUnknown   = "No completion markers found in output"
)

// Classified is the structured reading of a transcript.
type Classified struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	FilesProcessed []string `json:"files_processed"`
	Warnings       []string `json:"warnings"`
	Errors         []string `json:"errors"`
}

// Classifier turns a transcript into a Classified result. It holds no
// state between calls.
type Classifier struct {
	Rules []Rule
}

// Classify applies DefaultRules to transcript.
func Classify(transcript string) Classified {
	return Classifier{Rules: DefaultRules}.Classify(transcript)
}

// Classify reads transcript line by line. It never fails; unrecognised
// input yields an unsuccessful result with empty lists.
//
// Success is an explicit success marker, or failing that any progress
// marker, and is always false once an error was found. The progress
// fallback can report a stalled or truncated run as successful.
func (c Classifier) Classify(transcript string) Classified {
	out := Classified{
		FilesProcessed: []string{},
		Warnings:       []string{},
		Errors:         []string{},
	}

	var explicit, progress bool
	seen := make(map[string]bool)

	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		claimed := false
		for _, rule := range c.Rules {
			cat := rule.Category()
			if claimed && cat.exclusive() {
				continue
			}
			text, ok := rule.Match(line)
			if !ok {
				continue
			}
			if cat.exclusive() {
				claimed = true
			}
			switch cat {
			case Success:
				explicit = true
			case Progress:
				progress = true
			case Processed:
				if text != "" && !seen[text] {
					seen[text] = true
					out.FilesProcessed = append(out.FilesProcessed, text)
				}
			case Warning:
				out.Warnings = append(out.Warnings, text)
			case Error:
				out.Errors = append(out.Errors, text)
			}
		}
	}

	switch {
	case len(out.Errors) > 0:
		out.Message = MsgErrors
	case explicit:
		out.Success = true
		out.Message = MsgSuccess
	case progress:
		out.Success = true
		out.Message = MsgCompleted
	default:
		out.Message = MsgUnknown
	}
	return out
}
