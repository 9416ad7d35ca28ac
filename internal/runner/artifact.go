package runner

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactName returns the log file name for a run. The run ID suffix keeps
// concurrent runs started in the same second apart.
func ArtifactName(started time.Time, runID string) string {
	suffix := strings.ReplaceAll(runID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("xl2times_%s_%s.log", started.Format("20060102_150405"), suffix)
}

// writeArtifact persists the transcript with a header describing the run.
func writeArtifact(dir string, res *Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "# Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "# Command: %s\n", strings.Join(res.Argv, " "))
	fmt.Fprintf(&b, "# Started: %s\n", res.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "# Return code: %d\n", res.ExitCode)
	fmt.Fprintf(&b, "# Working directory: %s\n", res.Dir)
	fmt.Fprintf(&b, "# Duration: %s\n", res.Duration.Round(time.Millisecond))
	if res.TimedOut {
		fmt.Fprintln(&b, "# Timed out: true")
	}
	if res.Truncated {
		fmt.Fprintln(&b, "# Truncated: true")
	}
	fmt.Fprintln(&b, strings.Repeat("=", 60))
	b.Write(res.Output)

	path := filepath.Join(dir, ArtifactName(res.Started, res.RunID))
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing log artifact: %w", err)
	}
	return path, nil
}
