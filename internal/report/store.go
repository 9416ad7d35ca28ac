// Package report persists conversion responses so that earlier runs and
// their transcripts can be retrieved by run ID.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/deixis/xl2times-mcp/internal/workflow"
)

// ErrNotFound is returned when no run with the requested ID is stored.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves run responses.
type Store interface {
	Save(resp *workflow.Response) error
	Load(runID string) (*workflow.Response, error)
}

// ReadLog returns the transcript artifact of resp. When tail is positive
// only the artifact header and the last tail lines of the transcript are
// returned.
func ReadLog(resp *workflow.Response, tail int) (string, error) {
	if resp.LogFile == "" {
		return "", fmt.Errorf("run %s has no log file", resp.RunID)
	}
	f, err := os.Open(resp.LogFile)
	if err != nil {
		return "", fmt.Errorf("opening log for run %s: %w", resp.RunID, err)
	}
	defer f.Close()

	var header, body []string
	inHeader := true
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	for sc.Scan() {
		line := sc.Text()
		if inHeader {
			header = append(header, line)
			if strings.HasPrefix(line, "====") {
				inHeader = false
			}
			continue
		}
		body = append(body, line)
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading log for run %s: %w", resp.RunID, err)
	}
	if inHeader {
		// No separator; treat everything as transcript.
		body, header = header, nil
	}

	if tail > 0 && len(body) > tail {
		skipped := len(body) - tail
		body = append([]string{fmt.Sprintf("... (%d earlier lines)", skipped)}, body[skipped:]...)
	}

	var b strings.Builder
	for _, line := range header {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, line := range body {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
