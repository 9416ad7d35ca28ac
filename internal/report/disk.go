package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/deixis/xl2times-mcp/internal/workflow"
)

// DiskStore writes responses as JSON files to a directory, created lazily
// on the first Save.
type DiskStore struct {
	mu  sync.Mutex
	dir string
}

// NewDiskStore creates a DiskStore rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Save writes a response as a JSON file to disk.
func (s *DiskStore) Save(resp *workflow.Response) error {
	if err := validID(resp.RunID); err != nil {
		return err
	}
	dir, err := s.ensureDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling run %s: %w", resp.RunID, err)
	}
	path := filepath.Join(dir, resp.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run %s: %w", resp.RunID, err)
	}
	return nil
}

// Load reads a response from disk.
func (s *DiskStore) Load(runID string) (*workflow.Response, error) {
	if err := validID(runID); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, runID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	var resp workflow.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshalling run %s: %w", runID, err)
	}
	return &resp, nil
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return s.dir, nil
}

// validID rejects anything that is not a UUID so run IDs cannot escape
// the store directory.
func validID(runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, ErrNotFound)
	}
	return nil
}
