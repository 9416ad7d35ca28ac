package report

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/deixis/xl2times-mcp/internal/workflow"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on miss.
type LRUStore struct {
	cache *lru.Cache[string, *workflow.Response]
	back  Store
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity below 1 is raised to 1.
func NewLRUStore(capacity int, back Store) *LRUStore {
	if capacity < 1 {
		capacity = 1
	}
	cache, err := lru.New[string, *workflow.Response](capacity)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &LRUStore{cache: cache, back: back}
}

// Save writes the response to the cache and delegates to the backing store.
func (s *LRUStore) Save(resp *workflow.Response) error {
	s.cache.Add(resp.RunID, resp)
	if s.back == nil {
		return nil
	}
	return s.back.Save(resp)
}

// Load checks the cache first. On miss, loads from the backing store
// and promotes the response into the cache.
func (s *LRUStore) Load(runID string) (*workflow.Response, error) {
	if resp, ok := s.cache.Get(runID); ok {
		return resp, nil
	}
	if s.back == nil {
		return nil, ErrNotFound
	}
	resp, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(runID, resp)
	return resp, nil
}

// Len returns the number of cached responses.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
