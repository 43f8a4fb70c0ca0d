package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/optincome/internal/contracts"
)

// MemoryStore keeps runs in process. Used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*contracts.RunResult
	order   []string // insertion order, oldest first
	maxRuns int
}

// NewMemoryStore creates a store holding at most maxRuns runs (0 = unbounded).
func NewMemoryStore(maxRuns int) *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]*contracts.RunResult),
		maxRuns: maxRuns,
	}
}

var _ contracts.RunStore = (*MemoryStore)(nil)

// SaveRun stores or replaces a run
func (s *MemoryStore) SaveRun(_ context.Context, run *contracts.RunResult) error {
	if run == nil || run.RunID == "" {
		return errRunIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; !exists {
		s.order = append(s.order, run.RunID)
	}
	s.runs[run.RunID] = run

	for s.maxRuns > 0 && len(s.order) > s.maxRuns {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// GetRun returns a stored run or ErrNotFound
func (s *MemoryStore) GetRun(_ context.Context, runID string) (*contracts.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

// GetLatestRun returns the run with the latest StartedAt
func (s *MemoryStore) GetLatestRun(_ context.Context) (*contracts.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.sortedLocked()
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return runs[0], nil
}

// ListRuns returns summaries newest first
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]contracts.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.sortedLocked()
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	summaries := make([]contracts.RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, run.Summary())
	}
	return summaries, nil
}

// sortedLocked orders by StartedAt desc, later insertion first on ties.
func (s *MemoryStore) sortedLocked() []*contracts.RunResult {
	runs := make([]*contracts.RunResult, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[s.order[i]])
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}
