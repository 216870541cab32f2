package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"pingen/internal/pin"
)

const DefaultMaxRuns = 20

var ErrNotFound = errors.New("run not found")

// Store keeps the most recent batch results in a JSON file. Adding past
// capacity evicts the oldest run.
type Store struct {
	mu      sync.RWMutex
	runs    []*pin.BatchResult
	path    string
	maxRuns int
}

func NewStore(path string, maxRuns int) *Store {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	s := &Store{
		runs:    make([]*pin.BatchResult, 0, maxRuns),
		path:    path,
		maxRuns: maxRuns,
	}
	s.load()
	return s
}

func (s *Store) Add(result *pin.BatchResult) error {
	if result == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, result)
	if over := len(s.runs) - s.maxRuns; over > 0 {
		s.runs = s.runs[over:]
	}
	return s.save()
}

// List returns runs newest first.
func (s *Store) List() []*pin.BatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*pin.BatchResult, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, s.runs[i])
	}
	return out
}

func (s *Store) Get(runID string) (*pin.BatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.runs {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make([]*pin.BatchResult, 0, s.maxRuns)
	return s.save()
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var runs []*pin.BatchResult
	if err := json.Unmarshal(data, &runs); err != nil {
		slog.Warn("Ignoring unreadable history file", "path", s.path, "error", err)
		return
	}

	if over := len(runs) - s.maxRuns; over > 0 {
		runs = runs[over:]
	}
	s.runs = runs
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
