package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
	"github.com/cognicore/topicsite/pkg/topicsite/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]store.Run)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun stores a copy of run, replacing any run with the same id.
func (s *Store) SaveRun(ctx context.Context, run store.Run) error {
	if run.ID == "" {
		return fmt.Errorf("save run: empty id: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copyRun(run)
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(run), nil
}

// LatestRun implements store.Store.
func (s *Store) LatestRun(ctx context.Context) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.sortedIDs()
	if len(ids) == 0 {
		return store.Run{}, false, nil
	}
	return copyRun(s.runs[ids[0]]), true, nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.sortedIDs()
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]store.Run, 0, len(ids))
	for _, id := range ids {
		r := s.runs[id]
		r.Topics = nil
		r.Assignments = nil
		out = append(out, r)
	}
	return out, nil
}

// TopicRecords implements store.Store.
func (s *Store) TopicRecords(ctx context.Context, runID string, topic int) ([]store.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	var out []store.Assignment
	for _, a := range run.Assignments {
		if a.Topic == topic {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Record < out[j].Record })
	return out, nil
}

// PruneRuns implements store.Store.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune runs: keep %d: %w", keep, internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.sortedIDs()
	if len(ids) <= keep {
		return 0, nil
	}
	for _, id := range ids[keep:] {
		delete(s.runs, id)
	}
	return len(ids) - keep, nil
}

// sortedIDs returns run ids newest first. Callers hold the lock.
func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

func copyRun(r store.Run) store.Run {
	out := r
	if r.Topics != nil {
		out.Topics = make([]store.Topic, len(r.Topics))
		for i, t := range r.Topics {
			t.Keywords = append([]string(nil), t.Keywords...)
			out.Topics[i] = t
		}
	}
	if r.Assignments != nil {
		out.Assignments = append([]store.Assignment(nil), r.Assignments...)
	}
	return out
}
