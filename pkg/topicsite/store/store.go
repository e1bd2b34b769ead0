package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store persists the manifest of generator runs: which topics each run
// found and which topic every record was assigned to.
type Store interface {
	Close() error

	// SaveRun records a run with its topics and assignments atomically.
	SaveRun(ctx context.Context, run Run) error
	// GetRun loads a run by id. Missing ids wrap internalerr.ErrNotFound.
	GetRun(ctx context.Context, id string) (Run, error)
	// LatestRun returns the most recent run, if any.
	LatestRun(ctx context.Context) (Run, bool, error)
	// ListRuns returns up to limit run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// TopicRecords returns the assignments of one topic in a run, in
	// record order.
	TopicRecords(ctx context.Context, runID string, topic int) ([]Assignment, error)
	// PruneRuns deletes all but the newest keep runs and reports how many
	// were removed.
	PruneRuns(ctx context.Context, keep int) (int, error)
}

// Run is one generator run. Summaries returned by ListRuns leave Topics
// and Assignments empty.
type Run struct {
	// ID is a ULID; ids sort in creation order
	ID          string
	StartedAt   time.Time
	Records     int
	VocabSize   int
	TopicCount  int
	Seed        int64
	Topics      []Topic
	Assignments []Assignment
}

// Topic summarizes one discovered topic.
type Topic struct {
	ID        int
	Title     string
	Keywords  []string
	Coherence float64
	// Size is the number of records whose primary topic this is
	Size int
}

// Assignment maps one record to its primary topic.
type Assignment struct {
	Record      int
	Topic       int
	Probability float64
}

// IDSource issues monotonically increasing run ids.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDSource creates an IDSource.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a fresh id stamped with t.
func (s *IDSource) New(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}
