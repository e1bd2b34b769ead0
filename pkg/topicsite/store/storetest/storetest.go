// Package storetest holds behavior tests shared by every store.Store
// backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
	"github.com/cognicore/topicsite/pkg/topicsite/store"
)

// Run exercises a backend. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, open(t)) })
	t.Run("Latest", func(t *testing.T) { testLatest(t, open(t)) })
	t.Run("TopicRecords", func(t *testing.T) { testTopicRecords(t, open(t)) })
	t.Run("Prune", func(t *testing.T) { testPrune(t, open(t)) })
	t.Run("Missing", func(t *testing.T) { testMissing(t, open(t)) })
}

// SampleRun returns a small run with two topics and four assignments.
func SampleRun(id string, started time.Time) store.Run {
	return store.Run{
		ID:         id,
		StartedAt:  started,
		Records:    4,
		VocabSize:  12,
		TopicCount: 2,
		Seed:       42,
		Topics: []store.Topic{
			{ID: 0, Title: "solar wind grid", Keywords: []string{"solar", "wind", "grid", "power"}, Coherence: 0.41, Size: 3},
			{ID: 1, Title: "pasta sauce garlic", Keywords: []string{"pasta", "sauce", "garlic"}, Coherence: -0.05, Size: 1},
		},
		Assignments: []store.Assignment{
			{Record: 0, Topic: 0, Probability: 0.9},
			{Record: 1, Topic: 1, Probability: 0.7},
			{Record: 2, Topic: 0, Probability: 0.6},
			{Record: 3, Topic: 0, Probability: 0.8},
		},
	}
}

func testSaveAndGet(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := SampleRun(store.NewIDSource().New(started), started)
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, run.Records, got.Records)
	assert.Equal(t, run.VocabSize, got.VocabSize)
	assert.Equal(t, run.TopicCount, got.TopicCount)
	assert.Equal(t, run.Seed, got.Seed)
	assert.Equal(t, run.Topics, got.Topics)
	assert.Equal(t, run.Assignments, got.Assignments)

	// saving the same id again replaces the run
	run.Topics = run.Topics[:1]
	run.Assignments = run.Assignments[:2]
	require.NoError(t, st.SaveRun(ctx, run))
	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Topics, 1)
	assert.Len(t, got.Assignments, 2)

	assert.ErrorIs(t, st.SaveRun(ctx, store.Run{}), internalerr.ErrInvalidInput)
}

func testLatest(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, ok, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ids := store.NewIDSource()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var want []string
	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Minute)
		run := SampleRun(ids.New(started), started)
		require.NoError(t, st.SaveRun(ctx, run))
		want = append([]string{run.ID}, want...)
	}

	latest, ok, err := st.LatestRun(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want[0], latest.ID)
	assert.Len(t, latest.Assignments, 4)

	summaries, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, want[:2], []string{summaries[0].ID, summaries[1].ID})
	assert.Empty(t, summaries[0].Topics)

	all, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testTopicRecords(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	run := SampleRun(store.NewIDSource().New(time.Now()), time.Now())
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.TopicRecords(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{got[0].Record, got[1].Record, got[2].Record})

	none, err := st.TopicRecords(ctx, run.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testPrune(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	ids := store.NewIDSource()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var newest string
	for i := 0; i < 4; i++ {
		started := base.Add(time.Duration(i) * time.Hour)
		run := SampleRun(ids.New(started), started)
		require.NoError(t, st.SaveRun(ctx, run))
		newest = run.ID
	}

	removed, err := st.PruneRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	runs, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, newest, runs[0].ID)

	_, err = st.PruneRuns(ctx, -1)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func testMissing(t *testing.T, st store.Store) {
	ctx := context.Background()
	defer st.Close()

	_, err := st.GetRun(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	_, err = st.TopicRecords(ctx, "nope", 0)
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
}
