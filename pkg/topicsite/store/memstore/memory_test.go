package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/topicsite/pkg/topicsite/store"
	"github.com/cognicore/topicsite/pkg/topicsite/store/storetest"
)

func TestMemstore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestReturnedRunsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	run := storetest.SampleRun("run-1", time.Now())
	require.NoError(t, s.SaveRun(ctx, run))

	run.Topics[0].Keywords[0] = "mutated"
	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "solar", got.Topics[0].Keywords[0])

	got.Assignments[0].Topic = 9
	again, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Assignments[0].Topic)
}
