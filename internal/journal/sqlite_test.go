package journal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronmachine/internal/domain"
	"cronmachine/internal/journal"
)

func openTest(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j := openTest(t)
	base := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, domain.Result{
		AttemptID: "att_1", TaskID: "a", Scheduled: base, Started: base, Duration: time.Millisecond,
	}))
	require.NoError(t, j.Record(ctx, domain.Result{
		AttemptID: "att_2", TaskID: "b", Scheduled: base, Started: base.Add(time.Minute), Err: errors.New("exit 1"),
	}))
	require.NoError(t, j.Record(ctx, domain.Result{TaskID: "a", Scheduled: base, Started: base.Add(2 * time.Minute)}))

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].TaskID)
	assert.Regexp(t, `^att_[0-9a-f-]{36}$`, got[0].ID)
	assert.True(t, got[0].Started.Equal(base.Add(2*time.Minute)))

	assert.Equal(t, "att_2", got[1].ID)
	assert.False(t, got[1].Success)
	assert.Equal(t, "exit 1", got[1].Error)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	j := openTest(t)
	base := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

	for i, err := range []error{nil, errors.New("first"), errors.New("second"), nil} {
		require.NoError(t, j.Record(ctx, domain.Result{
			TaskID: "x", Scheduled: base, Started: base.Add(time.Duration(i) * time.Second), Err: err,
		}))
	}
	require.NoError(t, j.Record(ctx, domain.Result{TaskID: "y", Scheduled: base, Started: base}))

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "x", stats[0].TaskID)
	assert.Equal(t, 4, stats[0].Runs)
	assert.Equal(t, 2, stats[0].Failures)
	assert.Equal(t, "second", stats[0].LastError)
	require.NotNil(t, stats[0].LastRun)
	assert.True(t, stats[0].LastRun.Equal(base.Add(3*time.Second)))

	assert.Equal(t, "y", stats[1].TaskID)
	assert.Zero(t, stats[1].Failures)
	assert.Empty(t, stats[1].LastError)
}

func TestInLocation(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	j := openTest(t).In(loc)

	now := time.Now()
	require.NoError(t, j.Record(ctx, domain.Result{TaskID: "z", Scheduled: now, Started: now}))
	got, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, loc, got[0].Started.Location())
}

func TestRecordKeepsSelectionAndStart(t *testing.T) {
	ctx := context.Background()
	j := openTest(t)
	selected := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	started := selected.Add(750 * time.Millisecond)

	require.NoError(t, j.Record(ctx, domain.Result{
		TaskID: "late", Scheduled: selected, Selected: selected, Started: started,
	}))
	require.NoError(t, j.Record(ctx, domain.Result{
		TaskID: "legacy", Scheduled: selected, Started: started.Add(time.Second),
	}))

	got, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "legacy", got[0].TaskID)
	assert.True(t, got[0].Selected.Equal(got[0].Started), "zero selection falls back to start")

	assert.Equal(t, "late", got[1].TaskID)
	assert.True(t, got[1].Selected.Equal(selected))
	assert.True(t, got[1].Started.Equal(started))
}
