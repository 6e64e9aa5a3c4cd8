package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronmachine/internal/schedule"
)

func TestNextAfter(t *testing.T) {
	ref := time.Date(2024, 3, 10, 12, 30, 15, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{name: "every minute", expr: "* * * * *", want: time.Date(2024, 3, 10, 12, 31, 0, 0, time.UTC)},
		{name: "top of hour", expr: "0 * * * *", want: time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)},
		{name: "daily", expr: "0 3 * * *", want: time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)},
		{name: "descriptor", expr: "@hourly", want: time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schedule.Cron{}.NextAfter(tt.expr, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(ref))
		})
	}
}

func TestNextAfterIsStrict(t *testing.T) {
	ref := time.Date(2024, 3, 10, 12, 31, 0, 0, time.UTC)
	got, err := schedule.Cron{}.NextAfter("* * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, ref.Add(time.Minute), got)
}

func TestNextAfterKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ref := time.Date(2024, 6, 1, 8, 15, 0, 0, loc)

	got, err := schedule.Cron{}.NextAfter("0 9 * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}

func TestInvalid(t *testing.T) {
	for _, expr := range []string{"", "not a cron", "61 * * * *", "* * * *"} {
		_, err := schedule.Cron{}.NextAfter(expr, time.Now())
		require.Error(t, err, expr)
		assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)

		var se *schedule.InvalidScheduleError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, expr, se.Expr)
		assert.Error(t, schedule.Validate(expr))
	}
}

func TestNeverFires(t *testing.T) {
	_, err := schedule.NextRunTime("0 0 30 2 *", time.Now())
	assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
}

func TestUpcoming(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC)
	got, err := schedule.Upcoming("*/15 * * * *", from, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 45, 0, 0, time.UTC),
	}, got)

	_, err = schedule.Upcoming("bogus", from, 3)
	assert.Error(t, err)
}
