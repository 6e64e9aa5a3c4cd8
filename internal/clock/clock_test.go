package clock_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cronmachine/internal/clock"
)

func TestNew(t *testing.T) {
	t.Run("known zone", func(t *testing.T) {
		c, err := clock.New("Asia/Tokyo")
		require.NoError(t, err)
		require.Equal(t, "Asia/Tokyo", c.Now().Location().String())
		require.WithinDuration(t, time.Now(), c.Now(), time.Second)
	})

	t.Run("empty means UTC", func(t *testing.T) {
		c, err := clock.New("  ")
		require.NoError(t, err)
		require.Equal(t, time.UTC, c.Location())
	})

	t.Run("unknown zone", func(t *testing.T) {
		_, err := clock.New("Mars/Olympus_Mons")
		require.Error(t, err)

		var cfgErr *clock.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		require.Equal(t, "Mars/Olympus_Mons", cfgErr.Timezone)
		require.ErrorIs(t, err, clock.ErrUnknownTimezone)
	})
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var c clock.Clock = clock.Func(func() time.Time { return fixed })
	require.Equal(t, fixed, c.Now())
}
