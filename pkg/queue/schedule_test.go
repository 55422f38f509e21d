package queue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/queue"
)

func TestSchedules(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	t.Run("daily rolls to tomorrow when time has passed", func(t *testing.T) {
		t.Parallel()

		s := queue.DailyAt(8, 0)
		from := time.Date(2026, 3, 2, 9, 30, 0, 0, paris)
		next := s.Next(from)
		assert.Equal(t, time.Date(2026, 3, 3, 8, 0, 0, 0, paris), next)
	})

	t.Run("daily fires today when time is ahead", func(t *testing.T) {
		t.Parallel()

		s := queue.DailyAt(18, 0)
		from := time.Date(2026, 3, 2, 9, 30, 0, 0, paris)
		assert.Equal(t, time.Date(2026, 3, 2, 18, 0, 0, 0, paris), s.Next(from))
	})

	t.Run("weekly keeps wall clock across DST", func(t *testing.T) {
		t.Parallel()

		s := queue.WeeklyOn(time.Monday, 9, 0)

		// Friday March 27th 2026, two days before clocks spring forward.
		from := time.Date(2026, 3, 27, 12, 0, 0, 0, paris)
		first := s.Next(from)
		second := s.Next(first)
		third := s.Next(second)

		for _, at := range []time.Time{first, second, third} {
			assert.Equal(t, time.Monday, at.Weekday())
			assert.Equal(t, 9, at.Hour())
		}
		assert.Equal(t, time.Date(2026, 3, 30, 9, 0, 0, 0, paris), first)
		assert.Equal(t, time.Date(2026, 4, 6, 9, 0, 0, 0, paris), second)
		assert.Equal(t, time.Date(2026, 4, 13, 9, 0, 0, 0, paris), third)
	})

	t.Run("weekly at exact firing time moves a full week", func(t *testing.T) {
		t.Parallel()

		s := queue.WeeklyOn(time.Monday, 9, 0)
		from := time.Date(2026, 3, 30, 9, 0, 0, 0, paris)
		assert.Equal(t, time.Date(2026, 4, 6, 9, 0, 0, 0, paris), s.Next(from))
	})

	t.Run("monthly clamps to short months", func(t *testing.T) {
		t.Parallel()

		s := queue.MonthlyOn(31, 10, 0)
		from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("interval adds the duration", func(t *testing.T) {
		t.Parallel()

		s := queue.EveryHours(6)
		from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, from.Add(6*time.Hour), s.Next(from))
	})

	t.Run("patterns are valid cron expressions", func(t *testing.T) {
		t.Parallel()

		for _, s := range []queue.Schedule{
			queue.DailyAt(18, 0),
			queue.WeeklyOn(time.Monday, 9, 0),
			queue.MonthlyOn(1, 8, 30),
			queue.EveryMinutes(15),
		} {
			_, err := queue.Cron(s.Pattern())
			assert.NoError(t, err, "pattern %q", s.Pattern())
		}
	})
}

func TestCron(t *testing.T) {
	t.Parallel()

	t.Run("standard expression", func(t *testing.T) {
		t.Parallel()

		s, err := queue.Cron("0 9 * * 1")
		require.NoError(t, err)

		from := time.Date(2026, 3, 27, 12, 0, 0, 0, time.UTC)
		next := s.Next(from)
		assert.Equal(t, time.Monday, next.Weekday())
		assert.Equal(t, 9, next.Hour())
	})

	t.Run("invalid expression", func(t *testing.T) {
		t.Parallel()

		_, err := queue.Cron("not a cron line")
		assert.ErrorIs(t, err, queue.ErrInvalidPattern)
	})
}
