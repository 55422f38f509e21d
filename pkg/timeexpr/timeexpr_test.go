package timeexpr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/pipeline/pkg/timeexpr"
)

func TestParse_Recurring(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		expr    string
		pattern string
	}{
		{"every 2 hours", "@every 2h0m0s"},
		{"every 30 minutes", "@every 30m0s"},
		{"each 15 mins", "@every 15m0s"},
		{"every hour", "@every 1h0m0s"},
		{"every minute", "@every 1m0s"},
		{"daily", "0 9 * * *"},
		{"every day", "0 9 * * *"},
		{"every day at 18:30", "30 18 * * *"},
		{"daily at 8am", "0 8 * * *"},
		{"every monday", "0 9 * * 1"},
		{"every monday at 9", "0 9 * * 1"},
		{"every friday at 17:00", "0 17 * * 5"},
		{"each sunday at 8pm", "0 20 * * 0"},
		{"monday at 9", "0 9 * * 1"},
		{"wed at 10am", "0 10 * * 3"},
		{"EVERY   Monday  at 9", "0 9 * * 1"},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()

			res, err := timeexpr.Parse(tc.expr, now)
			require.NoError(t, err)
			assert.Equal(t, timeexpr.KindRecurring, res.Kind)
			assert.Equal(t, tc.pattern, res.Pattern)
			assert.Zero(t, res.Delay)
		})
	}
}

func TestParse_Delay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		expr  string
		delay time.Duration
	}{
		{"in 5 minutes", 5 * time.Minute},
		{"in 2 hours", 2 * time.Hour},
		{"in 3 days", 72 * time.Hour},
		{"in an hour", time.Hour},
		{"in a minute", time.Minute},
		{"tomorrow", 24 * time.Hour},
		{"tomorrow at 9", 19 * time.Hour},
		{"tomorrow at 9:30am", 19*time.Hour + 30*time.Minute},
		{"today at 18:00", 4 * time.Hour},
		// 10:00 is already gone at 14:00, so it rolls to tomorrow.
		{"today at 10:00", 20 * time.Hour},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()

			res, err := timeexpr.Parse(tc.expr, now)
			require.NoError(t, err)
			assert.Equal(t, timeexpr.KindDelay, res.Kind)
			assert.Equal(t, tc.delay, res.Delay)
			assert.Empty(t, res.Pattern)
		})
	}
}

func TestParse_Unscheduled(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	for _, expr := range []string{
		"",
		"   ",
		"whenever you like",
		"every 0 minutes",
		"in 0 days",
		"every blursday",
		"today at 25:00",
		"next century",
	} {
		t.Run("rejects "+expr, func(t *testing.T) {
			t.Parallel()

			_, err := timeexpr.Parse(expr, now)
			assert.ErrorIs(t, err, timeexpr.ErrUnscheduledExpression)
		})
	}
}
