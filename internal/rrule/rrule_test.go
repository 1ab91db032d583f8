package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plus7 = time.FixedZone("UTC+7", 7*60*60)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, plus7)
}

func TestNextNamedRules(t *testing.T) {
	base := date(2024, 3, 1)

	tests := []struct {
		rule string
		want time.Time
	}{
		{"daily", date(2024, 3, 2)},
		{"Weekly", date(2024, 3, 8)},
		{"biweekly", date(2024, 3, 15)},
		{"monthly", date(2024, 4, 1)},
		{"quarterly", date(2024, 6, 1)},
		{"YEARLY", date(2025, 3, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			got, ok := Next(tt.rule, base)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextEveryPattern(t *testing.T) {
	base := date(2024, 3, 1)

	got, ok := Next("every 2 weeks", base)
	require.True(t, ok)
	assert.True(t, date(2024, 3, 15).Equal(got))

	got, ok = Next("Every 3 Days", base)
	require.True(t, ok)
	assert.True(t, date(2024, 3, 4).Equal(got))

	got, ok = Next("every 1 month", base)
	require.True(t, ok)
	assert.True(t, date(2024, 4, 1).Equal(got))

	got, ok = Next("every 2 years", base)
	require.True(t, ok)
	assert.True(t, date(2026, 3, 1).Equal(got))
}

func TestNextMonthlyRollsOver(t *testing.T) {
	// January 31st plus one month normalizes past the end of February.
	got, ok := Next("monthly", date(2023, 1, 31))
	require.True(t, ok)
	assert.True(t, date(2023, 3, 3).Equal(got), "got %s", got)

	got, ok = Next("monthly", date(2024, 1, 31))
	require.True(t, ok)
	assert.True(t, date(2024, 3, 2).Equal(got), "got %s", got)
}

func TestNextUnrecognized(t *testing.T) {
	for _, rule := range []string{"", "fortnightly", "every other day", "every 0 days", "FREQ=NEVER"} {
		_, ok := Next(rule, date(2024, 3, 1))
		assert.False(t, ok, "rule %q", rule)
	}
}

func TestNextRRule(t *testing.T) {
	// 2024-03-01 is a Friday; the next Monday is 2024-03-04.
	got, ok := Next("FREQ=WEEKLY;BYDAY=MO", time.Date(2024, 3, 1, 9, 0, 0, 0, plus7))
	require.True(t, ok)
	assert.True(t, time.Date(2024, 3, 4, 9, 0, 0, 0, plus7).Equal(got), "got %s", got)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "once", Describe(""))
	assert.Equal(t, "every 2 weeks", Describe("Every 2 Weeks"))
	assert.Equal(t, "every week on MO, WE", Describe("RRULE:FREQ=WEEKLY;BYDAY=MO,WE"))
	assert.Equal(t, "every 3 days, 5 times", Describe("FREQ=DAILY;INTERVAL=3;COUNT=5"))
}
