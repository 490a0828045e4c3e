package reminders

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in           string
		hour, minute int
		ok           bool
	}{
		{"10:00", 10, 0, true},
		{"00:00", 0, 0, true},
		{"23:59", 23, 59, true},
		{"7:05", 7, 5, true},
		{" 08:30 ", 8, 30, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"12:5", 0, 0, false},
		{"1200", 0, 0, false},
		{"ab:cd", 0, 0, false},
		{"-1:30", 0, 0, false},
		{"+1:05", 0, 0, false},
		{"-0:00", 0, 0, false},
		{"1:+5", 0, 0, false},
		{"+9:+5", 0, 0, false},
		{"1:-0", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseTimeOfDay(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidTimeFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestComputeNextOccurrence(t *testing.T) {
	day := func(d, h, m int) time.Time {
		return time.Date(2024, time.March, d, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		tod  string
		now  time.Time
		want time.Time
	}{
		{"later today", "10:00", day(4, 9, 0), day(4, 10, 0)},
		{"already passed", "10:00", day(4, 11, 0), day(5, 10, 0)},
		{"exactly now", "10:00", day(4, 10, 0), day(5, 10, 0)},
		{"seconds past", "10:00", day(4, 10, 0).Add(time.Second), day(5, 10, 0)},
		{"month rollover", "08:00", time.Date(2024, time.March, 31, 9, 0, 0, 0, time.UTC), time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeNextOccurrence(tt.tod, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			assert.True(t, got.After(tt.now))
			assert.Zero(t, got.Second())
			assert.Zero(t, got.Nanosecond())
		})
	}
}

func TestComputeNextOccurrenceKeepsLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	now := time.Date(2024, time.March, 4, 22, 0, 0, 0, rome)
	got, err := ComputeNextOccurrence("07:30", now)
	require.NoError(t, err)
	assert.Equal(t, rome, got.Location())
	assert.Equal(t, time.Date(2024, time.March, 5, 7, 30, 0, 0, rome), got)
}

func TestComputeNextOccurrenceRejectsMalformed(t *testing.T) {
	_, err := ComputeNextOccurrence("25:00", time.Now())
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func TestAdvance(t *testing.T) {
	at := func(y int, mo time.Month, d int) time.Time {
		return time.Date(y, mo, d, 9, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name   string
		prev   time.Time
		repeat Repeat
		want   time.Time
	}{
		{"daily", at(2024, time.March, 4), RepeatDaily, at(2024, time.March, 5)},
		{"weekly", at(2024, time.March, 4), RepeatWeekly, at(2024, time.March, 11)},
		{"monthly", at(2024, time.March, 4), RepeatMonthly, at(2024, time.April, 4)},
		{"monthly clamps leap", at(2024, time.January, 31), RepeatMonthly, at(2024, time.February, 29)},
		{"monthly clamps", at(2023, time.January, 31), RepeatMonthly, at(2023, time.February, 28)},
		{"monthly clamps 30", at(2024, time.March, 31), RepeatMonthly, at(2024, time.April, 30)},
		{"monthly over year", at(2024, time.December, 15), RepeatMonthly, at(2025, time.January, 15)},
		{"none", at(2024, time.March, 4), RepeatNone, at(2024, time.March, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.prev, tt.repeat))
		})
	}
}

func TestAdvanceKeepsWallClockAcrossDST(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	// Clocks move forward on 31 March 2024.
	prev := time.Date(2024, time.March, 30, 9, 0, 0, 0, rome)
	got := Advance(prev, RepeatDaily)
	assert.Equal(t, time.Date(2024, time.March, 31, 9, 0, 0, 0, rome), got)
	assert.Equal(t, 23*time.Hour, got.Sub(prev))
}

func TestEndOfDay(t *testing.T) {
	now := time.Date(2024, time.March, 4, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.March, 4, 23, 59, 59, 999000000, time.UTC), EndOfDay(now))
}
