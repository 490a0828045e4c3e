package reminders

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeOfDay parses "H:MM" or "HH:MM" into hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour out of range in %q", ErrInvalidTimeFormat, s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute out of range in %q", ErrInvalidTimeFormat, s)
	}
	return hour, minute, nil
}

// digits reports whether s holds only ASCII digits. strconv.Atoi alone would
// also accept a sign.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ComputeNextOccurrence returns the first instant strictly after now that
// falls on the given time of day, in now's location.
func ComputeNextOccurrence(timeOfDay string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := now.Date()
	next := time.Date(y, mo, d, hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, mo, d+1, hour, minute, 0, 0, now.Location())
	}
	return next, nil
}

// Advance moves prev forward by one period of the repeat rule, keeping the
// wall-clock time. Monthly advancement clamps to the last day of the target
// month, so Jan 31 becomes Feb 28 (or 29).
func Advance(prev time.Time, repeat Repeat) time.Time {
	switch repeat {
	case RepeatDaily:
		return prev.AddDate(0, 0, 1)
	case RepeatWeekly:
		return prev.AddDate(0, 0, 7)
	case RepeatMonthly:
		y, mo, d := prev.Date()
		h, mi, s := prev.Clock()
		if last := daysIn(y, mo+1); d > last {
			d = last
		}
		return time.Date(y, mo+1, d, h, mi, s, prev.Nanosecond(), prev.Location())
	default:
		return prev
	}
}

// EndOfDay returns 23:59:59.999 on now's date in now's location.
func EndOfDay(now time.Time) time.Time {
	y, mo, d := now.Date()
	return time.Date(y, mo, d, 23, 59, 59, int(999*time.Millisecond), now.Location())
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the following month is the last day of month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
