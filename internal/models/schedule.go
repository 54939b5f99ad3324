package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clock12Regex = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
	clock24Regex = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseScheduledTime reads "H:MM AM/PM" or "HH:MM" and returns the 24-hour clock.
func ParseScheduledTime(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if m := clock12Regex.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, false
		}
		pm := strings.EqualFold(m[3], "PM")
		switch {
		case pm && hour != 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
		return hour, minute, true
	}
	if m := clock24Regex.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, false
		}
		return hour, minute, true
	}
	return 0, 0, false
}

// ScheduledAt combines the calendar date of date with clock in loc.
// ok is false when clock cannot be parsed; such jobs never expire.
func ScheduledAt(date time.Time, clock string, loc *time.Location) (time.Time, bool) {
	hour, minute, ok := ParseScheduledTime(clock)
	if !ok {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	d := date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), true
}

// IsPastDue reports whether the job's reconstructed start is strictly before now.
func IsPastDue(date time.Time, clock string, now time.Time, loc *time.Location) bool {
	at, ok := ScheduledAt(date, clock, loc)
	return ok && at.Before(now)
}

// ParseScheduledDate accepts YYYY-MM-DD or RFC3339 and returns UTC midnight of
// the calendar date as written.
func ParseScheduledDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, NewValidationError("scheduled date must be a valid date (YYYY-MM-DD)")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// IsBeforeToday compares at date granularity using today's date in loc.
func IsBeforeToday(date, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	d := date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Before(today)
}
