package utils

import (
	"fmt"
	"math"
	"time"
)

// ParseClock parses a zero-padded time of day ("HH:MM" or "HH:MM:SS") into
// an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		sec = 0
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

// HoursBetween returns the shift length in hours between two times of day.
// An end before the start is treated as an overnight shift (+24h). Unparsable
// inputs yield 0.
func HoursBetween(start, end string) float64 {
	s, err := ParseClock(start)
	if err != nil {
		return 0
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0
	}
	if e < s {
		e += 24 * time.Hour
	}
	return (e - s).Hours()
}

// RoundToBlock rounds t to the nearest block boundary (e.g. 30 minutes).
func RoundToBlock(t time.Time, block time.Duration) time.Time {
	return t.Round(block)
}

// ClockString formats a time's time-of-day component as "HH:MM:SS".
func ClockString(t time.Time) string {
	return t.Format("15:04:05")
}

// Overlaps reports whether two half-open [start, end) time-of-day windows
// intersect. Zero-padded clock strings compare correctly as text.
func Overlaps(start1, end1, start2, end2 string) bool {
	return start1 < end2 && start2 < end1
}

// Round2 rounds to 2 decimal places, Round1 to one.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
