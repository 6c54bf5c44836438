// Package deadline parses deadline cells and renders their countdowns.
package deadline

import (
	"fmt"
	"strings"
	"time"
)

// Countdown labels.
const (
	NoDeadline = "No deadline"
	Expired    = "Expired"
)

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse parses a deadline cell. Layouts without a zone are read as UTC.
// Empty and unrecognized values report false.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Valid reports whether s is empty or a parseable deadline.
func Valid(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, ok := Parse(s)
	return ok
}

// Countdown renders the time left until deadline, e.g. "3d 4h left".
func Countdown(deadline string, now time.Time) string {
	t, ok := Parse(deadline)
	if !ok {
		return NoDeadline
	}
	diff := t.Sub(now)
	if diff <= 0 {
		return Expired
	}
	days := int(diff / (24 * time.Hour))
	hours := int(diff % (24 * time.Hour) / time.Hour)
	minutes := int(diff % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, minutes)
	}
	return fmt.Sprintf("%dm left", minutes)
}

// FromNow returns the deadline days and hours after now, as RFC3339 UTC.
func FromNow(now time.Time, days, hours int) string {
	d := time.Duration(days)*24*time.Hour + time.Duration(hours)*time.Hour
	return now.Add(d).UTC().Format(time.RFC3339)
}
