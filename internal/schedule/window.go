// Package schedule decides whether the current time of day falls inside
// the configured study window.
package schedule

import (
	"regexp"
	"time"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Window is a time-of-day interval expressed as zero-padded HH:MM strings.
// Zero-padded clock strings compare correctly as plain strings, so the
// window math stays string-based. A window whose start is later than its
// end wraps across midnight (e.g. 21:00-06:00).
type Window struct {
	Start string
	End   string
}

// Active reports whether the given HH:MM clock falls inside the window,
// boundaries included.
func (w Window) Active(clock string) bool {
	if w.Start <= w.End {
		return w.Start <= clock && clock <= w.End
	}
	return clock >= w.Start || clock <= w.End
}

// Ended reports whether the given clock is past the window's end. For a
// wrapped window there is no "after end" ordering on the clock face, so
// any moment outside the window counts as ended.
func (w Window) Ended(clock string) bool {
	if w.Start <= w.End {
		return clock > w.End
	}
	return !w.Active(clock)
}

// ValidClock reports whether s is a zero-padded HH:MM clock string.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// Clock formats t as a zero-padded HH:MM string.
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// Day formats t as a YYYY-MM-DD date string.
func Day(t time.Time) string {
	return t.Format("2006-01-02")
}
