package schedule

import (
	"testing"
	"time"
)

func TestWindowActive(t *testing.T) {
	w := Window{Start: "09:00", End: "17:00"}

	cases := []struct {
		clock string
		want  bool
	}{
		{"08:59", false},
		{"09:00", true},
		{"12:30", true},
		{"17:00", true},
		{"17:01", false},
		{"00:00", false},
		{"23:59", false},
	}
	for _, c := range cases {
		if got := w.Active(c.clock); got != c.want {
			t.Fatalf("Active(%q) = %v, want %v", c.clock, got, c.want)
		}
	}
}

func TestWindowActiveOvernight(t *testing.T) {
	w := Window{Start: "21:00", End: "06:00"}

	cases := []struct {
		clock string
		want  bool
	}{
		{"20:59", false},
		{"21:00", true},
		{"23:59", true},
		{"00:00", true},
		{"06:00", true},
		{"06:01", false},
		{"12:00", false},
	}
	for _, c := range cases {
		if got := w.Active(c.clock); got != c.want {
			t.Fatalf("Active(%q) = %v, want %v", c.clock, got, c.want)
		}
	}
}

func TestWindowEnded(t *testing.T) {
	w := Window{Start: "09:00", End: "17:00"}
	if w.Ended("16:59") {
		t.Fatalf("Ended before end_time")
	}
	if w.Ended("17:00") {
		t.Fatalf("Ended at end_time boundary")
	}
	if !w.Ended("17:01") {
		t.Fatalf("not Ended after end_time")
	}

	overnight := Window{Start: "21:00", End: "06:00"}
	if overnight.Ended("23:00") {
		t.Fatalf("overnight Ended inside window")
	}
	if !overnight.Ended("12:00") {
		t.Fatalf("overnight not Ended outside window")
	}
}

func TestValidClock(t *testing.T) {
	valid := []string{"00:00", "09:30", "17:00", "23:59"}
	for _, s := range valid {
		if !ValidClock(s) {
			t.Fatalf("ValidClock(%q) = false", s)
		}
	}
	invalid := []string{"", "9:00", "24:00", "12:60", "12-00", "ab:cd", "12:005"}
	for _, s := range invalid {
		if ValidClock(s) {
			t.Fatalf("ValidClock(%q) = true", s)
		}
	}
}

func TestClockAndDayFormatting(t *testing.T) {
	ts := time.Date(2025, 3, 7, 8, 5, 9, 0, time.UTC)
	if got := Clock(ts); got != "08:05" {
		t.Fatalf("Clock = %q", got)
	}
	if got := Day(ts); got != "2025-03-07" {
		t.Fatalf("Day = %q", got)
	}
}
