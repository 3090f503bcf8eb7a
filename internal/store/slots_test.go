package store

import "testing"

func TestValidInterval(t *testing.T) {
	cases := []struct {
		minutes int
		valid   bool
	}{
		{5, true},
		{15, true},
		{30, true},
		{60, true},
		{0, false},
		{7, false},
		{65, false},
		{-5, false},
	}
	for _, tt := range cases {
		if got := ValidInterval(tt.minutes); got != tt.valid {
			t.Fatalf("ValidInterval(%d)=%v, want %v", tt.minutes, got, tt.valid)
		}
	}
}

func TestWeekStartOf(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2026-09-07", "2026-09-07"}, // Monday maps to itself
		{"2026-09-09", "2026-09-07"},
		{"2026-09-13", "2026-09-07"}, // Sunday belongs to the prior Monday
		{"2026-01-01", "2025-12-29"},
	}
	for _, tt := range cases {
		got, err := WeekStartOf(tt.date)
		if err != nil {
			t.Fatalf("WeekStartOf(%q): %v", tt.date, err)
		}
		if got != tt.want {
			t.Fatalf("WeekStartOf(%q)=%q, want %q", tt.date, got, tt.want)
		}
	}

	if _, err := WeekStartOf("not-a-date"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestWeekEndOf(t *testing.T) {
	if got := WeekEndOf("2026-09-07"); got != "2026-09-13" {
		t.Fatalf("WeekEndOf=%q, want 2026-09-13", got)
	}
}

func TestSlotAligned(t *testing.T) {
	cases := []struct {
		clock    string
		interval int
		aligned  bool
	}{
		{"09:00", 15, true},
		{"09:07", 15, false},
		{"09:30", 30, true},
		{"09:30", 60, false},
		{"00:00", 5, true},
		{"23:55", 5, true},
		{"bad", 15, false},
	}
	for _, tt := range cases {
		if got := SlotAligned(tt.clock, tt.interval); got != tt.aligned {
			t.Fatalf("SlotAligned(%q, %d)=%v, want %v", tt.clock, tt.interval, got, tt.aligned)
		}
	}
}

func TestSlotTimestamp(t *testing.T) {
	ts, err := SlotTimestamp("2026-09-07", "10:30")
	if err != nil {
		t.Fatalf("slot timestamp: %v", err)
	}
	if ts.Hour() != 10 || ts.Minute() != 30 {
		t.Fatalf("unexpected timestamp %v", ts)
	}
}
