package store

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"call", "waiting", true},
		{"call", "called", false},
		{"call", "in_progress", false},
		{"start", "called", true},
		{"start", "waiting", false},
		{"complete", "in_progress", true},
		{"complete", "called", false},
		{"complete", "completed", false},
		{"cancel", "waiting", true},
		{"cancel", "called", false},
		{"cancel", "in_progress", false},
		{"assign_doctor", "waiting", true},
		{"assign_doctor", "called", true},
		{"assign_doctor", "in_progress", false},
		{"unknown", "waiting", false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestIdempotentRepeat(t *testing.T) {
	if !IdempotentRepeat("complete", "completed") {
		t.Fatalf("completing a completed ticket should be a no-op")
	}
	if IdempotentRepeat("call", "called") {
		t.Fatalf("re-calling a called ticket is not a no-op")
	}
	if IdempotentRepeat("complete", "in_progress") {
		t.Fatalf("complete from in_progress is a real transition")
	}
}
