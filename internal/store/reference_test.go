package store

import "testing"

func TestReferenceNo(t *testing.T) {
	if got := ReferenceNo("2026-09-07", 3); got != "APT-20260907-003" {
		t.Fatalf("ReferenceNo=%q", got)
	}
	if got := ReferenceNo("2026-09-07", 1042); got != "APT-20260907-1042" {
		t.Fatalf("ReferenceNo wide seq=%q", got)
	}
}

func TestReferenceDate(t *testing.T) {
	if got := ReferenceDate("APT-20260907-003"); got != "2026-09-07" {
		t.Fatalf("ReferenceDate=%q", got)
	}
	for _, bad := range []string{"", "APT-2026-003", "XYZ-20260907-003", "APT-20261345-001"} {
		if got := ReferenceDate(bad); got != "" {
			t.Fatalf("ReferenceDate(%q)=%q, want empty", bad, got)
		}
	}
}
