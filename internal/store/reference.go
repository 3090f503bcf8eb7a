package store

import (
	"fmt"
	"strings"
	"time"
)

const referencePad = 3

// ReferenceNo formats the human-presentable booking reference for a date
// and a per-date sequence, e.g. APT-20260907-014. Sequences past 999
// simply widen the suffix.
func ReferenceNo(date string, seq int) string {
	compact := strings.ReplaceAll(date, "-", "")
	return fmt.Sprintf("APT-%s-%0*d", compact, referencePad, seq)
}

// ReferenceDate extracts the ISO date from a reference number, or "" when
// the reference is malformed.
func ReferenceDate(referenceNo string) string {
	parts := strings.Split(referenceNo, "-")
	if len(parts) != 3 || parts[0] != "APT" || len(parts[1]) != 8 {
		return ""
	}
	day, err := time.Parse("20060102", parts[1])
	if err != nil {
		return ""
	}
	return day.Format(DateLayout)
}
