package store

import (
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	MinSlotMinutes = 5
	MaxSlotMinutes = 60
)

// ValidInterval reports whether minutes is an allowed slot width:
// a multiple of 5 within [5,60].
func ValidInterval(minutes int) bool {
	return minutes >= MinSlotMinutes && minutes <= MaxSlotMinutes && minutes%5 == 0
}

// WeekStartOf returns the Monday of the week containing date (ISO date).
func WeekStartOf(date string) (string, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset).Format(DateLayout), nil
}

// WeekEndOf returns weekStart+6d. weekStart must be a valid ISO date.
func WeekEndOf(weekStart string) string {
	day, err := time.Parse(DateLayout, weekStart)
	if err != nil {
		return ""
	}
	return day.AddDate(0, 0, 6).Format(DateLayout)
}

// SlotAligned reports whether timeOfDay (HH:MM) is an exact multiple of
// intervalMinutes from midnight.
func SlotAligned(timeOfDay string, intervalMinutes int) bool {
	if intervalMinutes <= 0 {
		return false
	}
	clock, err := time.Parse(TimeLayout, timeOfDay)
	if err != nil {
		return false
	}
	minutes := clock.Hour()*60 + clock.Minute()
	return minutes%intervalMinutes == 0
}

// SlotTimestamp combines an ISO date and HH:MM clock into a UTC timestamp.
// Booked tickets are enqueued at this instant so queue order follows the
// scheduled slot, not the confirmation time.
func SlotTimestamp(date, timeOfDay string) (time.Time, error) {
	return time.Parse(DateLayout+" "+TimeLayout, date+" "+timeOfDay)
}
