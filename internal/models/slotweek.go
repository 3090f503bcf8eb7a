package models

// SlotWeek configures booking slots for one department week. Weeks that
// were never configured are served with defaults and Stored=false.
type SlotWeek struct {
	DepartmentID string `json:"department_id"`
	WeekStart    string `json:"week_start"`
	WeekEnd      string `json:"week_end"`
	SlotMinutes  int    `json:"slot_minutes"`
	IsOpen       bool   `json:"is_open"`
	Stored       bool   `json:"stored"`
}
