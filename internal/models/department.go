package models

type Department struct {
	DepartmentID       string `json:"department_id"`
	Name               string `json:"name"`
	Code               string `json:"code"`
	DefaultSlotMinutes int    `json:"default_slot_minutes"`
	Active             bool   `json:"active"`
	SortOrder          int    `json:"sort_order"`
}

type Doctor struct {
	DoctorID     string `json:"doctor_id"`
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
}
