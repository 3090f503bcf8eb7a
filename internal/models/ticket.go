package models

import "time"

type Ticket struct {
	TicketID      string     `json:"ticket_id"`
	TicketNumber  string     `json:"ticket_number"`
	DepartmentID  string     `json:"department_id"`
	Seq           int64      `json:"seq"`
	PatientName   string     `json:"patient_name"`
	Priority      string     `json:"priority"`
	Source        string     `json:"source"`
	DoctorID      *string    `json:"doctor_id,omitempty"`
	Status        string     `json:"status"`
	EnqueuedAt    time.Time  `json:"enqueued_at"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	BookingID     *string    `json:"booking_id,omitempty"`
	CalledAt      *time.Time `json:"called_at,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	RequestID     string     `json:"request_id,omitempty"`
}

const (
	StatusWaiting    = "waiting"
	StatusCalled     = "called"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

const (
	SourceBooked = "booked"
	SourceWalkIn = "walk_in"
)
