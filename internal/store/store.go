package store

import (
	"context"
	"time"

	"hqms/queue-service/internal/models"
)

type SetSlotWeekInput struct {
	RequestID    string
	DepartmentID string
	WeekStart    string
	SlotMinutes  int
	IsOpen       bool
	ActorID      string
}

type SubmitBookingInput struct {
	RequestID         string
	DepartmentID      string
	RequestedDate     string
	RequestedTime     string
	PatientID         string
	PatientName       string
	PreferredDoctorID string
	CreatedAt         time.Time
}

type BookingActionInput struct {
	RequestID  string
	BookingID  string
	ActorID    string
	Reason     string
	OccurredAt time.Time
}

type CreateWalkInInput struct {
	RequestID    string
	DepartmentID string
	PatientName  string
	Priority     string
	DoctorID     string
	CreatedAt    time.Time
}

type CallNextInput struct {
	RequestID    string
	DepartmentID string
	DoctorID     string
	// TicketID targets a specific ticket; empty means the queue head.
	// Calling a non-head ticket fails unless Override is set.
	TicketID string
	Override bool
	ActorID  string
	CalledAt time.Time
}

type TicketActionInput struct {
	RequestID  string
	TicketID   string
	ActorID    string
	OccurredAt time.Time
}

type AssignDoctorInput struct {
	RequestID  string
	TicketID   string
	DoctorID   string
	ActorID    string
	OccurredAt time.Time
}

// ReferenceStatus is the patient-facing summary for a booking reference:
// ledger state plus, once materialized, live queue position.
type ReferenceStatus struct {
	ReferenceNo          string `json:"reference_no"`
	DepartmentID         string `json:"department_id"`
	BookingStatus        string `json:"booking_status"`
	RejectionReason      string `json:"rejection_reason,omitempty"`
	RequestedDate        string `json:"requested_date"`
	RequestedTime        string `json:"requested_time"`
	TicketNumber         string `json:"ticket_number,omitempty"`
	TicketStatus         string `json:"ticket_status,omitempty"`
	Position             int    `json:"position"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
}

type Session struct {
	SessionID string
	StaffID   string
	Role      string
	ExpiresAt time.Time
}

type Store interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)

	GetSlotWeek(ctx context.Context, departmentID, weekStart string) (models.SlotWeek, error)
	SetSlotWeek(ctx context.Context, input SetSlotWeekInput) (models.SlotWeek, error)
	ListSlotWeeks(ctx context.Context, departmentID, fromWeekStart string, count int) ([]models.SlotWeek, error)

	SubmitBooking(ctx context.Context, input SubmitBookingInput) (models.BookingRequest, error)
	ConfirmBooking(ctx context.Context, input BookingActionInput) (models.BookingRequest, error)
	RejectBooking(ctx context.Context, input BookingActionInput) (models.BookingRequest, error)
	CancelBooking(ctx context.Context, input BookingActionInput) (models.BookingRequest, error)

	CreateWalkIn(ctx context.Context, input CreateWalkInInput) (models.Ticket, bool, error)
	CallNext(ctx context.Context, input CallNextInput) (models.Ticket, bool, error)
	StartConsultation(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	CompleteConsultation(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	AssignDoctor(ctx context.Context, input AssignDoctorInput) (models.Ticket, error)
	GetTicket(ctx context.Context, departmentID, ticketID string) (models.Ticket, error)
	ListQueue(ctx context.Context, departmentID, doctorID string) ([]models.Ticket, error)
	MaterializeDueBookings(ctx context.Context, date string) (int, error)

	GetDisplaySnapshot(ctx context.Context, departmentID, doctorID string) (DisplaySnapshot, error)
	LookupByReference(ctx context.Context, referenceNo string) (ReferenceStatus, error)

	ListTicketEvents(ctx context.Context, ticketID string) ([]TicketEvent, error)
	ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]OutboxEvent, error)

	GetSession(ctx context.Context, sessionID string) (Session, error)
	GetAccess(ctx context.Context, staffID string) ([]string, error)
}
