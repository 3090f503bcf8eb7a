package models

import "time"

type BookingRequest struct {
	BookingID         string    `json:"booking_id"`
	ReferenceNo       string    `json:"reference_no"`
	DepartmentID      string    `json:"department_id"`
	RequestedDate     string    `json:"requested_date"`
	RequestedTime     string    `json:"requested_time"`
	PatientID         string    `json:"patient_id"`
	PatientName       string    `json:"patient_name"`
	PreferredDoctorID string    `json:"preferred_doctor_id,omitempty"`
	Status            string    `json:"status"`
	RejectionReason   string    `json:"rejection_reason,omitempty"`
	TicketID          *string   `json:"ticket_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	RequestID         string    `json:"request_id,omitempty"`
}

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingRejected  = "rejected"
	BookingCancelled = "cancelled"
)
