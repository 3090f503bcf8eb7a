package store

import (
	"encoding/json"
	"time"

	"hqms/queue-service/internal/models"
)

const (
	EventTicketCreated   = "ticket.created"
	EventTicketCalled    = "ticket.called"
	EventTicketStarted   = "ticket.started"
	EventTicketCompleted = "ticket.completed"
	EventTicketCancelled = "ticket.cancelled"
	EventDoctorAssigned  = "ticket.doctor_assigned"
	EventBookingCreated  = "booking.created"
	EventBookingDecided  = "booking.decided"
)

type TicketEvent struct {
	EventID   string          `json:"event_id"`
	TicketID  string          `json:"ticket_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type OutboxEvent struct {
	EventID      string          `json:"event_id"`
	DepartmentID string          `json:"department_id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TicketEventPayload builds the JSON body recorded for a ticket event.
// Override marks call-ins that bypassed queue order.
func TicketEventPayload(ticket models.Ticket, actorID string, override bool) json.RawMessage {
	payload := map[string]interface{}{
		"ticket_id":     ticket.TicketID,
		"ticket_number": ticket.TicketNumber,
		"department_id": ticket.DepartmentID,
		"status":        ticket.Status,
		"priority":      ticket.Priority,
		"source":        ticket.Source,
	}
	if ticket.DoctorID != nil {
		payload["doctor_id"] = *ticket.DoctorID
	}
	if actorID != "" {
		payload["actor_id"] = actorID
	}
	if override {
		payload["override"] = true
	}
	raw, _ := json.Marshal(payload)
	return raw
}
