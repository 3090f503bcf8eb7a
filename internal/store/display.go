package store

import (
	"sort"
	"time"

	"hqms/queue-service/internal/models"
)

const DefaultConsultMinutes = 15

type DisplayEntry struct {
	TicketNumber         string  `json:"ticket_number"`
	PatientName          string  `json:"patient_name"`
	Status               string  `json:"status"`
	Priority             string  `json:"priority"`
	DoctorID             *string `json:"doctor_id,omitempty"`
	Position             int     `json:"position"`
	EstimatedWaitMinutes int     `json:"estimated_wait_minutes"`
}

type DisplaySnapshot struct {
	DepartmentID string         `json:"department_id"`
	DoctorID     string         `json:"doctor_id,omitempty"`
	NowServing   []DisplayEntry `json:"now_serving"`
	NextUp       *DisplayEntry  `json:"next_up,omitempty"`
	Upcoming     []DisplayEntry `json:"upcoming"`
	WaitingCount int            `json:"waiting_count"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// BuildDisplaySnapshot projects the active tickets of a department into
// the public display view. It performs no ordering logic of its own
// beyond SortQueue, and holds no state: callers recompute it per request.
// Waiting positions are zero-based, so the next-up ticket shows the wait
// already accumulated ahead of it (none).
func BuildDisplaySnapshot(departmentID, doctorID string, tickets []models.Ticket, avgConsultMinutes int, now time.Time) DisplaySnapshot {
	if avgConsultMinutes <= 0 {
		avgConsultMinutes = DefaultConsultMinutes
	}

	scoped := ScopeToDoctor(tickets, doctorID)
	SortQueue(scoped)

	snapshot := DisplaySnapshot{
		DepartmentID: departmentID,
		DoctorID:     doctorID,
		UpdatedAt:    now,
	}

	var serving []models.Ticket
	position := 0
	for _, ticket := range scoped {
		switch ticket.Status {
		case models.StatusInProgress:
			serving = append(serving, ticket)
		case models.StatusCalled:
			serving = append(serving, ticket)
			snapshot.WaitingCount++
		case models.StatusWaiting:
			entry := displayEntry(ticket, position, avgConsultMinutes)
			if snapshot.NextUp == nil {
				snapshot.NextUp = &entry
			} else {
				snapshot.Upcoming = append(snapshot.Upcoming, entry)
			}
			snapshot.WaitingCount++
			position++
		}
	}

	snapshot.NowServing = nowServing(serving)
	return snapshot
}

// nowServing keeps, per doctor scope, the ticket with the most recent
// transition into called/in-progress; unassigned tickets form their own
// scope. Sorted most recent first.
func nowServing(serving []models.Ticket) []DisplayEntry {
	latest := make(map[string]models.Ticket)
	for _, ticket := range serving {
		key := ""
		if ticket.DoctorID != nil {
			key = *ticket.DoctorID
		}
		current, ok := latest[key]
		if !ok || transitionTime(ticket).After(transitionTime(current)) {
			latest[key] = ticket
		}
	}

	var picked []models.Ticket
	for _, ticket := range latest {
		picked = append(picked, ticket)
	}
	sort.Slice(picked, func(i, j int) bool {
		return transitionTime(picked[i]).After(transitionTime(picked[j]))
	})

	var entries []DisplayEntry
	for _, ticket := range picked {
		entries = append(entries, displayEntry(ticket, 0, 0))
	}
	return entries
}

func transitionTime(ticket models.Ticket) time.Time {
	if ticket.StartedAt != nil {
		return *ticket.StartedAt
	}
	if ticket.CalledAt != nil {
		return *ticket.CalledAt
	}
	return ticket.EnqueuedAt
}

func displayEntry(ticket models.Ticket, position, avgConsultMinutes int) DisplayEntry {
	return DisplayEntry{
		TicketNumber:         ticket.TicketNumber,
		PatientName:          ticket.PatientName,
		Status:               ticket.Status,
		Priority:             ticket.Priority,
		DoctorID:             ticket.DoctorID,
		Position:             position,
		EstimatedWaitMinutes: position * avgConsultMinutes,
	}
}
