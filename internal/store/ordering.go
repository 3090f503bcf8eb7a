package store

import (
	"sort"
	"time"

	"hqms/queue-service/internal/models"
)

// Less is the authoritative queue order: urgent before normal, then
// enqueued time ascending compared at minute precision, then booked before
// walk-in, then the department-scoped sequence number. The final key makes
// the order a strict total order with no ties.
func Less(a, b models.Ticket) bool {
	if a.Priority != b.Priority {
		return a.Priority == models.PriorityUrgent
	}
	am := a.EnqueuedAt.Truncate(time.Minute)
	bm := b.EnqueuedAt.Truncate(time.Minute)
	if !am.Equal(bm) {
		return am.Before(bm)
	}
	if a.Source != b.Source {
		return a.Source == models.SourceBooked
	}
	return a.Seq < b.Seq
}

// SortQueue orders tickets in place by Less.
func SortQueue(tickets []models.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return Less(tickets[i], tickets[j])
	})
}

// ScopeToDoctor filters tickets to the given doctor's queue. Tickets with
// no assigned doctor remain visible to every doctor of the department
// until claimed. An empty doctorID returns the department-wide view.
func ScopeToDoctor(tickets []models.Ticket, doctorID string) []models.Ticket {
	if doctorID == "" {
		return tickets
	}
	var scoped []models.Ticket
	for _, ticket := range tickets {
		if ticket.DoctorID == nil || *ticket.DoctorID == doctorID {
			scoped = append(scoped, ticket)
		}
	}
	return scoped
}

// Head returns the first waiting ticket of the already sorted list.
func Head(tickets []models.Ticket) (models.Ticket, bool) {
	for _, ticket := range tickets {
		if ticket.Status == models.StatusWaiting {
			return ticket, true
		}
	}
	return models.Ticket{}, false
}
