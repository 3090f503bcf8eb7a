package store

import (
	"testing"
	"time"

	"hqms/queue-service/internal/models"
)

func minuteOf(clock string) time.Time {
	ts, _ := SlotTimestamp("2026-09-07", clock)
	return ts
}

func TestOrderingUrgentFirst(t *testing.T) {
	tickets := []models.Ticket{
		{TicketID: "a", Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("08:00"), Seq: 1, Status: models.StatusWaiting},
		{TicketID: "b", Priority: models.PriorityUrgent, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:30"), Seq: 2, Status: models.StatusWaiting},
	}
	SortQueue(tickets)
	if tickets[0].TicketID != "b" {
		t.Fatalf("urgent ticket should lead, got %s", tickets[0].TicketID)
	}
}

func TestOrderingEarlierEnqueuedFirst(t *testing.T) {
	// A confirmed 10:00 booking versus a 09:30 walk-in, both normal:
	// the walk-in's earlier enqueued time wins.
	tickets := []models.Ticket{
		{TicketID: "booked", Priority: models.PriorityNormal, Source: models.SourceBooked, EnqueuedAt: minuteOf("10:00"), Seq: 1, Status: models.StatusWaiting},
		{TicketID: "walkin", Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:30"), Seq: 2, Status: models.StatusWaiting},
	}
	SortQueue(tickets)
	if tickets[0].TicketID != "walkin" {
		t.Fatalf("expected walk-in first, got %s", tickets[0].TicketID)
	}
}

func TestOrderingBookedBeatsWalkInOnSameMinute(t *testing.T) {
	walkIn := models.Ticket{TicketID: "walkin", Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("10:00").Add(20 * time.Second), Seq: 1, Status: models.StatusWaiting}
	booked := models.Ticket{TicketID: "booked", Priority: models.PriorityNormal, Source: models.SourceBooked, EnqueuedAt: minuteOf("10:00"), Seq: 2, Status: models.StatusWaiting}

	tickets := []models.Ticket{walkIn, booked}
	SortQueue(tickets)
	if tickets[0].TicketID != "booked" {
		t.Fatalf("booked ticket should not be displaced on a same-minute tie")
	}
}

func TestOrderingSequenceBreaksTies(t *testing.T) {
	// Two urgent walk-ins in the same minute: creation order decides.
	tickets := []models.Ticket{
		{TicketID: "second", Priority: models.PriorityUrgent, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:00").Add(30 * time.Second), Seq: 8, Status: models.StatusWaiting},
		{TicketID: "first", Priority: models.PriorityUrgent, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:00"), Seq: 7, Status: models.StatusWaiting},
	}
	SortQueue(tickets)
	if tickets[0].TicketID != "first" {
		t.Fatalf("expected first-created ticket at head, got %s", tickets[0].TicketID)
	}
}

func TestOrderingDeterministic(t *testing.T) {
	base := []models.Ticket{
		{TicketID: "a", Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("08:10"), Seq: 3, Status: models.StatusWaiting},
		{TicketID: "b", Priority: models.PriorityUrgent, Source: models.SourceBooked, EnqueuedAt: minuteOf("08:30"), Seq: 1, Status: models.StatusWaiting},
		{TicketID: "c", Priority: models.PriorityNormal, Source: models.SourceBooked, EnqueuedAt: minuteOf("08:10"), Seq: 2, Status: models.StatusWaiting},
		{TicketID: "d", Priority: models.PriorityUrgent, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("08:30"), Seq: 4, Status: models.StatusWaiting},
	}

	first := append([]models.Ticket(nil), base...)
	SortQueue(first)
	for i := 0; i < 10; i++ {
		again := append([]models.Ticket(nil), base...)
		SortQueue(again)
		for j := range again {
			if again[j].TicketID != first[j].TicketID {
				t.Fatalf("ordering not deterministic at %d: %s vs %s", j, again[j].TicketID, first[j].TicketID)
			}
		}
	}

	// Strict total order: no two tickets compare equal.
	for i := range base {
		for j := range base {
			if i == j {
				continue
			}
			if !Less(base[i], base[j]) && !Less(base[j], base[i]) {
				t.Fatalf("tickets %s and %s compare equal", base[i].TicketID, base[j].TicketID)
			}
		}
	}
}

func TestScopeToDoctor(t *testing.T) {
	drA := "doctor-a"
	drB := "doctor-b"
	tickets := []models.Ticket{
		{TicketID: "assigned-a", DoctorID: &drA, Status: models.StatusWaiting},
		{TicketID: "assigned-b", DoctorID: &drB, Status: models.StatusWaiting},
		{TicketID: "unassigned", Status: models.StatusWaiting},
	}

	scoped := ScopeToDoctor(tickets, drA)
	if len(scoped) != 2 {
		t.Fatalf("expected doctor A to see own + unassigned, got %d", len(scoped))
	}
	for _, ticket := range scoped {
		if ticket.TicketID == "assigned-b" {
			t.Fatalf("doctor A should not see doctor B's ticket")
		}
	}

	if got := ScopeToDoctor(tickets, ""); len(got) != 3 {
		t.Fatalf("department view should include all tickets")
	}
}

func TestHeadSkipsCalled(t *testing.T) {
	tickets := []models.Ticket{
		{TicketID: "called", Priority: models.PriorityUrgent, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("08:00"), Seq: 1, Status: models.StatusCalled},
		{TicketID: "waiting", Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("08:05"), Seq: 2, Status: models.StatusWaiting},
	}
	SortQueue(tickets)
	head, ok := Head(tickets)
	if !ok || head.TicketID != "waiting" {
		t.Fatalf("head should be the first waiting ticket, got %+v ok=%v", head, ok)
	}

	if _, ok := Head(nil); ok {
		t.Fatalf("empty queue has no head")
	}
}
