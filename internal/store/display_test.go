package store

import (
	"testing"
	"time"

	"hqms/queue-service/internal/models"
)

func TestBuildDisplaySnapshot(t *testing.T) {
	now := minuteOf("10:00")
	calledAt := minuteOf("09:55")
	startedAt := minuteOf("09:58")
	drA := "doctor-a"

	tickets := []models.Ticket{
		{TicketID: "serving", TicketNumber: "GC-010", Status: models.StatusInProgress, Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:00"), Seq: 10, DoctorID: &drA, StartedAt: &startedAt},
		{TicketID: "called", TicketNumber: "GC-011", Status: models.StatusCalled, Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:05"), Seq: 11, CalledAt: &calledAt},
		{TicketID: "next", TicketNumber: "GC-012", Status: models.StatusWaiting, Priority: models.PriorityNormal, Source: models.SourceBooked, EnqueuedAt: minuteOf("09:10"), Seq: 12},
		{TicketID: "later", TicketNumber: "GC-013", Status: models.StatusWaiting, Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:20"), Seq: 13},
	}

	snapshot := BuildDisplaySnapshot("dept-1", "", tickets, 10, now)

	if snapshot.NextUp == nil || snapshot.NextUp.TicketNumber != "GC-012" {
		t.Fatalf("unexpected next up: %+v", snapshot.NextUp)
	}
	if snapshot.NextUp.EstimatedWaitMinutes != 0 {
		t.Fatalf("next up wait should be 0, got %d", snapshot.NextUp.EstimatedWaitMinutes)
	}
	if len(snapshot.Upcoming) != 1 || snapshot.Upcoming[0].TicketNumber != "GC-013" {
		t.Fatalf("unexpected upcoming: %+v", snapshot.Upcoming)
	}
	if snapshot.Upcoming[0].EstimatedWaitMinutes != 10 {
		t.Fatalf("upcoming wait should be position*avg=10, got %d", snapshot.Upcoming[0].EstimatedWaitMinutes)
	}
	// waiting + called, not in-progress
	if snapshot.WaitingCount != 3 {
		t.Fatalf("waiting count=%d, want 3", snapshot.WaitingCount)
	}
	if len(snapshot.NowServing) != 2 {
		t.Fatalf("expected one now-serving entry per doctor scope, got %d", len(snapshot.NowServing))
	}
	if snapshot.NowServing[0].TicketNumber != "GC-010" {
		t.Fatalf("most recent transition should lead now-serving, got %s", snapshot.NowServing[0].TicketNumber)
	}
	if !snapshot.UpdatedAt.Equal(now) {
		t.Fatalf("snapshot should carry the read time")
	}
}

func TestBuildDisplaySnapshotDoctorScope(t *testing.T) {
	drA := "doctor-a"
	drB := "doctor-b"
	tickets := []models.Ticket{
		{TicketID: "a", TicketNumber: "GC-001", Status: models.StatusWaiting, Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:00"), Seq: 1, DoctorID: &drA},
		{TicketID: "b", TicketNumber: "GC-002", Status: models.StatusWaiting, Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:01"), Seq: 2, DoctorID: &drB},
		{TicketID: "c", TicketNumber: "GC-003", Status: models.StatusWaiting, Priority: models.PriorityNormal, Source: models.SourceWalkIn, EnqueuedAt: minuteOf("09:02"), Seq: 3},
	}

	snapshot := BuildDisplaySnapshot("dept-1", drB, tickets, 0, minuteOf("10:00"))
	if snapshot.WaitingCount != 2 {
		t.Fatalf("doctor B scope should hold own + unassigned, got %d", snapshot.WaitingCount)
	}
	if snapshot.NextUp == nil || snapshot.NextUp.TicketNumber != "GC-002" {
		t.Fatalf("unexpected next up in doctor scope: %+v", snapshot.NextUp)
	}
	if len(snapshot.Upcoming) != 1 || snapshot.Upcoming[0].EstimatedWaitMinutes != DefaultConsultMinutes {
		t.Fatalf("fallback consult average should apply, got %+v", snapshot.Upcoming)
	}
}

func TestBuildDisplaySnapshotEmpty(t *testing.T) {
	snapshot := BuildDisplaySnapshot("dept-1", "", nil, 15, time.Now().UTC())
	if snapshot.NextUp != nil || snapshot.WaitingCount != 0 || len(snapshot.NowServing) != 0 {
		t.Fatalf("empty queue should produce an empty snapshot: %+v", snapshot)
	}
}
