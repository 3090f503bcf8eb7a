// Package memory implements the queue store against process-local state.
// Mutations serialize per department through a semaphore with a bounded
// wait; reads copy the latest committed state without blocking writers.
// It backs the engine-level tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hqms/queue-service/internal/models"
	"hqms/queue-service/internal/store"

	"github.com/google/uuid"
)

const defaultLockTimeout = 3 * time.Second

type Options struct {
	Departments           []models.Department
	Doctors               []models.Doctor
	Sessions              []store.Session
	Access                map[string][]string
	DefaultConsultMinutes int
	LockTimeout           time.Duration
	Now                   func() time.Time
}

type actionRecord struct {
	bookingID string
	ticketID  string
	empty     bool
}

type Store struct {
	mu             sync.RWMutex
	now            func() time.Time
	lockTimeout    time.Duration
	defaultConsult int

	departments  map[string]models.Department
	doctors      map[string]models.Doctor
	slotWeeks    map[string]models.SlotWeek
	bookings     map[string]*models.BookingRequest
	byReference  map[string]string
	tickets      map[string]*models.Ticket
	ticketSeqs   map[string]int64
	refSeqs      map[string]int
	actions      map[string]actionRecord
	ticketEvents map[string][]store.TicketEvent
	outbox       []store.OutboxEvent
	deptLocks    map[string]chan struct{}
	sessions     map[string]store.Session
	access       map[string][]string
}

func NewStore(options Options) *Store {
	now := options.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	timeout := options.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	consult := options.DefaultConsultMinutes
	if consult <= 0 {
		consult = store.DefaultConsultMinutes
	}

	s := &Store{
		now:            now,
		lockTimeout:    timeout,
		defaultConsult: consult,
		departments:    make(map[string]models.Department),
		doctors:        make(map[string]models.Doctor),
		slotWeeks:      make(map[string]models.SlotWeek),
		bookings:       make(map[string]*models.BookingRequest),
		byReference:    make(map[string]string),
		tickets:        make(map[string]*models.Ticket),
		ticketSeqs:     make(map[string]int64),
		refSeqs:        make(map[string]int),
		actions:        make(map[string]actionRecord),
		ticketEvents:   make(map[string][]store.TicketEvent),
		deptLocks:      make(map[string]chan struct{}),
		sessions:       make(map[string]store.Session),
		access:         make(map[string][]string),
	}
	for _, dept := range options.Departments {
		s.departments[dept.DepartmentID] = dept
		s.deptLocks[dept.DepartmentID] = make(chan struct{}, 1)
	}
	for _, doctor := range options.Doctors {
		s.doctors[doctor.DoctorID] = doctor
	}
	for _, session := range options.Sessions {
		s.sessions[session.SessionID] = session
	}
	for staffID, departments := range options.Access {
		s.access[staffID] = departments
	}
	return s
}

// acquire takes the department's serialization domain, waiting at most
// lockTimeout before surfacing ErrBusy.
func (s *Store) acquire(ctx context.Context, departmentID string) (func(), error) {
	s.mu.RLock()
	lock, ok := s.deptLocks[departmentID]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrDepartmentNotFound
	}

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, store.ErrBusy
	}
}

func (s *Store) today() string {
	return s.now().Format(store.DateLayout)
}

func (s *Store) currentWeekStart() string {
	weekStart, _ := store.WeekStartOf(s.today())
	return weekStart
}

func weekKey(departmentID, weekStart string) string {
	return departmentID + "|" + weekStart
}

func actionKey(action, requestID string) string {
	return action + "|" + requestID
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var departments []models.Department
	for _, dept := range s.departments {
		if dept.Active {
			departments = append(departments, dept)
		}
	}
	sort.Slice(departments, func(i, j int) bool {
		if departments[i].SortOrder != departments[j].SortOrder {
			return departments[i].SortOrder < departments[j].SortOrder
		}
		return departments[i].Name < departments[j].Name
	})
	return departments, nil
}

func (s *Store) GetSlotWeek(ctx context.Context, departmentID, weekStart string) (models.SlotWeek, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slotWeekLocked(departmentID, weekStart)
}

// slotWeekLocked returns the stored row or a default. Callers hold mu.
func (s *Store) slotWeekLocked(departmentID, weekStart string) (models.SlotWeek, error) {
	dept, ok := s.departments[departmentID]
	if !ok {
		return models.SlotWeek{}, store.ErrDepartmentNotFound
	}
	if week, ok := s.slotWeeks[weekKey(departmentID, weekStart)]; ok {
		return week, nil
	}
	return models.SlotWeek{
		DepartmentID: departmentID,
		WeekStart:    weekStart,
		WeekEnd:      store.WeekEndOf(weekStart),
		SlotMinutes:  dept.DefaultSlotMinutes,
		IsOpen:       weekStart == s.currentWeekStart(),
		Stored:       false,
	}, nil
}

func (s *Store) SetSlotWeek(ctx context.Context, input store.SetSlotWeekInput) (models.SlotWeek, error) {
	if !store.ValidInterval(input.SlotMinutes) {
		return models.SlotWeek{}, store.ErrInvalidInterval
	}

	release, err := s.acquire(ctx, input.DepartmentID)
	if err != nil {
		return models.SlotWeek{}, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.slotWeekLocked(input.DepartmentID, input.WeekStart)
	if err != nil {
		return models.SlotWeek{}, err
	}

	// The week containing today cannot invalidate slots patients already
	// booked: the interval freezes and the week cannot be closed. It may
	// still be (re)opened at the stored interval.
	if input.WeekStart == s.currentWeekStart() && s.hasWeekBookingsLocked(input.DepartmentID, input.WeekStart) {
		if input.SlotMinutes != current.SlotMinutes {
			return models.SlotWeek{}, store.ErrCurrentWeekLocked
		}
		if !input.IsOpen {
			return models.SlotWeek{}, store.ErrCannotCloseWithBookings
		}
	}

	week := models.SlotWeek{
		DepartmentID: input.DepartmentID,
		WeekStart:    input.WeekStart,
		WeekEnd:      store.WeekEndOf(input.WeekStart),
		SlotMinutes:  input.SlotMinutes,
		IsOpen:       input.IsOpen,
		Stored:       true,
	}
	s.slotWeeks[weekKey(input.DepartmentID, input.WeekStart)] = week
	return week, nil
}

func (s *Store) hasWeekBookingsLocked(departmentID, weekStart string) bool {
	weekEnd := store.WeekEndOf(weekStart)
	for _, booking := range s.bookings {
		if booking.DepartmentID != departmentID {
			continue
		}
		if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
			continue
		}
		if booking.RequestedDate >= weekStart && booking.RequestedDate <= weekEnd {
			return true
		}
	}
	return false
}

func (s *Store) ListSlotWeeks(ctx context.Context, departmentID, fromWeekStart string, count int) ([]models.SlotWeek, error) {
	if count <= 0 {
		count = 4
	}
	start, err := time.Parse(store.DateLayout, fromWeekStart)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var weeks []models.SlotWeek
	for i := 0; i < count; i++ {
		weekStart := start.AddDate(0, 0, 7*i).Format(store.DateLayout)
		week, err := s.slotWeekLocked(departmentID, weekStart)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, week)
	}
	return weeks, nil
}

func (s *Store) SubmitBooking(ctx context.Context, input store.SubmitBookingInput) (models.BookingRequest, error) {
	release, err := s.acquire(ctx, input.DepartmentID)
	if err != nil {
		return models.BookingRequest{}, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.actions[actionKey("submit_booking", input.RequestID)]; ok {
		return *s.bookings[record.bookingID], nil
	}

	weekStart, err := store.WeekStartOf(input.RequestedDate)
	if err != nil {
		return models.BookingRequest{}, err
	}
	week, err := s.slotWeekLocked(input.DepartmentID, weekStart)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if !week.IsOpen {
		return models.BookingRequest{}, store.ErrWeekClosed
	}
	if !store.SlotAligned(input.RequestedTime, week.SlotMinutes) {
		return models.BookingRequest{}, store.ErrSlotMisaligned
	}
	if input.RequestedDate < s.today() {
		return models.BookingRequest{}, store.ErrPastDate
	}
	if input.PreferredDoctorID != "" {
		if err := s.checkDoctorLocked(input.DepartmentID, input.PreferredDoctorID); err != nil {
			return models.BookingRequest{}, err
		}
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	seq := s.refSeqs[input.RequestedDate] + 1
	s.refSeqs[input.RequestedDate] = seq
	referenceNo := store.ReferenceNo(input.RequestedDate, seq)
	for s.byReference[referenceNo] != "" {
		seq++
		s.refSeqs[input.RequestedDate] = seq
		referenceNo = store.ReferenceNo(input.RequestedDate, seq)
	}

	booking := &models.BookingRequest{
		BookingID:         uuid.NewString(),
		ReferenceNo:       referenceNo,
		DepartmentID:      input.DepartmentID,
		RequestedDate:     input.RequestedDate,
		RequestedTime:     input.RequestedTime,
		PatientID:         input.PatientID,
		PatientName:       input.PatientName,
		PreferredDoctorID: input.PreferredDoctorID,
		Status:            models.BookingPending,
		CreatedAt:         createdAt,
		RequestID:         input.RequestID,
	}
	s.bookings[booking.BookingID] = booking
	s.byReference[referenceNo] = booking.BookingID
	s.actions[actionKey("submit_booking", input.RequestID)] = actionRecord{bookingID: booking.BookingID}
	s.appendOutboxLocked(input.DepartmentID, store.EventBookingCreated, bookingPayload(*booking))
	return *booking, nil
}

func (s *Store) checkDoctorLocked(departmentID, doctorID string) error {
	doctor, ok := s.doctors[doctorID]
	if !ok {
		return store.ErrDoctorNotFound
	}
	if doctor.DepartmentID != departmentID {
		return store.ErrDoctorDepartmentMatch
	}
	return nil
}

func (s *Store) ConfirmBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	return s.decideBooking(ctx, "confirm_booking", input, func(booking *models.BookingRequest) error {
		if booking.Status != models.BookingPending {
			return store.ErrNotPending
		}
		booking.Status = models.BookingConfirmed
		if booking.RequestedDate == s.today() {
			s.materializeLocked(booking)
		}
		return nil
	})
}

func (s *Store) RejectBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	return s.decideBooking(ctx, "reject_booking", input, func(booking *models.BookingRequest) error {
		if booking.Status != models.BookingPending {
			return store.ErrNotPending
		}
		booking.Status = models.BookingRejected
		booking.RejectionReason = input.Reason
		return nil
	})
}

func (s *Store) CancelBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	return s.decideBooking(ctx, "cancel_booking", input, func(booking *models.BookingRequest) error {
		if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
			return store.ErrNotCancellable
		}
		if booking.TicketID != nil {
			ticket := s.tickets[*booking.TicketID]
			if ticket != nil && ticket.Status != models.StatusCancelled {
				if ticket.Status != models.StatusWaiting {
					return store.ErrCannotCancelActive
				}
				ticket.Status = models.StatusCancelled
				s.appendTicketEventLocked(ticket, store.EventTicketCancelled, input.ActorID, false)
			}
		}
		booking.Status = models.BookingCancelled
		return nil
	})
}

func (s *Store) decideBooking(ctx context.Context, action string, input store.BookingActionInput, apply func(*models.BookingRequest) error) (models.BookingRequest, error) {
	s.mu.RLock()
	booking, ok := s.bookings[input.BookingID]
	var departmentID string
	if ok {
		departmentID = booking.DepartmentID
	}
	s.mu.RUnlock()
	if !ok {
		return models.BookingRequest{}, store.ErrBookingNotFound
	}

	release, err := s.acquire(ctx, departmentID)
	if err != nil {
		return models.BookingRequest{}, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.actions[actionKey(action, input.RequestID)]; ok {
		return *s.bookings[record.bookingID], nil
	}

	booking = s.bookings[input.BookingID]
	if err := apply(booking); err != nil {
		return models.BookingRequest{}, err
	}
	s.actions[actionKey(action, input.RequestID)] = actionRecord{bookingID: booking.BookingID}
	s.appendOutboxLocked(booking.DepartmentID, store.EventBookingDecided, bookingPayload(*booking))
	return *booking, nil
}

// materializeLocked turns a confirmed same-day booking into a waiting
// ticket enqueued at its scheduled slot time. Callers hold mu and the
// department lock.
func (s *Store) materializeLocked(booking *models.BookingRequest) {
	if booking.TicketID != nil {
		return
	}
	dept := s.departments[booking.DepartmentID]
	enqueuedAt, err := store.SlotTimestamp(booking.RequestedDate, booking.RequestedTime)
	if err != nil {
		enqueuedAt = s.now()
	}

	seq := s.ticketSeqs[booking.DepartmentID] + 1
	s.ticketSeqs[booking.DepartmentID] = seq

	ticket := &models.Ticket{
		TicketID:      uuid.NewString(),
		TicketNumber:  fmt.Sprintf("%s-%03d", dept.Code, seq),
		DepartmentID:  booking.DepartmentID,
		Seq:           seq,
		PatientName:   booking.PatientName,
		Priority:      models.PriorityNormal,
		Source:        models.SourceBooked,
		Status:        models.StatusWaiting,
		EnqueuedAt:    enqueuedAt,
		AppointmentAt: &enqueuedAt,
		BookingID:     &booking.BookingID,
		CreatedAt:     s.now(),
	}
	if booking.PreferredDoctorID != "" {
		doctorID := booking.PreferredDoctorID
		ticket.DoctorID = &doctorID
	}
	s.tickets[ticket.TicketID] = ticket
	booking.TicketID = &ticket.TicketID
	s.appendTicketEventLocked(ticket, store.EventTicketCreated, "", false)
}

func (s *Store) MaterializeDueBookings(ctx context.Context, date string) (int, error) {
	s.mu.RLock()
	var departmentIDs []string
	for id := range s.departments {
		departmentIDs = append(departmentIDs, id)
	}
	s.mu.RUnlock()
	sort.Strings(departmentIDs)

	materialized := 0
	for _, departmentID := range departmentIDs {
		release, err := s.acquire(ctx, departmentID)
		if err != nil {
			return materialized, err
		}
		s.mu.Lock()
		for _, booking := range s.bookings {
			if booking.DepartmentID != departmentID || booking.Status != models.BookingConfirmed {
				continue
			}
			if booking.RequestedDate != date || booking.TicketID != nil {
				continue
			}
			s.materializeLocked(booking)
			materialized++
		}
		s.mu.Unlock()
		release()
	}
	return materialized, nil
}

func (s *Store) CreateWalkIn(ctx context.Context, input store.CreateWalkInInput) (models.Ticket, bool, error) {
	release, err := s.acquire(ctx, input.DepartmentID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.actions[actionKey("create_walk_in", input.RequestID)]; ok {
		return *s.tickets[record.ticketID], false, nil
	}

	dept, ok := s.departments[input.DepartmentID]
	if !ok {
		return models.Ticket{}, false, store.ErrDepartmentNotFound
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if input.DoctorID != "" {
		if err := s.checkDoctorLocked(input.DepartmentID, input.DoctorID); err != nil {
			return models.Ticket{}, false, err
		}
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	seq := s.ticketSeqs[input.DepartmentID] + 1
	s.ticketSeqs[input.DepartmentID] = seq

	ticket := &models.Ticket{
		TicketID:     uuid.NewString(),
		TicketNumber: fmt.Sprintf("%s-%03d", dept.Code, seq),
		DepartmentID: input.DepartmentID,
		Seq:          seq,
		PatientName:  input.PatientName,
		Priority:     priority,
		Source:       models.SourceWalkIn,
		Status:       models.StatusWaiting,
		EnqueuedAt:   createdAt,
		CreatedAt:    createdAt,
		RequestID:    input.RequestID,
	}
	if input.DoctorID != "" {
		doctorID := input.DoctorID
		ticket.DoctorID = &doctorID
	}
	s.tickets[ticket.TicketID] = ticket
	s.actions[actionKey("create_walk_in", input.RequestID)] = actionRecord{ticketID: ticket.TicketID}
	s.appendTicketEventLocked(ticket, store.EventTicketCreated, "", false)
	return *ticket, true, nil
}

func (s *Store) activeTicketsLocked(departmentID string) []models.Ticket {
	var active []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.DepartmentID != departmentID {
			continue
		}
		switch ticket.Status {
		case models.StatusWaiting, models.StatusCalled, models.StatusInProgress:
			active = append(active, *ticket)
		}
	}
	return active
}

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, bool, error) {
	release, err := s.acquire(ctx, input.DepartmentID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.actions[actionKey("call_next", input.RequestID)]; ok {
		if record.empty {
			return models.Ticket{}, false, store.ErrNoTicket
		}
		return *s.tickets[record.ticketID], false, nil
	}

	active := store.ScopeToDoctor(s.activeTicketsLocked(input.DepartmentID), input.DoctorID)
	store.SortQueue(active)
	head, ok := store.Head(active)
	if !ok {
		s.actions[actionKey("call_next", input.RequestID)] = actionRecord{empty: true}
		return models.Ticket{}, false, store.ErrNoTicket
	}

	target := head
	if input.TicketID != "" && input.TicketID != head.TicketID {
		if !input.Override {
			return models.Ticket{}, false, store.ErrNotNextInLine
		}
		found := false
		for _, ticket := range active {
			if ticket.TicketID == input.TicketID && ticket.Status == models.StatusWaiting {
				target = ticket
				found = true
				break
			}
		}
		if !found {
			return models.Ticket{}, false, store.ErrInvalidState
		}
	}

	ticket := s.tickets[target.TicketID]
	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = s.now()
	}
	ticket.Status = models.StatusCalled
	ticket.CalledAt = &calledAt
	if input.DoctorID != "" && ticket.DoctorID == nil {
		doctorID := input.DoctorID
		ticket.DoctorID = &doctorID
	}
	s.actions[actionKey("call_next", input.RequestID)] = actionRecord{ticketID: ticket.TicketID}
	s.appendTicketEventLocked(ticket, store.EventTicketCalled, input.ActorID, input.Override && target.TicketID != head.TicketID)
	return *ticket, true, nil
}

func (s *Store) StartConsultation(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.applyTicketAction(ctx, "start", input, func(ticket *models.Ticket, occurredAt time.Time) {
		ticket.Status = models.StatusInProgress
		ticket.StartedAt = &occurredAt
	}, store.EventTicketStarted)
}

func (s *Store) CompleteConsultation(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.applyTicketAction(ctx, "complete", input, func(ticket *models.Ticket, occurredAt time.Time) {
		ticket.Status = models.StatusCompleted
		ticket.CompletedAt = &occurredAt
	}, store.EventTicketCompleted)
}

func (s *Store) applyTicketAction(ctx context.Context, action string, input store.TicketActionInput, apply func(*models.Ticket, time.Time), eventType string) (models.Ticket, error) {
	s.mu.RLock()
	ticket, ok := s.tickets[input.TicketID]
	var departmentID string
	if ok {
		departmentID = ticket.DepartmentID
	}
	s.mu.RUnlock()
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}

	release, err := s.acquire(ctx, departmentID)
	if err != nil {
		return models.Ticket{}, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.actions[actionKey(action, input.RequestID)]; ok {
		return *s.tickets[record.ticketID], nil
	}

	ticket = s.tickets[input.TicketID]
	if store.IdempotentRepeat(action, ticket.Status) {
		return *ticket, nil
	}
	if !store.ValidTransition(action, ticket.Status) {
		return models.Ticket{}, store.ErrInvalidState
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	apply(ticket, occurredAt)
	s.actions[actionKey(action, input.RequestID)] = actionRecord{ticketID: ticket.TicketID}
	s.appendTicketEventLocked(ticket, eventType, input.ActorID, false)
	return *ticket, nil
}

func (s *Store) AssignDoctor(ctx context.Context, input store.AssignDoctorInput) (models.Ticket, error) {
	s.mu.RLock()
	ticket, ok := s.tickets[input.TicketID]
	var departmentID string
	if ok {
		departmentID = ticket.DepartmentID
	}
	s.mu.RUnlock()
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}

	release, err := s.acquire(ctx, departmentID)
	if err != nil {
		return models.Ticket{}, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.actions[actionKey("assign_doctor", input.RequestID)]; ok {
		return *s.tickets[record.ticketID], nil
	}

	ticket = s.tickets[input.TicketID]
	if !store.ValidTransition("assign_doctor", ticket.Status) {
		// An active consultation must not silently move queues.
		if ticket.Status == models.StatusInProgress {
			return models.Ticket{}, store.ErrImmutableAfterStart
		}
		return models.Ticket{}, store.ErrInvalidState
	}
	if err := s.checkDoctorLocked(ticket.DepartmentID, input.DoctorID); err != nil {
		return models.Ticket{}, err
	}

	doctorID := input.DoctorID
	ticket.DoctorID = &doctorID
	s.actions[actionKey("assign_doctor", input.RequestID)] = actionRecord{ticketID: ticket.TicketID}
	s.appendTicketEventLocked(ticket, store.EventDoctorAssigned, input.ActorID, false)
	return *ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, departmentID, ticketID string) (models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.tickets[ticketID]
	if !ok || ticket.DepartmentID != departmentID {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return *ticket, nil
}

func (s *Store) ListQueue(ctx context.Context, departmentID, doctorID string) ([]models.Ticket, error) {
	s.mu.RLock()
	if _, ok := s.departments[departmentID]; !ok {
		s.mu.RUnlock()
		return nil, store.ErrDepartmentNotFound
	}
	active := s.activeTicketsLocked(departmentID)
	s.mu.RUnlock()

	scoped := store.ScopeToDoctor(active, doctorID)
	store.SortQueue(scoped)
	return scoped, nil
}

func (s *Store) GetDisplaySnapshot(ctx context.Context, departmentID, doctorID string) (store.DisplaySnapshot, error) {
	s.mu.RLock()
	if _, ok := s.departments[departmentID]; !ok {
		s.mu.RUnlock()
		return store.DisplaySnapshot{}, store.ErrDepartmentNotFound
	}
	active := s.activeTicketsLocked(departmentID)
	avg := s.averageConsultLocked(departmentID)
	s.mu.RUnlock()

	return store.BuildDisplaySnapshot(departmentID, doctorID, active, avg, s.now()), nil
}

// averageConsultLocked derives the mean consultation length from the 20
// most recent completed tickets, falling back to the configured default.
func (s *Store) averageConsultLocked(departmentID string) int {
	var completed []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.DepartmentID != departmentID || ticket.Status != models.StatusCompleted {
			continue
		}
		if ticket.StartedAt == nil || ticket.CompletedAt == nil {
			continue
		}
		completed = append(completed, *ticket)
	}
	if len(completed) == 0 {
		return s.defaultConsult
	}
	sort.Slice(completed, func(i, j int) bool {
		return completed[i].CompletedAt.After(*completed[j].CompletedAt)
	})
	if len(completed) > 20 {
		completed = completed[:20]
	}
	var total time.Duration
	for _, ticket := range completed {
		total += ticket.CompletedAt.Sub(*ticket.StartedAt)
	}
	minutes := int(total.Minutes()) / len(completed)
	if minutes <= 0 {
		return s.defaultConsult
	}
	return minutes
}

func (s *Store) LookupByReference(ctx context.Context, referenceNo string) (store.ReferenceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookingID, ok := s.byReference[strings.TrimSpace(referenceNo)]
	if !ok {
		return store.ReferenceStatus{}, store.ErrReferenceNotFound
	}
	booking := s.bookings[bookingID]

	status := store.ReferenceStatus{
		ReferenceNo:     booking.ReferenceNo,
		DepartmentID:    booking.DepartmentID,
		BookingStatus:   booking.Status,
		RejectionReason: booking.RejectionReason,
		RequestedDate:   booking.RequestedDate,
		RequestedTime:   booking.RequestedTime,
		Position:        -1,
	}
	if booking.TicketID == nil {
		return status, nil
	}

	ticket := s.tickets[*booking.TicketID]
	status.TicketNumber = ticket.TicketNumber
	status.TicketStatus = ticket.Status
	if ticket.Status != models.StatusWaiting {
		return status, nil
	}

	doctorID := ""
	if ticket.DoctorID != nil {
		doctorID = *ticket.DoctorID
	}
	scoped := store.ScopeToDoctor(s.activeTicketsLocked(booking.DepartmentID), doctorID)
	store.SortQueue(scoped)
	avg := s.averageConsultLocked(booking.DepartmentID)
	position := 0
	for _, queued := range scoped {
		if queued.Status != models.StatusWaiting {
			continue
		}
		if queued.TicketID == ticket.TicketID {
			status.Position = position
			status.EstimatedWaitMinutes = position * avg
			break
		}
		position++
	}
	return status, nil
}

func (s *Store) ListTicketEvents(ctx context.Context, ticketID string) ([]store.TicketEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tickets[ticketID]; !ok {
		return nil, store.ErrTicketNotFound
	}
	events := s.ticketEvents[ticketID]
	return append([]store.TicketEvent(nil), events...), nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []store.OutboxEvent
	for _, event := range s.outbox {
		if !after.IsZero() && !event.CreatedAt.After(after) {
			continue
		}
		events = append(events, event)
		if len(events) >= limit {
			break
		}
	}
	return events, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.ExpiresAt.Before(s.now()) {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) GetAccess(ctx context.Context, staffID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.access[staffID]...), nil
}

// appendTicketEventLocked records the ticket event and mirrors it onto
// the outbox for the live display feed. Callers hold mu.
func (s *Store) appendTicketEventLocked(ticket *models.Ticket, eventType, actorID string, override bool) {
	payload := store.TicketEventPayload(*ticket, actorID, override)
	event := store.TicketEvent{
		EventID:   uuid.NewString(),
		TicketID:  ticket.TicketID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	s.ticketEvents[ticket.TicketID] = append(s.ticketEvents[ticket.TicketID], event)
	s.outbox = append(s.outbox, store.OutboxEvent{
		EventID:      event.EventID,
		DepartmentID: ticket.DepartmentID,
		Type:         eventType,
		Payload:      payload,
		CreatedAt:    event.CreatedAt,
	})
}

func (s *Store) appendOutboxLocked(departmentID, eventType string, payload []byte) {
	s.outbox = append(s.outbox, store.OutboxEvent{
		EventID:      uuid.NewString(),
		DepartmentID: departmentID,
		Type:         eventType,
		Payload:      payload,
		CreatedAt:    s.now(),
	})
}

func bookingPayload(booking models.BookingRequest) []byte {
	payload := fmt.Sprintf(`{"booking_id":%q,"reference_no":%q,"department_id":%q,"status":%q}`,
		booking.BookingID, booking.ReferenceNo, booking.DepartmentID, booking.Status)
	return []byte(payload)
}
