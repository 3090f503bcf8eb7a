// Package postgres implements the queue store on PostgreSQL. Every
// mutation runs in a transaction that first locks the department row,
// which serializes writers per department; waiting longer than the
// configured lock timeout surfaces store.ErrBusy.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hqms/queue-service/internal/models"
	"hqms/queue-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ticketNumberPad    = 3
	consultSampleSize  = 20
	materializeBatch   = 100
	defaultLockTimeout = 3 * time.Second
)

type Store struct {
	pool           *pgxpool.Pool
	defaultConsult int
	lockTimeout    time.Duration
}

type Options struct {
	DefaultConsultMinutes int
	DeptLockTimeout       time.Duration
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	consult := options.DefaultConsultMinutes
	if consult <= 0 {
		consult = store.DefaultConsultMinutes
	}
	timeout := options.DeptLockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &Store{pool: pool, defaultConsult: consult, lockTimeout: timeout}
}

// lockDepartment takes the department row lock that serializes writers.
// lock_timeout cannot be bound as a parameter, so the duration is
// formatted into the statement.
func lockDepartment(ctx context.Context, tx pgx.Tx, departmentID string, timeout time.Duration) (models.Department, error) {
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())); err != nil {
		return models.Department{}, err
	}

	var dept models.Department
	row := tx.QueryRow(ctx, `
		SELECT department_id, name, code, default_slot_minutes, active, sort_order
		FROM departments
		WHERE department_id = $1
		FOR UPDATE
	`, departmentID)
	if err := row.Scan(&dept.DepartmentID, &dept.Name, &dept.Code, &dept.DefaultSlotMinutes, &dept.Active, &dept.SortOrder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Department{}, store.ErrDepartmentNotFound
		}
		return models.Department{}, mapLockError(err)
	}
	return dept, nil
}

func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return store.ErrBusy
	}
	return err
}

func (s *Store) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT department_id, name, code, default_slot_minutes, active, sort_order
		FROM departments
		WHERE active = TRUE
		ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []models.Department
	for rows.Next() {
		var dept models.Department
		if err := rows.Scan(&dept.DepartmentID, &dept.Name, &dept.Code, &dept.DefaultSlotMinutes, &dept.Active, &dept.SortOrder); err != nil {
			return nil, err
		}
		departments = append(departments, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return departments, nil
}

func (s *Store) GetSlotWeek(ctx context.Context, departmentID, weekStart string) (models.SlotWeek, error) {
	return getSlotWeek(ctx, s.pool, departmentID, weekStart)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getSlotWeek(ctx context.Context, q queryer, departmentID, weekStart string) (models.SlotWeek, error) {
	var defaultMinutes int
	row := q.QueryRow(ctx, `
		SELECT default_slot_minutes
		FROM departments
		WHERE department_id = $1
	`, departmentID)
	if err := row.Scan(&defaultMinutes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SlotWeek{}, store.ErrDepartmentNotFound
		}
		return models.SlotWeek{}, err
	}

	week := models.SlotWeek{
		DepartmentID: departmentID,
		WeekStart:    weekStart,
		WeekEnd:      store.WeekEndOf(weekStart),
		SlotMinutes:  defaultMinutes,
	}
	row = q.QueryRow(ctx, `
		SELECT slot_minutes, is_open
		FROM slot_weeks
		WHERE department_id = $1 AND week_start = $2
	`, departmentID, weekStart)
	if err := row.Scan(&week.SlotMinutes, &week.IsOpen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			currentWeek, _ := store.WeekStartOf(time.Now().UTC().Format(store.DateLayout))
			week.IsOpen = weekStart == currentWeek
			return week, nil
		}
		return models.SlotWeek{}, err
	}
	week.Stored = true
	return week, nil
}

func (s *Store) SetSlotWeek(ctx context.Context, input store.SetSlotWeekInput) (models.SlotWeek, error) {
	if !store.ValidInterval(input.SlotMinutes) {
		return models.SlotWeek{}, store.ErrInvalidInterval
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.SlotWeek{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = lockDepartment(ctx, tx, input.DepartmentID, s.lockTimeout); err != nil {
		return models.SlotWeek{}, err
	}

	current, err := getSlotWeek(ctx, tx, input.DepartmentID, input.WeekStart)
	if err != nil {
		return models.SlotWeek{}, err
	}

	currentWeek, _ := store.WeekStartOf(time.Now().UTC().Format(store.DateLayout))
	if input.WeekStart == currentWeek {
		var booked bool
		row := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1
				FROM booking_requests
				WHERE department_id = $1
					AND status IN ('pending', 'confirmed')
					AND requested_date >= $2::date AND requested_date <= $3::date
			)
		`, input.DepartmentID, input.WeekStart, store.WeekEndOf(input.WeekStart))
		if err = row.Scan(&booked); err != nil {
			return models.SlotWeek{}, err
		}
		if booked {
			if input.SlotMinutes != current.SlotMinutes {
				return models.SlotWeek{}, store.ErrCurrentWeekLocked
			}
			if !input.IsOpen {
				return models.SlotWeek{}, store.ErrCannotCloseWithBookings
			}
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO slot_weeks (department_id, week_start, slot_minutes, is_open, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (department_id, week_start)
		DO UPDATE SET slot_minutes = EXCLUDED.slot_minutes, is_open = EXCLUDED.is_open, updated_at = EXCLUDED.updated_at
	`, input.DepartmentID, input.WeekStart, input.SlotMinutes, input.IsOpen, time.Now().UTC())
	if err != nil {
		return models.SlotWeek{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.SlotWeek{}, err
	}

	return models.SlotWeek{
		DepartmentID: input.DepartmentID,
		WeekStart:    input.WeekStart,
		WeekEnd:      store.WeekEndOf(input.WeekStart),
		SlotMinutes:  input.SlotMinutes,
		IsOpen:       input.IsOpen,
		Stored:       true,
	}, nil
}

func (s *Store) ListSlotWeeks(ctx context.Context, departmentID, fromWeekStart string, count int) ([]models.SlotWeek, error) {
	if count <= 0 {
		count = 4
	}
	start, err := time.Parse(store.DateLayout, fromWeekStart)
	if err != nil {
		return nil, err
	}

	var weeks []models.SlotWeek
	for i := 0; i < count; i++ {
		weekStart := start.AddDate(0, 0, 7*i).Format(store.DateLayout)
		week, err := getSlotWeek(ctx, s.pool, departmentID, weekStart)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, week)
	}
	return weeks, nil
}

func (s *Store) SubmitBooking(ctx context.Context, input store.SubmitBookingInput) (models.BookingRequest, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.BookingRequest{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existingID, found, _, err := findActionRequest(ctx, tx, "submit_booking", input.RequestID)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if found {
		booking, err := getBooking(ctx, tx, existingID)
		if err != nil {
			return models.BookingRequest{}, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.BookingRequest{}, err
		}
		return booking, nil
	}

	if _, err = lockDepartment(ctx, tx, input.DepartmentID, s.lockTimeout); err != nil {
		return models.BookingRequest{}, err
	}

	weekStart, err := store.WeekStartOf(input.RequestedDate)
	if err != nil {
		return models.BookingRequest{}, err
	}
	week, err := getSlotWeek(ctx, tx, input.DepartmentID, weekStart)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if !week.IsOpen {
		err = store.ErrWeekClosed
		return models.BookingRequest{}, err
	}
	if !store.SlotAligned(input.RequestedTime, week.SlotMinutes) {
		err = store.ErrSlotMisaligned
		return models.BookingRequest{}, err
	}
	if input.RequestedDate < time.Now().UTC().Format(store.DateLayout) {
		err = store.ErrPastDate
		return models.BookingRequest{}, err
	}
	if input.PreferredDoctorID != "" {
		if err = checkDoctor(ctx, tx, input.DepartmentID, input.PreferredDoctorID); err != nil {
			return models.BookingRequest{}, err
		}
	}

	seq, err := nextReferenceNumber(ctx, tx, input.RequestedDate)
	if err != nil {
		return models.BookingRequest{}, err
	}
	referenceNo := store.ReferenceNo(input.RequestedDate, int(seq))

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	booking := models.BookingRequest{
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
	_, err = tx.Exec(ctx, `
		INSERT INTO booking_requests (
			booking_id, request_id, reference_no, department_id, requested_date, requested_time,
			patient_id, patient_name, preferred_doctor_id, status, created_at
		) VALUES ($1,$2,$3,$4,$5::date,$6,$7,$8,$9,$10,$11)
	`, booking.BookingID, booking.RequestID, booking.ReferenceNo, booking.DepartmentID, booking.RequestedDate,
		booking.RequestedTime, nullIfEmpty(booking.PatientID), booking.PatientName,
		nullIfEmpty(booking.PreferredDoctorID), booking.Status, booking.CreatedAt)
	if err != nil {
		return models.BookingRequest{}, err
	}

	if err = insertActionRequest(ctx, tx, "submit_booking", input.RequestID, booking.BookingID); err != nil {
		return models.BookingRequest{}, err
	}
	if err = insertBookingOutbox(ctx, tx, store.EventBookingCreated, booking); err != nil {
		return models.BookingRequest{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.BookingRequest{}, err
	}
	return booking, nil
}

func checkDoctor(ctx context.Context, tx pgx.Tx, departmentID, doctorID string) error {
	var doctorDept string
	row := tx.QueryRow(ctx, `
		SELECT department_id
		FROM doctors
		WHERE doctor_id = $1 AND active = TRUE
	`, doctorID)
	if err := row.Scan(&doctorDept); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrDoctorNotFound
		}
		return err
	}
	if doctorDept != departmentID {
		return store.ErrDoctorDepartmentMatch
	}
	return nil
}

func nextReferenceNumber(ctx context.Context, tx pgx.Tx, date string) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO reference_sequences (ref_date, next_number)
		VALUES ($1::date, 1)
		ON CONFLICT (ref_date)
		DO UPDATE SET next_number = reference_sequences.next_number + 1
		RETURNING next_number
	`, date)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func nextTicketNumber(ctx context.Context, tx pgx.Tx, departmentID string) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO ticket_sequences (department_id, next_number)
		VALUES ($1, 1)
		ON CONFLICT (department_id)
		DO UPDATE SET next_number = ticket_sequences.next_number + 1
		RETURNING next_number
	`, departmentID)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) ConfirmBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	return s.decideBooking(ctx, "confirm_booking", input, func(ctx context.Context, tx pgx.Tx, booking *models.BookingRequest) error {
		if booking.Status != models.BookingPending {
			return store.ErrNotPending
		}
		booking.Status = models.BookingConfirmed
		if _, err := tx.Exec(ctx, `
			UPDATE booking_requests SET status = 'confirmed', decided_at = $2, decided_by = $3
			WHERE booking_id = $1
		`, booking.BookingID, time.Now().UTC(), nullIfEmpty(input.ActorID)); err != nil {
			return err
		}
		if booking.RequestedDate == time.Now().UTC().Format(store.DateLayout) {
			return s.materializeBooking(ctx, tx, booking)
		}
		return nil
	})
}

func (s *Store) RejectBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	return s.decideBooking(ctx, "reject_booking", input, func(ctx context.Context, tx pgx.Tx, booking *models.BookingRequest) error {
		if booking.Status != models.BookingPending {
			return store.ErrNotPending
		}
		booking.Status = models.BookingRejected
		booking.RejectionReason = input.Reason
		_, err := tx.Exec(ctx, `
			UPDATE booking_requests SET status = 'rejected', rejection_reason = $2, decided_at = $3, decided_by = $4
			WHERE booking_id = $1
		`, booking.BookingID, input.Reason, time.Now().UTC(), nullIfEmpty(input.ActorID))
		return err
	})
}

func (s *Store) CancelBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	return s.decideBooking(ctx, "cancel_booking", input, func(ctx context.Context, tx pgx.Tx, booking *models.BookingRequest) error {
		if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
			return store.ErrNotCancellable
		}
		if booking.TicketID != nil {
			ticket, err := getTicketTx(ctx, tx, *booking.TicketID)
			if err != nil {
				return err
			}
			if ticket.Status != models.StatusCancelled {
				if ticket.Status != models.StatusWaiting {
					return store.ErrCannotCancelActive
				}
				if _, err := tx.Exec(ctx, `
					UPDATE queue_tickets SET status = 'cancelled' WHERE ticket_id = $1
				`, ticket.TicketID); err != nil {
					return err
				}
				ticket.Status = models.StatusCancelled
				if err := insertTicketEvent(ctx, tx, ticket, store.EventTicketCancelled, input.ActorID, false); err != nil {
					return err
				}
			}
		}
		booking.Status = models.BookingCancelled
		_, err := tx.Exec(ctx, `
			UPDATE booking_requests SET status = 'cancelled', decided_at = $2, decided_by = $3
			WHERE booking_id = $1
		`, booking.BookingID, time.Now().UTC(), nullIfEmpty(input.ActorID))
		return err
	})
}

func (s *Store) decideBooking(ctx context.Context, action string, input store.BookingActionInput, apply func(context.Context, pgx.Tx, *models.BookingRequest) error) (models.BookingRequest, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.BookingRequest{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existingID, found, _, err := findActionRequest(ctx, tx, action, input.RequestID)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if found {
		booking, err := getBooking(ctx, tx, existingID)
		if err != nil {
			return models.BookingRequest{}, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.BookingRequest{}, err
		}
		return booking, nil
	}

	booking, err := getBooking(ctx, tx, input.BookingID)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if _, err = lockDepartment(ctx, tx, booking.DepartmentID, s.lockTimeout); err != nil {
		return models.BookingRequest{}, err
	}
	// Re-read after taking the department lock: another writer may have
	// decided the booking in between.
	booking, err = getBooking(ctx, tx, input.BookingID)
	if err != nil {
		return models.BookingRequest{}, err
	}

	if err = apply(ctx, tx, &booking); err != nil {
		return models.BookingRequest{}, err
	}
	if err = insertActionRequest(ctx, tx, action, input.RequestID, booking.BookingID); err != nil {
		return models.BookingRequest{}, err
	}
	if err = insertBookingOutbox(ctx, tx, store.EventBookingDecided, booking); err != nil {
		return models.BookingRequest{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.BookingRequest{}, err
	}
	return booking, nil
}

// materializeBooking creates the waiting ticket for a confirmed
// booking, enqueued at its scheduled slot time. Callers hold the
// department lock.
func (s *Store) materializeBooking(ctx context.Context, tx pgx.Tx, booking *models.BookingRequest) error {
	var code string
	row := tx.QueryRow(ctx, `SELECT code FROM departments WHERE department_id = $1`, booking.DepartmentID)
	if err := row.Scan(&code); err != nil {
		return err
	}

	enqueuedAt, err := store.SlotTimestamp(booking.RequestedDate, booking.RequestedTime)
	if err != nil {
		enqueuedAt = time.Now().UTC()
	}
	seq, err := nextTicketNumber(ctx, tx, booking.DepartmentID)
	if err != nil {
		return err
	}

	ticket := models.Ticket{
		TicketID:      uuid.NewString(),
		TicketNumber:  fmt.Sprintf("%s-%0*d", code, ticketNumberPad, seq),
		DepartmentID:  booking.DepartmentID,
		Seq:           seq,
		PatientName:   booking.PatientName,
		Priority:      models.PriorityNormal,
		Source:        models.SourceBooked,
		Status:        models.StatusWaiting,
		EnqueuedAt:    enqueuedAt,
		AppointmentAt: &enqueuedAt,
		BookingID:     &booking.BookingID,
		CreatedAt:     time.Now().UTC(),
	}
	if booking.PreferredDoctorID != "" {
		doctorID := booking.PreferredDoctorID
		ticket.DoctorID = &doctorID
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_tickets (
			ticket_id, ticket_number, department_id, seq, patient_name, priority, source,
			doctor_id, status, enqueued_at, appointment_at, booking_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, ticket.TicketID, ticket.TicketNumber, ticket.DepartmentID, ticket.Seq, ticket.PatientName,
		ticket.Priority, ticket.Source, ticket.DoctorID, ticket.Status, ticket.EnqueuedAt,
		ticket.AppointmentAt, ticket.BookingID, ticket.CreatedAt)
	if err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
		UPDATE booking_requests SET ticket_id = $2 WHERE booking_id = $1
	`, booking.BookingID, ticket.TicketID); err != nil {
		return err
	}
	booking.TicketID = &ticket.TicketID

	return insertTicketEvent(ctx, tx, ticket, store.EventTicketCreated, "", false)
}

func (s *Store) MaterializeDueBookings(ctx context.Context, date string) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT booking_id
		FROM booking_requests
		WHERE status = 'confirmed' AND requested_date = $1::date AND ticket_id IS NULL
		ORDER BY department_id ASC, requested_time ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $2
	`, date, materializeBatch)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, err
	}

	locked := map[string]bool{}
	materialized := 0
	for _, id := range ids {
		booking, err := getBooking(ctx, tx, id)
		if err != nil {
			return 0, err
		}
		if !locked[booking.DepartmentID] {
			if _, err = lockDepartment(ctx, tx, booking.DepartmentID, s.lockTimeout); err != nil {
				return 0, err
			}
			locked[booking.DepartmentID] = true
		}
		if err = s.materializeBooking(ctx, tx, &booking); err != nil {
			return 0, err
		}
		materialized++
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return materialized, nil
}

func (s *Store) CreateWalkIn(ctx context.Context, input store.CreateWalkInInput) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existingID, found, _, err := findActionRequest(ctx, tx, "create_walk_in", input.RequestID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if found {
		ticket, err := getTicketTx(ctx, tx, existingID)
		if err != nil {
			return models.Ticket{}, false, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, false, err
		}
		return ticket, false, nil
	}

	dept, err := lockDepartment(ctx, tx, input.DepartmentID, s.lockTimeout)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if input.DoctorID != "" {
		if err = checkDoctor(ctx, tx, input.DepartmentID, input.DoctorID); err != nil {
			return models.Ticket{}, false, err
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	seq, err := nextTicketNumber(ctx, tx, input.DepartmentID)
	if err != nil {
		return models.Ticket{}, false, err
	}

	ticket := models.Ticket{
		TicketID:     uuid.NewString(),
		TicketNumber: fmt.Sprintf("%s-%0*d", dept.Code, ticketNumberPad, seq),
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

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_tickets (
			ticket_id, request_id, ticket_number, department_id, seq, patient_name, priority,
			source, doctor_id, status, enqueued_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, ticket.TicketID, ticket.RequestID, ticket.TicketNumber, ticket.DepartmentID, ticket.Seq,
		ticket.PatientName, ticket.Priority, ticket.Source, ticket.DoctorID, ticket.Status,
		ticket.EnqueuedAt, ticket.CreatedAt)
	if err != nil {
		return models.Ticket{}, false, err
	}

	if err = insertActionRequest(ctx, tx, "create_walk_in", input.RequestID, ticket.TicketID); err != nil {
		return models.Ticket{}, false, err
	}
	if err = insertTicketEvent(ctx, tx, ticket, store.EventTicketCreated, "", false); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

// queueOrder mirrors the in-process comparison: urgent first, then the
// minute-truncated enqueue time, booked before walk-in on ties, then
// the department sequence.
const queueOrder = `
	ORDER BY (priority = 'urgent') DESC,
		date_trunc('minute', enqueued_at) ASC,
		(source = 'booked') DESC,
		seq ASC
`

const ticketColumns = `
	ticket_id, ticket_number, department_id, seq, patient_name, priority, source, doctor_id,
	status, enqueued_at, appointment_at, booking_id, called_at, started_at, completed_at, created_at
`

func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existingID, found, empty, err := findActionRequest(ctx, tx, "call_next", input.RequestID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if found {
		if empty {
			if err = tx.Commit(ctx); err != nil {
				return models.Ticket{}, false, err
			}
			return models.Ticket{}, false, store.ErrNoTicket
		}
		ticket, err := getTicketTx(ctx, tx, existingID)
		if err != nil {
			return models.Ticket{}, false, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, false, err
		}
		return ticket, false, nil
	}

	if _, err = lockDepartment(ctx, tx, input.DepartmentID, s.lockTimeout); err != nil {
		return models.Ticket{}, false, err
	}

	var head models.Ticket
	row := tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE department_id = $1 AND status = 'waiting'
			AND ($2 = '' OR doctor_id IS NULL OR doctor_id = $2)
		`+queueOrder+`
		LIMIT 1
	`, input.DepartmentID, input.DoctorID)
	if err = scanTicket(row, &head); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err = insertActionRequest(ctx, tx, "call_next", input.RequestID, ""); err != nil {
				return models.Ticket{}, false, err
			}
			if err = tx.Commit(ctx); err != nil {
				return models.Ticket{}, false, err
			}
			return models.Ticket{}, false, store.ErrNoTicket
		}
		return models.Ticket{}, false, err
	}

	target := head
	if input.TicketID != "" && input.TicketID != head.TicketID {
		if !input.Override {
			err = store.ErrNotNextInLine
			return models.Ticket{}, false, err
		}
		row = tx.QueryRow(ctx, `
			SELECT `+ticketColumns+`
			FROM queue_tickets
			WHERE ticket_id = $1 AND department_id = $2 AND status = 'waiting'
		`, input.TicketID, input.DepartmentID)
		if err = scanTicket(row, &target); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = store.ErrInvalidState
			}
			return models.Ticket{}, false, err
		}
	}

	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}
	row = tx.QueryRow(ctx, `
		UPDATE queue_tickets
		SET status = 'called',
			called_at = $2,
			doctor_id = COALESCE(doctor_id, NULLIF($3, ''))
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, target.TicketID, calledAt, input.DoctorID)
	var ticket models.Ticket
	if err = scanTicket(row, &ticket); err != nil {
		return models.Ticket{}, false, err
	}
	ticket.RequestID = input.RequestID

	if err = insertActionRequest(ctx, tx, "call_next", input.RequestID, ticket.TicketID); err != nil {
		return models.Ticket{}, false, err
	}
	if err = insertTicketEvent(ctx, tx, ticket, store.EventTicketCalled, input.ActorID, input.Override && target.TicketID != head.TicketID); err != nil {
		return models.Ticket{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (s *Store) StartConsultation(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.applyTicketAction(ctx, input, "start", models.StatusCalled, models.StatusInProgress, store.EventTicketStarted, "started_at")
}

func (s *Store) CompleteConsultation(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.applyTicketAction(ctx, input, "complete", models.StatusInProgress, models.StatusCompleted, store.EventTicketCompleted, "completed_at")
}

func (s *Store) applyTicketAction(ctx context.Context, input store.TicketActionInput, action, fromStatus, toStatus, eventType, timestampColumn string) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existingID, found, _, err := findActionRequest(ctx, tx, action, input.RequestID)
	if err != nil {
		return models.Ticket{}, err
	}
	if found {
		ticket, err := getTicketTx(ctx, tx, existingID)
		if err != nil {
			return models.Ticket{}, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, err
		}
		return ticket, nil
	}

	current, err := getTicketTx(ctx, tx, input.TicketID)
	if err != nil {
		return models.Ticket{}, err
	}
	if _, err = lockDepartment(ctx, tx, current.DepartmentID, s.lockTimeout); err != nil {
		return models.Ticket{}, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE queue_tickets
		SET status = $1, %s = $2
		WHERE ticket_id = $3 AND status = $4
		RETURNING `+ticketColumns,
		timestampColumn), toStatus, occurredAt, input.TicketID, fromStatus)
	var ticket models.Ticket
	if err = scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, err = getTicketTx(ctx, tx, input.TicketID)
			if err != nil {
				return models.Ticket{}, err
			}
			if store.IdempotentRepeat(action, current.Status) {
				if err = tx.Commit(ctx); err != nil {
					return models.Ticket{}, err
				}
				return current, nil
			}
			err = store.ErrInvalidState
			return models.Ticket{}, err
		}
		return models.Ticket{}, err
	}
	ticket.RequestID = input.RequestID

	if err = insertActionRequest(ctx, tx, action, input.RequestID, ticket.TicketID); err != nil {
		return models.Ticket{}, err
	}
	if err = insertTicketEvent(ctx, tx, ticket, eventType, input.ActorID, false); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) AssignDoctor(ctx context.Context, input store.AssignDoctorInput) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existingID, found, _, err := findActionRequest(ctx, tx, "assign_doctor", input.RequestID)
	if err != nil {
		return models.Ticket{}, err
	}
	if found {
		ticket, err := getTicketTx(ctx, tx, existingID)
		if err != nil {
			return models.Ticket{}, err
		}
		if err = tx.Commit(ctx); err != nil {
			return models.Ticket{}, err
		}
		return ticket, nil
	}

	current, err := getTicketTx(ctx, tx, input.TicketID)
	if err != nil {
		return models.Ticket{}, err
	}
	if _, err = lockDepartment(ctx, tx, current.DepartmentID, s.lockTimeout); err != nil {
		return models.Ticket{}, err
	}
	current, err = getTicketTx(ctx, tx, input.TicketID)
	if err != nil {
		return models.Ticket{}, err
	}

	if !store.ValidTransition("assign_doctor", current.Status) {
		if current.Status == models.StatusInProgress {
			err = store.ErrImmutableAfterStart
		} else {
			err = store.ErrInvalidState
		}
		return models.Ticket{}, err
	}
	if err = checkDoctor(ctx, tx, current.DepartmentID, input.DoctorID); err != nil {
		return models.Ticket{}, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE queue_tickets
		SET doctor_id = $2
		WHERE ticket_id = $1
		RETURNING `+ticketColumns+`
	`, input.TicketID, input.DoctorID)
	var ticket models.Ticket
	if err = scanTicket(row, &ticket); err != nil {
		return models.Ticket{}, err
	}
	ticket.RequestID = input.RequestID

	if err = insertActionRequest(ctx, tx, "assign_doctor", input.RequestID, ticket.TicketID); err != nil {
		return models.Ticket{}, err
	}
	if err = insertTicketEvent(ctx, tx, ticket, store.EventDoctorAssigned, input.ActorID, false); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, departmentID, ticketID string) (models.Ticket, error) {
	var ticket models.Ticket
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE ticket_id = $1 AND department_id = $2
	`, ticketID, departmentID)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListQueue(ctx context.Context, departmentID, doctorID string) ([]models.Ticket, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE department_id = $1)`, departmentID)
	if err := row.Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrDepartmentNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE department_id = $1 AND status IN ('waiting', 'called', 'in_progress')
			AND ($2 = '' OR doctor_id IS NULL OR doctor_id = $2)
		`+queueOrder, departmentID, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetDisplaySnapshot(ctx context.Context, departmentID, doctorID string) (store.DisplaySnapshot, error) {
	tickets, err := s.activeTickets(ctx, departmentID)
	if err != nil {
		return store.DisplaySnapshot{}, err
	}
	avg, err := s.averageConsultMinutes(ctx, departmentID)
	if err != nil {
		return store.DisplaySnapshot{}, err
	}
	return store.BuildDisplaySnapshot(departmentID, doctorID, tickets, avg, time.Now().UTC()), nil
}

func (s *Store) activeTickets(ctx context.Context, departmentID string) ([]models.Ticket, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE department_id = $1)`, departmentID)
	if err := row.Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrDepartmentNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE department_id = $1 AND status IN ('waiting', 'called', 'in_progress')
	`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) averageConsultMinutes(ctx context.Context, departmentID string) (int, error) {
	var minutes sql.NullFloat64
	row := s.pool.QueryRow(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) / 60)
		FROM (
			SELECT started_at, completed_at
			FROM queue_tickets
			WHERE department_id = $1 AND status = 'completed'
				AND started_at IS NOT NULL AND completed_at IS NOT NULL
			ORDER BY completed_at DESC
			LIMIT $2
		) recent
	`, departmentID, consultSampleSize)
	if err := row.Scan(&minutes); err != nil {
		return 0, err
	}
	if !minutes.Valid || int(minutes.Float64) <= 0 {
		return s.defaultConsult, nil
	}
	return int(minutes.Float64), nil
}

func (s *Store) LookupByReference(ctx context.Context, referenceNo string) (store.ReferenceStatus, error) {
	var status store.ReferenceStatus
	var requestedDate time.Time
	var reasonNull sql.NullString
	var ticketIDNull sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT reference_no, department_id, status, rejection_reason, requested_date, requested_time, ticket_id
		FROM booking_requests
		WHERE reference_no = $1
	`, referenceNo)
	if err := row.Scan(&status.ReferenceNo, &status.DepartmentID, &status.BookingStatus, &reasonNull, &requestedDate, &status.RequestedTime, &ticketIDNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ReferenceStatus{}, store.ErrReferenceNotFound
		}
		return store.ReferenceStatus{}, err
	}
	status.RequestedDate = requestedDate.Format(store.DateLayout)
	status.Position = -1
	if reasonNull.Valid {
		status.RejectionReason = reasonNull.String
	}
	if !ticketIDNull.Valid {
		return status, nil
	}

	var ticket models.Ticket
	row = s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE ticket_id = $1
	`, ticketIDNull.String)
	if err := scanTicket(row, &ticket); err != nil {
		return store.ReferenceStatus{}, err
	}
	status.TicketNumber = ticket.TicketNumber
	status.TicketStatus = ticket.Status
	if ticket.Status != models.StatusWaiting {
		return status, nil
	}

	active, err := s.activeTickets(ctx, ticket.DepartmentID)
	if err != nil {
		return store.ReferenceStatus{}, err
	}
	avg, err := s.averageConsultMinutes(ctx, ticket.DepartmentID)
	if err != nil {
		return store.ReferenceStatus{}, err
	}
	doctorID := ""
	if ticket.DoctorID != nil {
		doctorID = *ticket.DoctorID
	}
	scoped := store.ScopeToDoctor(active, doctorID)
	store.SortQueue(scoped)
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
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM queue_tickets WHERE ticket_id = $1)`, ticketID)
	if err := row.Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrTicketNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT event_id, ticket_id, type, payload, created_at
		FROM ticket_events
		WHERE ticket_id = $1
		ORDER BY created_at ASC, event_id ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.TicketEvent
	for rows.Next() {
		var event store.TicketEvent
		if err := rows.Scan(&event.EventID, &event.TicketID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT event_id, department_id, type, payload_json, created_at
		FROM outbox_events
	`
	args := []interface{}{}
	if !after.IsZero() {
		query += " WHERE created_at > $1 ORDER BY created_at ASC LIMIT $2"
		args = append(args, after, limit)
	} else {
		query += " ORDER BY created_at ASC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.DepartmentID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT s.session_id, s.staff_id, st.role, s.expires_at
		FROM sessions s
		JOIN staff st ON st.staff_id = s.staff_id
		WHERE s.session_id = $1 AND s.expires_at > $2 AND st.active = TRUE
	`, sessionID, time.Now().UTC())
	if err := row.Scan(&session.SessionID, &session.StaffID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	return session, nil
}

func (s *Store) GetAccess(ctx context.Context, staffID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT department_id
		FROM staff_access
		WHERE staff_id = $1
		ORDER BY department_id ASC
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		departments = append(departments, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return departments, nil
}

func getBooking(ctx context.Context, tx pgx.Tx, bookingID string) (models.BookingRequest, error) {
	var booking models.BookingRequest
	var requestedDate time.Time
	var patientIDNull sql.NullString
	var doctorIDNull sql.NullString
	var reasonNull sql.NullString
	var ticketIDNull sql.NullString
	var requestIDNull sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT booking_id, request_id, reference_no, department_id, requested_date, requested_time,
			patient_id, patient_name, preferred_doctor_id, status, rejection_reason, ticket_id, created_at
		FROM booking_requests
		WHERE booking_id = $1
	`, bookingID)
	if err := row.Scan(&booking.BookingID, &requestIDNull, &booking.ReferenceNo, &booking.DepartmentID,
		&requestedDate, &booking.RequestedTime, &patientIDNull, &booking.PatientName, &doctorIDNull,
		&booking.Status, &reasonNull, &ticketIDNull, &booking.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BookingRequest{}, store.ErrBookingNotFound
		}
		return models.BookingRequest{}, err
	}
	booking.RequestedDate = requestedDate.Format(store.DateLayout)
	if requestIDNull.Valid {
		booking.RequestID = requestIDNull.String
	}
	if patientIDNull.Valid {
		booking.PatientID = patientIDNull.String
	}
	if doctorIDNull.Valid {
		booking.PreferredDoctorID = doctorIDNull.String
	}
	if reasonNull.Valid {
		booking.RejectionReason = reasonNull.String
	}
	booking.TicketID = nullStringPtr(ticketIDNull)
	return booking, nil
}

func getTicketTx(ctx context.Context, tx pgx.Tx, ticketID string) (models.Ticket, error) {
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM queue_tickets
		WHERE ticket_id = $1
	`, ticketID)
	if err := scanTicket(row, &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func scanTicket(row pgx.Row, ticket *models.Ticket) error {
	var doctorIDNull sql.NullString
	var appointmentAtNull sql.NullTime
	var bookingIDNull sql.NullString
	var calledAtNull sql.NullTime
	var startedAtNull sql.NullTime
	var completedAtNull sql.NullTime
	if err := row.Scan(&ticket.TicketID, &ticket.TicketNumber, &ticket.DepartmentID, &ticket.Seq,
		&ticket.PatientName, &ticket.Priority, &ticket.Source, &doctorIDNull, &ticket.Status,
		&ticket.EnqueuedAt, &appointmentAtNull, &bookingIDNull, &calledAtNull, &startedAtNull,
		&completedAtNull, &ticket.CreatedAt); err != nil {
		return err
	}
	ticket.DoctorID = nullStringPtr(doctorIDNull)
	ticket.AppointmentAt = nullTimePtr(appointmentAtNull)
	ticket.BookingID = nullStringPtr(bookingIDNull)
	ticket.CalledAt = nullTimePtr(calledAtNull)
	ticket.StartedAt = nullTimePtr(startedAtNull)
	ticket.CompletedAt = nullTimePtr(completedAtNull)
	return nil
}

// findActionRequest reports whether the request id has already been
// consumed by this action. empty marks actions that completed without
// an entity, like call-next on an empty queue.
func findActionRequest(ctx context.Context, tx pgx.Tx, action, requestID string) (string, bool, bool, error) {
	var entityID sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT entity_id
		FROM action_requests
		WHERE action = $1 AND request_id = $2
	`, action, requestID)
	if err := row.Scan(&entityID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, false, nil
		}
		return "", false, false, err
	}
	if !entityID.Valid {
		return "", true, true, nil
	}
	return entityID.String, true, false, nil
}

func insertActionRequest(ctx context.Context, tx pgx.Tx, action, requestID, entityID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO action_requests (action, request_id, entity_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (action, request_id) DO NOTHING
	`, action, requestID, nullIfEmpty(entityID), time.Now().UTC())
	return err
}

func insertTicketEvent(ctx context.Context, tx pgx.Tx, ticket models.Ticket, eventType, actorID string, override bool) error {
	payload := store.TicketEventPayload(ticket, actorID, override)
	eventID := uuid.NewString()
	createdAt := time.Now().UTC()

	if _, err := tx.Exec(ctx, `
		INSERT INTO ticket_events (event_id, ticket_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, eventID, ticket.TicketID, eventType, payload, createdAt); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, department_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, eventID, ticket.DepartmentID, eventType, payload, createdAt)
	return err
}

func insertBookingOutbox(ctx context.Context, tx pgx.Tx, eventType string, booking models.BookingRequest) error {
	payload, err := jsonBytes(map[string]interface{}{
		"booking_id":     booking.BookingID,
		"reference_no":   booking.ReferenceNo,
		"department_id":  booking.DepartmentID,
		"status":         booking.Status,
		"requested_date": booking.RequestedDate,
		"requested_time": booking.RequestedTime,
	})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, department_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), booking.DepartmentID, eventType, payload, time.Now().UTC())
	return err
}

func jsonBytes(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	return &value.Time
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
