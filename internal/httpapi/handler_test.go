package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hqms/queue-service/internal/models"
	"hqms/queue-service/internal/store"
)

type fakeStore struct {
	departmentsFn  func(ctx context.Context) ([]models.Department, error)
	getSlotWeekFn  func(ctx context.Context, departmentID, weekStart string) (models.SlotWeek, error)
	setSlotWeekFn  func(ctx context.Context, input store.SetSlotWeekInput) (models.SlotWeek, error)
	listSlotFn     func(ctx context.Context, departmentID, fromWeekStart string, count int) ([]models.SlotWeek, error)
	submitFn       func(ctx context.Context, input store.SubmitBookingInput) (models.BookingRequest, error)
	confirmFn      func(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error)
	rejectFn       func(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error)
	cancelFn       func(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error)
	walkInFn       func(ctx context.Context, input store.CreateWalkInInput) (models.Ticket, bool, error)
	callFn         func(ctx context.Context, input store.CallNextInput) (models.Ticket, bool, error)
	startFn        func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	completeFn     func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	assignFn       func(ctx context.Context, input store.AssignDoctorInput) (models.Ticket, error)
	getTicketFn    func(ctx context.Context, departmentID, ticketID string) (models.Ticket, error)
	listQueueFn    func(ctx context.Context, departmentID, doctorID string) ([]models.Ticket, error)
	materializeFn  func(ctx context.Context, date string) (int, error)
	displayFn      func(ctx context.Context, departmentID, doctorID string) (store.DisplaySnapshot, error)
	lookupFn       func(ctx context.Context, referenceNo string) (store.ReferenceStatus, error)
	ticketEventsFn func(ctx context.Context, ticketID string) ([]store.TicketEvent, error)
	outboxFn       func(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error)
	getSessionFn   func(ctx context.Context, sessionID string) (store.Session, error)
	getAccessFn    func(ctx context.Context, staffID string) ([]string, error)
}

func (f fakeStore) ListDepartments(ctx context.Context) ([]models.Department, error) {
	if f.departmentsFn == nil {
		return nil, nil
	}
	return f.departmentsFn(ctx)
}

func (f fakeStore) GetSlotWeek(ctx context.Context, departmentID, weekStart string) (models.SlotWeek, error) {
	if f.getSlotWeekFn == nil {
		return models.SlotWeek{}, nil
	}
	return f.getSlotWeekFn(ctx, departmentID, weekStart)
}

func (f fakeStore) SetSlotWeek(ctx context.Context, input store.SetSlotWeekInput) (models.SlotWeek, error) {
	if f.setSlotWeekFn == nil {
		return models.SlotWeek{}, nil
	}
	return f.setSlotWeekFn(ctx, input)
}

func (f fakeStore) ListSlotWeeks(ctx context.Context, departmentID, fromWeekStart string, count int) ([]models.SlotWeek, error) {
	if f.listSlotFn == nil {
		return nil, nil
	}
	return f.listSlotFn(ctx, departmentID, fromWeekStart, count)
}

func (f fakeStore) SubmitBooking(ctx context.Context, input store.SubmitBookingInput) (models.BookingRequest, error) {
	if f.submitFn == nil {
		return models.BookingRequest{}, nil
	}
	return f.submitFn(ctx, input)
}

func (f fakeStore) ConfirmBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	if f.confirmFn == nil {
		return models.BookingRequest{}, nil
	}
	return f.confirmFn(ctx, input)
}

func (f fakeStore) RejectBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	if f.rejectFn == nil {
		return models.BookingRequest{}, nil
	}
	return f.rejectFn(ctx, input)
}

func (f fakeStore) CancelBooking(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
	if f.cancelFn == nil {
		return models.BookingRequest{}, nil
	}
	return f.cancelFn(ctx, input)
}

func (f fakeStore) CreateWalkIn(ctx context.Context, input store.CreateWalkInInput) (models.Ticket, bool, error) {
	if f.walkInFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.walkInFn(ctx, input)
}

func (f fakeStore) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, bool, error) {
	if f.callFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.callFn(ctx, input)
}

func (f fakeStore) StartConsultation(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	if f.startFn == nil {
		return models.Ticket{}, nil
	}
	return f.startFn(ctx, input)
}

func (f fakeStore) CompleteConsultation(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	if f.completeFn == nil {
		return models.Ticket{}, nil
	}
	return f.completeFn(ctx, input)
}

func (f fakeStore) AssignDoctor(ctx context.Context, input store.AssignDoctorInput) (models.Ticket, error) {
	if f.assignFn == nil {
		return models.Ticket{}, nil
	}
	return f.assignFn(ctx, input)
}

func (f fakeStore) GetTicket(ctx context.Context, departmentID, ticketID string) (models.Ticket, error) {
	if f.getTicketFn == nil {
		return models.Ticket{}, nil
	}
	return f.getTicketFn(ctx, departmentID, ticketID)
}

func (f fakeStore) ListQueue(ctx context.Context, departmentID, doctorID string) ([]models.Ticket, error) {
	if f.listQueueFn == nil {
		return nil, nil
	}
	return f.listQueueFn(ctx, departmentID, doctorID)
}

func (f fakeStore) MaterializeDueBookings(ctx context.Context, date string) (int, error) {
	if f.materializeFn == nil {
		return 0, nil
	}
	return f.materializeFn(ctx, date)
}

func (f fakeStore) GetDisplaySnapshot(ctx context.Context, departmentID, doctorID string) (store.DisplaySnapshot, error) {
	if f.displayFn == nil {
		return store.DisplaySnapshot{}, nil
	}
	return f.displayFn(ctx, departmentID, doctorID)
}

func (f fakeStore) LookupByReference(ctx context.Context, referenceNo string) (store.ReferenceStatus, error) {
	if f.lookupFn == nil {
		return store.ReferenceStatus{}, nil
	}
	return f.lookupFn(ctx, referenceNo)
}

func (f fakeStore) ListTicketEvents(ctx context.Context, ticketID string) ([]store.TicketEvent, error) {
	if f.ticketEventsFn == nil {
		return nil, nil
	}
	return f.ticketEventsFn(ctx, ticketID)
}

func (f fakeStore) ListOutboxEvents(ctx context.Context, after time.Time, limit int) ([]store.OutboxEvent, error) {
	if f.outboxFn == nil {
		return nil, nil
	}
	return f.outboxFn(ctx, after, limit)
}

func (f fakeStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	if f.getSessionFn == nil {
		return store.Session{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, sessionID)
}

func (f fakeStore) GetAccess(ctx context.Context, staffID string) ([]string, error) {
	if f.getAccessFn == nil {
		return nil, nil
	}
	return f.getAccessFn(ctx, staffID)
}

// newServer wraps the handler with the auth middleware so staff endpoints
// behave the way they do in production.
func newServer(st fakeStore) http.Handler {
	return AuthMiddleware(st, NewHandler(st).Routes())
}

func withStaffSession(st fakeStore, role string, departments []string) fakeStore {
	st.getSessionFn = func(ctx context.Context, sessionID string) (store.Session, error) {
		if sessionID != "session-1" {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{SessionID: sessionID, StaffID: "staff-1", Role: role, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	st.getAccessFn = func(ctx context.Context, staffID string) ([]string, error) {
		return departments, nil
	}
	return st
}

func postJSON(t *testing.T, h http.Handler, path, sessionID string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestSubmitBookingSuccess(t *testing.T) {
	st := fakeStore{
		submitFn: func(ctx context.Context, input store.SubmitBookingInput) (models.BookingRequest, error) {
			return models.BookingRequest{
				BookingID:    "aaaaaaaa-0000-0000-0000-000000000001",
				ReferenceNo:  "APT-20260907-001",
				DepartmentID: input.DepartmentID,
				Status:       models.BookingPending,
				RequestID:    input.RequestID,
			}, nil
		},
	}
	h := newServer(st)

	resp := postJSON(t, h, "/api/bookings", "", map[string]string{
		"request_id":     "11111111-1111-1111-1111-111111111111",
		"department_id":  "dept-gc",
		"requested_date": "2026-09-08",
		"requested_time": "09:30",
		"patient_name":   "Ana Cruz",
	})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var booking models.BookingRequest
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if booking.ReferenceNo == "" || booking.Status != models.BookingPending {
		t.Fatalf("unexpected booking response: %+v", booking)
	}
}

func TestSubmitBookingValidation(t *testing.T) {
	h := newServer(fakeStore{})

	cases := []struct {
		name    string
		payload map[string]string
	}{
		{"missing fields", map[string]string{
			"request_id":    "11111111-1111-1111-1111-111111111111",
			"department_id": "dept-gc",
		}},
		{"bad request id", map[string]string{
			"request_id":     "not-a-uuid",
			"department_id":  "dept-gc",
			"requested_date": "2026-09-08",
			"requested_time": "09:30",
			"patient_name":   "Ana Cruz",
		}},
		{"bad date", map[string]string{
			"request_id":     "11111111-1111-1111-1111-111111111111",
			"department_id":  "dept-gc",
			"requested_date": "08/09/2026",
			"requested_time": "09:30",
			"patient_name":   "Ana Cruz",
		}},
		{"bad time", map[string]string{
			"request_id":     "11111111-1111-1111-1111-111111111111",
			"department_id":  "dept-gc",
			"requested_date": "2026-09-08",
			"requested_time": "9.30am",
			"patient_name":   "Ana Cruz",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, h, "/api/bookings", "", tc.payload)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", resp.Code)
			}
		})
	}
}

func TestSubmitBookingWeekClosed(t *testing.T) {
	st := fakeStore{
		submitFn: func(ctx context.Context, input store.SubmitBookingInput) (models.BookingRequest, error) {
			return models.BookingRequest{}, store.ErrWeekClosed
		},
	}
	h := newServer(st)

	resp := postJSON(t, h, "/api/bookings", "", map[string]string{
		"request_id":     "11111111-1111-1111-1111-111111111111",
		"department_id":  "dept-gc",
		"requested_date": "2026-09-08",
		"requested_time": "09:30",
		"patient_name":   "Ana Cruz",
	})

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != "week_closed" {
		t.Fatalf("expected week_closed, got %q", code)
	}
}

func TestStaffEndpointRequiresSession(t *testing.T) {
	h := newServer(fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/queue?department_id=dept-gc", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestDepartmentAccessDenied(t *testing.T) {
	st := withStaffSession(fakeStore{}, "staff", []string{"dept-ob"})
	h := newServer(st)

	req := httptest.NewRequest(http.MethodGet, "/api/queue?department_id=dept-gc", nil)
	req.Header.Set("X-Session-ID", "session-1")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestEmptyGrantListAllowsAllDepartments(t *testing.T) {
	st := withStaffSession(fakeStore{
		listQueueFn: func(ctx context.Context, departmentID, doctorID string) ([]models.Ticket, error) {
			return []models.Ticket{{TicketID: "ticket-1", DepartmentID: departmentID}}, nil
		},
	}, "staff", nil)
	h := newServer(st)

	req := httptest.NewRequest(http.MethodGet, "/api/queue?department_id=dept-gc", nil)
	req.Header.Set("X-Session-ID", "session-1")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestCallNextQueueEmpty(t *testing.T) {
	st := withStaffSession(fakeStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.Ticket, bool, error) {
			return models.Ticket{}, false, store.ErrNoTicket
		},
	}, "staff", nil)
	h := newServer(st)

	resp := postJSON(t, h, "/api/tickets/actions/call-next", "session-1", map[string]interface{}{
		"request_id":    "11111111-1111-1111-1111-111111111111",
		"department_id": "dept-gc",
	})

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != "queue_empty" {
		t.Fatalf("expected queue_empty, got %q", code)
	}
}

func TestCallNextOverrideRequiresAdmin(t *testing.T) {
	called := false
	st := withStaffSession(fakeStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.Ticket, bool, error) {
			called = true
			return models.Ticket{TicketID: input.TicketID, Status: models.StatusCalled}, true, nil
		},
	}, "staff", nil)
	h := newServer(st)

	payload := map[string]interface{}{
		"request_id":    "11111111-1111-1111-1111-111111111111",
		"department_id": "dept-gc",
		"ticket_id":     "22222222-2222-2222-2222-222222222222",
		"override":      true,
	}
	resp := postJSON(t, h, "/api/tickets/actions/call-next", "session-1", payload)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for staff override, got %d", resp.Code)
	}
	if called {
		t.Fatal("store must not be reached when override is denied")
	}

	admin := withStaffSession(st, "admin", nil)
	resp = postJSON(t, newServer(admin), "/api/tickets/actions/call-next", "session-1", payload)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for admin override, got %d", resp.Code)
	}
	if !called {
		t.Fatal("store was not reached for admin override")
	}
}

func TestCallNextDepartmentBusy(t *testing.T) {
	st := withStaffSession(fakeStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.Ticket, bool, error) {
			return models.Ticket{}, false, store.ErrBusy
		},
	}, "staff", nil)
	h := newServer(st)

	resp := postJSON(t, h, "/api/tickets/actions/call-next", "session-1", map[string]interface{}{
		"request_id":    "11111111-1111-1111-1111-111111111111",
		"department_id": "dept-gc",
	})

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != "department_busy" {
		t.Fatalf("expected department_busy, got %q", code)
	}
}

func TestRejectBookingRequiresReason(t *testing.T) {
	st := withStaffSession(fakeStore{}, "staff", nil)
	h := newServer(st)

	resp := postJSON(t, h, "/api/bookings/aaaaaaaa-0000-0000-0000-000000000001/actions/reject", "session-1", map[string]string{
		"request_id": "11111111-1111-1111-1111-111111111111",
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCancelBookingIsPublic(t *testing.T) {
	st := fakeStore{
		cancelFn: func(ctx context.Context, input store.BookingActionInput) (models.BookingRequest, error) {
			return models.BookingRequest{BookingID: input.BookingID, Status: models.BookingCancelled}, nil
		},
	}
	h := newServer(st)

	resp := postJSON(t, h, "/api/bookings/aaaaaaaa-0000-0000-0000-000000000001/actions/cancel", "", map[string]string{
		"request_id": "11111111-1111-1111-1111-111111111111",
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestTicketTransitionInvalidState(t *testing.T) {
	st := withStaffSession(fakeStore{
		startFn: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrInvalidState
		},
	}, "staff", nil)
	h := newServer(st)

	resp := postJSON(t, h, "/api/tickets/22222222-2222-2222-2222-222222222222/actions/start", "session-1", map[string]string{
		"request_id": "11111111-1111-1111-1111-111111111111",
	})

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != "invalid_state" {
		t.Fatalf("expected invalid_state, got %q", code)
	}
}

func TestSetSlotWeekRejectsNonMonday(t *testing.T) {
	st := withStaffSession(fakeStore{}, "staff", nil)
	h := newServer(st)

	resp := postJSONMethod(t, h, http.MethodPut, "/api/slot-weeks", "session-1", map[string]interface{}{
		"request_id":    "11111111-1111-1111-1111-111111111111",
		"department_id": "dept-gc",
		"week_start":    "2026-09-08",
		"slot_minutes":  15,
		"is_open":       true,
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestLookupNotFound(t *testing.T) {
	st := fakeStore{
		lookupFn: func(ctx context.Context, referenceNo string) (store.ReferenceStatus, error) {
			return store.ReferenceStatus{}, store.ErrReferenceNotFound
		},
	}
	h := newServer(st)

	req := httptest.NewRequest(http.MethodGet, "/api/lookup?reference_no=APT-20260907-999", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestDisplayIsPublic(t *testing.T) {
	st := fakeStore{
		displayFn: func(ctx context.Context, departmentID, doctorID string) (store.DisplaySnapshot, error) {
			return store.DisplaySnapshot{DepartmentID: departmentID, UpdatedAt: time.Now()}, nil
		},
	}
	h := newServer(st)

	req := httptest.NewRequest(http.MethodGet, "/api/display?department_id=dept-gc", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func postJSONMethod(t *testing.T, h http.Handler, method, path, sessionID string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}
