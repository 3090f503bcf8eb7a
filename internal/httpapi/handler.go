package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hqms/queue-service/internal/models"
	"hqms/queue-service/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	store store.Store
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(store store.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/departments", h.handleDepartments)
	mux.HandleFunc("/api/display", h.handleDisplay)
	mux.HandleFunc("/api/lookup", h.handleLookup)
	mux.HandleFunc("/api/slot-weeks", h.handleSlotWeeks)
	mux.HandleFunc("/api/bookings", h.handleBookings)
	mux.HandleFunc("/api/bookings/", h.handleBookingActions)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/actions/call-next", h.handleCallNext)
	mux.HandleFunc("/api/tickets/", h.handleTicketSubpaths)
	mux.HandleFunc("/api/events", h.handleEvents)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDepartments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	departments, err := h.store.ListDepartments(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

func (h *Handler) handleDisplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	departmentID := strings.TrimSpace(r.URL.Query().Get("department_id"))
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	if departmentID == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "department_id is required")
		return
	}

	snapshot, err := h.store.GetDisplaySnapshot(r.Context(), departmentID, doctorID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	referenceNo := strings.TrimSpace(r.URL.Query().Get("reference_no"))
	if referenceNo == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "reference_no is required")
		return
	}

	status, err := h.store.LookupByReference(r.Context(), referenceNo)
	if err != nil {
		httpStatus, code, msg := mapError(err)
		writeError(w, "", httpStatus, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type setSlotWeekRequest struct {
	RequestID    string `json:"request_id"`
	DepartmentID string `json:"department_id"`
	WeekStart    string `json:"week_start"`
	SlotMinutes  int    `json:"slot_minutes"`
	IsOpen       bool   `json:"is_open"`
}

func (h *Handler) handleSlotWeeks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListSlotWeeks(w, r)
	case http.MethodPut:
		h.handleSetSlotWeek(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleListSlotWeeks(w http.ResponseWriter, r *http.Request) {
	departmentID := strings.TrimSpace(r.URL.Query().Get("department_id"))
	if departmentID == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "department_id is required")
		return
	}

	from := strings.TrimSpace(r.URL.Query().Get("from"))
	if from == "" {
		from = time.Now().UTC().Format(store.DateLayout)
	}
	weekStart, err := store.WeekStartOf(from)
	if err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "from must be a YYYY-MM-DD date")
		return
	}

	count := 4
	if countRaw := strings.TrimSpace(r.URL.Query().Get("count")); countRaw != "" {
		parsed, err := strconv.Atoi(countRaw)
		if err != nil || parsed <= 0 || parsed > 26 {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "count must be between 1 and 26")
			return
		}
		count = parsed
	}

	weeks, err := h.store.ListSlotWeeks(r.Context(), departmentID, weekStart, count)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}

func (h *Handler) handleSetSlotWeek(w http.ResponseWriter, r *http.Request) {
	var req setSlotWeekRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DepartmentID = strings.TrimSpace(req.DepartmentID)
	req.WeekStart = strings.TrimSpace(req.WeekStart)
	if req.RequestID == "" || req.DepartmentID == "" || req.WeekStart == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, department_id, and week_start are required")
		return
	}
	if !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}
	weekStart, err := store.WeekStartOf(req.WeekStart)
	if err != nil || weekStart != req.WeekStart {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "week_start must be a Monday in YYYY-MM-DD form")
		return
	}
	if !requireDepartmentAccess(w, r, req.DepartmentID) {
		return
	}

	week, err := h.store.SetSlotWeek(r.Context(), store.SetSlotWeekInput{
		RequestID:    req.RequestID,
		DepartmentID: req.DepartmentID,
		WeekStart:    req.WeekStart,
		SlotMinutes:  req.SlotMinutes,
		IsOpen:       req.IsOpen,
		ActorID:      actorFromContext(r.Context()),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

type submitBookingRequest struct {
	RequestID         string `json:"request_id"`
	DepartmentID      string `json:"department_id"`
	RequestedDate     string `json:"requested_date"`
	RequestedTime     string `json:"requested_time"`
	PatientID         string `json:"patient_id"`
	PatientName       string `json:"patient_name"`
	PreferredDoctorID string `json:"preferred_doctor_id"`
}

func (h *Handler) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req submitBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DepartmentID = strings.TrimSpace(req.DepartmentID)
	req.RequestedDate = strings.TrimSpace(req.RequestedDate)
	req.RequestedTime = strings.TrimSpace(req.RequestedTime)
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.PreferredDoctorID = strings.TrimSpace(req.PreferredDoctorID)

	if req.RequestID == "" || req.DepartmentID == "" || req.RequestedDate == "" || req.RequestedTime == "" || req.PatientName == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, department_id, requested_date, requested_time, and patient_name are required")
		return
	}
	if !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}
	if _, err := time.Parse(store.DateLayout, req.RequestedDate); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "requested_date must be a YYYY-MM-DD date")
		return
	}
	if _, err := time.Parse(store.TimeLayout, req.RequestedTime); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "requested_time must be HH:MM")
		return
	}

	booking, err := h.store.SubmitBooking(r.Context(), store.SubmitBookingInput{
		RequestID:         req.RequestID,
		DepartmentID:      req.DepartmentID,
		RequestedDate:     req.RequestedDate,
		RequestedTime:     req.RequestedTime,
		PatientID:         req.PatientID,
		PatientName:       req.PatientName,
		PreferredDoctorID: req.PreferredDoctorID,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

type bookingActionRequest struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleBookingActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/bookings/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] != "actions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	bookingID := parts[0]
	action := parts[2]
	if !isValidUUID(bookingID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "booking_id must be a UUID")
		return
	}

	var req bookingActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.RequestID == "" || !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}

	input := store.BookingActionInput{
		RequestID:  req.RequestID,
		BookingID:  bookingID,
		ActorID:    actorFromContext(r.Context()),
		Reason:     req.Reason,
		OccurredAt: time.Now().UTC(),
	}

	var (
		booking interface{}
		err     error
	)
	switch action {
	case "confirm":
		booking, err = h.store.ConfirmBooking(r.Context(), input)
	case "reject":
		if req.Reason == "" {
			writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "reason is required when rejecting")
			return
		}
		booking, err = h.store.RejectBooking(r.Context(), input)
	case "cancel":
		booking, err = h.store.CancelBooking(r.Context(), input)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	departmentID := strings.TrimSpace(r.URL.Query().Get("department_id"))
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	if departmentID == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "department_id is required")
		return
	}
	if !requireDepartmentAccess(w, r, departmentID) {
		return
	}

	tickets, err := h.store.ListQueue(r.Context(), departmentID, doctorID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

type createWalkInRequest struct {
	RequestID    string `json:"request_id"`
	DepartmentID string `json:"department_id"`
	PatientName  string `json:"patient_name"`
	Priority     string `json:"priority"`
	DoctorID     string `json:"doctor_id"`
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createWalkInRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DepartmentID = strings.TrimSpace(req.DepartmentID)
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.Priority = strings.TrimSpace(req.Priority)
	req.DoctorID = strings.TrimSpace(req.DoctorID)

	if req.RequestID == "" || req.DepartmentID == "" || req.PatientName == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, department_id, and patient_name are required")
		return
	}
	if !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}
	if req.Priority != "" && req.Priority != "normal" && req.Priority != "urgent" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "priority must be normal or urgent")
		return
	}
	if !requireDepartmentAccess(w, r, req.DepartmentID) {
		return
	}

	ticket, _, err := h.store.CreateWalkIn(r.Context(), store.CreateWalkInInput{
		RequestID:    req.RequestID,
		DepartmentID: req.DepartmentID,
		PatientName:  req.PatientName,
		Priority:     req.Priority,
		DoctorID:     req.DoctorID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

type callNextRequest struct {
	RequestID    string `json:"request_id"`
	DepartmentID string `json:"department_id"`
	DoctorID     string `json:"doctor_id"`
	TicketID     string `json:"ticket_id"`
	Override     bool   `json:"override"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req callNextRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DepartmentID = strings.TrimSpace(req.DepartmentID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.TicketID = strings.TrimSpace(req.TicketID)

	if req.RequestID == "" || req.DepartmentID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and department_id are required")
		return
	}
	if !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}
	if req.TicketID != "" && !isValidUUID(req.TicketID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID when provided")
		return
	}
	if !requireDepartmentAccess(w, r, req.DepartmentID) {
		return
	}
	if req.Override && !requireRole(w, r, "admin") {
		return
	}

	ticket, _, err := h.store.CallNext(r.Context(), store.CallNextInput{
		RequestID:    req.RequestID,
		DepartmentID: req.DepartmentID,
		DoctorID:     req.DoctorID,
		TicketID:     req.TicketID,
		Override:     req.Override,
		ActorID:      actorFromContext(r.Context()),
		CalledAt:     time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNoTicket) {
			writeError(w, req.RequestID, http.StatusConflict, "queue_empty", "no tickets waiting")
			return
		}
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketSubpaths(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 2 && parts[1] == "events" {
		h.handleTicketEvents(w, r, parts[0])
		return
	}
	if len(parts) != 3 || parts[1] != "actions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ticketID := parts[0]
	if !isValidUUID(ticketID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}

	switch parts[2] {
	case "start":
		h.handleTicketTransition(w, r, ticketID, h.store.StartConsultation)
	case "complete":
		h.handleTicketTransition(w, r, ticketID, h.store.CompleteConsultation)
	case "assign-doctor":
		h.handleAssignDoctor(w, r, ticketID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type ticketActionRequest struct {
	RequestID string `json:"request_id"`
}

type assignDoctorRequest struct {
	RequestID string `json:"request_id"`
	DoctorID  string `json:"doctor_id"`
}

func (h *Handler) handleTicketTransition(w http.ResponseWriter, r *http.Request, ticketID string, apply func(context.Context, store.TicketActionInput) (models.Ticket, error)) {
	var req ticketActionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	if req.RequestID == "" || !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}

	ticket, err := apply(r.Context(), store.TicketActionInput{
		RequestID:  req.RequestID,
		TicketID:   ticketID,
		ActorID:    actorFromContext(r.Context()),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleAssignDoctor(w http.ResponseWriter, r *http.Request, ticketID string) {
	var req assignDoctorRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.RequestID = strings.TrimSpace(req.RequestID)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	if req.RequestID == "" || !isValidUUID(req.RequestID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id must be a UUID")
		return
	}
	if req.DoctorID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "doctor_id is required")
		return
	}

	ticket, err := h.store.AssignDoctor(r.Context(), store.AssignDoctorInput{
		RequestID:  req.RequestID,
		TicketID:   ticketID,
		DoctorID:   req.DoctorID,
		ActorID:    actorFromContext(r.Context()),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketEvents(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isValidUUID(ticketID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "ticket_id must be a UUID")
		return
	}

	events, err := h.store.ListTicketEvents(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	afterRaw := strings.TrimSpace(r.URL.Query().Get("after"))
	var after time.Time
	if afterRaw != "" {
		parsed, err := time.Parse(time.RFC3339, afterRaw)
		if err != nil {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "after must be an RFC3339 timestamp")
			return
		}
		after = parsed
	}

	limit := 100
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.store.ListOutboxEvents(r.Context(), after, limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrDepartmentNotFound):
		return http.StatusNotFound, "department_not_found", "department not found"
	case errors.Is(err, store.ErrDoctorNotFound):
		return http.StatusNotFound, "doctor_not_found", "doctor not found"
	case errors.Is(err, store.ErrBookingNotFound):
		return http.StatusNotFound, "booking_not_found", "booking not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrReferenceNotFound):
		return http.StatusNotFound, "reference_not_found", "reference number not found"
	case errors.Is(err, store.ErrInvalidInterval):
		return http.StatusBadRequest, "invalid_interval", "slot interval must be a multiple of 5 between 5 and 60"
	case errors.Is(err, store.ErrSlotMisaligned):
		return http.StatusBadRequest, "slot_misaligned", "requested time does not align with the week's slot grid"
	case errors.Is(err, store.ErrPastDate):
		return http.StatusBadRequest, "past_date", "requested date is in the past"
	case errors.Is(err, store.ErrWeekClosed):
		return http.StatusConflict, "week_closed", "the requested week is not open for booking"
	case errors.Is(err, store.ErrCurrentWeekLocked):
		return http.StatusConflict, "current_week_locked", "the current week's interval is locked by existing bookings"
	case errors.Is(err, store.ErrCannotCloseWithBookings):
		return http.StatusConflict, "cannot_close_with_bookings", "the current week has bookings and cannot be closed"
	case errors.Is(err, store.ErrNotPending):
		return http.StatusConflict, "not_pending", "booking has already been decided"
	case errors.Is(err, store.ErrNotCancellable):
		return http.StatusConflict, "not_cancellable", "booking state does not allow cancellation"
	case errors.Is(err, store.ErrCannotCancelActive):
		return http.StatusConflict, "cannot_cancel_active", "the patient has already been called"
	case errors.Is(err, store.ErrNotNextInLine):
		return http.StatusConflict, "not_next_in_line", "ticket is not at the head of the queue"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrImmutableAfterStart):
		return http.StatusConflict, "immutable_after_start", "consultation already started"
	case errors.Is(err, store.ErrDoctorDepartmentMatch):
		return http.StatusConflict, "doctor_department_mismatch", "doctor belongs to a different department"
	case errors.Is(err, store.ErrBusy):
		return http.StatusServiceUnavailable, "department_busy", "department is busy, retry shortly"
	case errors.Is(err, store.ErrAccessDenied):
		return http.StatusForbidden, "access_denied", "access denied"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
