package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/CST438P3G6/slotbook/internal/booking"
	"github.com/CST438P3G6/slotbook/internal/model"
	"github.com/CST438P3G6/slotbook/internal/outbox"
	"github.com/CST438P3G6/slotbook/internal/schedule"
	"github.com/CST438P3G6/slotbook/internal/storage"
	"github.com/CST438P3G6/slotbook/libs/auth"
)

// maxRangeDays bounds a single slot query so a bad date range cannot walk
// months of windows in one request.
const maxRangeDays = 62

// Store is the slice of the record store the HTTP surface reads and writes.
type Store interface {
	GetBusiness(ctx context.Context, id string) (model.Business, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	CreateService(ctx context.Context, s model.Service) error
	ListServices(ctx context.Context, businessID string, limit int) ([]model.Service, error)
	ListAppointmentsByUser(ctx context.Context, userID string, limit int) ([]model.Appointment, error)
	ListAppointmentsByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error)
	WeeklyHours(ctx context.Context, businessID string) ([]model.BusinessHours, error)
	UpsertWeeklyHours(ctx context.Context, rows []model.BusinessHours, evts []outbox.Event) error
}

type Handler struct {
	store     Store
	generator *schedule.Generator
	bookings  *booking.Service
	logger    *slog.Logger
	validate  *validator.Validate
}

func New(store Store, generator *schedule.Generator, bookings *booking.Service, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		generator: generator,
		bookings:  bookings,
		logger:    logger,
		validate:  validator.New(),
	}
}

type slotItem struct {
	Day       string `json:"day"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	ServiceID     string `json:"service_id"`
	BusinessID    string `json:"business_id"`
	UserID        string `json:"user_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	Cost          string `json:"cost"`
	CreatedAt     string `json:"created_at"`
}

// Slots lists bookable slots for a business/service over a date range.
// An empty list with HTTP 200 always means "fully booked or closed";
// invalid input never degrades to an empty result.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	if businessID == "" || serviceID == "" {
		http.Error(w, "business_id and service_id are required", http.StatusBadRequest)
		return
	}

	from, err := parseDate(q.Get("from"))
	if err != nil {
		http.Error(w, "invalid from date", http.StatusBadRequest)
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		http.Error(w, "invalid to date", http.StatusBadRequest)
		return
	}
	if to.Before(from) || to.Sub(from) > maxRangeDays*24*time.Hour {
		http.Error(w, "invalid date range", http.StatusBadRequest)
		return
	}

	step := 30 * time.Minute
	if raw := strings.TrimSpace(q.Get("step_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 240 {
			http.Error(w, "invalid step_minutes", http.StatusBadRequest)
			return
		}
		step = time.Duration(n) * time.Minute
	}

	svc, err := h.store.GetService(r.Context(), serviceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if svc.BusinessID != businessID {
		http.Error(w, "service does not belong to business", http.StatusBadRequest)
		return
	}
	if !svc.IsActive {
		h.writeError(w, booking.ErrServiceInactive)
		return
	}

	slots, err := h.generator.Slots(r.Context(), businessID, svc.Duration, step, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			Day:       s.Day.Format("2006-01-02"),
			SlotStart: s.Start.UTC().Format(time.RFC3339),
			SlotEnd:   s.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type bookRequest struct {
	ServiceID string `json:"service_id" validate:"required,uuid4"`
	StartTime string `json:"start_time" validate:"required"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "missing or malformed fields", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.Book(r.Context(), sess, req.ServiceID, start)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemOf(appt))
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid4"`
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "missing or malformed fields", http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.Cancel(r.Context(), sess, req.AppointmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemOf(appt))
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid4"`
	Status        string `json:"status" validate:"required,oneof=pending confirmed completed cancelled rescheduled"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "missing or malformed fields", http.StatusBadRequest)
		return
	}

	appt, err := h.bookings.Transition(r.Context(), sess, req.AppointmentID, model.AppointmentStatus(req.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemOf(appt))
}

// ListAppointments returns the session user's own appointments, or the
// business's appointments when the caller is its owner.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var (
		appts []model.Appointment
		err   error
	)
	if sess.IsOwner() && sess.BusinessID != "" {
		appts, err = h.store.ListAppointmentsByBusiness(r.Context(), sess.BusinessID, limit)
	} else {
		appts, err = h.store.ListAppointmentsByUser(r.Context(), sess.UserID, limit)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, itemOf(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var storeErr *storage.StoreError
	switch {
	case errors.Is(err, schedule.ErrInvalidFormat),
		errors.Is(err, schedule.ErrInvalidHours),
		errors.Is(err, schedule.ErrInvalidParameters):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrServiceInactive):
		http.Error(w, "service is not active", http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrSlotTaken):
		http.Error(w, "time slot already taken; re-fetch slots", http.StatusConflict)
	case errors.Is(err, booking.ErrInvalidTransition):
		http.Error(w, "status transition not allowed", http.StatusConflict)
	case errors.Is(err, booking.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, booking.ErrLockUnavailable):
		http.Error(w, "booking busy; retry", http.StatusServiceUnavailable)
	case errors.As(err, &storeErr):
		h.logger.Error("record store failure", "err", err)
		http.Error(w, "record store unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func itemOf(a model.Appointment) appointmentItem {
	return appointmentItem{
		AppointmentID: a.ID,
		ServiceID:     a.ServiceID,
		BusinessID:    a.BusinessID,
		UserID:        a.UserID,
		StartTime:     a.StartTime.UTC().Format(time.RFC3339),
		EndTime:       a.EndTime.UTC().Format(time.RFC3339),
		Status:        string(a.Status),
		Cost:          a.Cost,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), time.UTC)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requireOwner returns the session when the caller is the owner of a
// business; otherwise it writes the error response and reports false.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return auth.Session{}, false
	}
	if !sess.IsOwner() || sess.BusinessID == "" {
		http.Error(w, "business owner role required", http.StatusForbidden)
		return auth.Session{}, false
	}
	return sess, true
}
