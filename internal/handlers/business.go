package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CST438P3G6/slotbook/internal/model"
	"github.com/CST438P3G6/slotbook/internal/outbox"
	"github.com/CST438P3G6/slotbook/internal/schedule"
)

type hoursItem struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	OpenTime  string `json:"open_time" validate:"required"`
	CloseTime string `json:"close_time" validate:"required"`
}

type upsertHoursRequest struct {
	Hours []hoursItem `json:"hours" validate:"required,min=1,max=7,dive"`
}

// GetHours returns the weekly schedule of a business. Missing weekdays are
// closed.
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	week, err := h.store.WeeklyHours(r.Context(), businessID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]hoursItem, 0, len(week))
	for _, row := range week {
		items = append(items, hoursItem{
			DayOfWeek: int(row.Weekday),
			OpenTime:  schedule.FormatClock(row.OpenMinute),
			CloseTime: schedule.FormatClock(row.CloseMinute),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// UpsertHours replaces weekly hours rows for the owner's business. Every row
// is validated before any write, and all rows commit in one transaction, so
// a bad close time or a store failure never leaves a half-applied week
// behind.
func (h *Handler) UpsertHours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req upsertHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "missing or malformed fields", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetBusiness(r.Context(), sess.BusinessID); err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]model.BusinessHours, 0, len(req.Hours))
	evts := make([]outbox.Event, 0, len(req.Hours))
	for _, item := range req.Hours {
		open, err := schedule.ParseClock(item.OpenTime)
		if err != nil {
			h.writeError(w, err)
			return
		}
		closeAt, err := schedule.ParseClock(item.CloseTime)
		if err != nil {
			h.writeError(w, err)
			return
		}
		row := model.BusinessHours{
			BusinessID:  sess.BusinessID,
			Weekday:     time.Weekday(item.DayOfWeek),
			OpenMinute:  open,
			CloseMinute: closeAt,
		}
		if err := schedule.ValidateHours(row); err != nil {
			h.writeError(w, err)
			return
		}
		evt, err := hoursChangeEvent(row)
		if err != nil {
			h.writeError(w, err)
			return
		}
		rows = append(rows, row)
		evts = append(evts, evt)
	}

	if err := h.store.UpsertWeeklyHours(r.Context(), rows, evts); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createServiceRequest struct {
	Name     string `json:"name" validate:"required"`
	Cost     string `json:"cost" validate:"required"`
	Duration string `json:"duration" validate:"required"`
	IsActive bool   `json:"is_active"`
}

type serviceItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cost     string `json:"cost"`
	Duration string `json:"duration"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "missing or malformed fields", http.StatusBadRequest)
		return
	}

	duration, err := schedule.ParseDuration(req.Duration)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if duration <= 0 {
		h.writeError(w, schedule.ErrInvalidParameters)
		return
	}

	svc := model.Service{
		ID:         uuid.NewString(),
		BusinessID: sess.BusinessID,
		Name:       strings.TrimSpace(req.Name),
		Cost:       strings.TrimSpace(req.Cost),
		Duration:   duration,
		IsActive:   req.IsActive,
	}
	if err := h.store.CreateService(r.Context(), svc); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, serviceItemOf(svc))
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	services, err := h.store.ListServices(r.Context(), businessID, 100)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]serviceItem, 0, len(services))
	for _, svc := range services {
		items = append(items, serviceItemOf(svc))
	}
	writeJSON(w, http.StatusOK, items)
}

func serviceItemOf(svc model.Service) serviceItem {
	return serviceItem{
		ID:       svc.ID,
		Name:     svc.Name,
		Cost:     svc.Cost,
		Duration: schedule.FormatDuration(svc.Duration),
		IsActive: svc.IsActive,
	}
}

func hoursChangeEvent(row model.BusinessHours) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"event_type":  "UPDATE",
		"business_id": row.BusinessID,
		"new": map[string]any{
			"day_of_week": int(row.Weekday),
			"open_time":   schedule.FormatClock(row.OpenMinute),
			"close_time":  schedule.FormatClock(row.CloseMinute),
		},
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "business_hours",
		AggregateID:   row.BusinessID,
		EventType:     outbox.TopicBusinessHoursChanged,
		Payload:       payload,
	}, nil
}
