package booking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CST438P3G6/slotbook/internal/model"
	"github.com/CST438P3G6/slotbook/internal/outbox"
	"github.com/CST438P3G6/slotbook/internal/schedule"
	"github.com/CST438P3G6/slotbook/internal/storage"
	"github.com/CST438P3G6/slotbook/libs/auth"
)

// Store is the slice of the record store the booking transaction needs.
// Mutations carry their change-feed event so the store can commit both
// atomically.
type Store interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	CreateAppointment(ctx context.Context, a model.Appointment, evt outbox.Event) error
	UpdateAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, evt outbox.Event) error
}

// ConflictChecker is the commit-time overlap recheck.
type ConflictChecker interface {
	HasConflict(ctx context.Context, businessID string, start, end time.Time, excludeID string) (bool, error)
}

type Service struct {
	store     Store
	conflicts ConflictChecker
	locker    Locker
	logger    *slog.Logger
}

func NewService(store Store, conflicts ConflictChecker, locker Locker, logger *slog.Logger) *Service {
	return &Service{store: store, conflicts: conflicts, locker: locker, logger: logger}
}

// Book creates a pending appointment at start for the session user.
//
// The conflict check runs again here, under the per-business lock, because
// the slot list the caller picked from may be stale. The store's exclusion
// constraint backs both up: even if the lock is lost, an overlapping insert
// fails and is reported as ErrSlotTaken.
func (s *Service) Book(ctx context.Context, sess auth.Session, serviceID string, start time.Time) (model.Appointment, error) {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		return model.Appointment{}, mapStoreErr(err)
	}
	if !svc.IsActive {
		return model.Appointment{}, ErrServiceInactive
	}
	if svc.Duration <= 0 {
		return model.Appointment{}, schedule.ErrInvalidParameters
	}

	start = start.UTC()
	end := start.Add(svc.Duration)

	release, err := s.locker.Acquire(ctx, svc.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	taken, err := s.conflicts.HasConflict(ctx, svc.BusinessID, start, end, "")
	if err != nil {
		return model.Appointment{}, err
	}
	if taken {
		return model.Appointment{}, ErrSlotTaken
	}

	appt := model.Appointment{
		ID:         uuid.NewString(),
		ServiceID:  svc.ID,
		BusinessID: svc.BusinessID,
		UserID:     sess.UserID,
		StartTime:  start,
		EndTime:    end,
		Status:     model.StatusPending,
		Cost:       svc.Cost,
		CreatedAt:  time.Now().UTC(),
	}

	evt, err := changeEvent("INSERT", nil, &appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.store.CreateAppointment(ctx, appt, evt); err != nil {
		return model.Appointment{}, mapStoreErr(err)
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"service_id", appt.ServiceID,
		"start_time", appt.StartTime,
	)
	return appt, nil
}

// Cancel is idempotent: cancelling an already-cancelled appointment returns
// the appointment unchanged. Authorization runs before the idempotency
// short-circuit so a stranger's cancel never leaks the record.
func (s *Service) Cancel(ctx context.Context, sess auth.Session, appointmentID string) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, mapStoreErr(err)
	}
	if err := authorizeTransition(sess, appt, model.StatusCancelled); err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCancelled {
		return appt, nil
	}
	return s.transition(ctx, appt, model.StatusCancelled)
}

// Transition moves an appointment through the status machine. Business
// actors move their own business's appointments forward; client actors may
// only cancel their own pending or confirmed appointments.
func (s *Service) Transition(ctx context.Context, sess auth.Session, appointmentID string, to model.AppointmentStatus) (model.Appointment, error) {
	if !to.Valid() {
		return model.Appointment{}, ErrInvalidTransition
	}
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, mapStoreErr(err)
	}
	if err := authorizeTransition(sess, appt, to); err != nil {
		return model.Appointment{}, err
	}
	if to == model.StatusCancelled && appt.Status == model.StatusCancelled {
		return appt, nil
	}
	return s.transition(ctx, appt, to)
}

// transition assumes the caller has already authorized the session against
// the loaded appointment.
func (s *Service) transition(ctx context.Context, appt model.Appointment, to model.AppointmentStatus) (model.Appointment, error) {
	if !CanTransition(appt.Status, to) {
		return model.Appointment{}, ErrInvalidTransition
	}

	old := appt
	appt.Status = to
	evt, err := changeEvent("UPDATE", &old, &appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.store.UpdateAppointmentStatus(ctx, appt.ID, to, evt); err != nil {
		return model.Appointment{}, mapStoreErr(err)
	}

	s.logger.Info("appointment status changed",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"from", old.Status,
		"to", to,
	)
	return appt, nil
}

func authorizeTransition(sess auth.Session, appt model.Appointment, to model.AppointmentStatus) error {
	if sess.IsOwner() && sess.BusinessID == appt.BusinessID {
		return nil
	}
	if sess.UserID == appt.UserID {
		if to != model.StatusCancelled {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		return ErrSlotTaken
	}
	return err
}

type appointmentDoc struct {
	ID         string    `json:"id"`
	ServiceID  string    `json:"service_id"`
	BusinessID string    `json:"business_id"`
	UserID     string    `json:"user_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
	Cost       string    `json:"cost"`
}

func changeEvent(eventType string, old, new *model.Appointment) (outbox.Event, error) {
	payload := map[string]any{
		"event_type": eventType,
	}
	var id, businessID string
	if new != nil {
		payload["new"] = docOf(*new)
		id, businessID = new.ID, new.BusinessID
	}
	if old != nil {
		payload["old"] = docOf(*old)
		id, businessID = old.ID, old.BusinessID
	}
	payload["business_id"] = businessID

	body, err := json.Marshal(payload)
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     outbox.TopicAppointmentChanged,
		Payload:       body,
	}, nil
}

func docOf(a model.Appointment) appointmentDoc {
	return appointmentDoc{
		ID:         a.ID,
		ServiceID:  a.ServiceID,
		BusinessID: a.BusinessID,
		UserID:     a.UserID,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		Status:     string(a.Status),
		Cost:       a.Cost,
	}
}
