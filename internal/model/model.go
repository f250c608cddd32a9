package model

import "time"

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Occupies reports whether an appointment in this status blocks its time
// range. Cancelled and rescheduled appointments never conflict.
func (s AppointmentStatus) Occupies() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

type Business struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

type Service struct {
	ID         string
	BusinessID string
	Name       string
	Cost       string // numeric text, e.g. "45.00"
	Duration   time.Duration
	IsActive   bool
	CreatedAt  time.Time
}

// Appointment times are UTC instants over a half-open [StartTime, EndTime)
// range. BusinessID is denormalised from the owning service so the store can
// enforce the per-business no-overlap constraint on the row itself.
type Appointment struct {
	ID         string
	ServiceID  string
	BusinessID string
	UserID     string
	StartTime  time.Time
	EndTime    time.Time
	Status     AppointmentStatus
	Cost       string // snapshot of service cost at booking time
	CreatedAt  time.Time
}

// BusinessHours is one weekly open window. Open and close are minutes from
// midnight; OpenMinute == CloseMinute == 0 marks the day as closed.
type BusinessHours struct {
	BusinessID  string
	Weekday     time.Weekday
	OpenMinute  int
	CloseMinute int
}

func (h BusinessHours) Closed() bool {
	return h.OpenMinute == 0 && h.CloseMinute == 0
}

// Slot is a derived, never-persisted bookable window.
type Slot struct {
	Day   time.Time
	Start time.Time
	End   time.Time
}
