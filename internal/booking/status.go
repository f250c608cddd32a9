package booking

import (
	"github.com/CST438P3G6/slotbook/internal/model"
)

// forward holds the allowed status transitions. Completed, cancelled and
// rescheduled are terminal: a rescheduled appointment is superseded by a
// newly booked one, never reopened.
var forward = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled, model.StatusRescheduled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled, model.StatusRescheduled},
}

func CanTransition(from, to model.AppointmentStatus) bool {
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}
