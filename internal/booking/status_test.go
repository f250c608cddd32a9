package booking

import (
	"testing"

	"github.com/CST438P3G6/slotbook/internal/model"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to model.AppointmentStatus }{
		{model.StatusPending, model.StatusConfirmed},
		{model.StatusPending, model.StatusCancelled},
		{model.StatusPending, model.StatusRescheduled},
		{model.StatusConfirmed, model.StatusCompleted},
		{model.StatusConfirmed, model.StatusCancelled},
		{model.StatusConfirmed, model.StatusRescheduled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to model.AppointmentStatus }{
		{model.StatusPending, model.StatusCompleted},
		{model.StatusCompleted, model.StatusCancelled},
		{model.StatusCancelled, model.StatusPending},
		{model.StatusCancelled, model.StatusConfirmed},
		{model.StatusRescheduled, model.StatusConfirmed},
		{model.StatusPending, model.StatusPending},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}
