package booking

import "errors"

var (
	ErrNotFound = errors.New("record not found")

	ErrServiceInactive = errors.New("service is not active")

	// ErrSlotTaken is recoverable: the caller should re-fetch slots and pick
	// again, never blind-retry the same start time.
	ErrSlotTaken = errors.New("time slot already taken")

	ErrInvalidTransition = errors.New("status transition not allowed")

	ErrForbidden = errors.New("actor may not modify this appointment")
)
