package conflict

import (
	"context"
	"time"

	"github.com/CST438P3G6/slotbook/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps uses half-open semantics: [a.Start,a.End) overlaps [b.Start,b.End)
// iff a.Start < b.End && b.Start < a.End. Intervals sharing a boundary
// instant do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Store lists appointments in occupying statuses (pending, confirmed,
// completed) for a business whose intervals intersect [from, to). The
// business is resolved through the owning service.
type Store interface {
	ListOccupying(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error)
}

// Index answers overlap queries against the existing appointments of a
// business.
type Index struct {
	store Store
}

func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// IntervalsWithin returns the occupied intervals of a business intersecting
// [from, to), in ascending start order.
func (i *Index) IntervalsWithin(ctx context.Context, businessID string, from, to time.Time) ([]Interval, error) {
	appts, err := i.store.ListOccupying(ctx, businessID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]Interval, 0, len(appts))
	for _, a := range appts {
		out = append(out, Interval{Start: a.StartTime, End: a.EndTime})
	}
	return out, nil
}

// HasConflict reports whether the candidate interval overlaps any occupying
// appointment of the business. excludeID skips one appointment, for
// reschedule checks against the appointment being moved.
func (i *Index) HasConflict(ctx context.Context, businessID string, start, end time.Time, excludeID string) (bool, error) {
	appts, err := i.store.ListOccupying(ctx, businessID, start, end)
	if err != nil {
		return false, err
	}
	candidate := Interval{Start: start, End: end}
	for _, a := range appts {
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		if Overlaps(candidate, Interval{Start: a.StartTime, End: a.EndTime}) {
			return true, nil
		}
	}
	return false, nil
}
