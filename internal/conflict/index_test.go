package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/CST438P3G6/slotbook/internal/model"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func interval(startMin, endMin int) Interval {
	return Interval{Start: at(startMin), End: at(endMin)}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", interval(0, 30), interval(0, 30), true},
		{"partial", interval(0, 30), interval(15, 45), true},
		{"contained", interval(0, 60), interval(15, 30), true},
		{"disjoint", interval(0, 30), interval(60, 90), false},
		{"shared boundary", interval(0, 30), interval(30, 60), false},
		{"shared boundary reversed", interval(30, 60), interval(0, 30), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tc.b, tc.a); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.b, tc.a, got, tc.want)
			}
		})
	}
}

type fakeStore struct {
	appts []model.Appointment
}

func (f *fakeStore) ListOccupying(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	window := Interval{Start: from, End: to}
	var out []model.Appointment
	for _, a := range f.appts {
		if !a.Status.Occupies() {
			continue
		}
		if Overlaps(window, Interval{Start: a.StartTime, End: a.EndTime}) {
			out = append(out, a)
		}
	}
	return out, nil
}

func appt(id string, startMin, endMin int, status model.AppointmentStatus) model.Appointment {
	return model.Appointment{
		ID:         id,
		BusinessID: "biz-1",
		StartTime:  at(startMin),
		EndTime:    at(endMin),
		Status:     status,
	}
}

func TestHasConflict(t *testing.T) {
	idx := NewIndex(&fakeStore{appts: []model.Appointment{
		appt("a1", 60, 90, model.StatusConfirmed),
		appt("a2", 120, 150, model.StatusCancelled),
	}})
	ctx := context.Background()

	got, err := idx.HasConflict(ctx, "biz-1", at(75), at(105), "")
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if !got {
		t.Fatal("expected overlap with confirmed appointment")
	}

	// Cancelled appointments do not occupy their interval.
	got, err = idx.HasConflict(ctx, "biz-1", at(120), at(150), "")
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if got {
		t.Fatal("cancelled appointment should not conflict")
	}

	// Back-to-back with the confirmed appointment is allowed.
	got, err = idx.HasConflict(ctx, "biz-1", at(90), at(120), "")
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if got {
		t.Fatal("shared boundary should not conflict")
	}
}

func TestHasConflictExcludesAppointment(t *testing.T) {
	idx := NewIndex(&fakeStore{appts: []model.Appointment{
		appt("a1", 60, 90, model.StatusConfirmed),
	}})

	got, err := idx.HasConflict(context.Background(), "biz-1", at(60), at(90), "a1")
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if got {
		t.Fatal("appointment should not conflict with itself during reschedule")
	}
}

func TestIntervalsWithin(t *testing.T) {
	idx := NewIndex(&fakeStore{appts: []model.Appointment{
		appt("a1", 0, 30, model.StatusPending),
		appt("a2", 60, 90, model.StatusCompleted),
	}})

	got, err := idx.IntervalsWithin(context.Background(), "biz-1", at(0), at(480))
	if err != nil {
		t.Fatalf("IntervalsWithin failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(got))
	}
	if !got[0].Start.Equal(at(0)) || !got[1].Start.Equal(at(60)) {
		t.Fatalf("unexpected intervals: %v", got)
	}
}
