package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CST438P3G6/slotbook/internal/conflict"
	"github.com/CST438P3G6/slotbook/internal/model"
)

var ErrInvalidParameters = errors.New("duration and step must be positive")

// HoursSource loads a business's weekly schedule.
type HoursSource interface {
	WeeklyHours(ctx context.Context, businessID string) ([]model.BusinessHours, error)
}

// ConflictSource lists the occupied intervals of a business within a window.
type ConflictSource interface {
	IntervalsWithin(ctx context.Context, businessID string, from, to time.Time) ([]conflict.Interval, error)
}

// Generator computes bookable slots from business hours and existing
// appointments. It holds no mutable state of its own; results are a pure
// function of the inputs and the stored rows, so a call can always be
// repeated. An optional cache memoises results per business until a change
// feed event invalidates them.
type Generator struct {
	hours     HoursSource
	conflicts ConflictSource
	cache     *Cache
}

func NewGenerator(hours HoursSource, conflicts ConflictSource, cache *Cache) *Generator {
	return &Generator{hours: hours, conflicts: conflicts, cache: cache}
}

// Slots returns every bookable slot for the business between the `from` and
// `to` dates inclusive, in ascending (day, start) order. A slot starts on a
// step-interval cursor within an open window, lasts exactly duration, must
// end by closing time (a trailing partial slot is dropped, not clipped), and
// must not overlap any occupying appointment. Adjacent slots may share a
// boundary instant.
func (g *Generator) Slots(ctx context.Context, businessID string, duration, step time.Duration, from, to time.Time) ([]model.Slot, error) {
	if duration <= 0 || step <= 0 {
		return nil, ErrInvalidParameters
	}

	key := fmt.Sprintf("%d|%d|%d|%d", duration, step, dateOf(from).Unix(), dateOf(to).Unix())
	if g.cache != nil {
		if slots, ok := g.cache.get(businessID, key); ok {
			return slots, nil
		}
	}

	week, err := g.hours.WeeklyHours(ctx, businessID)
	if err != nil {
		return nil, err
	}
	windows := OpenIntervals(week, from, to)
	if len(windows) == 0 {
		return []model.Slot{}, nil
	}

	busy, err := g.conflicts.IntervalsWithin(ctx, businessID, windows[0].Open, windows[len(windows)-1].Close)
	if err != nil {
		return nil, err
	}

	slots := []model.Slot{}
	for _, win := range windows {
		slots = append(slots, walkWindow(win, duration, step, busy)...)
	}

	if g.cache != nil {
		g.cache.put(businessID, key, slots)
	}
	return slots, nil
}

// walkWindow advances a cursor from open to close in step increments and
// keeps each candidate [cursor, cursor+duration) that fits before close and
// overlaps nothing.
func walkWindow(win OpenInterval, duration, step time.Duration, busy []conflict.Interval) []model.Slot {
	var out []model.Slot
	for t := win.Open; !t.Add(duration).After(win.Close); t = t.Add(step) {
		candidate := conflict.Interval{Start: t, End: t.Add(duration)}
		if overlapsAny(candidate, busy) {
			continue
		}
		out = append(out, model.Slot{Day: win.Day, Start: candidate.Start, End: candidate.End})
	}
	return out
}

func overlapsAny(candidate conflict.Interval, busy []conflict.Interval) bool {
	for _, b := range busy {
		if conflict.Overlaps(candidate, b) {
			return true
		}
	}
	return false
}
