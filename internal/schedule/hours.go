package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/CST438P3G6/slotbook/internal/model"
)

var ErrInvalidHours = errors.New("close time must be after open time")

const minutesPerDay = 24 * 60

// OpenInterval is one concrete open window of a business on a single
// calendar day, bounded within that day. Overnight windows are not
// supported.
type OpenInterval struct {
	Day   time.Time
	Open  time.Time
	Close time.Time
}

// ValidateHours checks a weekly hours row at write time. A row with both
// open and close at 00:00 marks the day closed and is always valid; any
// other configuration requires 0 <= open < close <= 24:00.
func ValidateHours(h model.BusinessHours) error {
	if h.Closed() {
		return nil
	}
	if h.OpenMinute < 0 || h.CloseMinute > minutesPerDay {
		return fmt.Errorf("%w: %s-%s", ErrInvalidHours, FormatClock(h.OpenMinute), FormatClock(h.CloseMinute))
	}
	if h.CloseMinute <= h.OpenMinute {
		return fmt.Errorf("%w: %s-%s", ErrInvalidHours, FormatClock(h.OpenMinute), FormatClock(h.CloseMinute))
	}
	return nil
}

// OpenIntervals expands a weekly schedule into concrete UTC open windows for
// each date from `from` through `to` inclusive. Dates whose weekday is
// closed, or has no row at all, yield no interval. Rows are assumed
// validated at write time; a malformed row is skipped rather than expanded.
func OpenIntervals(week []model.BusinessHours, from, to time.Time) []OpenInterval {
	byDay := make(map[time.Weekday]model.BusinessHours, len(week))
	for _, h := range week {
		byDay[h.Weekday] = h
	}

	var out []OpenInterval
	for day := dateOf(from); !day.After(dateOf(to)); day = day.AddDate(0, 0, 1) {
		h, ok := byDay[day.Weekday()]
		if !ok || h.Closed() || ValidateHours(h) != nil {
			continue
		}
		out = append(out, OpenInterval{
			Day:   day,
			Open:  day.Add(time.Duration(h.OpenMinute) * time.Minute),
			Close: day.Add(time.Duration(h.CloseMinute) * time.Minute),
		})
	}
	return out
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
