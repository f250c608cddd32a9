package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidFormat = errors.New("invalid duration format")

// ParseDuration parses "HH:MM" or "HH:MM:SS" into an elapsed duration.
// Components must be plain digits; minutes and seconds must be below 60.
// Hours are unbounded (a 30-hour service duration is nonsense but not a
// parse error).
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := parseComponent(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
		nums[i] = n
	}

	hours, minutes := nums[0], nums[1]
	seconds := 0
	if len(nums) == 3 {
		seconds = nums[2]
	}
	if minutes >= 60 || seconds >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second, nil
}

// FormatDuration renders a duration as "HH:MM:SS". It is the inverse of
// ParseDuration for any value ParseDuration can produce.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// ParseClock parses a time-of-day string ("HH:MM" or "HH:MM:SS", seconds
// must be zero) into minutes from midnight. "24:00" is accepted as
// end-of-day so a window may close at midnight.
func ParseClock(s string) (int, error) {
	d, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d%time.Minute != 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	mins := int(d / time.Minute)
	if mins > 24*60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return mins, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

func parseComponent(p string) (int, error) {
	if p == "" {
		return 0, ErrInvalidFormat
	}
	n := 0
	for _, c := range p {
		if c < '0' || c > '9' {
			return 0, ErrInvalidFormat
		}
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return 0, ErrInvalidFormat
		}
	}
	return n, nil
}
