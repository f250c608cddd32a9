package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"00:30", 30 * time.Minute},
		{"01:00", time.Hour},
		{"01:30:15", time.Hour + 30*time.Minute + 15*time.Second},
		{"00:00", 0},
		{"100:00", 100 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDurationRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"", "90", "1:60", "1:00:60", "-1:00", "01:-5", "aa:bb",
		"1:2:3:4", "01: 30", "01:30 ", "+1:00",
	} {
		if _, err := ParseDuration(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("ParseDuration(%q): expected ErrInvalidFormat, got %v", in, err)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	for _, in := range []string{"00:30", "01:30:15", "09:00", "23:59:59", "48:00"} {
		d, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q) failed: %v", in, err)
		}
		back, err := ParseDuration(FormatDuration(d))
		if err != nil {
			t.Fatalf("ParseDuration(FormatDuration(%q)) failed: %v", in, err)
		}
		if back != d {
			t.Fatalf("round trip of %q: %v != %v", in, back, d)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(90 * time.Minute); got != "01:30:00" {
		t.Fatalf("FormatDuration(90m) = %q", got)
	}
	if got := FormatDuration(0); got != "00:00:00" {
		t.Fatalf("FormatDuration(0) = %q", got)
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"17:00", 1020},
		{"24:00", 1440},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if err != nil {
			t.Fatalf("ParseClock(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	for _, in := range []string{"25:00", "24:01", "09:00:30", "9:5:1:0"} {
		if _, err := ParseClock(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("ParseClock(%q): expected ErrInvalidFormat, got %v", in, err)
		}
	}
}
