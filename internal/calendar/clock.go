package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxClockTime is the latest clock time accepted: overnight shifts write their
// end on the next day as 24:00 and above.
const MaxClockTime = ClockTime(48*60 - 1)

// ClockTime is a wall-clock time of day in minutes after midnight.
type ClockTime int

// Clock builds a ClockTime from hours and minutes.
func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses HH:MM (or H:MM). Hours up to 47 are allowed for shifts
// that end after midnight.
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	c := Clock(h, m)
	if c > MaxClockTime {
		return 0, fmt.Errorf("invalid time %q: past %s", s, MaxClockTime)
	}
	return c, nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

// Add shifts the clock time by d, truncated to whole minutes.
func (c ClockTime) Add(d time.Duration) ClockTime {
	return c + ClockTime(d/time.Minute)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = 0
		return nil
	}
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
