package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/readiness/internal/calendar"
)

func workerFlag(cmd *cobra.Command) (string, error) {
	worker, _ := cmd.Flags().GetString("worker")
	if worker == "" {
		return "", fmt.Errorf("--worker is required")
	}
	return worker, nil
}

// dateFlag reads a YYYY-MM-DD flag, defaulting to today.
func dateFlag(cmd *cobra.Command, name string, today calendar.Date) (calendar.Date, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return today, nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// parseAt accepts HH:MM on date in loc, or a full RFC 3339 instant. An empty
// value means now.
func parseAt(raw string, date calendar.Date, loc *time.Location, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	clock, err := calendar.ParseClock(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (use HH:MM or RFC 3339)", raw)
	}
	return date.At(clock, loc), nil
}
