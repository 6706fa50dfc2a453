package visualization

import (
	"strings"
	"testing"
	"time"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
)

func sampleDays() []readiness.DayObligation {
	start := calendar.MustParseDate("2024-01-01") // Monday
	states := []readiness.ObligationState{
		readiness.StateComplete, readiness.StateComplete, readiness.StatePending,
		readiness.StateExcepted, readiness.StatePartial, readiness.StateNotRequired,
		readiness.StateNotRequired, readiness.StateComplete,
	}
	days := make([]readiness.DayObligation, len(states))
	for i, s := range states {
		days[i] = readiness.DayObligation{WorkerID: "w-1", Date: start.AddDays(i), State: s}
	}
	return days
}

func TestGenerateStreakSVGBasics(t *testing.T) {
	v := New()
	streak := readiness.StreakState{CurrentStreak: 1, LongestStreak: 2, NextMilestone: 7}

	svg := v.GenerateStreakSVG(sampleDays(), streak)

	assertContains(t, svg, "<?xml")
	assertContains(t, svg, "Readiness Streak")
	assertContains(t, svg, "Monday, Jan 1 - Monday, Jan 8")
	assertContains(t, svg, "Current: 1 | Longest: 2 | Next: 7 days")
	assertContains(t, svg, ">Mon</text>")
	assertContains(t, svg, ">Sun</text>")
	assertContains(t, svg, "<title>2024-01-03: pending</title>")

	// background + 8 days + 5 legend swatches
	rectCount := strings.Count(svg, "<rect")
	if rectCount != 14 {
		t.Fatalf("expected 14 rects, got %d", rectCount)
	}
}

func TestGenerateStreakSVGEmpty(t *testing.T) {
	svg := New().GenerateStreakSVG(nil, readiness.StreakState{})

	assertContains(t, svg, "no days")
	assertContains(t, svg, "Next: all milestones reached")
	if rectCount := strings.Count(svg, "<rect"); rectCount != 6 {
		t.Fatalf("expected 6 rects (background + legend), got %d", rectCount)
	}
}

func TestWeekLayout(t *testing.T) {
	first := calendar.MustParseDate("2024-01-03") // Wednesday
	tests := []struct {
		date   string
		week   int
		offset int
	}{
		{"2024-01-03", 0, 2},
		{"2024-01-07", 0, 6},
		{"2024-01-08", 1, 0},
		{"2024-01-21", 2, 6},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d := calendar.MustParseDate(tt.date)
			if got := weekIndex(first, d); got != tt.week {
				t.Errorf("weekIndex(%s) = %d, want %d", tt.date, got, tt.week)
			}
			if got := mondayOffset(d); got != tt.offset {
				t.Errorf("mondayOffset(%s) = %d, want %d", tt.date, got, tt.offset)
			}
		})
	}
}

func TestGenerateHTMLReport(t *testing.T) {
	v := New()
	v.now = func() time.Time { return time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC) }
	day := readiness.DayObligation{
		WorkerID:        "w-1",
		Date:            calendar.MustParseDate("2024-01-08"),
		State:           readiness.StatePartial,
		ProgressPercent: 50,
	}
	streak := readiness.StreakState{
		CurrentStreak:       1,
		LongestStreak:       2,
		MissedScheduleDates: []calendar.Date{calendar.MustParseDate("2024-01-03")},
	}
	plan := &readiness.PlanProgress{CurrentDay: 3, DurationDays: 10, DaysCompleted: 2, ProgressPercent: 20}

	html := v.GenerateHTMLReport(day, streak, plan)

	assertContains(t, html, "<!DOCTYPE html>")
	assertContains(t, html, "Readiness Report: w-1")
	assertContains(t, html, "Generated on Monday, January 8, 2024")
	assertContains(t, html, "style=\"width: 20%\"")
	assertContains(t, html, "Day 3 of 10 | 2 days complete")
	assertContains(t, html, "<td>2024-01-03</td><td>Wed</td>")

	if rowCount := strings.Count(html, "<tr><td>"); rowCount != 1 {
		t.Fatalf("expected 1 missed row, got %d", rowCount)
	}

	noPlan := v.GenerateHTMLReport(day, streak, nil)
	assertContains(t, noPlan, "No active rehabilitation plan")
}

func assertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q", needle)
	}
}
