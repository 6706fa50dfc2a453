package work

import (
	"time"

	"github.com/readiness/internal/calendar"
)

// =============================================================================
// READINESS RULES CONFIGURATION
// =============================================================================
// Edit these values to match your site's check-in and rehabilitation policy.
//
// To customize:
// 1. Change CheckInLeadMinutes / CheckInLagMinutes for the on-time window
// 2. Change FlexibleShiftStart / FlexibleShiftEnd for flexible workers
// 3. Change StreakMilestones to reshape the badge ladder
// =============================================================================

const (
	// CheckInLeadMinutes - how early before shift start a check-in counts
	CheckInLeadMinutes = 60

	// CheckInLagMinutes - how long after shift start the window stays open
	CheckInLagMinutes = 30

	// RecommendedLeadMinutes - UI hint: "check in within 15 min of your shift"
	RecommendedLeadMinutes = 15

	// WarmUpUnlockHour - next plan day's warm-up opens at this local hour
	WarmUpUnlockHour = 6

	// MaxPlanDays - longest rehabilitation plan a clinician may author
	MaxPlanDays = 365

	// SevenDayBadge - streak length that unlocks the first badge
	SevenDayBadge = 7

	// DefaultStreakLookbackDays - history walked per streak computation
	DefaultStreakLookbackDays = 180
)

var (
	// FlexibleShiftStart / FlexibleShiftEnd apply when a flexible entry carries
	// no explicit bounds.
	FlexibleShiftStart = calendar.Clock(9, 0)
	FlexibleShiftEnd   = calendar.Clock(17, 0)

	// StreakMilestones - ascending streak thresholds
	StreakMilestones = []int{7, 14, 30, 60, 90, 180, 365}
)

// IsWorkDay returns true if the given day is a standard work day (Mon-Fri).
// Flexible schedules only oblige a check-in on work days.
func IsWorkDay(d calendar.Date) bool {
	day := d.Weekday()
	return day >= time.Monday && day <= time.Friday
}

// CheckInLead returns the window lead as a duration
func CheckInLead() time.Duration {
	return CheckInLeadMinutes * time.Minute
}

// CheckInLag returns the window lag as a duration
func CheckInLag() time.Duration {
	return CheckInLagMinutes * time.Minute
}

// WarmUpUnlock returns the clock time the next warm-up becomes available
func WarmUpUnlock() calendar.ClockTime {
	return calendar.Clock(WarmUpUnlockHour, 0)
}

// NextMilestone returns the smallest milestone strictly above streak, or 0
// once every milestone has been passed.
func NextMilestone(streak int, milestones []int) int {
	for _, m := range milestones {
		if m > streak {
			return m
		}
	}
	return 0
}

// HighestMilestone returns the largest milestone reached by streak, or 0.
func HighestMilestone(streak int, milestones []int) int {
	reached := 0
	for _, m := range milestones {
		if m <= streak {
			reached = m
		}
	}
	return reached
}
