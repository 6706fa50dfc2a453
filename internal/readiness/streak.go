package readiness

import (
	"fmt"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/work"
)

// Badge is the achievement derived from the current streak only; badge
// history is not tracked here.
type Badge struct {
	HasSevenDayBadge bool `json:"has_seven_day_badge"`
	HighestMilestone int  `json:"highest_milestone"`
}

// StreakState is the rolled-up history of scheduled days up to an as-of date.
type StreakState struct {
	WorkerID            string          `json:"worker_id"`
	AsOf                calendar.Date   `json:"as_of"`
	CurrentStreak       int             `json:"current_streak"`
	LongestStreak       int             `json:"longest_streak"`
	CompletedDays       int             `json:"completed_days"`
	TotalScheduledDays  int             `json:"total_scheduled_days"`
	PastScheduledDays   int             `json:"past_scheduled_days"`
	MissedScheduleDates []calendar.Date `json:"missed_schedule_dates"`
	NextMilestone       int             `json:"next_milestone"`
	Badge               Badge           `json:"badge"`
}

// ComputeStreak walks every day from the worker's earliest schedule entry up
// to asOf and counts consecutive completed shift days.
//
// Days without a shift and excepted days neither extend nor break the streak.
// A pending or partial shift day before asOf is missed and resets the streak;
// on asOf itself it is still open and leaves the streak alone.
//
// The walk is linear in the snapshot's history, so callers should bound the
// snapshot's date range.
func (e *Engine) ComputeStreak(snap *Snapshot, asOf calendar.Date) (StreakState, error) {
	if snap == nil {
		return StreakState{}, &DataUnavailableError{Source: "streak", Err: fmt.Errorf("no snapshot")}
	}
	state := StreakState{
		WorkerID:            snap.WorkerID,
		AsOf:                asOf,
		MissedScheduleDates: []calendar.Date{},
	}

	for _, entry := range snap.Schedules {
		// shifts after asOf are counted here; the walk below covers the rest
		if entry.WorkerID != snap.WorkerID || !entry.Date.After(asOf) {
			continue
		}
		resolved, err := e.resolveEntry(entry)
		if err != nil {
			return StreakState{}, err
		}
		if resolved.HasShift {
			state.TotalScheduledDays++
		}
	}

	first, ok := earliestSchedule(snap)
	if !ok || first.After(asOf) {
		e.finishStreak(&state, 0)
		return state, nil
	}

	running := 0
	for _, date := range calendar.Range(first, asOf) {
		day, err := e.EvaluateDay(snap, date)
		if err != nil {
			return StreakState{}, err
		}
		if !day.Schedule.HasShift {
			continue
		}
		if date.Before(asOf) {
			state.PastScheduledDays++
		}
		state.TotalScheduledDays++

		switch day.State {
		case StateNotRequired, StateExcepted:
			continue
		case StateComplete:
			running++
			state.CompletedDays++
			if running > state.LongestStreak {
				state.LongestStreak = running
			}
		case StatePending, StatePartial:
			if date.Before(asOf) {
				running = 0
				state.MissedScheduleDates = append(state.MissedScheduleDates, date)
			}
		default:
			return StreakState{}, fmt.Errorf("streak: unhandled obligation state %q on %s", day.State, date)
		}
	}

	e.finishStreak(&state, running)
	return state, nil
}

func (e *Engine) finishStreak(state *StreakState, running int) {
	state.CurrentStreak = running
	state.NextMilestone = work.NextMilestone(running, e.policy.Milestones)
	state.Badge = Badge{
		HasSevenDayBadge: running >= work.SevenDayBadge,
		HighestMilestone: work.HighestMilestone(running, e.policy.Milestones),
	}
}
