package readiness

import (
	"fmt"

	"github.com/readiness/internal/calendar"
)

// DayObligation is what one worker owed on one day and how much of it is done.
type DayObligation struct {
	WorkerID  string           `json:"worker_id"`
	Date      calendar.Date    `json:"date"`
	State     ObligationState  `json:"state"`
	Schedule  ScheduleResult   `json:"schedule"`
	Exception *ExceptionRecord `json:"exception,omitempty"`

	CheckInRequired bool           `json:"check_in_required"`
	CheckInDone     bool           `json:"check_in_done"`
	CheckIn         *CheckInRecord `json:"check_in,omitempty"`
	// CheckInOnTime is only meaningful when a check-in exists and the day has a
	// check-in window.
	CheckInOnTime bool `json:"check_in_on_time"`

	WarmUpRequired bool `json:"warm_up_required"`
	WarmUpDone     bool `json:"warm_up_done"`
	PlanDay        int  `json:"plan_day,omitempty"`

	ProgressPercent int `json:"progress_percent"`
}

// EvaluateDay computes the worker's obligation state for date.
//
// A check-in is required when the worker has a shift and no active exception.
// A warm-up is required when the snapshot's plan is active and covers date.
// The day is complete once every required item is done; with an active
// exception an unfinished day is excepted, never pending.
func (e *Engine) EvaluateDay(snap *Snapshot, date calendar.Date) (DayObligation, error) {
	if snap == nil {
		return DayObligation{}, &DataUnavailableError{Source: "obligation", Err: fmt.Errorf("no snapshot")}
	}
	schedule, err := e.ResolveSchedule(snap, date)
	if err != nil {
		return DayObligation{}, err
	}
	exception, err := e.ActiveExceptionFor(snap, date)
	if err != nil {
		return DayObligation{}, err
	}
	checkIn, err := checkInFor(snap, date)
	if err != nil {
		return DayObligation{}, err
	}

	day := DayObligation{
		WorkerID:  snap.WorkerID,
		Date:      date,
		Schedule:  schedule,
		Exception: exception,
		CheckIn:   checkIn,
	}
	day.CheckInRequired = schedule.HasShift && exception == nil
	day.CheckInDone = checkIn != nil
	if checkIn != nil && schedule.CheckInWindow != nil {
		day.CheckInOnTime = schedule.CheckInWindow.Contains(checkIn.At)
	}

	if plan := snap.Plan; plan != nil && plan.WorkerID == snap.WorkerID && plan.Status == PlanActive {
		if err := e.validatePlan(*plan); err != nil {
			return DayObligation{}, err
		}
		if n := plan.DayOf(date); n > 0 {
			day.PlanDay = n
			day.WarmUpRequired = true
			day.WarmUpDone = dayCovered(*plan, snap.Completions, date)
		}
	}

	day.State = obligationState(day)
	day.ProgressPercent = ProgressPercent(day)
	return day, nil
}

func obligationState(day DayObligation) ObligationState {
	if day.Exception != nil {
		if day.WarmUpRequired && day.WarmUpDone {
			return StateComplete
		}
		return StateExcepted
	}
	if !day.CheckInRequired && !day.WarmUpRequired {
		return StateNotRequired
	}
	checkInOK := day.CheckInDone || !day.CheckInRequired
	warmUpOK := day.WarmUpDone || !day.WarmUpRequired
	switch {
	case checkInOK && warmUpOK:
		return StateComplete
	case day.CheckInRequired && day.WarmUpRequired && (day.CheckInDone || day.WarmUpDone):
		return StatePartial
	default:
		return StatePending
	}
}

// ProgressPercent maps a day to the percentage the dashboard shows:
// with an exception only the warm-up counts (0/100); without a plan day only
// the check-in counts (0/100); otherwise 0/50/100 for neither/one/both.
func ProgressPercent(day DayObligation) int {
	switch {
	case day.Exception != nil:
		if day.WarmUpRequired && day.WarmUpDone {
			return 100
		}
		return 0
	case !day.WarmUpRequired:
		if day.CheckInDone {
			return 100
		}
		return 0
	}
	done := 0
	if day.CheckInDone {
		done++
	}
	if day.WarmUpDone {
		done++
	}
	return done * 50
}

func checkInFor(snap *Snapshot, date calendar.Date) (*CheckInRecord, error) {
	var found *CheckInRecord
	for i := range snap.CheckIns {
		c := &snap.CheckIns[i]
		if c.WorkerID != snap.WorkerID || !c.Date.Equal(date) {
			continue
		}
		if found != nil {
			return nil, &DataUnavailableError{
				Source: "check-ins",
				Err:    fmt.Errorf("worker %s has more than one check-in on %s", snap.WorkerID, date),
			}
		}
		found = c
	}
	if found == nil {
		return nil, nil
	}
	record := *found
	return &record, nil
}
