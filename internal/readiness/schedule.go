package readiness

import (
	"fmt"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/work"
)

// ScheduleResult is the resolved shift for one worker and day.
type ScheduleResult struct {
	Date          calendar.Date      `json:"date"`
	HasShift      bool               `json:"has_shift"`
	ShiftType     ShiftType          `json:"shift_type,omitempty"`
	ShiftStart    calendar.ClockTime `json:"shift_start"`
	ShiftEnd      calendar.ClockTime `json:"shift_end"`
	CheckInWindow *CheckInWindow     `json:"check_in_window,omitempty"`
	Source        ScheduleSource     `json:"source"`
}

// ResolveSchedule finds the worker's shift on date and derives its check-in
// window. A missing entry is not an error: it resolves to HasShift=false with
// Source=none.
func (e *Engine) ResolveSchedule(snap *Snapshot, date calendar.Date) (ScheduleResult, error) {
	if snap == nil {
		return ScheduleResult{}, &DataUnavailableError{Source: "schedule", Err: fmt.Errorf("no snapshot")}
	}
	entry, err := scheduleEntryFor(snap, date)
	if err != nil {
		return ScheduleResult{}, err
	}
	if entry == nil {
		return ScheduleResult{Date: date, Source: SourceNone}, nil
	}
	return e.resolveEntry(*entry)
}

func (e *Engine) resolveEntry(entry ScheduleEntry) (ScheduleResult, error) {
	result := ScheduleResult{
		Date:       entry.Date,
		ShiftType:  entry.ShiftType,
		ShiftStart: entry.ShiftStart,
		ShiftEnd:   entry.ShiftEnd,
		Source:     SourceAssigned,
	}

	switch entry.ShiftType {
	case ShiftFlexible:
		if !work.IsWorkDay(entry.Date) {
			return result, nil
		}
		if entry.ShiftStart == 0 && entry.ShiftEnd == 0 {
			result.ShiftStart = work.FlexibleShiftStart
			result.ShiftEnd = work.FlexibleShiftEnd
		}
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		if entry.ShiftEnd <= entry.ShiftStart {
			return ScheduleResult{}, &InvalidScheduleError{
				WorkerID:  entry.WorkerID,
				Date:      entry.Date,
				ShiftType: entry.ShiftType,
				Start:     entry.ShiftStart,
				End:       entry.ShiftEnd,
			}
		}
	default:
		return ScheduleResult{}, &DataUnavailableError{
			Source: "schedule",
			Err:    fmt.Errorf("worker %s on %s: unknown shift type %q", entry.WorkerID, entry.Date, entry.ShiftType),
		}
	}

	result.HasShift = true
	window := e.checkInWindow(entry.Date, result.ShiftStart)
	result.CheckInWindow = &window
	return result, nil
}

// checkInWindow anchors on the shift start, not its end: workers check in
// before or at the start of their shift.
func (e *Engine) checkInWindow(date calendar.Date, start calendar.ClockTime) CheckInWindow {
	startAt := date.At(start, e.policy.Location)
	return CheckInWindow{
		WindowStart:      startAt.Add(-e.policy.CheckInLead),
		WindowEnd:        startAt.Add(e.policy.CheckInLag),
		RecommendedStart: startAt.Add(-e.policy.RecommendedLead),
		RecommendedEnd:   startAt,
	}
}

func scheduleEntryFor(snap *Snapshot, date calendar.Date) (*ScheduleEntry, error) {
	var found *ScheduleEntry
	for i := range snap.Schedules {
		entry := &snap.Schedules[i]
		if entry.WorkerID != snap.WorkerID || !entry.Date.Equal(date) {
			continue
		}
		if found != nil {
			return nil, &DataUnavailableError{
				Source: "schedule",
				Err:    fmt.Errorf("worker %s has more than one shift on %s", snap.WorkerID, date),
			}
		}
		found = entry
	}
	return found, nil
}

// earliestSchedule returns the first scheduled date for the worker, or false.
func earliestSchedule(snap *Snapshot) (calendar.Date, bool) {
	var earliest calendar.Date
	found := false
	for _, entry := range snap.Schedules {
		if entry.WorkerID != snap.WorkerID {
			continue
		}
		if !found || entry.Date.Before(earliest) {
			earliest = entry.Date
			found = true
		}
	}
	return earliest, found
}
