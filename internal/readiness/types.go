package readiness

import (
	"fmt"
	"time"

	"github.com/readiness/internal/calendar"
)

// ShiftType classifies a scheduled shift.
type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftNight     ShiftType = "night"
	ShiftFlexible  ShiftType = "flexible"
)

func (t ShiftType) Valid() bool {
	switch t {
	case ShiftMorning, ShiftAfternoon, ShiftNight, ShiftFlexible:
		return true
	}
	return false
}

// ParseShiftType rejects values outside the closed set.
func ParseShiftType(s string) (ShiftType, error) {
	if t := ShiftType(s); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown shift type %q", s)
}

// ScheduleSource says where a resolved schedule came from.
type ScheduleSource string

const (
	SourceAssigned ScheduleSource = "assigned"
	SourceNone     ScheduleSource = "none"
)

// ExceptionType classifies why a worker's check-in obligation is suspended.
type ExceptionType string

const (
	ExceptionInjury       ExceptionType = "injury"
	ExceptionMedicalLeave ExceptionType = "medical_leave"
	ExceptionAccident     ExceptionType = "accident"
	ExceptionTransfer     ExceptionType = "transfer"
	ExceptionOther        ExceptionType = "other"
)

func (t ExceptionType) Valid() bool {
	switch t {
	case ExceptionInjury, ExceptionMedicalLeave, ExceptionAccident, ExceptionTransfer, ExceptionOther:
		return true
	}
	return false
}

func ParseExceptionType(s string) (ExceptionType, error) {
	if t := ExceptionType(s); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown exception type %q", s)
}

// Readiness is the worker's self-reported traffic light.
type Readiness string

const (
	ReadinessGreen Readiness = "green"
	ReadinessAmber Readiness = "amber"
	ReadinessRed   Readiness = "red"
)

func (r Readiness) Valid() bool {
	switch r {
	case ReadinessGreen, ReadinessAmber, ReadinessRed:
		return true
	}
	return false
}

func ParseReadiness(s string) (Readiness, error) {
	if r := Readiness(s); r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("unknown readiness %q", s)
}

// PlanStatus is a rehabilitation plan's lifecycle state. completed and
// cancelled are terminal.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

func (p PlanStatus) Valid() bool {
	switch p {
	case PlanActive, PlanCompleted, PlanCancelled:
		return true
	}
	return false
}

func ParsePlanStatus(s string) (PlanStatus, error) {
	if p := PlanStatus(s); p.Valid() {
		return p, nil
	}
	return "", fmt.Errorf("unknown plan status %q", s)
}

// Terminal reports whether no further transition is allowed.
func (p PlanStatus) Terminal() bool {
	switch p {
	case PlanCompleted, PlanCancelled:
		return true
	case PlanActive:
		return false
	}
	return false
}

// ObligationState is the per-day status computed by EvaluateDay.
type ObligationState string

const (
	StateNotRequired ObligationState = "not_required"
	StateExcepted    ObligationState = "excepted"
	StatePending     ObligationState = "pending"
	StatePartial     ObligationState = "partial"
	StateComplete    ObligationState = "complete"
)

// ScheduleEntry is one assigned shift for one worker on one day.
type ScheduleEntry struct {
	WorkerID   string             `json:"worker_id"`
	Date       calendar.Date      `json:"date"`
	ShiftType  ShiftType          `json:"shift_type"`
	ShiftStart calendar.ClockTime `json:"shift_start"`
	ShiftEnd   calendar.ClockTime `json:"shift_end"`
}

// CheckInWindow is derived from a shift's start. Only WindowStart/WindowEnd
// decide whether a check-in was on time.
type CheckInWindow struct {
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	RecommendedStart time.Time `json:"recommended_start"`
	RecommendedEnd   time.Time `json:"recommended_end"`
}

// Contains reports whether t falls inside [WindowStart, WindowEnd].
func (w CheckInWindow) Contains(t time.Time) bool {
	return !t.Before(w.WindowStart) && !t.After(w.WindowEnd)
}

// ExceptionRecord suspends check-ins between StartDate and EndDate. A nil
// EndDate is open-ended.
type ExceptionRecord struct {
	ID         string         `json:"id"`
	WorkerID   string         `json:"worker_id"`
	Type       ExceptionType  `json:"type"`
	StartDate  calendar.Date  `json:"start_date"`
	EndDate    *calendar.Date `json:"end_date,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	CaseStatus string         `json:"case_status,omitempty"`
}

// Contains reports whether the exception covers d.
func (e ExceptionRecord) Contains(d calendar.Date) bool {
	return calendar.InRange(d, e.StartDate, e.EndDate)
}

// CheckInRecord is a worker's daily readiness report.
type CheckInRecord struct {
	ID                 string        `json:"id"`
	WorkerID           string        `json:"worker_id"`
	Date               calendar.Date `json:"date"`
	At                 time.Time     `json:"at"`
	PredictedReadiness Readiness     `json:"predicted_readiness"`
	ShiftType          ShiftType     `json:"shift_type,omitempty"`
}

// Exercise is one item of a plan day's exercise set.
type Exercise struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Repetitions  int    `json:"repetitions"`
	Instructions string `json:"instructions,omitempty"`
}

// RehabPlan is a clinician-authored, day-indexed exercise program.
type RehabPlan struct {
	ID           string        `json:"id"`
	WorkerID     string        `json:"worker_id"`
	StartDate    calendar.Date `json:"start_date"`
	DurationDays int           `json:"duration_days"`
	Exercises    []Exercise    `json:"exercises"`
	Status       PlanStatus    `json:"status"`
}

// LastDate is the date of the plan's final day.
func (p RehabPlan) LastDate() calendar.Date {
	return p.StartDate.AddDays(p.DurationDays - 1)
}

// DayOf returns the 1-based plan day for d, or 0 when d is outside the plan.
func (p RehabPlan) DayOf(d calendar.Date) int {
	if d.Before(p.StartDate) || d.After(p.LastDate()) {
		return 0
	}
	return calendar.DaysBetween(p.StartDate, d) + 1
}

// ExerciseCompletion marks one exercise done for one plan day.
type ExerciseCompletion struct {
	PlanID     string        `json:"plan_id"`
	Date       calendar.Date `json:"date"`
	ExerciseID string        `json:"exercise_id"`
}

// Snapshot is everything the engine knows about one worker. It is assembled
// by the caller; the engine never fetches.
type Snapshot struct {
	WorkerID    string
	Schedules   []ScheduleEntry
	Exceptions  []ExceptionRecord
	CheckIns    []CheckInRecord
	Plan        *RehabPlan
	Completions []ExerciseCompletion
}
