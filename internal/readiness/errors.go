package readiness

import (
	"fmt"

	"github.com/readiness/internal/calendar"
)

// InvalidScheduleError reports a non-flexible shift whose end is not after its
// start.
type InvalidScheduleError struct {
	WorkerID  string
	Date      calendar.Date
	ShiftType ShiftType
	Start     calendar.ClockTime
	End       calendar.ClockTime
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule for worker %s on %s: %s shift ends %s, not after start %s",
		e.WorkerID, e.Date, e.ShiftType, e.End, e.Start)
}

// InvalidExceptionRangeError reports an exception that ends before it starts.
type InvalidExceptionRangeError struct {
	ExceptionID string
	WorkerID    string
	Start       calendar.Date
	End         calendar.Date
}

func (e *InvalidExceptionRangeError) Error() string {
	return fmt.Sprintf("invalid exception %s for worker %s: ends %s before start %s",
		e.ExceptionID, e.WorkerID, e.End, e.Start)
}

// InvalidPlanRangeError reports a plan duration outside 1..MaxPlanDays.
type InvalidPlanRangeError struct {
	PlanID       string
	DurationDays int
	Max          int
}

func (e *InvalidPlanRangeError) Error() string {
	return fmt.Sprintf("invalid rehabilitation plan %s: duration %d days outside 1..%d",
		e.PlanID, e.DurationDays, e.Max)
}

// DataUnavailableError means a collaborator failed or handed over malformed
// data. It is never a stand-in for "no data".
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("data unavailable: %s", e.Source)
	}
	return fmt.Sprintf("data unavailable: %s: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a DataUnavailableError for source. It returns nil
// for a nil err.
func Unavailable(source string, err error) error {
	if err == nil {
		return nil
	}
	return &DataUnavailableError{Source: source, Err: err}
}
