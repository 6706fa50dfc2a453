package readiness

import (
	"fmt"

	"github.com/readiness/internal/calendar"
)

// ActiveExceptionFor returns the exception suspending the worker's check-in on
// date, or nil.
//
// When several exceptions cover the date the one with the latest StartDate
// wins. Equal starts prefer an open-ended exception, then the greater ID, so
// the choice never depends on record order.
//
// Every exception of the worker is range-checked, including ones that do not
// touch date: a record ending before it starts is an integrity fault, not a
// quiet "no exception".
func (e *Engine) ActiveExceptionFor(snap *Snapshot, date calendar.Date) (*ExceptionRecord, error) {
	if snap == nil {
		return nil, &DataUnavailableError{Source: "exceptions", Err: fmt.Errorf("no snapshot")}
	}
	var active *ExceptionRecord
	for i := range snap.Exceptions {
		ex := &snap.Exceptions[i]
		if ex.WorkerID != snap.WorkerID {
			continue
		}
		if ex.EndDate != nil && ex.EndDate.Before(ex.StartDate) {
			return nil, &InvalidExceptionRangeError{
				ExceptionID: ex.ID,
				WorkerID:    ex.WorkerID,
				Start:       ex.StartDate,
				End:         *ex.EndDate,
			}
		}
		if !ex.Contains(date) {
			continue
		}
		if active == nil || outranks(ex, active) {
			active = ex
		}
	}
	if active == nil {
		return nil, nil
	}
	found := *active
	return &found, nil
}

func outranks(a, b *ExceptionRecord) bool {
	if c := a.StartDate.Compare(b.StartDate); c != 0 {
		return c > 0
	}
	if (a.EndDate == nil) != (b.EndDate == nil) {
		return a.EndDate == nil
	}
	return a.ID > b.ID
}
