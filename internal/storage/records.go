package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
)

// Schedules returns the worker's shifts with dates in [from, to].
func (d *Database) Schedules(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.ScheduleEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT worker_id, date, shift_type, shift_start, shift_end
		 FROM schedules WHERE worker_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		workerID, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query schedules: %w", err)
	}
	defer rows.Close()

	var entries []readiness.ScheduleEntry
	for rows.Next() {
		var entry readiness.ScheduleEntry
		var date, shiftType, start, end string
		if err := rows.Scan(&entry.WorkerID, &date, &shiftType, &start, &end); err != nil {
			return nil, err
		}
		if entry.Date, err = calendar.ParseDate(date); err != nil {
			return nil, fmt.Errorf("storage: schedule for %s: %w", workerID, err)
		}
		if entry.ShiftType, err = readiness.ParseShiftType(shiftType); err != nil {
			return nil, fmt.Errorf("storage: schedule for %s on %s: %w", workerID, date, err)
		}
		if entry.ShiftStart, err = parseClockColumn(start); err != nil {
			return nil, fmt.Errorf("storage: schedule for %s on %s: %w", workerID, date, err)
		}
		if entry.ShiftEnd, err = parseClockColumn(end); err != nil {
			return nil, fmt.Errorf("storage: schedule for %s on %s: %w", workerID, date, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpsertSchedule assigns (or replaces) the worker's shift for entry.Date.
func (d *Database) UpsertSchedule(ctx context.Context, entry readiness.ScheduleEntry) error {
	return upsertSchedule(ctx, d.db, entry)
}

func upsertSchedule(ctx context.Context, ex execer, entry readiness.ScheduleEntry) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO schedules (worker_id, date, shift_type, shift_start, shift_end)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(worker_id, date) DO UPDATE SET
		   shift_type = excluded.shift_type,
		   shift_start = excluded.shift_start,
		   shift_end = excluded.shift_end`,
		entry.WorkerID, entry.Date.String(), string(entry.ShiftType),
		entry.ShiftStart.String(), entry.ShiftEnd.String(),
	)
	if err != nil {
		return fmt.Errorf("storage: upsert schedule: %w", err)
	}
	return nil
}

// Exceptions returns the worker's exceptions overlapping [from, to]. Rows whose
// end precedes their start are always returned so the engine can reject them.
func (d *Database) Exceptions(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.ExceptionRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, worker_id, exception_type, start_date, end_date, reason, case_status
		 FROM exceptions
		 WHERE worker_id = ?
		   AND ((start_date <= ? AND (end_date IS NULL OR end_date >= ?)) OR end_date < start_date)
		 ORDER BY start_date ASC`,
		workerID, to.String(), from.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query exceptions: %w", err)
	}
	defer rows.Close()

	var records []readiness.ExceptionRecord
	for rows.Next() {
		var rec readiness.ExceptionRecord
		var exType, start string
		var end, reason, caseStatus sql.NullString
		if err := rows.Scan(&rec.ID, &rec.WorkerID, &exType, &start, &end, &reason, &caseStatus); err != nil {
			return nil, err
		}
		if rec.Type, err = readiness.ParseExceptionType(exType); err != nil {
			return nil, fmt.Errorf("storage: exception %s: %w", rec.ID, err)
		}
		if rec.StartDate, err = calendar.ParseDate(start); err != nil {
			return nil, fmt.Errorf("storage: exception %s: %w", rec.ID, err)
		}
		if end.Valid {
			endDate, err := calendar.ParseDate(end.String)
			if err != nil {
				return nil, fmt.Errorf("storage: exception %s: %w", rec.ID, err)
			}
			rec.EndDate = &endDate
		}
		rec.Reason = reason.String
		rec.CaseStatus = caseStatus.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertException stores rec, assigning an id when it has none.
func (d *Database) InsertException(ctx context.Context, rec *readiness.ExceptionRecord) error {
	return insertException(ctx, d.db, rec)
}

func insertException(ctx context.Context, ex execer, rec *readiness.ExceptionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var end any
	if rec.EndDate != nil {
		end = rec.EndDate.String()
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO exceptions (id, worker_id, exception_type, start_date, end_date, reason, case_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkerID, string(rec.Type), rec.StartDate.String(), end, rec.Reason, rec.CaseStatus,
	)
	if err != nil {
		return fmt.Errorf("storage: insert exception: %w", err)
	}
	return nil
}

// CheckIns returns the worker's check-ins dated in [from, to].
func (d *Database) CheckIns(ctx context.Context, workerID string, from, to calendar.Date) ([]readiness.CheckInRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, worker_id, date, checked_in_at, predicted_readiness, shift_type
		 FROM check_ins WHERE worker_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC`,
		workerID, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query check-ins: %w", err)
	}
	defer rows.Close()

	var records []readiness.CheckInRecord
	for rows.Next() {
		var rec readiness.CheckInRecord
		var date, at, predicted string
		var shiftType sql.NullString
		if err := rows.Scan(&rec.ID, &rec.WorkerID, &date, &at, &predicted, &shiftType); err != nil {
			return nil, err
		}
		if rec.Date, err = calendar.ParseDate(date); err != nil {
			return nil, fmt.Errorf("storage: check-in %s: %w", rec.ID, err)
		}
		if rec.At, err = time.Parse(instantLayout, at); err != nil {
			return nil, fmt.Errorf("storage: check-in %s: invalid timestamp %q", rec.ID, at)
		}
		if rec.PredictedReadiness, err = readiness.ParseReadiness(predicted); err != nil {
			return nil, fmt.Errorf("storage: check-in %s: %w", rec.ID, err)
		}
		if shiftType.Valid && shiftType.String != "" {
			if rec.ShiftType, err = readiness.ParseShiftType(shiftType.String); err != nil {
				return nil, fmt.Errorf("storage: check-in %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertCheckIn stores rec. A second check-in for the same worker and date
// fails with ErrDuplicateCheckIn.
func (d *Database) InsertCheckIn(ctx context.Context, rec *readiness.CheckInRecord) error {
	return insertCheckIn(ctx, d.db, rec)
}

func insertCheckIn(ctx context.Context, ex execer, rec *readiness.CheckInRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO check_ins (id, worker_id, date, checked_in_at, predicted_readiness, shift_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkerID, rec.Date.String(), rec.At.Format(instantLayout),
		string(rec.PredictedReadiness), string(rec.ShiftType),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("storage: %s on %s: %w", rec.WorkerID, rec.Date, ErrDuplicateCheckIn)
	}
	if err != nil {
		return fmt.Errorf("storage: insert check-in: %w", err)
	}
	return nil
}

func parseClockColumn(s string) (calendar.ClockTime, error) {
	if s == "" {
		return 0, nil
	}
	return calendar.ParseClock(s)
}
