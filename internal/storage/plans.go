package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/readiness/internal/calendar"
	"github.com/readiness/internal/readiness"
	"github.com/readiness/internal/work"
)

// ActiveRehabPlan returns the worker's active plan, or nil when there is none.
func (d *Database) ActiveRehabPlan(ctx context.Context, workerID string) (*readiness.RehabPlan, error) {
	var id string
	err := d.db.QueryRowContext(ctx,
		`SELECT id FROM rehab_plans WHERE worker_id = ? AND status = ?
		 ORDER BY start_date DESC LIMIT 1`,
		workerID, string(readiness.PlanActive),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: active plan: %w", err)
	}
	return d.Plan(ctx, id)
}

// Plan loads a plan and its exercises in authored order.
func (d *Database) Plan(ctx context.Context, id string) (*readiness.RehabPlan, error) {
	plan := &readiness.RehabPlan{ID: id}
	var start, status string
	err := d.db.QueryRowContext(ctx,
		`SELECT worker_id, start_date, duration_days, status FROM rehab_plans WHERE id = ?`, id,
	).Scan(&plan.WorkerID, &start, &plan.DurationDays, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: plan %s: %w", id, ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: plan %s: %w", id, err)
	}
	if plan.StartDate, err = calendar.ParseDate(start); err != nil {
		return nil, fmt.Errorf("storage: plan %s: %w", id, err)
	}
	if plan.Status, err = readiness.ParsePlanStatus(status); err != nil {
		return nil, fmt.Errorf("storage: plan %s: %w", id, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, repetitions, instructions FROM plan_exercises
		 WHERE plan_id = ? ORDER BY position ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: plan %s exercises: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var ex readiness.Exercise
		var instructions sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Name, &ex.Repetitions, &instructions); err != nil {
			return nil, err
		}
		ex.Instructions = instructions.String
		plan.Exercises = append(plan.Exercises, ex)
	}
	return plan, rows.Err()
}

// InsertPlan stores a new plan with its exercises. A worker can hold only one
// active plan at a time.
func (d *Database) InsertPlan(ctx context.Context, plan *readiness.RehabPlan) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		return insertPlan(ctx, tx, plan)
	})
}

func insertPlan(ctx context.Context, ex execer, plan *readiness.RehabPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.DurationDays <= 0 || plan.DurationDays > work.MaxPlanDays {
		return fmt.Errorf("storage: insert plan: %w", &readiness.InvalidPlanRangeError{
			PlanID:       plan.ID,
			DurationDays: plan.DurationDays,
			Max:          work.MaxPlanDays,
		})
	}
	if plan.Status == "" {
		plan.Status = readiness.PlanActive
	}
	if plan.Status == readiness.PlanActive {
		var n int
		if err := ex.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM rehab_plans WHERE worker_id = ? AND status = ?`,
			plan.WorkerID, string(readiness.PlanActive),
		).Scan(&n); err != nil {
			return fmt.Errorf("storage: count active plans: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("storage: %s: %w", plan.WorkerID, ErrActivePlanExists)
		}
	}

	if _, err := ex.ExecContext(ctx,
		`INSERT INTO rehab_plans (id, worker_id, start_date, duration_days, status)
		 VALUES (?, ?, ?, ?, ?)`,
		plan.ID, plan.WorkerID, plan.StartDate.String(), plan.DurationDays, string(plan.Status),
	); err != nil {
		return fmt.Errorf("storage: insert plan: %w", err)
	}
	for i, e := range plan.Exercises {
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO plan_exercises (plan_id, id, position, name, repetitions, instructions)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			plan.ID, e.ID, i, e.Name, e.Repetitions, e.Instructions,
		); err != nil {
			return fmt.Errorf("storage: insert exercise %s: %w", e.ID, err)
		}
	}
	return nil
}

// SetPlanStatus moves an active plan to a terminal status.
func (d *Database) SetPlanStatus(ctx context.Context, id string, status readiness.PlanStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("storage: plan %s: cannot transition to %q", id, status)
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM rehab_plans WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("storage: plan %s: %w", id, ErrPlanNotFound)
		}
		if err != nil {
			return fmt.Errorf("storage: plan %s: %w", id, err)
		}
		if readiness.PlanStatus(current) != readiness.PlanActive {
			return fmt.Errorf("storage: plan %s is %s: %w", id, current, ErrPlanNotActive)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE rehab_plans SET status = ? WHERE id = ?`, string(status), id,
		); err != nil {
			return fmt.Errorf("storage: update plan %s: %w", id, err)
		}
		return nil
	})
}

// ExerciseCompletions returns the plan's completions dated in [from, to].
func (d *Database) ExerciseCompletions(ctx context.Context, planID string, from, to calendar.Date) ([]readiness.ExerciseCompletion, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT plan_id, date, exercise_id FROM exercise_completions
		 WHERE plan_id = ? AND date >= ? AND date <= ?
		 ORDER BY date ASC, exercise_id ASC`,
		planID, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query completions: %w", err)
	}
	defer rows.Close()

	var out []readiness.ExerciseCompletion
	for rows.Next() {
		var c readiness.ExerciseCompletion
		var date string
		if err := rows.Scan(&c.PlanID, &date, &c.ExerciseID); err != nil {
			return nil, err
		}
		if c.Date, err = calendar.ParseDate(date); err != nil {
			return nil, fmt.Errorf("storage: completion for plan %s: %w", planID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertCompletion records that an exercise was done. Repeats are ignored.
func (d *Database) InsertCompletion(ctx context.Context, c readiness.ExerciseCompletion) error {
	return insertCompletion(ctx, d.db, c)
}

func insertCompletion(ctx context.Context, ex execer, c readiness.ExerciseCompletion) error {
	_, err := ex.ExecContext(ctx,
		`INSERT OR IGNORE INTO exercise_completions (plan_id, date, exercise_id) VALUES (?, ?, ?)`,
		c.PlanID, c.Date.String(), c.ExerciseID,
	)
	if err != nil {
		return fmt.Errorf("storage: insert completion: %w", err)
	}
	return nil
}

// Batch is a set of records imported together.
type Batch struct {
	Schedules   []readiness.ScheduleEntry
	Exceptions  []readiness.ExceptionRecord
	CheckIns    []readiness.CheckInRecord
	Plans       []readiness.RehabPlan
	Completions []readiness.ExerciseCompletion
}

// Len is the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Schedules) + len(b.Exceptions) + len(b.CheckIns) + len(b.Plans) + len(b.Completions)
}

// Import writes the whole batch in one transaction; nothing is stored when
// any record fails.
func (d *Database) Import(ctx context.Context, b Batch) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, s := range b.Schedules {
			if err := upsertSchedule(ctx, tx, s); err != nil {
				return err
			}
		}
		for i := range b.Exceptions {
			if err := insertException(ctx, tx, &b.Exceptions[i]); err != nil {
				return err
			}
		}
		for i := range b.CheckIns {
			if err := insertCheckIn(ctx, tx, &b.CheckIns[i]); err != nil {
				return err
			}
		}
		for i := range b.Plans {
			if err := insertPlan(ctx, tx, &b.Plans[i]); err != nil {
				return err
			}
		}
		for _, c := range b.Completions {
			if err := insertCompletion(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}
